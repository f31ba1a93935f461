package inspect

import (
	"strconv"

	"sitewalk/internal/domain"
)

// BuildSnapshot freezes the template structure plus the session's
// responses into the section/item shape persisted on an inspection.
// Unanswered items default to status "pass" with a null score, matching
// the prefill used when an inspection is scheduled for later.
func BuildSnapshot(t domain.Template, responses map[domain.ResponseKey]domain.Response) []domain.SectionSnapshot {
	sections := make([]domain.SectionSnapshot, 0, len(t.Sections))
	for _, sec := range t.Sections {
		snap := domain.SectionSnapshot{ID: sec.ID, Name: sec.Name}
		for _, item := range sec.Items {
			is := domain.ItemSnapshot{
				ID:     item.ID,
				Name:   item.Name,
				Type:   item.Type,
				Weight: item.Weight,
				Status: string(domain.ValuePass),
			}
			if r, ok := responses[domain.ResponseKey{SectionID: sec.ID, ItemID: item.ID}]; ok {
				is.Comment = r.Comment
				is.Photos = r.Photos
				switch {
				case r.Value.IsFail():
					is.Status = string(domain.ValueFail)
				default:
					if n, isRating := r.Value.Rating(); isRating {
						score := float64(n)
						is.Status = strconv.Itoa(n)
						is.Score = &score
					}
				}
			}
			snap.Items = append(snap.Items, is)
		}
		sections = append(sections, snap)
	}
	return sections
}

// PendingSnapshot is the prefill stored when an inspection is scheduled
// without being performed: every item status "pass", score null.
func PendingSnapshot(t domain.Template) []domain.SectionSnapshot {
	return BuildSnapshot(t, nil)
}
