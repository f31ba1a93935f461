package inspect

import (
	"math"

	"sitewalk/internal/domain"
)

// Score computes the weighted inspection score from the template and
// the session's responses.
//
// The template item list is the source of truth: every item contributes
// its weight to the denominator whether answered or not, so skipping an
// item can never inflate the score. Earned credit is the full weight
// for a pass, (rating/5)*weight for a numeric rating, and zero for a
// fail or an unanswered item. The result is round(earned/total*100),
// or 0 when the template carries no weight. Summation order never
// affects the rounded result.
func Score(t domain.Template, responses map[domain.ResponseKey]domain.Response) int {
	var total, earned float64
	for _, sec := range t.Sections {
		for _, item := range sec.Items {
			w := item.EffectiveWeight()
			total += w

			r, ok := responses[domain.ResponseKey{SectionID: sec.ID, ItemID: item.ID}]
			if !ok {
				continue
			}
			switch {
			case r.Value.IsPass():
				earned += w
			default:
				if n, isRating := r.Value.Rating(); isRating {
					earned += float64(n) / 5 * w
				}
			}
		}
	}
	if total == 0 {
		return 0
	}
	return int(math.Round(earned / total * 100))
}
