package domain

import "fmt"

// =============================================================================
// Inspection Status
// =============================================================================

// InspectionStatus represents the lifecycle state of a persisted
// inspection on the remote service.
type InspectionStatus string

const (
	// InspectionStatusPending indicates the inspection is scheduled but
	// not yet started.
	InspectionStatusPending InspectionStatus = "pending"

	// InspectionStatusInProgress indicates an inspector has opened the
	// inspection and is recording responses.
	InspectionStatusInProgress InspectionStatus = "in_progress"

	// InspectionStatusCompleted indicates the inspection was submitted
	// with a final score.
	InspectionStatusCompleted InspectionStatus = "completed"
)

// String returns the string representation of the status.
func (s InspectionStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is a recognized value.
func (s InspectionStatus) IsValid() bool {
	switch s {
	case InspectionStatusPending, InspectionStatusInProgress, InspectionStatusCompleted:
		return true
	}
	return false
}

// CanTransitionTo checks whether the status may move to target.
//
// Valid transitions:
// - pending -> in_progress (inspector resumes a scheduled inspection)
// - pending -> completed (an inspection performed immediately on creation)
// - in_progress -> completed (final submit)
func (s InspectionStatus) CanTransitionTo(target InspectionStatus) bool {
	switch s {
	case InspectionStatusPending:
		return target == InspectionStatusInProgress || target == InspectionStatusCompleted
	case InspectionStatusInProgress:
		return target == InspectionStatusCompleted
	}
	return false
}

// TransitionTo validates and applies a status transition.
func (i *Inspection) TransitionTo(target InspectionStatus) error {
	if !i.Status.CanTransitionTo(target) {
		return fmt.Errorf("cannot transition inspection from %s to %s", i.Status, target)
	}
	i.Status = target
	return nil
}

// =============================================================================
// Snapshots
// =============================================================================

// ItemSnapshot is the frozen copy of one item as stored on a persisted
// inspection: the template item's identity plus the recorded grade.
// Score is nil for unanswered or pass/fail items.
type ItemSnapshot struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Type    ItemType `json:"type,omitempty"`
	Weight  float64  `json:"weight,omitempty"`
	Status  string   `json:"status"`
	Score   *float64 `json:"score"`
	Comment string   `json:"comment,omitempty"`
	Photos  []string `json:"photos,omitempty"`
}

// SectionSnapshot is the frozen copy of one section.
type SectionSnapshot struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Items []ItemSnapshot `json:"items"`
}

// Value reconstructs the session grade that produced this snapshot:
// status "fail" maps to fail, a numeric score maps back to the rating,
// anything else counts as pass.
func (s ItemSnapshot) Value() Value {
	if s.Status == string(ValueFail) {
		return ValueFail
	}
	if s.Score != nil {
		return RatingValue(int(*s.Score))
	}
	return ValuePass
}

// =============================================================================
// Inspection
// =============================================================================

// Inspection is a concrete, persisted execution of a template at a
// location by an inspector. Sections carry the frozen snapshot taken at
// scheduling or submission time, independent of later template edits.
type Inspection struct {
	ID          string            `json:"id,omitempty"`
	TemplateID  string            `json:"templateId"`
	Template    *Template         `json:"template,omitempty"`
	LocationID  string            `json:"locationId"`
	InspectorID string            `json:"inspectorId"`
	Status      InspectionStatus  `json:"status"`
	Sections    []SectionSnapshot `json:"sections,omitempty"`

	// Score is nil until the inspection is submitted: a scheduled
	// pending record carries no score field at all, while a completed
	// one always carries it, zero included.
	Score *int `json:"score,omitempty"`
	CreatedAt   string            `json:"createdAt,omitempty"`
	UpdatedAt   string            `json:"updatedAt,omitempty"`
}

// TemplateFromSnapshot rebuilds a Template-shaped structure from the
// inspection's own section snapshot. The snapshot is the preferred
// source when resuming: it reflects what was actually assigned even if
// the template changed since. Returns false when there is no snapshot.
func (i Inspection) TemplateFromSnapshot() (Template, bool) {
	if len(i.Sections) == 0 {
		return Template{}, false
	}
	t := Template{ID: i.TemplateID}
	if i.Template != nil {
		t.Name = i.Template.Name
	}
	for _, sec := range i.Sections {
		s := Section{ID: sec.ID, Name: sec.Name}
		for _, item := range sec.Items {
			typ := item.Type
			if typ == "" {
				typ = ItemTypePassFail
			}
			s.Items = append(s.Items, Item{
				ID:     item.ID,
				Name:   item.Name,
				Type:   typ,
				Weight: item.Weight,
			})
		}
		t.Sections = append(t.Sections, s)
	}
	return t, true
}

// EmbeddedTemplate returns the inspection's embedded template when it
// carries full section data. Second-priority source on resume.
func (i Inspection) EmbeddedTemplate() (Template, bool) {
	if i.Template == nil || len(i.Template.Sections) == 0 {
		return Template{}, false
	}
	return *i.Template, true
}

// Rehydrate converts the snapshot's recorded grades back into the
// session response map used by the wizard.
func (i Inspection) Rehydrate() map[ResponseKey]Response {
	responses := make(map[ResponseKey]Response)
	for _, sec := range i.Sections {
		for _, item := range sec.Items {
			r := Response{
				SectionID: sec.ID,
				ItemID:    item.ID,
				Value:     item.Value(),
				Comment:   item.Comment,
				Photos:    item.Photos,
			}
			responses[r.Key()] = r
		}
	}
	return responses
}
