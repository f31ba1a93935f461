// Package domain contains the core business types shared by the wizard
// engine, the API client, and the TUI: checklist templates, inspections,
// responses, and maintenance tickets.
package domain

// =============================================================================
// Checklist Templates
// =============================================================================

// ItemType classifies how an item is graded.
type ItemType string

const (
	// ItemTypePassFail is graded "pass" or "fail".
	ItemTypePassFail ItemType = "pass_fail"

	// ItemTypeRating is graded on a 1-5 scale.
	ItemTypeRating ItemType = "rating_1_5"
)

// IsValid returns true for a recognized item type.
func (t ItemType) IsValid() bool {
	return t == ItemTypePassFail || t == ItemTypeRating
}

// Item is a single checklist question with a response type and weight.
type Item struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Type        ItemType `json:"type"`
	Weight      float64  `json:"weight,omitempty"`
}

// EffectiveWeight returns the item weight, defaulting to 1 when unset.
func (it Item) EffectiveWeight() float64 {
	if it.Weight <= 0 {
		return 1
	}
	return it.Weight
}

// Section is a named grouping of items within a template.
type Section struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Items []Item `json:"items"`
}

// Template is a reusable checklist definition. It is immutable once
// loaded for a wizard session.
type Template struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Sections []Section `json:"sections"`
}

// TotalWeight sums the effective weight of every item across all sections.
func (t Template) TotalWeight() float64 {
	var total float64
	for _, sec := range t.Sections {
		for _, it := range sec.Items {
			total += it.EffectiveWeight()
		}
	}
	return total
}

// ItemCount returns the number of items across all sections.
func (t Template) ItemCount() int {
	n := 0
	for _, sec := range t.Sections {
		n += len(sec.Items)
	}
	return n
}

// =============================================================================
// Reference Data
// =============================================================================

// Location is a facility that inspections are performed at.
type Location struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

// Role is a user's role on the remote service.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleSupervisor Role = "supervisor"
	RoleInspector  Role = "inspector"
)

// User is an account on the remote service.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Role  Role   `json:"role"`
}

// IsPrivileged reports whether this user may assign inspections to
// other users and therefore sees the inspector picker.
func (u User) IsPrivileged() bool {
	return u.Role == RoleAdmin || u.Role == RoleManager
}

// CanBeAssigned reports whether this user is a valid assignee for an
// inspection. The /users listing is filtered client-side with this.
func (u User) CanBeAssigned() bool {
	return u.Role == RoleSupervisor || u.Role == RoleInspector
}

// FilterAssignable returns the subset of users that can be assigned
// inspections, preserving order.
func FilterAssignable(users []User) []User {
	out := make([]User, 0, len(users))
	for _, u := range users {
		if u.CanBeAssigned() {
			out = append(out, u)
		}
	}
	return out
}
