package domain

// TicketPriority is the urgency of a maintenance ticket.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
)

// IsValid returns true for a recognized priority.
func (p TicketPriority) IsValid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return true
	}
	return false
}

// DefaultTicketCategory is applied when the inspector does not pick one.
const DefaultTicketCategory = "maintenance"

// Ticket is a maintenance record spawned from a failing inspection
// item. Once created it has a lifecycle of its own, independent of the
// inspection that spawned it.
type Ticket struct {
	ID           string         `json:"id,omitempty"`
	Title        string         `json:"title"`
	Category     string         `json:"category"`
	Priority     TicketPriority `json:"priority"`
	Description  string         `json:"description"`
	LocationID   string         `json:"locationId,omitempty"`
	InspectionID string         `json:"inspectionId,omitempty"`
	ItemName     string         `json:"itemName,omitempty"`
}
