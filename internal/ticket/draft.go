// Package ticket handles the maintenance ticket prompt that opens when
// an inspection item fails: a short pre-filled form submitted once, or
// skipped with no side effect.
package ticket

import (
	"context"
	"fmt"
	"sync"

	"sitewalk/internal/domain"
)

// DefaultDescription is used when the failing item has no comment.
const DefaultDescription = "Reported from a failed checklist item during an inspection."

// Creator is the slice of the API client the prompt needs.
type Creator interface {
	CreateTicket(ctx context.Context, ticket domain.Ticket) (domain.Ticket, error)
}

// Draft is the single in-flight ticket form. The wizard holds at most
// one; opening a prompt for another failing item replaces the previous
// draft, intentionally discarding it.
type Draft struct {
	Title       string
	Category    string
	Priority    domain.TicketPriority
	Description string

	// Merged in from the triggering inspection on submit.
	LocationID   string
	InspectionID string
	ItemName     string

	mu         sync.Mutex
	submitting bool
}

// NewDraft pre-fills a draft from the failing item: title from the item
// name, description from the item's comment or the generic placeholder,
// category and priority defaulted.
func NewDraft(item domain.Item, comment, locationID, inspectionID string) *Draft {
	description := comment
	if description == "" {
		description = DefaultDescription
	}
	return &Draft{
		Title:        item.Name,
		Category:     domain.DefaultTicketCategory,
		Priority:     domain.TicketPriorityMedium,
		Description:  description,
		LocationID:   locationID,
		InspectionID: inspectionID,
		ItemName:     item.Name,
	}
}

// Submitting reports whether a create call is outstanding. The prompt
// disables both the submit and skip actions while this is true.
func (d *Draft) Submitting() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.submitting
}

// Submit files the ticket, merging the form fields with the triggering
// inspection's references. Only one submission may be outstanding; the
// draft does not retry on failure, the caller decides whether to reopen
// the prompt.
func (d *Draft) Submit(ctx context.Context, creator Creator) (domain.Ticket, error) {
	d.mu.Lock()
	if d.submitting {
		d.mu.Unlock()
		return domain.Ticket{}, fmt.Errorf("ticket submission already in progress")
	}
	d.submitting = true
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.submitting = false
		d.mu.Unlock()
	}()

	priority := d.Priority
	if !priority.IsValid() {
		priority = domain.TicketPriorityMedium
	}
	category := d.Category
	if category == "" {
		category = domain.DefaultTicketCategory
	}

	return creator.CreateTicket(ctx, domain.Ticket{
		Title:        d.Title,
		Category:     category,
		Priority:     priority,
		Description:  d.Description,
		LocationID:   d.LocationID,
		InspectionID: d.InspectionID,
		ItemName:     d.ItemName,
	})
}
