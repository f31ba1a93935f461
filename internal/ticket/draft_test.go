package ticket

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitewalk/internal/domain"
)

type fakeCreator struct {
	mu      sync.Mutex
	created []domain.Ticket
	block   chan struct{}
}

func (f *fakeCreator) CreateTicket(ctx context.Context, t domain.Ticket) (domain.Ticket, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = "tk-1"
	f.created = append(f.created, t)
	return t, nil
}

func TestNewDraft_Prefill(t *testing.T) {
	item := domain.Item{ID: "i1", Name: "Emergency exit clear"}

	d := NewDraft(item, "blocked by pallets", "loc-1", "insp-1")
	assert.Equal(t, "Emergency exit clear", d.Title)
	assert.Equal(t, "blocked by pallets", d.Description)
	assert.Equal(t, domain.DefaultTicketCategory, d.Category)
	assert.Equal(t, domain.TicketPriorityMedium, d.Priority)

	// Empty comment falls back to the generic placeholder.
	d = NewDraft(item, "", "loc-1", "insp-1")
	assert.Equal(t, DefaultDescription, d.Description)
}

func TestDraft_SubmitMergesInspectionRefs(t *testing.T) {
	creator := &fakeCreator{}
	d := NewDraft(domain.Item{Name: "Fire door"}, "hinge broken", "loc-9", "insp-4")
	d.Priority = domain.TicketPriorityHigh

	created, err := d.Submit(context.Background(), creator)
	require.NoError(t, err)
	assert.Equal(t, "tk-1", created.ID)

	require.Len(t, creator.created, 1)
	got := creator.created[0]
	assert.Equal(t, "loc-9", got.LocationID)
	assert.Equal(t, "insp-4", got.InspectionID)
	assert.Equal(t, "Fire door", got.ItemName)
	assert.Equal(t, domain.TicketPriorityHigh, got.Priority)
}

func TestDraft_SecondSubmitWhileOutstandingIsRejected(t *testing.T) {
	creator := &fakeCreator{block: make(chan struct{})}
	d := NewDraft(domain.Item{Name: "Ramp"}, "", "loc-1", "insp-1")

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		_, err := d.Submit(context.Background(), creator)
		done <- err
	}()
	<-started
	// Wait until the first submission is marked in flight.
	for !d.Submitting() {
	}

	_, err := d.Submit(context.Background(), creator)
	require.Error(t, err, "concurrent submission must be rejected")

	close(creator.block)
	require.NoError(t, <-done)
	assert.False(t, d.Submitting())
}

func TestDraft_InvalidPriorityDefaultsToMedium(t *testing.T) {
	creator := &fakeCreator{}
	d := NewDraft(domain.Item{Name: "Gate"}, "", "loc-1", "")
	d.Priority = "urgent-ish"
	d.Category = ""

	_, err := d.Submit(context.Background(), creator)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityMedium, creator.created[0].Priority)
	assert.Equal(t, domain.DefaultTicketCategory, creator.created[0].Category)
}
