package inspect

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"sitewalk/internal/api"
	"sitewalk/internal/domain"
)

// fakeService implements Service with overridable function fields.
type fakeService struct {
	mu sync.Mutex

	locations  func(ctx context.Context) ([]domain.Location, error)
	templates  func(ctx context.Context) ([]domain.Template, error)
	template   func(ctx context.Context, id string) (domain.Template, error)
	users      func(ctx context.Context) ([]domain.User, error)
	inspection func(ctx context.Context, id string) (domain.Inspection, error)

	created []domain.Inspection
	updated map[string]domain.Inspection

	createErr error
	updateErr error
}

func newFakeService() *fakeService {
	return &fakeService{updated: make(map[string]domain.Inspection)}
}

func (f *fakeService) Locations(ctx context.Context) ([]domain.Location, error) {
	if f.locations != nil {
		return f.locations(ctx)
	}
	return []domain.Location{{ID: "loc-1", Name: "Plant 7"}}, nil
}

func (f *fakeService) Templates(ctx context.Context) ([]domain.Template, error) {
	if f.templates != nil {
		return f.templates(ctx)
	}
	return []domain.Template{walkthroughTemplate()}, nil
}

func (f *fakeService) Template(ctx context.Context, id string) (domain.Template, error) {
	if f.template != nil {
		return f.template(ctx, id)
	}
	return domain.Template{}, fmt.Errorf("not found")
}

func (f *fakeService) Users(ctx context.Context) ([]domain.User, error) {
	if f.users != nil {
		return f.users(ctx)
	}
	return []domain.User{{ID: "u2", Role: domain.RoleInspector}}, nil
}

func (f *fakeService) Inspection(ctx context.Context, id string) (domain.Inspection, error) {
	if f.inspection != nil {
		return f.inspection(ctx, id)
	}
	return domain.Inspection{}, fmt.Errorf("not found")
}

func (f *fakeService) CreateInspection(ctx context.Context, insp domain.Inspection) (domain.Inspection, error) {
	if f.createErr != nil {
		return domain.Inspection{}, f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	insp.ID = fmt.Sprintf("insp-%d", len(f.created)+1)
	f.created = append(f.created, insp)
	return insp, nil
}

func (f *fakeService) UpdateInspection(ctx context.Context, id string, insp domain.Inspection) (domain.Inspection, error) {
	if f.updateErr != nil {
		return domain.Inspection{}, f.updateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	insp.ID = id
	f.updated[id] = insp
	return insp, nil
}

type captureNotifier struct {
	infos, warns, errs []string
}

func (n *captureNotifier) Info(msg string)  { n.infos = append(n.infos, msg) }
func (n *captureNotifier) Warn(msg string)  { n.warns = append(n.warns, msg) }
func (n *captureNotifier) Error(msg string) { n.errs = append(n.errs, msg) }

func walkthroughTemplate() domain.Template {
	return domain.Template{
		ID:   "tpl-1",
		Name: "Monthly Walkthrough",
		Sections: []domain.Section{
			{
				ID:   "s1",
				Name: "Exterior",
				Items: []domain.Item{
					{ID: "i1", Name: "Fencing intact", Type: domain.ItemTypePassFail, Weight: 1},
					{ID: "i2", Name: "Lighting", Type: domain.ItemTypeRating, Weight: 3},
				},
			},
			{
				ID:   "s2",
				Name: "Interior",
				Items: []domain.Item{
					{ID: "i3", Name: "Exits clear", Type: domain.ItemTypePassFail, Weight: 2},
				},
			},
		},
	}
}

func newRunner(t *testing.T, svc Service, user domain.User) (*Runner, *captureNotifier) {
	t.Helper()
	notifier := &captureNotifier{}
	return New(svc, user, notifier, nil), notifier
}

func beginRunner(t *testing.T, svc *fakeService) (*Runner, *captureNotifier) {
	t.Helper()
	r, notifier := newRunner(t, svc, domain.User{ID: "me", Role: domain.RoleInspector})
	if err := r.LoadNew(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := r.Begin("loc-1", "tpl-1"); err != nil {
		t.Fatal(err)
	}
	return r, notifier
}

// =============================================================================
// Loading (new inspection)
// =============================================================================

func TestLoadNew_FailsSoftPerList(t *testing.T) {
	svc := newFakeService()
	svc.locations = func(ctx context.Context) ([]domain.Location, error) {
		return nil, fmt.Errorf("boom")
	}
	r, notifier := newRunner(t, svc, domain.User{ID: "me", Role: domain.RoleInspector})

	if err := r.LoadNew(context.Background()); err != nil {
		t.Fatalf("LoadNew must not fail hard: %v", err)
	}
	if r.Phase() != PhaseLocationSelect {
		t.Errorf("phase = %s", r.Phase())
	}
	if len(r.Locations()) != 0 {
		t.Error("failed list should be empty")
	}
	if len(r.Templates()) != 1 {
		t.Error("healthy list should load")
	}
	if len(notifier.errs) != 1 {
		t.Errorf("expected exactly one failure notification, got %d", len(notifier.errs))
	}
}

func TestLoadNew_UsersOnlyForPrivileged(t *testing.T) {
	usersCalled := false
	svc := newFakeService()
	svc.users = func(ctx context.Context) ([]domain.User, error) {
		usersCalled = true
		return nil, nil
	}

	r, _ := newRunner(t, svc, domain.User{ID: "me", Role: domain.RoleInspector})
	if err := r.LoadNew(context.Background()); err != nil {
		t.Fatal(err)
	}
	if usersCalled {
		t.Error("plain inspector must not fetch users")
	}

	r, _ = newRunner(t, svc, domain.User{ID: "boss", Role: domain.RoleManager})
	if err := r.LoadNew(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !usersCalled {
		t.Error("privileged user should fetch users")
	}
}

func TestLoadNew_SessionExpiryAborts(t *testing.T) {
	svc := newFakeService()
	svc.templates = func(ctx context.Context) ([]domain.Template, error) {
		return nil, api.ErrSessionExpired
	}
	r, notifier := newRunner(t, svc, domain.User{ID: "me"})

	err := r.LoadNew(context.Background())
	if !errors.Is(err, api.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if len(notifier.errs) != 0 {
		t.Error("session expiry must not surface as a load failure")
	}
}

// =============================================================================
// Selection
// =============================================================================

func TestBegin_RequiresLocationAndTemplate(t *testing.T) {
	svc := newFakeService()
	r, _ := newRunner(t, svc, domain.User{ID: "me"})
	if err := r.LoadNew(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := r.Begin("", "tpl-1"); err == nil {
		t.Error("missing location must be rejected")
	}
	if err := r.Begin("loc-1", ""); err == nil {
		t.Error("missing template must be rejected")
	}
	if r.Phase() != PhaseLocationSelect {
		t.Errorf("failed validation must leave state unchanged, phase = %s", r.Phase())
	}
}

func TestBegin_ZeroSectionsIsTerminalError(t *testing.T) {
	svc := newFakeService()
	svc.templates = func(ctx context.Context) ([]domain.Template, error) {
		return []domain.Template{{ID: "tpl-empty", Name: "Empty"}}, nil
	}
	r, _ := newRunner(t, svc, domain.User{ID: "me"})
	if err := r.LoadNew(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := r.Begin("loc-1", "tpl-empty"); err != nil {
		t.Fatalf("Begin returned %v", err)
	}
	if r.Phase() != PhaseFailed {
		t.Errorf("phase = %s, want failed", r.Phase())
	}
	if !errors.Is(r.Failure(), ErrNoSections) {
		t.Errorf("Failure = %v", r.Failure())
	}
}

func TestSchedule_CreatesPendingPrefilledInspection(t *testing.T) {
	svc := newFakeService()
	r, _ := newRunner(t, svc, domain.User{ID: "me", Role: domain.RoleManager})
	if err := r.LoadNew(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := r.Schedule(context.Background(), "loc-1", "tpl-1", "u2"); err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if r.Phase() != PhaseDone {
		t.Errorf("phase = %s, scheduling must never reach executing", r.Phase())
	}

	if len(svc.created) != 1 {
		t.Fatalf("created = %d inspections", len(svc.created))
	}
	got := svc.created[0]
	if got.Status != domain.InspectionStatusPending {
		t.Errorf("status = %s", got.Status)
	}
	if got.InspectorID != "u2" {
		t.Errorf("inspector = %s", got.InspectorID)
	}
	// Every item prefilled to pass with a null score.
	for _, sec := range got.Sections {
		for _, item := range sec.Items {
			if item.Status != "pass" || item.Score != nil {
				t.Errorf("prefill wrong for %s: %+v", item.ID, item)
			}
		}
	}
}

func TestSchedule_DefaultsAssigneeToSelf(t *testing.T) {
	svc := newFakeService()
	r, _ := newRunner(t, svc, domain.User{ID: "me", Role: domain.RoleInspector})
	if err := r.LoadNew(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := r.Schedule(context.Background(), "loc-1", "tpl-1", ""); err != nil {
		t.Fatal(err)
	}
	if svc.created[0].InspectorID != "me" {
		t.Errorf("inspector = %s, want self", svc.created[0].InspectorID)
	}
}

// =============================================================================
// Recording responses
// =============================================================================

func TestRecord_UpsertPreservesCommentAndPhotos(t *testing.T) {
	r, _ := beginRunner(t, newFakeService())

	comment := "left gate dented"
	if _, err := r.Record("s1", "i1", ResponseUpdate{
		Value:   domain.ValuePass,
		Comment: &comment,
		Photos:  []string{"https://cdn.example.com/gate.jpg"},
	}); err != nil {
		t.Fatal(err)
	}

	// Re-grade without touching comment/photos.
	if _, err := r.Record("s1", "i1", ResponseUpdate{Value: domain.ValuePass}); err != nil {
		t.Fatal(err)
	}
	resp, ok := r.Response("s1", "i1")
	if !ok {
		t.Fatal("response missing")
	}
	if resp.Comment != "left gate dented" || len(resp.Photos) != 1 {
		t.Errorf("editing the grade clobbered other fields: %+v", resp)
	}

	// Explicit new values fully replace.
	newComment := ""
	if _, err := r.Record("s1", "i1", ResponseUpdate{
		Value:   domain.ValueFail,
		Comment: &newComment,
		Photos:  []string{},
	}); err != nil {
		t.Fatal(err)
	}
	resp, _ = r.Response("s1", "i1")
	if resp.Comment != "" || len(resp.Photos) != 0 || !resp.Value.IsFail() {
		t.Errorf("explicit update not applied: %+v", resp)
	}
}

func TestRecord_TicketThresholds(t *testing.T) {
	cases := []struct {
		value      domain.Value
		wantPrompt bool
	}{
		{domain.ValuePass, false},
		{domain.ValueFail, true},
		{domain.RatingValue(1), true},
		{domain.RatingValue(2), true},
		{domain.RatingValue(3), false},
		{domain.RatingValue(4), false},
		{domain.RatingValue(5), false},
	}
	for _, tc := range cases {
		r, _ := beginRunner(t, newFakeService())
		draft, err := r.Record("s1", "i2", ResponseUpdate{Value: tc.value})
		if err != nil {
			t.Fatal(err)
		}
		if (draft != nil) != tc.wantPrompt {
			t.Errorf("value %q: prompt = %v, want %v", tc.value, draft != nil, tc.wantPrompt)
		}
		if (r.PendingTicket() != nil) != tc.wantPrompt {
			t.Errorf("value %q: pending draft = %v", tc.value, r.PendingTicket() != nil)
		}
	}
}

func TestRecord_TicketDraftPrefill(t *testing.T) {
	r, _ := beginRunner(t, newFakeService())

	comment := "bulbs out on north wall"
	draft, err := r.Record("s1", "i2", ResponseUpdate{
		Value:   domain.RatingValue(2),
		Comment: &comment,
	})
	if err != nil {
		t.Fatal(err)
	}
	if draft == nil {
		t.Fatal("expected a draft")
	}
	if draft.Title != "Lighting" || draft.Description != comment {
		t.Errorf("prefill wrong: %+v", draft)
	}
	if draft.LocationID != "loc-1" {
		t.Errorf("location = %s", draft.LocationID)
	}
}

func TestRecord_SecondPromptReplacesPending(t *testing.T) {
	r, _ := beginRunner(t, newFakeService())

	first, _ := r.Record("s1", "i1", ResponseUpdate{Value: domain.ValueFail})
	second, _ := r.Record("s1", "i2", ResponseUpdate{Value: domain.RatingValue(1)})
	if first == nil || second == nil {
		t.Fatal("both prompts should open")
	}
	if r.PendingTicket() != second {
		t.Error("newest draft must replace the pending one")
	}

	r.DismissTicket()
	if r.PendingTicket() != nil {
		t.Error("dismiss must clear the draft")
	}
}

func TestRecord_UnknownItemRejected(t *testing.T) {
	r, _ := beginRunner(t, newFakeService())
	if _, err := r.Record("s1", "nope", ResponseUpdate{Value: domain.ValuePass}); err == nil {
		t.Error("unknown item must be rejected")
	}
}

func TestSetPhotos_AuthoritativeList(t *testing.T) {
	r, _ := beginRunner(t, newFakeService())

	r.SetPhotos("s1", "i1", []string{"a", "b"})
	resp, ok := r.Response("s1", "i1")
	if !ok || len(resp.Photos) != 2 {
		t.Fatalf("photos not applied: %+v", resp)
	}
	// The callback list fully replaces, it is not a delta.
	r.SetPhotos("s1", "i1", []string{"b"})
	resp, _ = r.Response("s1", "i1")
	if len(resp.Photos) != 1 || resp.Photos[0] != "b" {
		t.Errorf("photos = %v", resp.Photos)
	}
}

// =============================================================================
// Navigation
// =============================================================================

func TestNavigation_ForwardBackwardAndBoundaries(t *testing.T) {
	r, _ := beginRunner(t, newFakeService())

	if r.CanPrev() {
		t.Error("first section must not allow prev")
	}
	r.Prev() // no-op at boundary
	if _, idx := r.Section(); idx != 0 {
		t.Error("prev at first section must be a no-op")
	}

	r.Next()
	sec, idx := r.Section()
	if idx != 1 || sec.ID != "s2" {
		t.Errorf("section = %s at %d", sec.ID, idx)
	}
	if !r.CanPrev() {
		t.Error("second section should allow prev")
	}

	r.Next() // last section -> reviewing
	if r.Phase() != PhaseReviewing {
		t.Errorf("phase = %s, want reviewing", r.Phase())
	}

	r.Prev() // back into the last section
	if r.Phase() != PhaseExecuting {
		t.Errorf("phase = %s, want executing", r.Phase())
	}
	if _, idx := r.Section(); idx != 1 {
		t.Errorf("index = %d, want 1", idx)
	}
}

// =============================================================================
// Submission
// =============================================================================

func TestSubmit_NewInspectionCreates(t *testing.T) {
	svc := newFakeService()
	r, notifier := beginRunner(t, svc)

	if _, err := r.Record("s1", "i1", ResponseUpdate{Value: domain.ValuePass}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Record("s1", "i2", ResponseUpdate{Value: domain.RatingValue(4)}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Record("s2", "i3", ResponseUpdate{Value: domain.ValuePass}); err != nil {
		t.Fatal(err)
	}
	r.Next()
	r.Next()
	if r.Phase() != PhaseReviewing {
		t.Fatalf("phase = %s", r.Phase())
	}

	if err := r.Submit(context.Background()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if r.Phase() != PhaseDone {
		t.Errorf("phase = %s", r.Phase())
	}
	if len(svc.created) != 1 {
		t.Fatalf("created %d", len(svc.created))
	}
	got := svc.created[0]
	if got.Status != domain.InspectionStatusCompleted {
		t.Errorf("status = %s", got.Status)
	}
	// weights 1+3+2 = 6, earned 1 + 2.4 + 2 = 5.4 -> 90.
	if got.Score == nil || *got.Score != 90 {
		t.Errorf("score = %v, want 90", got.Score)
	}
	if len(notifier.infos) != 1 {
		t.Errorf("expected a success notification, got %v", notifier.infos)
	}
}

func TestSubmit_FailureStaysInReviewingWithServerMessage(t *testing.T) {
	svc := newFakeService()
	svc.createErr = &api.APIError{Status: 422, Message: "inspection window closed"}
	r, notifier := beginRunner(t, svc)
	r.Next()
	r.Next()

	if err := r.Submit(context.Background()); err == nil {
		t.Fatal("expected submit error")
	}
	if r.Phase() != PhaseReviewing {
		t.Errorf("phase = %s, must remain reviewing", r.Phase())
	}
	if len(notifier.errs) != 1 || notifier.errs[0] != "inspection window closed" {
		t.Errorf("notifications = %v, want the server message", notifier.errs)
	}
}

func TestSubmit_GenericMessageWhenServerSilent(t *testing.T) {
	svc := newFakeService()
	svc.createErr = fmt.Errorf("connection reset")
	r, notifier := beginRunner(t, svc)
	r.Next()
	r.Next()

	if err := r.Submit(context.Background()); err == nil {
		t.Fatal("expected submit error")
	}
	if len(notifier.errs) != 1 || notifier.errs[0] != "Failed to submit inspection." {
		t.Errorf("notifications = %v", notifier.errs)
	}
}

func TestSubmit_SessionExpiryIsQuiet(t *testing.T) {
	svc := newFakeService()
	svc.createErr = api.ErrSessionExpired
	r, notifier := beginRunner(t, svc)
	r.Next()
	r.Next()

	err := r.Submit(context.Background())
	if !errors.Is(err, api.ErrSessionExpired) {
		t.Fatalf("err = %v", err)
	}
	if len(notifier.errs) != 0 {
		t.Error("session expiry must not surface as a submit failure")
	}
}
