// Package inspect implements the wizard's state machine, independent of
// any terminal rendering: loading reference data, walking a template's
// sections, recording responses, spawning ticket drafts on failures,
// scoring, and submitting the finished inspection.
package inspect

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"sitewalk/internal/api"
	"sitewalk/internal/domain"
	"sitewalk/internal/ticket"
)

// Sentinel failures that end the wizard in the terminal error view.
var (
	// ErrNoSections means the chosen template has no sections to walk.
	ErrNoSections = errors.New("template has no sections")

	// ErrTemplateUnavailable means a resumed inspection's template could
	// not be reconstructed from any source.
	ErrTemplateUnavailable = errors.New("inspection template unavailable")
)

// Phase is the wizard's current state.
type Phase int

const (
	// PhaseLoading is only entered when resuming an inspection by id.
	PhaseLoading Phase = iota

	// PhaseLocationSelect collects location, template, and assignee for
	// a new inspection.
	PhaseLocationSelect

	// PhaseExecuting walks the template's sections item by item.
	PhaseExecuting

	// PhaseReviewing shows the computed score before submission.
	PhaseReviewing

	// PhaseDone is the terminal success state; the UI navigates away.
	PhaseDone

	// PhaseFailed is the terminal error view. Failure() carries why.
	PhaseFailed
)

// String returns the phase name for logs.
func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseLocationSelect:
		return "locationSelect"
	case PhaseExecuting:
		return "executing"
	case PhaseReviewing:
		return "reviewing"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	}
	return "unknown"
}

// Service is the slice of the API client the runner drives.
type Service interface {
	Locations(ctx context.Context) ([]domain.Location, error)
	Templates(ctx context.Context) ([]domain.Template, error)
	Template(ctx context.Context, id string) (domain.Template, error)
	Users(ctx context.Context) ([]domain.User, error)
	Inspection(ctx context.Context, id string) (domain.Inspection, error)
	CreateInspection(ctx context.Context, insp domain.Inspection) (domain.Inspection, error)
	UpdateInspection(ctx context.Context, id string, insp domain.Inspection) (domain.Inspection, error)
}

// ResponseUpdate carries one edit to an item's response. Nil Comment or
// Photos means "preserve whatever the existing response holds", so
// editing the graded value never clobbers the other fields.
type ResponseUpdate struct {
	Value   domain.Value
	Comment *string
	Photos  []string
}

// Runner is the wizard engine for one inspection session.
type Runner struct {
	svc      Service
	notifier api.Notifier
	logger   *zap.Logger
	user     domain.User

	phase   Phase
	failure error

	// Reference data for the new-inspection path.
	locations []domain.Location
	templates []domain.Template
	users     []domain.User

	template  domain.Template
	responses map[domain.ResponseKey]domain.Response
	section   int

	locationID  string
	inspectorID string

	// inspection is set when resuming; its ID selects update-vs-create
	// on submit.
	inspection *domain.Inspection

	// pendingDraft is the single modal ticket prompt. Opening another
	// replaces it, intentionally discarding the old draft.
	pendingDraft *ticket.Draft
}

// New creates a runner for the signed-in user.
func New(svc Service, user domain.User, notifier api.Notifier, logger *zap.Logger) *Runner {
	if notifier == nil {
		notifier = api.NopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		svc:       svc,
		notifier:  notifier,
		logger:    logger.Named("wizard"),
		user:      user,
		phase:     PhaseLocationSelect,
		responses: make(map[domain.ResponseKey]domain.Response),
	}
}

// Phase returns the current wizard state.
func (r *Runner) Phase() Phase { return r.phase }

// Failure returns the error that put the wizard into PhaseFailed.
func (r *Runner) Failure() error { return r.failure }

// Template returns the active template.
func (r *Runner) Template() domain.Template { return r.template }

// Locations, Templates, Users expose the reference data for pickers.
func (r *Runner) Locations() []domain.Location { return r.locations }
func (r *Runner) Templates() []domain.Template { return r.templates }
func (r *Runner) Users() []domain.User         { return r.users }

// Resumed reports whether this session continues a persisted inspection.
func (r *Runner) Resumed() bool { return r.inspection != nil && r.inspection.ID != "" }

// InspectionID returns the persisted id when resuming, else empty.
func (r *Runner) InspectionID() string {
	if r.inspection == nil {
		return ""
	}
	return r.inspection.ID
}

// LocationID returns the selected or resumed location.
func (r *Runner) LocationID() string { return r.locationID }

func (r *Runner) fail(err error) {
	r.phase = PhaseFailed
	r.failure = err
	r.logger.Warn("wizard entered failed state", zap.Error(err))
}

// =============================================================================
// Loading
// =============================================================================

// LoadNew fetches locations, templates, and (for privileged users)
// candidate inspectors in parallel. Each list fails soft to empty; a
// single notification covers any number of failures. Session expiry
// aborts the load entirely.
func (r *Runner) LoadNew(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	failures := make([]error, 3)

	g.Go(func() error {
		locations, err := r.svc.Locations(ctx)
		if errors.Is(err, api.ErrSessionExpired) {
			return err
		}
		if err != nil {
			failures[0] = err
			return nil
		}
		r.locations = locations
		return nil
	})
	g.Go(func() error {
		templates, err := r.svc.Templates(ctx)
		if errors.Is(err, api.ErrSessionExpired) {
			return err
		}
		if err != nil {
			failures[1] = err
			return nil
		}
		r.templates = templates
		return nil
	})
	if r.user.IsPrivileged() {
		g.Go(func() error {
			users, err := r.svc.Users(ctx)
			if errors.Is(err, api.ErrSessionExpired) {
				return err
			}
			if err != nil {
				failures[2] = err
				return nil
			}
			r.users = users
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	for _, err := range failures {
		if err != nil {
			r.logger.Warn("reference data load failed", zap.Error(errors.Join(failures...)))
			r.notifier.Error("Some data failed to load. Lists may be incomplete.")
			break
		}
	}
	r.phase = PhaseLocationSelect
	return nil
}

// LoadExisting resumes a persisted inspection by id and jumps straight
// to executing. The working template is reconstructed in priority
// order: the inspection's own snapshot, its embedded template, a fresh
// fetch by template id. When all three fail the wizard lands in the
// terminal error view rather than proceeding with undefined sections.
func (r *Runner) LoadExisting(ctx context.Context, id string) error {
	r.phase = PhaseLoading

	insp, err := r.svc.Inspection(ctx, id)
	if err != nil {
		if errors.Is(err, api.ErrSessionExpired) {
			return err
		}
		r.fail(fmt.Errorf("failed to load inspection %s: %w", id, err))
		return nil
	}
	r.inspection = &insp
	r.locationID = insp.LocationID
	r.inspectorID = insp.InspectorID

	template, err := r.resolveTemplate(ctx, insp)
	if err != nil {
		if errors.Is(err, api.ErrSessionExpired) {
			return err
		}
		r.fail(err)
		return nil
	}
	if len(template.Sections) == 0 {
		r.fail(ErrNoSections)
		return nil
	}
	r.template = template
	r.responses = insp.Rehydrate()
	r.section = 0

	// Best-effort status bump; a failure is logged, never fatal.
	if insp.Status == domain.InspectionStatusPending {
		update := insp
		update.Status = domain.InspectionStatusInProgress
		if _, err := r.svc.UpdateInspection(ctx, insp.ID, update); err != nil {
			if errors.Is(err, api.ErrSessionExpired) {
				return err
			}
			r.logger.Warn("failed to mark inspection in progress",
				zap.String("inspection_id", insp.ID), zap.Error(err))
		} else {
			r.inspection.Status = domain.InspectionStatusInProgress
		}
	}

	r.phase = PhaseExecuting
	r.logger.Info("resumed inspection",
		zap.String("inspection_id", insp.ID),
		zap.Int("sections", len(template.Sections)),
		zap.Int("responses", len(r.responses)))
	return nil
}

func (r *Runner) resolveTemplate(ctx context.Context, insp domain.Inspection) (domain.Template, error) {
	if t, ok := insp.TemplateFromSnapshot(); ok {
		return t, nil
	}
	if t, ok := insp.EmbeddedTemplate(); ok {
		return t, nil
	}
	if insp.TemplateID != "" {
		t, err := r.svc.Template(ctx, insp.TemplateID)
		if err == nil {
			return t, nil
		}
		if errors.Is(err, api.ErrSessionExpired) {
			return domain.Template{}, err
		}
		r.logger.Warn("template fetch fallback failed",
			zap.String("template_id", insp.TemplateID), zap.Error(err))
	}
	return domain.Template{}, ErrTemplateUnavailable
}

// =============================================================================
// Selection
// =============================================================================

// Schedule creates a pending inspection for later instead of entering
// the wizard: every template item is prefilled to status pass with a
// null score, assigned to the chosen inspector or the caller. The
// wizard then exits to the list view without executing.
func (r *Runner) Schedule(ctx context.Context, locationID, templateID, inspectorID string) error {
	template, err := r.pickTemplate(locationID, templateID)
	if err != nil {
		return err
	}
	if inspectorID == "" {
		inspectorID = r.user.ID
	}

	created, err := r.svc.CreateInspection(ctx, domain.Inspection{
		TemplateID:  template.ID,
		LocationID:  locationID,
		InspectorID: inspectorID,
		Status:      domain.InspectionStatusPending,
		Sections:    PendingSnapshot(template),
	})
	if err != nil {
		if errors.Is(err, api.ErrSessionExpired) {
			return err
		}
		r.notifier.Error(submitErrorMessage(err, "Failed to schedule inspection."))
		return err
	}

	r.logger.Info("scheduled inspection",
		zap.String("inspection_id", created.ID),
		zap.String("inspector_id", inspectorID))
	r.notifier.Info("Inspection scheduled.")
	r.phase = PhaseDone
	return nil
}

// Begin starts performing the inspection now. A template without
// sections ends in the terminal error view instead of a crash.
func (r *Runner) Begin(locationID, templateID string) error {
	template, err := r.pickTemplate(locationID, templateID)
	if err != nil {
		return err
	}
	if len(template.Sections) == 0 {
		r.fail(ErrNoSections)
		return nil
	}
	r.template = template
	r.responses = make(map[domain.ResponseKey]domain.Response)
	r.section = 0
	r.inspectorID = r.user.ID
	r.phase = PhaseExecuting
	return nil
}

// pickTemplate validates the selection. Both location and template are
// required; the returned error is shown at the call site and leaves
// state unchanged.
func (r *Runner) pickTemplate(locationID, templateID string) (domain.Template, error) {
	if locationID == "" || templateID == "" {
		return domain.Template{}, fmt.Errorf("location and template are both required")
	}
	for _, t := range r.templates {
		if t.ID == templateID {
			r.locationID = locationID
			return t, nil
		}
	}
	return domain.Template{}, fmt.Errorf("unknown template %q", templateID)
}

// =============================================================================
// Executing
// =============================================================================

// Section returns the current section and its index.
func (r *Runner) Section() (domain.Section, int) {
	if r.section < 0 || r.section >= len(r.template.Sections) {
		return domain.Section{}, r.section
	}
	return r.template.Sections[r.section], r.section
}

// Response returns the recorded response for an item, if any.
func (r *Runner) Response(sectionID, itemID string) (domain.Response, bool) {
	resp, ok := r.responses[domain.ResponseKey{SectionID: sectionID, ItemID: itemID}]
	return resp, ok
}

// Record upserts the response for (sectionID, itemID). Fields left nil
// in the update inherit the existing response's values. When the new
// grade warrants a maintenance ticket, a prefilled draft becomes the
// pending prompt, replacing any draft already open.
func (r *Runner) Record(sectionID, itemID string, update ResponseUpdate) (*ticket.Draft, error) {
	item, ok := r.findItem(sectionID, itemID)
	if !ok {
		return nil, fmt.Errorf("unknown item %s/%s", sectionID, itemID)
	}

	key := domain.ResponseKey{SectionID: sectionID, ItemID: itemID}
	resp := r.responses[key]
	resp.SectionID = sectionID
	resp.ItemID = itemID
	resp.Value = update.Value
	if update.Comment != nil {
		resp.Comment = *update.Comment
	}
	if update.Photos != nil {
		resp.Photos = update.Photos
	}
	r.responses[key] = resp

	if !update.Value.NeedsTicket() {
		return nil, nil
	}
	if r.pendingDraft != nil {
		r.logger.Debug("replacing pending ticket draft", zap.String("item", itemID))
	}
	r.pendingDraft = ticket.NewDraft(item, resp.Comment, r.locationID, r.InspectionID())
	return r.pendingDraft, nil
}

// SetPhotos replaces the photo list on an item's response, creating the
// response if needed. The photo manager's callback feeds this with the
// authoritative full list.
func (r *Runner) SetPhotos(sectionID, itemID string, photos []string) {
	key := domain.ResponseKey{SectionID: sectionID, ItemID: itemID}
	resp := r.responses[key]
	resp.SectionID = sectionID
	resp.ItemID = itemID
	resp.Photos = photos
	r.responses[key] = resp
}

// PendingTicket returns the open ticket draft, nil when none.
func (r *Runner) PendingTicket() *ticket.Draft { return r.pendingDraft }

// DismissTicket discards the pending draft with no side effect.
func (r *Runner) DismissTicket() { r.pendingDraft = nil }

// ResolveTicket clears the pending draft after a successful submission.
func (r *Runner) ResolveTicket() { r.pendingDraft = nil }

func (r *Runner) findItem(sectionID, itemID string) (domain.Item, bool) {
	for _, sec := range r.template.Sections {
		if sec.ID != sectionID {
			continue
		}
		for _, item := range sec.Items {
			if item.ID == itemID {
				return item, true
			}
		}
	}
	return domain.Item{}, false
}

// =============================================================================
// Navigation
// =============================================================================

// CanPrev reports whether a previous section exists.
func (r *Runner) CanPrev() bool { return r.section > 0 }

// CanNext is true whenever executing: the last section's "next" moves
// to review.
func (r *Runner) CanNext() bool { return r.phase == PhaseExecuting }

// Next advances one section, or moves to reviewing from the last one.
func (r *Runner) Next() {
	if r.phase != PhaseExecuting {
		return
	}
	if r.section >= len(r.template.Sections)-1 {
		r.phase = PhaseReviewing
		return
	}
	r.section++
}

// Prev steps back one section; a no-op at the first. From reviewing it
// returns to the last section.
func (r *Runner) Prev() {
	if r.phase == PhaseReviewing {
		r.phase = PhaseExecuting
		r.section = len(r.template.Sections) - 1
		return
	}
	if r.phase != PhaseExecuting || r.section == 0 {
		return
	}
	r.section--
}

// =============================================================================
// Scoring & Submission
// =============================================================================

// Score computes the current weighted score.
func (r *Runner) Score() int {
	return Score(r.template, r.responses)
}

// Submit freezes the session into a snapshot with status completed and
// persists it: an update when resuming, a create otherwise. On failure
// the wizard stays in reviewing and the server's message (when present)
// is surfaced.
func (r *Runner) Submit(ctx context.Context) error {
	if len(r.template.Sections) == 0 {
		r.fail(ErrNoSections)
		return ErrNoSections
	}

	// The pointer keeps a legitimate score of 0 on the wire; only a
	// pending record omits the field.
	score := r.Score()
	insp := domain.Inspection{
		TemplateID:  r.template.ID,
		LocationID:  r.locationID,
		InspectorID: r.inspectorID,
		Status:      domain.InspectionStatusCompleted,
		Sections:    BuildSnapshot(r.template, r.responses),
		Score:       &score,
	}

	var err error
	if r.Resumed() {
		_, err = r.svc.UpdateInspection(ctx, r.inspection.ID, insp)
	} else {
		_, err = r.svc.CreateInspection(ctx, insp)
	}
	if err != nil {
		if errors.Is(err, api.ErrSessionExpired) {
			return err
		}
		r.notifier.Error(submitErrorMessage(err, "Failed to submit inspection."))
		return err
	}

	r.logger.Info("inspection submitted",
		zap.String("inspection_id", r.InspectionID()),
		zap.Int("score", score))
	r.notifier.Info(fmt.Sprintf("Inspection submitted. Score: %d%%", score))
	r.phase = PhaseDone
	return nil
}

// submitErrorMessage prefers the server-provided message over the
// generic fallback.
func submitErrorMessage(err error, fallback string) string {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
