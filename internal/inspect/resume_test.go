package inspect

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"sitewalk/internal/domain"
)

func resumableInspection() domain.Inspection {
	score := 4.0
	return domain.Inspection{
		ID:          "insp-7",
		TemplateID:  "tpl-1",
		LocationID:  "loc-1",
		InspectorID: "me",
		Status:      domain.InspectionStatusInProgress,
		Template: &domain.Template{
			ID:   "tpl-1",
			Name: "Monthly Walkthrough",
			Sections: []domain.Section{
				{ID: "stale", Name: "Stale embedded section"},
			},
		},
		Sections: []domain.SectionSnapshot{
			{
				ID:   "s1",
				Name: "Exterior",
				Items: []domain.ItemSnapshot{
					{ID: "i1", Name: "Fencing intact", Status: "fail", Comment: "hole in fence"},
					{ID: "i2", Name: "Lighting", Type: domain.ItemTypeRating, Weight: 3, Status: "4", Score: &score},
				},
			},
		},
	}
}

func TestLoadExisting_SnapshotTakesPriorityOverEmbedded(t *testing.T) {
	svc := newFakeService()
	svc.inspection = func(ctx context.Context, id string) (domain.Inspection, error) {
		return resumableInspection(), nil
	}
	r, _ := newRunner(t, svc, domain.User{ID: "me"})

	if err := r.LoadExisting(context.Background(), "insp-7"); err != nil {
		t.Fatalf("LoadExisting failed: %v", err)
	}
	if r.Phase() != PhaseExecuting {
		t.Fatalf("phase = %s, resume must jump to executing", r.Phase())
	}

	tpl := r.Template()
	if len(tpl.Sections) != 1 || tpl.Sections[0].ID != "s1" {
		t.Errorf("snapshot must win over the embedded template: %+v", tpl.Sections)
	}

	// Responses rehydrated from the snapshot.
	failed, ok := r.Response("s1", "i1")
	if !ok || !failed.Value.IsFail() || failed.Comment != "hole in fence" {
		t.Errorf("fail rehydration wrong: %+v", failed)
	}
	rated, _ := r.Response("s1", "i2")
	if n, isRating := rated.Value.Rating(); !isRating || n != 4 {
		t.Errorf("rating rehydration wrong: %+v", rated)
	}
}

func TestLoadExisting_EmbeddedTemplateFallback(t *testing.T) {
	svc := newFakeService()
	svc.inspection = func(ctx context.Context, id string) (domain.Inspection, error) {
		return domain.Inspection{
			ID:         "insp-8",
			TemplateID: "tpl-1",
			Status:     domain.InspectionStatusInProgress,
			Template: &domain.Template{
				ID: "tpl-1",
				Sections: []domain.Section{
					{ID: "s1", Items: []domain.Item{{ID: "i1", Name: "Door", Type: domain.ItemTypePassFail}}},
				},
			},
		}, nil
	}
	r, _ := newRunner(t, svc, domain.User{ID: "me"})

	if err := r.LoadExisting(context.Background(), "insp-8"); err != nil {
		t.Fatal(err)
	}
	if r.Phase() != PhaseExecuting {
		t.Fatalf("phase = %s", r.Phase())
	}
	if r.Template().Sections[0].ID != "s1" {
		t.Errorf("embedded template not used: %+v", r.Template())
	}
}

func TestLoadExisting_FetchFallback(t *testing.T) {
	svc := newFakeService()
	svc.inspection = func(ctx context.Context, id string) (domain.Inspection, error) {
		return domain.Inspection{ID: "insp-9", TemplateID: "tpl-1", Status: domain.InspectionStatusInProgress}, nil
	}
	fetched := false
	svc.template = func(ctx context.Context, id string) (domain.Template, error) {
		fetched = true
		if id != "tpl-1" {
			t.Errorf("fetched template %s", id)
		}
		return walkthroughTemplate(), nil
	}
	r, _ := newRunner(t, svc, domain.User{ID: "me"})

	if err := r.LoadExisting(context.Background(), "insp-9"); err != nil {
		t.Fatal(err)
	}
	if !fetched {
		t.Error("template fetch fallback not used")
	}
	if r.Phase() != PhaseExecuting {
		t.Errorf("phase = %s", r.Phase())
	}
}

func TestLoadExisting_AllFallbacksExhaustedIsTerminal(t *testing.T) {
	svc := newFakeService()
	svc.inspection = func(ctx context.Context, id string) (domain.Inspection, error) {
		return domain.Inspection{ID: "insp-10", TemplateID: "tpl-gone", Status: domain.InspectionStatusInProgress}, nil
	}
	svc.template = func(ctx context.Context, id string) (domain.Template, error) {
		return domain.Template{}, fmt.Errorf("404")
	}
	r, _ := newRunner(t, svc, domain.User{ID: "me"})

	if err := r.LoadExisting(context.Background(), "insp-10"); err != nil {
		t.Fatal(err)
	}
	if r.Phase() != PhaseFailed {
		t.Fatalf("phase = %s, want failed", r.Phase())
	}
	if !errors.Is(r.Failure(), ErrTemplateUnavailable) {
		t.Errorf("Failure = %v", r.Failure())
	}
}

func TestLoadExisting_InspectionFetchFailureIsTerminal(t *testing.T) {
	svc := newFakeService()
	svc.inspection = func(ctx context.Context, id string) (domain.Inspection, error) {
		return domain.Inspection{}, fmt.Errorf("404")
	}
	r, _ := newRunner(t, svc, domain.User{ID: "me"})

	if err := r.LoadExisting(context.Background(), "missing"); err != nil {
		t.Fatal(err)
	}
	if r.Phase() != PhaseFailed {
		t.Errorf("phase = %s", r.Phase())
	}
}

func TestLoadExisting_PendingTransitionsToInProgress(t *testing.T) {
	svc := newFakeService()
	svc.inspection = func(ctx context.Context, id string) (domain.Inspection, error) {
		insp := resumableInspection()
		insp.Status = domain.InspectionStatusPending
		return insp, nil
	}
	r, _ := newRunner(t, svc, domain.User{ID: "me"})

	if err := r.LoadExisting(context.Background(), "insp-7"); err != nil {
		t.Fatal(err)
	}
	updated, ok := svc.updated["insp-7"]
	if !ok {
		t.Fatal("pending inspection should be bumped to in_progress")
	}
	if updated.Status != domain.InspectionStatusInProgress {
		t.Errorf("status = %s", updated.Status)
	}
}

func TestLoadExisting_StatusBumpFailureIsNotFatal(t *testing.T) {
	svc := newFakeService()
	svc.inspection = func(ctx context.Context, id string) (domain.Inspection, error) {
		insp := resumableInspection()
		insp.Status = domain.InspectionStatusPending
		return insp, nil
	}
	svc.updateErr = fmt.Errorf("503")
	r, _ := newRunner(t, svc, domain.User{ID: "me"})

	if err := r.LoadExisting(context.Background(), "insp-7"); err != nil {
		t.Fatal(err)
	}
	if r.Phase() != PhaseExecuting {
		t.Errorf("phase = %s, status bump failure must not block resume", r.Phase())
	}
}

func TestSubmit_ResumedInspectionUpdatesById(t *testing.T) {
	svc := newFakeService()
	svc.inspection = func(ctx context.Context, id string) (domain.Inspection, error) {
		return resumableInspection(), nil
	}
	r, _ := newRunner(t, svc, domain.User{ID: "me"})
	if err := r.LoadExisting(context.Background(), "insp-7"); err != nil {
		t.Fatal(err)
	}

	// Fix the failed item and submit.
	if _, err := r.Record("s1", "i1", ResponseUpdate{Value: domain.ValuePass}); err != nil {
		t.Fatal(err)
	}
	r.Next()
	if r.Phase() != PhaseReviewing {
		t.Fatalf("phase = %s", r.Phase())
	}
	if err := r.Submit(context.Background()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	updated, ok := svc.updated["insp-7"]
	if !ok {
		t.Fatal("resumed submit must update, not create")
	}
	if len(svc.created) != 0 {
		t.Error("resumed submit must not create a new inspection")
	}
	if updated.Status != domain.InspectionStatusCompleted {
		t.Errorf("status = %s", updated.Status)
	}
	// weights 1 (default) + 3: pass earns 1, rating 4 earns 2.4 -> 85.
	if updated.Score == nil || *updated.Score != 85 {
		t.Errorf("score = %v, want 85", updated.Score)
	}
}
