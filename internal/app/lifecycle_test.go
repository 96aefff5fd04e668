package app_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"contest-reward-service/internal/app"
	"contest-reward-service/internal/domain"
	"contest-reward-service/internal/infra/memory"
)

func newLifecycleFixture(status domain.ContestStatus) (*app.LifecycleService, *app.DrawService, *memory.Store) {
	store := memory.NewStore()
	store.SeedCatalog(domain.Catalog{
		Contest: domain.Contest{ID: "contest-1", Title: "Lifecycle", Status: status},
	})
	ctx := context.Background()
	p, _ := store.Register(ctx, domain.Participation{ContestID: "contest-1", UserID: "a", Email: "a@example.com", Status: domain.ParticipationPending})
	p.Score = 90
	_ = store.UpdateParticipation(ctx, p)

	draw := app.NewDrawService(store, store, store, store, memory.NewDrawLocker(), app.LogNotifier{}, rand.New(rand.NewSource(5)))
	cache := memory.NewCatalogCache(store, time.Minute)
	lifecycle := app.NewLifecycleService(store, draw, cache)
	return lifecycle, draw, store
}

func TestEndAndDrawRunsOnce(t *testing.T) {
	ctx := context.Background()
	lifecycle, draw, store := newLifecycleFixture(domain.ContestActive)

	entry, err := lifecycle.EndAndDraw(ctx, "contest-1")
	if err != nil {
		t.Fatalf("end and draw: %v", err)
	}
	if entry.UserID != "a" {
		t.Fatalf("expected a to win, got %q", entry.UserID)
	}

	contest, _ := store.GetContest(ctx, "contest-1")
	if contest.Status != domain.ContestCompleted {
		t.Fatalf("expected completed, got %s", contest.Status)
	}
	if contest.EndDate.IsZero() || contest.DrawDate.IsZero() {
		t.Fatalf("expected end/draw dates stamped, got %+v", contest)
	}

	// Second call is a no-op: no new draw, no error.
	again, err := lifecycle.EndAndDraw(ctx, "contest-1")
	if err != nil {
		t.Fatalf("repeat end: %v", err)
	}
	if again.UserID != "" {
		t.Fatalf("expected no-op result, got %+v", again)
	}
	history, _ := draw.History(ctx, "contest-1")
	if len(history) != 1 {
		t.Fatalf("expected single draw, got %d", len(history))
	}
}

func TestEndAndDrawEmptyPoolLeavesContestCompleted(t *testing.T) {
	ctx := context.Background()
	lifecycle, _, store := newLifecycleFixture(domain.ContestActive)

	// Drop the only participant below the threshold.
	p, _ := store.GetParticipation(ctx, "contest-1", "a")
	p.Score = 10
	_ = store.UpdateParticipation(ctx, p)

	_, err := lifecycle.EndAndDraw(ctx, "contest-1")
	if !errors.Is(err, domain.ErrNoEligibleParticipants) {
		t.Fatalf("expected empty pool surfaced, got %v", err)
	}
	contest, _ := store.GetContest(ctx, "contest-1")
	if contest.Status != domain.ContestCompleted {
		t.Fatalf("contest should stay completed and undrawn, got %s", contest.Status)
	}
}

func TestLifecycleTransitions(t *testing.T) {
	ctx := context.Background()
	lifecycle, _, store := newLifecycleFixture(domain.ContestDraft)

	// Ending a draft is not a valid jump.
	if _, err := lifecycle.EndAndDraw(ctx, "contest-1"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	// Archiving before completion is not either.
	if err := lifecycle.Archive(ctx, "contest-1"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}

	if err := lifecycle.Activate(ctx, "contest-1"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := lifecycle.Activate(ctx, "contest-1"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected double activate rejected, got %v", err)
	}

	if _, err := lifecycle.EndAndDraw(ctx, "contest-1"); err != nil {
		t.Fatalf("end: %v", err)
	}
	if err := lifecycle.Archive(ctx, "contest-1"); err != nil {
		t.Fatalf("archive: %v", err)
	}
	contest, _ := store.GetContest(ctx, "contest-1")
	if contest.Status != domain.ContestArchived {
		t.Fatalf("expected archived, got %s", contest.Status)
	}

	// Archived is terminal.
	if err := lifecycle.Activate(ctx, "contest-1"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected terminal archive, got %v", err)
	}
}
