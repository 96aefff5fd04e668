package app

import (
	"context"
	"log"
	"time"

	"contest-reward-service/internal/domain"
)

// LifecycleService drives a contest through draft → active → completed →
// archived. Archived is terminal.
type LifecycleService struct {
	contests ContestStore
	draw     *DrawService
	cache    CatalogInvalidator
	now      func() time.Time
}

func NewLifecycleService(contests ContestStore, draw *DrawService, cache CatalogInvalidator) *LifecycleService {
	return NewLifecycleServiceWithClock(contests, draw, cache, time.Now)
}

func NewLifecycleServiceWithClock(contests ContestStore, draw *DrawService, cache CatalogInvalidator, now func() time.Time) *LifecycleService {
	return &LifecycleService{contests: contests, draw: draw, cache: cache, now: now}
}

// Activate moves a draft contest to active.
func (l *LifecycleService) Activate(ctx context.Context, contestID string) error {
	contest, err := l.contests.GetContest(ctx, contestID)
	if err != nil {
		return err
	}
	if contest.Status != domain.ContestDraft {
		return domain.ErrInvalidTransition
	}
	contest.Status = domain.ContestActive
	contest.StartDate = l.now()
	if err := l.contests.UpdateContest(ctx, contest); err != nil {
		return err
	}
	l.invalidate(ctx, contestID)
	return nil
}

// EndAndDraw closes an active contest and runs the draw exactly once. Calling
// it on an already completed or archived contest is a no-op.
func (l *LifecycleService) EndAndDraw(ctx context.Context, contestID string) (domain.DrawEntry, error) {
	contest, err := l.contests.GetContest(ctx, contestID)
	if err != nil {
		return domain.DrawEntry{}, err
	}
	switch contest.Status {
	case domain.ContestCompleted, domain.ContestArchived:
		return domain.DrawEntry{}, nil // idempotent guard
	case domain.ContestActive:
	default:
		return domain.DrawEntry{}, domain.ErrInvalidTransition
	}

	ended := l.now()
	contest.EndDate = ended
	contest.DrawDate = ended
	contest.Status = domain.ContestCompleted
	if err := l.contests.UpdateContest(ctx, contest); err != nil {
		return domain.DrawEntry{}, err
	}
	l.invalidate(ctx, contestID)

	// An empty pool leaves the contest completed but undrawn; that is surfaced,
	// not rolled back.
	return l.draw.Draw(ctx, contestID)
}

// Archive retires a completed contest from active listings. No further mutation.
func (l *LifecycleService) Archive(ctx context.Context, contestID string) error {
	contest, err := l.contests.GetContest(ctx, contestID)
	if err != nil {
		return err
	}
	if contest.Status != domain.ContestCompleted {
		return domain.ErrInvalidTransition
	}
	contest.Status = domain.ContestArchived
	if err := l.contests.UpdateContest(ctx, contest); err != nil {
		return err
	}
	l.invalidate(ctx, contestID)
	return nil
}

func (l *LifecycleService) invalidate(ctx context.Context, contestID string) {
	if l.cache == nil {
		return
	}
	if err := l.cache.Invalidate(ctx, contestID); err != nil {
		log.Printf("catalog invalidate %s: %v", contestID, err)
	}
}
