package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"contest-reward-service/internal/domain"
)

const awardRetries = 3

// LedgerService is the points ledger and rank calculator. The ledger is
// append-only; the aggregate (total, streaks, rank, bonus attempts) is a
// derived cache the store updates atomically with each append.
type LedgerService struct {
	store LedgerStore
	now   func() time.Time
}

func NewLedgerService(store LedgerStore) *LedgerService {
	return NewLedgerServiceWithClock(store, time.Now)
}

// NewLedgerServiceWithClock allows deterministic award timestamps in tests.
func NewLedgerServiceWithClock(store LedgerStore, now func() time.Time) *LedgerService {
	return &LedgerService{store: store, now: now}
}

// Award appends a ledger entry and returns the updated aggregate. Version
// conflicts from concurrent awards for the same user are retried; a persistent
// store failure is wrapped and surfaced, with ledger and aggregate guaranteed
// consistent by the store.
func (l *LedgerService) Award(ctx context.Context, userID string, points int, source, contestID string, streak int) (domain.RewardAggregate, error) {
	entry := domain.LedgerEntry{
		UserID:    userID,
		Points:    points,
		Source:    source,
		ContestID: contestID,
		Streak:    streak,
		AwardedAt: l.now(),
	}

	var lastErr error
	for attempt := 0; attempt < awardRetries; attempt++ {
		agg, err := l.store.Award(ctx, entry)
		if err == nil {
			return agg, nil
		}
		if !errors.Is(err, domain.ErrLedgerConflict) {
			return domain.RewardAggregate{}, fmt.Errorf("ledger award: %w", err)
		}
		lastErr = err
	}
	return domain.RewardAggregate{}, fmt.Errorf("ledger award: %w", lastErr)
}

// Aggregate returns the user's current reward aggregate.
func (l *LedgerService) Aggregate(ctx context.Context, userID string) (domain.RewardAggregate, error) {
	return l.store.GetAggregate(ctx, userID)
}

// Entries returns the user's full award history.
func (l *LedgerService) Entries(ctx context.Context, userID string) ([]domain.LedgerEntry, error) {
	return l.store.ListLedger(ctx, userID)
}
