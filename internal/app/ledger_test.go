package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"contest-reward-service/internal/app"
	"contest-reward-service/internal/domain"
	"contest-reward-service/internal/infra/memory"
)

func TestConcurrentAwardsStayConsistent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	ledger := app.NewLedgerService(store)

	// Simultaneous awards for the same user across different contests.
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			contest := "contest-a"
			if i%2 == 0 {
				contest = "contest-b"
			}
			if _, err := ledger.Award(ctx, "u1", 1, "answer", contest, 1); err != nil {
				t.Errorf("award: %v", err)
			}
		}(i)
	}
	wg.Wait()

	agg, err := ledger.Aggregate(ctx, "u1")
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	entries, err := ledger.Entries(ctx, "u1")
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	sum := 0
	for _, e := range entries {
		sum += e.Points
	}
	if len(entries) != 50 || sum != 50 || agg.TotalPoints != 50 {
		t.Fatalf("expected 50 entries summing to the aggregate, got entries=%d sum=%d total=%d", len(entries), sum, agg.TotalPoints)
	}
}

func TestAwardRecomputesRankAndBonus(t *testing.T) {
	ctx := context.Background()
	ledger := app.NewLedgerService(memory.NewStore())

	var agg domain.RewardAggregate
	var err error
	for i := 0; i < 25; i++ {
		agg, err = ledger.Award(ctx, "u1", 1, "answer", "contest-1", i+1)
		if err != nil {
			t.Fatalf("award %d: %v", i, err)
		}
	}
	if agg.TotalPoints != 25 || agg.CurrentRank != "silver" || agg.ExtraParticipations != 1 {
		t.Fatalf("expected 25 points silver with 1 bonus, got %+v", agg)
	}
	if agg.BestStreak != 25 || agg.CurrentStreak != 25 {
		t.Fatalf("expected streak 25, got %+v", agg)
	}
}

// conflictingStore fails the first n awards with the optimistic-concurrency
// sentinel, the way the Postgres store does under contention.
type conflictingStore struct {
	app.LedgerStore
	mu        sync.Mutex
	conflicts int
}

func (s *conflictingStore) Award(ctx context.Context, e domain.LedgerEntry) (domain.RewardAggregate, error) {
	s.mu.Lock()
	if s.conflicts > 0 {
		s.conflicts--
		s.mu.Unlock()
		return domain.RewardAggregate{}, domain.ErrLedgerConflict
	}
	s.mu.Unlock()
	return s.LedgerStore.Award(ctx, e)
}

func TestAwardRetriesVersionConflicts(t *testing.T) {
	ctx := context.Background()
	store := &conflictingStore{LedgerStore: memory.NewStore(), conflicts: 2}
	ledger := app.NewLedgerService(store)

	agg, err := ledger.Award(ctx, "u1", 1, "answer", "contest-1", 1)
	if err != nil {
		t.Fatalf("expected retries to succeed, got %v", err)
	}
	if agg.TotalPoints != 1 {
		t.Fatalf("expected 1 point, got %d", agg.TotalPoints)
	}

	exhausted := &conflictingStore{LedgerStore: memory.NewStore(), conflicts: 100}
	if _, err := app.NewLedgerService(exhausted).Award(ctx, "u1", 1, "answer", "contest-1", 1); !errors.Is(err, domain.ErrLedgerConflict) {
		t.Fatalf("expected conflict surfaced after retries, got %v", err)
	}
}
