package memory

import (
	"context"
	"sync"

	"contest-reward-service/internal/domain"
)

// DrawLocker is the in-process contest lock for draws. Acquire fails fast with
// ErrConcurrentDraw instead of queueing: a second concurrent draw for the same
// contest is a caller error, not work to serialize.
type DrawLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewDrawLocker() *DrawLocker {
	return &DrawLocker{held: make(map[string]bool)}
}

func (l *DrawLocker) Acquire(_ context.Context, contestID string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[contestID] {
		return nil, domain.ErrConcurrentDraw
	}
	l.held[contestID] = true
	release := func() {
		l.mu.Lock()
		delete(l.held, contestID)
		l.mu.Unlock()
	}
	return release, nil
}
