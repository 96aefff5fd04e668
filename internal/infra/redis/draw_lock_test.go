package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"contest-reward-service/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
)

func TestDrawLockerLease(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	locker := NewDrawLocker(client, time.Minute)

	release, err := locker.Acquire(context.Background(), "c1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if !mr.Exists("contest:c1:drawlock") {
		t.Fatalf("expected lock key set")
	}

	if _, err := locker.Acquire(context.Background(), "c1"); !errors.Is(err, domain.ErrConcurrentDraw) {
		t.Fatalf("expected concurrent draw error, got %v", err)
	}

	release()
	if mr.Exists("contest:c1:drawlock") {
		t.Fatalf("expected lock key released")
	}

	release2, err := locker.Acquire(context.Background(), "c1")
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	release2()
}

// Acquire runs from concurrent draw requests across different contests; the
// shared token source must hold up under the race detector.
func TestDrawLockerConcurrentAcquire(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	locker := NewDrawLocker(client, time.Minute)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		contestID := fmt.Sprintf("c%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(context.Background(), contestID)
			if err != nil {
				errs <- err
				return
			}
			release()
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("acquire: %v", err)
	}
}

func TestDrawLockerLeaseExpires(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	locker := NewDrawLocker(client, time.Second)

	if _, err := locker.Acquire(context.Background(), "c1"); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	// A crashed holder never releases; the TTL reclaims the lease.
	mr.FastForward(2 * time.Second)
	release, err := locker.Acquire(context.Background(), "c1")
	if err != nil {
		t.Fatalf("acquire after expiry: %v", err)
	}
	release()
}
