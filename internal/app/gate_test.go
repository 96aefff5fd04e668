package app_test

import (
	"errors"
	"testing"
	"time"

	"contest-reward-service/internal/app"
	"contest-reward-service/internal/domain"
)

func TestGateDwellProgression(t *testing.T) {
	now := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	gate := app.NewGateWithClock(5*time.Second, clock)

	if got := gate.State("q1"); got != app.GateUnopened {
		t.Fatalf("expected unopened before OpenArticle, got %v", got)
	}

	gate.OpenArticle("q1")
	if got := gate.State("q1"); got != app.GateOpenedWaiting {
		t.Fatalf("expected waiting right after open, got %v", got)
	}
	if err := gate.Verify("q1"); !errors.Is(err, domain.ErrGatingIncomplete) {
		t.Fatalf("expected gating error before dwell, got %v", err)
	}

	now = now.Add(5 * time.Second)
	if got := gate.State("q1"); got != app.GateReadComplete {
		t.Fatalf("expected read complete after dwell, got %v", got)
	}
	if err := gate.Verify("q1"); err != nil {
		t.Fatalf("expected verify to pass, got %v", err)
	}
}

func TestGateResetsPerQuestion(t *testing.T) {
	now := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	gate := app.NewGateWithClock(time.Second, func() time.Time { return now })

	gate.OpenArticle("q1")
	now = now.Add(time.Second)

	// A different question never inherits the unlocked gate.
	if got := gate.State("q2"); got != app.GateUnopened {
		t.Fatalf("expected q2 unopened, got %v", got)
	}

	gate.Advance()
	if got := gate.State("q1"); got != app.GateUnopened {
		t.Fatalf("expected unopened after advance, got %v", got)
	}
}
