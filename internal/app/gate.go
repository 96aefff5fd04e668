package app

import (
	"time"

	"contest-reward-service/internal/domain"
)

// GateState is the read-before-answer progression for one question view.
type GateState int

const (
	GateUnopened GateState = iota
	GateOpenedWaiting
	GateReadComplete
)

// DefaultDwell is the minimum time a participant must keep the linked article
// open before an answer is accepted.
const DefaultDwell = 5 * time.Second

// Gate tracks one participant's read gate for the question currently in view.
// It is owned by a single session (one per connection) and is not safe for
// concurrent use. The state is derived from server-recorded timestamps at read
// time, so a client reporting "done" early gains nothing.
type Gate struct {
	dwell      time.Duration
	now        func() time.Time
	questionID string
	openedAt   time.Time
}

func NewGate(dwell time.Duration) *Gate {
	return NewGateWithClock(dwell, time.Now)
}

// NewGateWithClock allows deterministic timestamps in tests.
func NewGateWithClock(dwell time.Duration, now func() time.Time) *Gate {
	if dwell <= 0 {
		dwell = DefaultDwell
	}
	return &Gate{dwell: dwell, now: now}
}

// OpenArticle starts the dwell window for questionID and returns the time at
// which submission unlocks. Opening a different question resets the gate.
func (g *Gate) OpenArticle(questionID string) time.Time {
	g.questionID = questionID
	g.openedAt = g.now()
	return g.openedAt.Add(g.dwell)
}

// State reports the gate progression for questionID.
func (g *Gate) State(questionID string) GateState {
	if g.questionID != questionID || g.openedAt.IsZero() {
		return GateUnopened
	}
	if g.now().Sub(g.openedAt) < g.dwell {
		return GateOpenedWaiting
	}
	return GateReadComplete
}

// Verify returns ErrGatingIncomplete unless the gate for questionID has
// reached GateReadComplete.
func (g *Gate) Verify(questionID string) error {
	if g.State(questionID) != GateReadComplete {
		return domain.ErrGatingIncomplete
	}
	return nil
}

// Advance resets the gate when the participant moves to the next question.
func (g *Gate) Advance() {
	g.questionID = ""
	g.openedAt = time.Time{}
}
