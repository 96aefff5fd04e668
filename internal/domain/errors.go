package domain

import "errors"

var (
	// ErrContestNotFound indicates an unknown contest ID.
	ErrContestNotFound = errors.New("contest not found")
	// ErrQuestionNotFound indicates a submitted question ID is invalid for the contest.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrParticipationNotFound is returned when a user acts before registering.
	ErrParticipationNotFound = errors.New("participation not found")
	// ErrNotAuthenticated is returned when the caller identity is missing; nothing is written.
	ErrNotAuthenticated = errors.New("caller not authenticated")
	// ErrContestClosed is returned when answers arrive for a contest that is not active.
	ErrContestClosed = errors.New("contest not accepting answers")
	// ErrGatingIncomplete is returned when an answer arrives before the read gate unlocks.
	ErrGatingIncomplete = errors.New("article read gate not complete")
	// ErrDuplicateAnswer rejects a replayed or out-of-order attempt number.
	ErrDuplicateAnswer = errors.New("duplicate answer attempt")
	// ErrAttemptsExhausted is returned once a question's retry allowance is used up.
	ErrAttemptsExhausted = errors.New("attempts exhausted for question")
	// ErrNoEligibleParticipants is returned by a draw over an empty pool; the contest stays undrawn.
	ErrNoEligibleParticipants = errors.New("no eligible participants")
	// ErrConcurrentDraw is returned when another draw holds the contest lock.
	ErrConcurrentDraw = errors.New("draw already in progress for contest")
	// ErrInvalidTransition rejects a lifecycle jump outside draft→active→completed→archived.
	ErrInvalidTransition = errors.New("invalid contest status transition")
	// ErrLedgerConflict signals an optimistic-concurrency clash on the reward aggregate;
	// callers retry the award.
	ErrLedgerConflict = errors.New("reward aggregate version conflict")
)
