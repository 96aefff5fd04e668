package app

import (
	"context"

	"contest-reward-service/internal/domain"
)

// CatalogRepository loads contest definitions and their questions
// (from cache/backing store). The engine never writes through it.
type CatalogRepository interface {
	GetCatalog(ctx context.Context, contestID string) (domain.Catalog, error)
}

// CatalogInvalidator drops a cached catalog after a lifecycle mutation.
type CatalogInvalidator interface {
	Invalidate(ctx context.Context, contestID string) error
}

// SettingsRepository reads the global defaults.
type SettingsRepository interface {
	GetSettings(ctx context.Context) (domain.Settings, error)
}

// ContestStore persists lifecycle mutations (status and date stamps only).
type ContestStore interface {
	GetContest(ctx context.Context, contestID string) (domain.Contest, error)
	UpdateContest(ctx context.Context, c domain.Contest) error
}

// ParticipationStore abstracts how participations are stored.
type ParticipationStore interface {
	// Register creates a pending participation or returns the existing one
	// for the same (contest, user).
	Register(ctx context.Context, p domain.Participation) (domain.Participation, error)
	GetParticipation(ctx context.Context, contestID, userID string) (domain.Participation, error)
	UpdateParticipation(ctx context.Context, p domain.Participation) error
	ListParticipations(ctx context.Context, contestID string) ([]domain.Participation, error)
}

// AnswerStore is the append-only attempt log. AppendAnswer enforces the unique
// (contest, user, question, attempt) key and returns domain.ErrDuplicateAnswer
// on replay.
type AnswerStore interface {
	AppendAnswer(ctx context.Context, rec domain.AnswerRecord) error
	ListAnswers(ctx context.Context, contestID, userID string) ([]domain.AnswerRecord, error)
}

// LedgerStore appends a point-award entry and folds it into the user's reward
// aggregate as one atomic unit, returning the updated aggregate. A concurrent
// update to the same user surfaces domain.ErrLedgerConflict; the pair must
// never be left diverged.
type LedgerStore interface {
	Award(ctx context.Context, e domain.LedgerEntry) (domain.RewardAggregate, error)
	ListLedger(ctx context.Context, userID string) ([]domain.LedgerEntry, error)
	GetAggregate(ctx context.Context, userID string) (domain.RewardAggregate, error)
}

// DrawStore records a winner: participation status flips to winner and the
// draw-history row is appended in one atomic unit.
type DrawStore interface {
	RecordWin(ctx context.Context, e domain.DrawEntry) error
	ListDraws(ctx context.Context, contestID string) ([]domain.DrawEntry, error)
}

// ContestLocker serializes the read-pool/select/write section of a draw.
// Acquire returns domain.ErrConcurrentDraw while another holder is active.
type ContestLocker interface {
	Acquire(ctx context.Context, contestID string) (release func(), err error)
}

// Notifier announces a winner. Best-effort: draw outcomes never depend on it.
type Notifier interface {
	SendWinnerAnnouncement(email, contestTitle string) error
}
