package app

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"contest-reward-service/internal/domain"
)

// DrawService selects contest winners. It is the single draw path: every
// caller (lifecycle end, admin endpoint, per-prize draws) goes through Draw,
// so the eligibility rule and the concurrency guard live in exactly one place.
type DrawService struct {
	contests       ContestStore
	settings       SettingsRepository
	participations ParticipationStore
	draws          DrawStore
	locker         ContestLocker
	notifier       Notifier

	mu  sync.Mutex // guards rnd
	rnd *rand.Rand
	now func() time.Time
}

// NewDrawService builds a draw selector around a seedable RNG; tests pass
// rand.New(rand.NewSource(seed)) for deterministic picks.
func NewDrawService(contests ContestStore, settings SettingsRepository, participations ParticipationStore, draws DrawStore, locker ContestLocker, notifier Notifier, rnd *rand.Rand) *DrawService {
	return NewDrawServiceWithClock(contests, settings, participations, draws, locker, notifier, rnd, time.Now)
}

func NewDrawServiceWithClock(contests ContestStore, settings SettingsRepository, participations ParticipationStore, draws DrawStore, locker ContestLocker, notifier Notifier, rnd *rand.Rand, now func() time.Time) *DrawService {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &DrawService{
		contests:       contests,
		settings:       settings,
		participations: participations,
		draws:          draws,
		locker:         locker,
		notifier:       notifier,
		rnd:            rnd,
		now:            now,
	}
}

// EligiblePool returns the participations that may win a draw right now: score
// at or above the contest threshold and not already a winner. No caching; the
// draw must see current scores and statuses.
func (d *DrawService) EligiblePool(ctx context.Context, contestID string) ([]domain.Participation, error) {
	contest, err := d.contests.GetContest(ctx, contestID)
	if err != nil {
		return nil, err
	}
	settings, err := d.settings.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	threshold := domain.Threshold(contest, settings)

	all, err := d.participations.ListParticipations(ctx, contestID)
	if err != nil {
		return nil, err
	}
	pool := make([]domain.Participation, 0, len(all))
	for _, p := range all {
		if p.Status != domain.ParticipationWinner && p.Status != domain.ParticipationIneligible && p.Score >= threshold {
			pool = append(pool, p)
		}
	}
	return pool, nil
}

// Draw picks one winner uniformly at random from the eligible pool, flips the
// participation to winner, appends the draw-history row, and announces the win
// best-effort. The whole read-pool/select/write sequence runs under the
// contest lock; a second concurrent draw gets domain.ErrConcurrentDraw.
// Repeated draws for the same contest (one per prize slot) are safe because
// previous winners drop out of the pool.
func (d *DrawService) Draw(ctx context.Context, contestID string) (domain.DrawEntry, error) {
	release, err := d.locker.Acquire(ctx, contestID)
	if err != nil {
		return domain.DrawEntry{}, err
	}
	defer release()

	contest, err := d.contests.GetContest(ctx, contestID)
	if err != nil {
		return domain.DrawEntry{}, err
	}

	pool, err := d.EligiblePool(ctx, contestID)
	if err != nil {
		return domain.DrawEntry{}, err
	}
	if len(pool) == 0 {
		return domain.DrawEntry{}, domain.ErrNoEligibleParticipants
	}

	winner := pool[d.intn(len(pool))]
	entry := domain.DrawEntry{
		ContestID: contestID,
		UserID:    winner.UserID,
		Email:     winner.Email,
		DrawDate:  d.now(),
	}
	if err := d.draws.RecordWin(ctx, entry); err != nil {
		return domain.DrawEntry{}, err
	}

	// Fire-and-forget: a failed announcement never rolls back the draw.
	go func(email, title string) {
		if err := d.notifier.SendWinnerAnnouncement(email, title); err != nil {
			log.Printf("winner announcement for %s failed: %v", title, err)
		}
	}(winner.Email, contest.Title)

	return entry, nil
}

// History returns the draw records for a contest, oldest first.
func (d *DrawService) History(ctx context.Context, contestID string) ([]domain.DrawEntry, error) {
	return d.draws.ListDraws(ctx, contestID)
}

func (d *DrawService) intn(n int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rnd.Intn(n)
}

// LogNotifier is the default announcement sink.
type LogNotifier struct{}

func (LogNotifier) SendWinnerAnnouncement(email, contestTitle string) error {
	log.Printf("winner announcement: %s won %q", email, contestTitle)
	return nil
}
