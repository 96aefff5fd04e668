package memory

import (
	"context"
	"sync"

	"contest-reward-service/internal/domain"
)

// Store is the in-memory implementation of every app store interface. A single
// mutex makes each store operation atomic, which is exactly the all-or-nothing
// guarantee the ledger and draw writes need.
type Store struct {
	mu             sync.RWMutex
	contests       map[string]domain.Contest
	questions      map[string][]domain.Question
	participations map[string]map[string]domain.Participation // contestID → userID
	answers        map[string][]domain.AnswerRecord           // contestID|userID
	ledger         map[string][]domain.LedgerEntry            // userID
	aggregates     map[string]domain.RewardAggregate
	draws          map[string][]domain.DrawEntry
	settings       domain.Settings
}

func NewStore() *Store {
	return &Store{
		contests:       make(map[string]domain.Contest),
		questions:      make(map[string][]domain.Question),
		participations: make(map[string]map[string]domain.Participation),
		answers:        make(map[string][]domain.AnswerRecord),
		ledger:         make(map[string][]domain.LedgerEntry),
		aggregates:     make(map[string]domain.RewardAggregate),
		draws:          make(map[string][]domain.DrawEntry),
		settings:       domain.Settings{RequiredPercentage: domain.DefaultRequiredPercentage, DefaultAttempts: domain.DefaultAttempts},
	}
}

// SeedCatalog installs a contest with its questions (stands in for the
// administration surface, which owns authoring).
func (s *Store) SeedCatalog(catalog domain.Catalog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contests[catalog.Contest.ID] = catalog.Contest
	s.questions[catalog.Contest.ID] = catalog.Questions
}

// SetSettings overrides the global defaults.
func (s *Store) SetSettings(settings domain.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}

func (s *Store) GetSettings(_ context.Context) (domain.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings, nil
}

// LoadCatalog implements the cache-facing loader.
func (s *Store) LoadCatalog(_ context.Context, contestID string) (domain.Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	contest, ok := s.contests[contestID]
	if !ok {
		return domain.Catalog{}, domain.ErrContestNotFound
	}
	questions := make([]domain.Question, len(s.questions[contestID]))
	copy(questions, s.questions[contestID])
	return domain.Catalog{Contest: contest, Questions: questions}, nil
}

func (s *Store) GetContest(_ context.Context, contestID string) (domain.Contest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	contest, ok := s.contests[contestID]
	if !ok {
		return domain.Contest{}, domain.ErrContestNotFound
	}
	return contest, nil
}

func (s *Store) UpdateContest(_ context.Context, c domain.Contest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contests[c.ID]; !ok {
		return domain.ErrContestNotFound
	}
	s.contests[c.ID] = c
	return nil
}

func (s *Store) Register(_ context.Context, p domain.Participation) (domain.Participation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byUser, ok := s.participations[p.ContestID]
	if !ok {
		byUser = make(map[string]domain.Participation)
		s.participations[p.ContestID] = byUser
	}
	if existing, ok := byUser[p.UserID]; ok {
		return existing, nil
	}
	byUser[p.UserID] = p
	return p, nil
}

func (s *Store) GetParticipation(_ context.Context, contestID, userID string) (domain.Participation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participations[contestID][userID]
	if !ok {
		return domain.Participation{}, domain.ErrParticipationNotFound
	}
	return p, nil
}

func (s *Store) UpdateParticipation(_ context.Context, p domain.Participation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.participations[p.ContestID][p.UserID]; !ok {
		return domain.ErrParticipationNotFound
	}
	s.participations[p.ContestID][p.UserID] = p
	return nil
}

func (s *Store) ListParticipations(_ context.Context, contestID string) ([]domain.Participation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]domain.Participation, 0, len(s.participations[contestID]))
	for _, p := range s.participations[contestID] {
		list = append(list, p)
	}
	return list, nil
}

func (s *Store) AppendAnswer(_ context.Context, rec domain.AnswerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := answerKey(rec.ContestID, rec.UserID)
	for _, existing := range s.answers[key] {
		if existing.QuestionID == rec.QuestionID && existing.AttemptNumber == rec.AttemptNumber {
			return domain.ErrDuplicateAnswer
		}
	}
	s.answers[key] = append(s.answers[key], rec)
	return nil
}

func (s *Store) ListAnswers(_ context.Context, contestID, userID string) ([]domain.AnswerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.answers[answerKey(contestID, userID)]
	list := make([]domain.AnswerRecord, len(src))
	copy(list, src)
	return list, nil
}

// Award appends the ledger entry and folds it into the aggregate under one
// lock: the pair can never diverge.
func (s *Store) Award(_ context.Context, e domain.LedgerEntry) (domain.RewardAggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	agg := s.aggregates[e.UserID]
	agg = domain.ApplyAward(agg, e)
	agg.Version++
	s.ledger[e.UserID] = append(s.ledger[e.UserID], e)
	s.aggregates[e.UserID] = agg
	return agg, nil
}

func (s *Store) ListLedger(_ context.Context, userID string) ([]domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.ledger[userID]
	list := make([]domain.LedgerEntry, len(src))
	copy(list, src)
	return list, nil
}

func (s *Store) GetAggregate(_ context.Context, userID string) (domain.RewardAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	agg, ok := s.aggregates[userID]
	if !ok {
		return domain.RewardAggregate{UserID: userID, CurrentRank: domain.TierFor(0).Name}, nil
	}
	return agg, nil
}

// RecordWin flips the participation to winner and appends the history row
// atomically.
func (s *Store) RecordWin(_ context.Context, e domain.DrawEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participations[e.ContestID][e.UserID]
	if !ok {
		return domain.ErrParticipationNotFound
	}
	p.Status = domain.ParticipationWinner
	s.participations[e.ContestID][e.UserID] = p
	s.draws[e.ContestID] = append(s.draws[e.ContestID], e)
	return nil
}

func (s *Store) ListDraws(_ context.Context, contestID string) ([]domain.DrawEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.draws[contestID]
	list := make([]domain.DrawEntry, len(src))
	copy(list, src)
	return list, nil
}

func answerKey(contestID, userID string) string {
	return contestID + "|" + userID
}
