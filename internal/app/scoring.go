package app

import (
	"context"
	"time"

	"contest-reward-service/internal/domain"
)

// pointsPerCorrectFirstAttempt is the fixed ledger award for a correct first
// attempt. Retries never award points, so repeated attempts cannot be farmed.
const pointsPerCorrectFirstAttempt = 1

// ScoringService grades answers, maintains participation score and streak,
// and forwards qualifying first attempts to the ledger.
type ScoringService struct {
	catalog        CatalogRepository
	settings       SettingsRepository
	participations ParticipationStore
	answers        AnswerStore
	ledger         *LedgerService
	now            func() time.Time
}

func NewScoringService(catalog CatalogRepository, settings SettingsRepository, participations ParticipationStore, answers AnswerStore, ledger *LedgerService) *ScoringService {
	return NewScoringServiceWithClock(catalog, settings, participations, answers, ledger, time.Now)
}

// NewScoringServiceWithClock allows deterministic timestamps in tests.
func NewScoringServiceWithClock(catalog CatalogRepository, settings SettingsRepository, participations ParticipationStore, answers AnswerStore, ledger *LedgerService, now func() time.Time) *ScoringService {
	return &ScoringService{
		catalog:        catalog,
		settings:       settings,
		participations: participations,
		answers:        answers,
		ledger:         ledger,
		now:            now,
	}
}

// Register creates (or returns) the participation for (contest, user). The
// identity comes from the external identity provider; an empty one aborts
// before any write.
func (s *ScoringService) Register(ctx context.Context, contestID, userID, email string) (domain.Participation, error) {
	if userID == "" || email == "" {
		return domain.Participation{}, domain.ErrNotAuthenticated
	}
	if _, err := s.catalog.GetCatalog(ctx, contestID); err != nil {
		return domain.Participation{}, err
	}
	return s.participations.Register(ctx, domain.Participation{
		ContestID: contestID,
		UserID:    userID,
		Email:     email,
		Status:    domain.ParticipationPending,
	})
}

// SubmitAnswer grades one attempt. The gate belongs to the caller's session;
// it must report ReadComplete for gated questions before anything is written.
func (s *ScoringService) SubmitAnswer(ctx context.Context, gate *Gate, contestID, userID string, sub domain.AnswerSubmission) (domain.AnswerResult, error) {
	if userID == "" {
		return domain.AnswerResult{}, domain.ErrNotAuthenticated
	}

	catalog, err := s.catalog.GetCatalog(ctx, contestID)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	if catalog.Contest.Status != domain.ContestActive {
		return domain.AnswerResult{}, domain.ErrContestClosed
	}

	question, ok := findQuestion(catalog.Questions, sub.QuestionID)
	if !ok {
		return domain.AnswerResult{}, domain.ErrQuestionNotFound
	}
	if question.ArticleURL != "" {
		if err := gate.Verify(question.ID); err != nil {
			return domain.AnswerResult{}, err
		}
	}

	participation, err := s.participations.GetParticipation(ctx, contestID, userID)
	if err != nil {
		return domain.AnswerResult{}, err
	}

	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return domain.AnswerResult{}, err
	}

	history, err := s.answers.ListAnswers(ctx, contestID, userID)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	expected := nextAttempt(history, sub.QuestionID)
	if sub.AttemptNumber != expected {
		return domain.AnswerResult{}, domain.ErrDuplicateAnswer
	}
	if expected > domain.AttemptsAllowance(settings) {
		return domain.AnswerResult{}, domain.ErrAttemptsExhausted
	}

	correct := grade(question, sub.Answer)
	record := domain.AnswerRecord{
		ContestID:     contestID,
		UserID:        userID,
		QuestionID:    sub.QuestionID,
		Answer:        sub.Answer,
		Correct:       correct,
		AttemptNumber: sub.AttemptNumber,
		SubmittedAt:   s.now(),
	}
	if err := s.answers.AppendAnswer(ctx, record); err != nil {
		return domain.AnswerResult{}, err
	}
	history = append(history, record)

	participation.Attempts++
	if correct {
		participation.Streak++
		if participation.Streak > participation.BestStreak {
			participation.BestStreak = participation.Streak
		}
	} else {
		participation.Streak = 0
	}
	participation.Score = domain.ScorePercent(correctFirstAttempts(history), len(catalog.Questions))

	completed := false
	if participation.Status == domain.ParticipationPending && quizComplete(history, catalog.Questions) {
		participation.Status = domain.ParticipationCompleted
		completedAt := s.now()
		participation.CompletedAt = &completedAt
		completed = true
	}

	// The participation is persisted before the award so a ledger failure
	// never leaves a recorded answer without its attempts/streak update.
	if err := s.participations.UpdateParticipation(ctx, participation); err != nil {
		return domain.AnswerResult{}, err
	}

	awarded := 0
	if correct && sub.AttemptNumber == 1 {
		if _, err := s.ledger.Award(ctx, userID, pointsPerCorrectFirstAttempt, "answer", contestID, participation.Streak); err != nil {
			return domain.AnswerResult{}, err
		}
		awarded = pointsPerCorrectFirstAttempt
	}

	return domain.AnswerResult{
		QuestionID:    sub.QuestionID,
		Correct:       correct,
		PointsAwarded: awarded,
		Score:         participation.Score,
		Streak:        participation.Streak,
		Completed:     completed,
	}, nil
}

func findQuestion(questions []domain.Question, id string) (domain.Question, bool) {
	for _, q := range questions {
		if q.ID == id {
			return q, true
		}
	}
	return domain.Question{}, false
}

// grade is an exact match against the stored correct answer, no normalization.
func grade(q domain.Question, answer string) bool {
	return answer == q.CorrectAnswer
}

// nextAttempt is the strictly increasing attempt number for one question,
// starting at 1.
func nextAttempt(history []domain.AnswerRecord, questionID string) int {
	max := 0
	for _, rec := range history {
		if rec.QuestionID == questionID && rec.AttemptNumber > max {
			max = rec.AttemptNumber
		}
	}
	return max + 1
}

func correctFirstAttempts(history []domain.AnswerRecord) int {
	count := 0
	for _, rec := range history {
		if rec.AttemptNumber == 1 && rec.Correct {
			count++
		}
	}
	return count
}

// quizComplete reports whether every question has its first attempt recorded.
func quizComplete(history []domain.AnswerRecord, questions []domain.Question) bool {
	answered := make(map[string]bool, len(history))
	for _, rec := range history {
		if rec.AttemptNumber == 1 {
			answered[rec.QuestionID] = true
		}
	}
	for _, q := range questions {
		if !answered[q.ID] {
			return false
		}
	}
	return len(questions) > 0
}
