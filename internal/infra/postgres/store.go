package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"contest-reward-service/internal/domain"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

// Store is the bun-backed implementation of the mutating store interfaces.
// The award and draw writes run in transactions so ledger/aggregate and
// winner/history can never diverge.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

type contestRow struct {
	bun.BaseModel `bun:"table:contests"`

	ID                 string    `bun:"id,pk"`
	Title              string    `bun:"title"`
	Status             string    `bun:"status"`
	StartDate          time.Time `bun:"start_date"`
	EndDate            time.Time `bun:"end_date"`
	DrawDate           time.Time `bun:"draw_date"`
	RequiredPercentage int       `bun:"required_percentage"`
	MinimumRank        string    `bun:"minimum_rank"`
}

type participationRow struct {
	bun.BaseModel `bun:"table:participations"`

	ContestID   string     `bun:"contest_id,pk"`
	UserID      string     `bun:"user_id,pk"`
	Email       string     `bun:"email"`
	Attempts    int        `bun:"attempts"`
	Score       int        `bun:"score"`
	Streak      int        `bun:"streak"`
	BestStreak  int        `bun:"best_streak"`
	Status      string     `bun:"status"`
	CompletedAt *time.Time `bun:"completed_at"`
}

type answerRow struct {
	bun.BaseModel `bun:"table:answer_records"`

	ContestID     string    `bun:"contest_id"`
	UserID        string    `bun:"user_id"`
	QuestionID    string    `bun:"question_id"`
	Answer        string    `bun:"answer"`
	Correct       bool      `bun:"correct"`
	AttemptNumber int       `bun:"attempt_number"`
	SubmittedAt   time.Time `bun:"submitted_at"`
}

type ledgerRow struct {
	bun.BaseModel `bun:"table:point_ledger"`

	ID        int64     `bun:"id,pk,autoincrement"`
	UserID    string    `bun:"user_id"`
	Points    int       `bun:"points"`
	Source    string    `bun:"source"`
	ContestID string    `bun:"contest_id"`
	Streak    int       `bun:"streak"`
	AwardedAt time.Time `bun:"awarded_at"`
}

type aggregateRow struct {
	bun.BaseModel `bun:"table:reward_aggregates"`

	UserID              string `bun:"user_id,pk"`
	TotalPoints         int    `bun:"total_points"`
	CurrentStreak       int    `bun:"current_streak"`
	BestStreak          int    `bun:"best_streak"`
	CurrentRank         string `bun:"current_rank"`
	ExtraParticipations int    `bun:"extra_participations"`
	Version             int64  `bun:"version"`
}

type drawRow struct {
	bun.BaseModel `bun:"table:draw_history"`

	ID        int64     `bun:"id,pk,autoincrement"`
	ContestID string    `bun:"contest_id"`
	UserID    string    `bun:"user_id"`
	Email     string    `bun:"email"`
	DrawDate  time.Time `bun:"draw_date"`
}

type settingsRow struct {
	bun.BaseModel `bun:"table:settings"`

	ID                 int `bun:"id,pk"`
	RequiredPercentage int `bun:"required_percentage"`
	DefaultAttempts    int `bun:"default_attempts"`
}

func (s *Store) GetSettings(ctx context.Context) (domain.Settings, error) {
	row := new(settingsRow)
	err := s.db.NewSelect().Model(row).Where("id = 1").Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Settings{
			RequiredPercentage: domain.DefaultRequiredPercentage,
			DefaultAttempts:    domain.DefaultAttempts,
		}, nil
	}
	if err != nil {
		return domain.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return domain.Settings{RequiredPercentage: row.RequiredPercentage, DefaultAttempts: row.DefaultAttempts}, nil
}

func (s *Store) GetContest(ctx context.Context, contestID string) (domain.Contest, error) {
	row := new(contestRow)
	err := s.db.NewSelect().Model(row).Where("id = ?", contestID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Contest{}, domain.ErrContestNotFound
	}
	if err != nil {
		return domain.Contest{}, fmt.Errorf("get contest: %w", err)
	}
	return contestFromRow(row), nil
}

func (s *Store) UpsertContest(ctx context.Context, c domain.Contest) error {
	row := contestToRow(c)
	_, err := s.db.NewInsert().Model(&row).
		On("CONFLICT (id) DO UPDATE").
		Set("title = EXCLUDED.title").
		Set("status = EXCLUDED.status").
		Set("start_date = EXCLUDED.start_date").
		Set("end_date = EXCLUDED.end_date").
		Set("draw_date = EXCLUDED.draw_date").
		Set("required_percentage = EXCLUDED.required_percentage").
		Set("minimum_rank = EXCLUDED.minimum_rank").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert contest: %w", err)
	}
	return nil
}

func (s *Store) UpdateContest(ctx context.Context, c domain.Contest) error {
	row := contestToRow(c)
	res, err := s.db.NewUpdate().Model(&row).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("update contest: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return domain.ErrContestNotFound
	}
	return nil
}

func (s *Store) Register(ctx context.Context, p domain.Participation) (domain.Participation, error) {
	row := participationToRow(p)
	_, err := s.db.NewInsert().Model(&row).
		On("CONFLICT (contest_id, user_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return domain.Participation{}, fmt.Errorf("register participation: %w", err)
	}
	// Return whatever is stored, whether just inserted or pre-existing.
	return s.GetParticipation(ctx, p.ContestID, p.UserID)
}

func (s *Store) GetParticipation(ctx context.Context, contestID, userID string) (domain.Participation, error) {
	row := new(participationRow)
	err := s.db.NewSelect().Model(row).
		Where("contest_id = ?", contestID).
		Where("user_id = ?", userID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Participation{}, domain.ErrParticipationNotFound
	}
	if err != nil {
		return domain.Participation{}, fmt.Errorf("get participation: %w", err)
	}
	return participationFromRow(row), nil
}

func (s *Store) UpdateParticipation(ctx context.Context, p domain.Participation) error {
	row := participationToRow(p)
	res, err := s.db.NewUpdate().Model(&row).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("update participation: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return domain.ErrParticipationNotFound
	}
	return nil
}

func (s *Store) ListParticipations(ctx context.Context, contestID string) ([]domain.Participation, error) {
	var rows []participationRow
	if err := s.db.NewSelect().Model(&rows).Where("contest_id = ?", contestID).Scan(ctx); err != nil {
		return nil, fmt.Errorf("list participations: %w", err)
	}
	list := make([]domain.Participation, 0, len(rows))
	for i := range rows {
		list = append(list, participationFromRow(&rows[i]))
	}
	return list, nil
}

func (s *Store) AppendAnswer(ctx context.Context, rec domain.AnswerRecord) error {
	row := answerRow{
		ContestID:     rec.ContestID,
		UserID:        rec.UserID,
		QuestionID:    rec.QuestionID,
		Answer:        rec.Answer,
		Correct:       rec.Correct,
		AttemptNumber: rec.AttemptNumber,
		SubmittedAt:   rec.SubmittedAt,
	}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateAnswer
		}
		return fmt.Errorf("append answer: %w", err)
	}
	return nil
}

func (s *Store) ListAnswers(ctx context.Context, contestID, userID string) ([]domain.AnswerRecord, error) {
	var rows []answerRow
	err := s.db.NewSelect().Model(&rows).
		Where("contest_id = ?", contestID).
		Where("user_id = ?", userID).
		Order("submitted_at").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	list := make([]domain.AnswerRecord, 0, len(rows))
	for _, r := range rows {
		list = append(list, domain.AnswerRecord{
			ContestID:     r.ContestID,
			UserID:        r.UserID,
			QuestionID:    r.QuestionID,
			Answer:        r.Answer,
			Correct:       r.Correct,
			AttemptNumber: r.AttemptNumber,
			SubmittedAt:   r.SubmittedAt,
		})
	}
	return list, nil
}

// Award appends the ledger entry and updates the aggregate in one transaction.
// The aggregate carries an optimistic version; a concurrent award for the same
// user loses the version check and surfaces ErrLedgerConflict for the service
// to retry.
func (s *Store) Award(ctx context.Context, e domain.LedgerEntry) (domain.RewardAggregate, error) {
	var result domain.RewardAggregate
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		entry := ledgerRow{
			UserID:    e.UserID,
			Points:    e.Points,
			Source:    e.Source,
			ContestID: e.ContestID,
			Streak:    e.Streak,
			AwardedAt: e.AwardedAt,
		}
		if _, err := tx.NewInsert().Model(&entry).Exec(ctx); err != nil {
			return fmt.Errorf("append ledger entry: %w", err)
		}

		row := new(aggregateRow)
		err := tx.NewSelect().Model(row).Where("user_id = ?", e.UserID).Scan(ctx)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			agg := domain.ApplyAward(domain.RewardAggregate{UserID: e.UserID}, e)
			agg.Version = 1
			fresh := aggregateToRow(agg)
			if _, err := tx.NewInsert().Model(&fresh).Exec(ctx); err != nil {
				if isUniqueViolation(err) {
					return domain.ErrLedgerConflict
				}
				return fmt.Errorf("insert aggregate: %w", err)
			}
			result = agg
			return nil
		case err != nil:
			return fmt.Errorf("read aggregate: %w", err)
		}

		agg := domain.ApplyAward(aggregateFromRow(row), e)
		agg.Version = row.Version + 1
		updated := aggregateToRow(agg)
		res, err := tx.NewUpdate().Model(&updated).WherePK().
			Where("version = ?", row.Version).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("update aggregate: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return domain.ErrLedgerConflict
		}
		result = agg
		return nil
	})
	if err != nil {
		return domain.RewardAggregate{}, err
	}
	return result, nil
}

func (s *Store) ListLedger(ctx context.Context, userID string) ([]domain.LedgerEntry, error) {
	var rows []ledgerRow
	err := s.db.NewSelect().Model(&rows).Where("user_id = ?", userID).Order("id").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	list := make([]domain.LedgerEntry, 0, len(rows))
	for _, r := range rows {
		list = append(list, domain.LedgerEntry{
			UserID:    r.UserID,
			Points:    r.Points,
			Source:    r.Source,
			ContestID: r.ContestID,
			Streak:    r.Streak,
			AwardedAt: r.AwardedAt,
		})
	}
	return list, nil
}

func (s *Store) GetAggregate(ctx context.Context, userID string) (domain.RewardAggregate, error) {
	row := new(aggregateRow)
	err := s.db.NewSelect().Model(row).Where("user_id = ?", userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RewardAggregate{UserID: userID, CurrentRank: domain.TierFor(0).Name}, nil
	}
	if err != nil {
		return domain.RewardAggregate{}, fmt.Errorf("get aggregate: %w", err)
	}
	return aggregateFromRow(row), nil
}

// RecordWin flips the participation to winner and appends the history row in
// one transaction.
func (s *Store) RecordWin(ctx context.Context, e domain.DrawEntry) error {
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().Model((*participationRow)(nil)).
			Set("status = ?", string(domain.ParticipationWinner)).
			Where("contest_id = ?", e.ContestID).
			Where("user_id = ?", e.UserID).
			Where("status != ?", string(domain.ParticipationWinner)).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("mark winner: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return domain.ErrParticipationNotFound
		}

		row := drawRow{ContestID: e.ContestID, UserID: e.UserID, Email: e.Email, DrawDate: e.DrawDate}
		if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
			return fmt.Errorf("append draw history: %w", err)
		}
		return nil
	})
}

func (s *Store) ListDraws(ctx context.Context, contestID string) ([]domain.DrawEntry, error) {
	var rows []drawRow
	err := s.db.NewSelect().Model(&rows).Where("contest_id = ?", contestID).Order("id").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list draws: %w", err)
	}
	list := make([]domain.DrawEntry, 0, len(rows))
	for _, r := range rows {
		list = append(list, domain.DrawEntry{ContestID: r.ContestID, UserID: r.UserID, Email: r.Email, DrawDate: r.DrawDate})
	}
	return list, nil
}

func contestFromRow(r *contestRow) domain.Contest {
	return domain.Contest{
		ID:                 r.ID,
		Title:              r.Title,
		Status:             domain.ContestStatus(r.Status),
		StartDate:          r.StartDate,
		EndDate:            r.EndDate,
		DrawDate:           r.DrawDate,
		RequiredPercentage: r.RequiredPercentage,
		MinimumRank:        r.MinimumRank,
	}
}

func contestToRow(c domain.Contest) contestRow {
	return contestRow{
		ID:                 c.ID,
		Title:              c.Title,
		Status:             string(c.Status),
		StartDate:          c.StartDate,
		EndDate:            c.EndDate,
		DrawDate:           c.DrawDate,
		RequiredPercentage: c.RequiredPercentage,
		MinimumRank:        c.MinimumRank,
	}
}

func participationFromRow(r *participationRow) domain.Participation {
	return domain.Participation{
		ContestID:   r.ContestID,
		UserID:      r.UserID,
		Email:       r.Email,
		Attempts:    r.Attempts,
		Score:       r.Score,
		Streak:      r.Streak,
		BestStreak:  r.BestStreak,
		Status:      domain.ParticipationStatus(r.Status),
		CompletedAt: r.CompletedAt,
	}
}

func participationToRow(p domain.Participation) participationRow {
	return participationRow{
		ContestID:   p.ContestID,
		UserID:      p.UserID,
		Email:       p.Email,
		Attempts:    p.Attempts,
		Score:       p.Score,
		Streak:      p.Streak,
		BestStreak:  p.BestStreak,
		Status:      string(p.Status),
		CompletedAt: p.CompletedAt,
	}
}

func aggregateFromRow(r *aggregateRow) domain.RewardAggregate {
	return domain.RewardAggregate{
		UserID:              r.UserID,
		TotalPoints:         r.TotalPoints,
		CurrentStreak:       r.CurrentStreak,
		BestStreak:          r.BestStreak,
		CurrentRank:         r.CurrentRank,
		ExtraParticipations: r.ExtraParticipations,
		Version:             r.Version,
	}
}

func aggregateToRow(a domain.RewardAggregate) aggregateRow {
	return aggregateRow{
		UserID:              a.UserID,
		TotalPoints:         a.TotalPoints,
		CurrentStreak:       a.CurrentStreak,
		BestStreak:          a.BestStreak,
		CurrentRank:         a.CurrentRank,
		ExtraParticipations: a.ExtraParticipations,
		Version:             a.Version,
	}
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == "23505"
	}
	return false
}
