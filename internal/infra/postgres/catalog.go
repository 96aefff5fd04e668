package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"contest-reward-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// CatalogLoader reads the contest/question catalog from Postgres. The catalog
// is authored by the administration surface; this side only reads it.
type CatalogLoader struct {
	pool *pgxpool.Pool
}

func NewCatalogLoader(pool *pgxpool.Pool) *CatalogLoader {
	return &CatalogLoader{pool: pool}
}

func (l *CatalogLoader) LoadCatalog(ctx context.Context, contestID string) (domain.Catalog, error) {
	var (
		contest domain.Contest
		status  string
	)
	err := l.pool.QueryRow(ctx,
		`SELECT id, title, status, start_date, end_date, draw_date, required_percentage, COALESCE(minimum_rank, '')
		 FROM contests WHERE id=$1`, contestID).
		Scan(&contest.ID, &contest.Title, &status, &contest.StartDate, &contest.EndDate, &contest.DrawDate,
			&contest.RequiredPercentage, &contest.MinimumRank)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Catalog{}, domain.ErrContestNotFound
	}
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("load contest: %w", err)
	}
	contest.Status = domain.ContestStatus(status)

	rows, err := l.pool.Query(ctx,
		`SELECT id, contest_id, text, options, correct_answer, COALESCE(article_url, ''), ordering
		 FROM questions WHERE contest_id=$1 ORDER BY ordering`, contestID)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var (
			q       domain.Question
			options []byte
		)
		if err := rows.Scan(&q.ID, &q.ContestID, &q.Text, &options, &q.CorrectAnswer, &q.ArticleURL, &q.Ordering); err != nil {
			return domain.Catalog{}, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return domain.Catalog{}, fmt.Errorf("unmarshal options: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return domain.Catalog{}, fmt.Errorf("load questions: %w", err)
	}

	return domain.Catalog{Contest: contest, Questions: questions}, nil
}
