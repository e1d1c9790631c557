package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"studyhub/internal/domain"
)

// ResultStore keeps completed results in the quiz_results table. The full
// result, quiz snapshot included, lives in the data column.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

func (s *ResultStore) SaveResult(ctx context.Context, result domain.QuizResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO quiz_results (id, session_id, user_id, quiz_id, score, percentage, reason, completed_at, data)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb)
ON CONFLICT (id) DO NOTHING`,
		result.ID, result.SessionID, result.UserID, result.Quiz.ID,
		result.Score, result.Percentage, string(result.Reason), result.CompletedAt, string(data))
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

// ListResults returns the results of userID, newest first.
func (s *ResultStore) ListResults(ctx context.Context, userID string) ([]domain.QuizResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT data FROM quiz_results WHERE user_id=$1 ORDER BY completed_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	results := make([]domain.QuizResult, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		var result domain.QuizResult
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}
