package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"exam-sim-service/internal/domain"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const uniqueViolation = "23505"

// AttemptStore persists attempts in Postgres. The one-open-attempt-per-user
// invariant is enforced by a partial unique index on (user_id, simulation_id)
// WHERE completed_at IS NULL, and the open-to-closed transition is a single
// conditional UPDATE, so both guarantees hold under concurrent requests
// without application-level locking.
type AttemptStore struct {
	pool *pgxpool.Pool
}

func NewAttemptStore(pool *pgxpool.Pool) *AttemptStore {
	return &AttemptStore{pool: pool}
}

func (s *AttemptStore) CreateAttempt(ctx context.Context, attempt domain.Attempt) error {
	questions, err := json.Marshal(attempt.Questions)
	if err != nil {
		return fmt.Errorf("marshal question snapshot: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO attempts (id, user_id, display_name, simulation_id, started_at, max_score, questions)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		attempt.ID, attempt.UserID, attempt.DisplayName, attempt.SimulationID,
		attempt.StartedAt, attempt.MaxScore, questions)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return s.openConflict(ctx, attempt.UserID, attempt.SimulationID)
		}
		return fmt.Errorf("create attempt: %w", err)
	}
	return nil
}

// openConflict resolves the id of the attempt that won the race so the caller
// can offer a resume instead of a blind retry.
func (s *AttemptStore) openConflict(ctx context.Context, userID, simulationID string) error {
	var openID string
	err := s.pool.QueryRow(ctx, `
		SELECT id FROM attempts
		WHERE user_id=$1 AND simulation_id=$2 AND completed_at IS NULL`,
		userID, simulationID).Scan(&openID)
	if err != nil {
		return &domain.ConflictError{}
	}
	return &domain.ConflictError{AttemptID: openID}
}

func (s *AttemptStore) GetAttempt(ctx context.Context, attemptID string) (domain.Attempt, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, display_name, simulation_id, started_at, completed_at,
		       max_score, score, time_spent_seconds, questions, answers
		FROM attempts WHERE id=$1`, attemptID)
	attempt, err := scanAttempt(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Attempt{}, domain.ErrAttemptNotFound
		}
		return domain.Attempt{}, fmt.Errorf("get attempt: %w", err)
	}
	return attempt, nil
}

func (s *AttemptStore) CloseAttempt(ctx context.Context, attemptID string, result domain.ScoredResult) error {
	answers, err := json.Marshal(result.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE attempts
		SET completed_at=$2, score=$3, time_spent_seconds=$4, answers=$5
		WHERE id=$1 AND completed_at IS NULL`,
		attemptID, result.CompletedAt, result.Score, result.TimeSpentSeconds, answers)
	if err != nil {
		return fmt.Errorf("close attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM attempts WHERE id=$1)`, attemptID).Scan(&exists); err != nil {
			return fmt.Errorf("close attempt: %w", err)
		}
		if exists {
			return domain.ErrAttemptClosed
		}
		return domain.ErrAttemptNotFound
	}
	return nil
}

func (s *AttemptStore) ListCompleted(ctx context.Context, simulationID string) ([]domain.Attempt, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, display_name, simulation_id, started_at, completed_at,
		       max_score, score, time_spent_seconds, questions, answers
		FROM attempts
		WHERE simulation_id=$1 AND completed_at IS NOT NULL
		ORDER BY completed_at DESC`, simulationID)
	if err != nil {
		return nil, fmt.Errorf("list completed attempts: %w", err)
	}
	defer rows.Close()

	completed := make([]domain.Attempt, 0)
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		completed = append(completed, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list completed attempts: %w", err)
	}
	return completed, nil
}

func scanAttempt(row pgx.Row) (domain.Attempt, error) {
	var (
		attempt   domain.Attempt
		questions []byte
		answers   []byte
	)
	err := row.Scan(&attempt.ID, &attempt.UserID, &attempt.DisplayName, &attempt.SimulationID,
		&attempt.StartedAt, &attempt.CompletedAt, &attempt.MaxScore, &attempt.Score,
		&attempt.TimeSpentSeconds, &questions, &answers)
	if err != nil {
		return domain.Attempt{}, err
	}
	if err := json.Unmarshal(questions, &attempt.Questions); err != nil {
		return domain.Attempt{}, fmt.Errorf("unmarshal question snapshot: %w", err)
	}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &attempt.Answers); err != nil {
			return domain.Attempt{}, fmt.Errorf("unmarshal answers: %w", err)
		}
	}
	return attempt, nil
}
