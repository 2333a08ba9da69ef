package memory

import (
	"context"
	"sync"

	"exam-sim-service/internal/domain"
)

// AttemptStore is an in-memory implementation of app.AttemptStore, used for
// tests and for running without postgres. The single-open-attempt and
// close-once guarantees are enforced under one mutex so the check-then-write
// sequences are atomic.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]domain.Attempt
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{attempts: make(map[string]domain.Attempt)}
}

func (s *AttemptStore) CreateAttempt(_ context.Context, attempt domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.attempts {
		if existing.UserID == attempt.UserID && existing.SimulationID == attempt.SimulationID && existing.Open() {
			return &domain.ConflictError{AttemptID: existing.ID}
		}
	}
	s.attempts[attempt.ID] = attempt
	return nil
}

func (s *AttemptStore) GetAttempt(_ context.Context, attemptID string) (domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	attempt, ok := s.attempts[attemptID]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return attempt, nil
}

func (s *AttemptStore) CloseAttempt(_ context.Context, attemptID string, result domain.ScoredResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempt, ok := s.attempts[attemptID]
	if !ok {
		return domain.ErrAttemptNotFound
	}
	if !attempt.Open() {
		return domain.ErrAttemptClosed
	}

	completedAt := result.CompletedAt
	attempt.CompletedAt = &completedAt
	attempt.Score = result.Score
	attempt.TimeSpentSeconds = result.TimeSpentSeconds
	attempt.Answers = result.Answers
	s.attempts[attemptID] = attempt
	return nil
}

func (s *AttemptStore) ListCompleted(_ context.Context, simulationID string) ([]domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	completed := make([]domain.Attempt, 0)
	for _, attempt := range s.attempts {
		if attempt.SimulationID == simulationID && !attempt.Open() {
			completed = append(completed, attempt)
		}
	}
	return completed, nil
}
