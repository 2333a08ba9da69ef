package app

import (
	"context"
	"fmt"
	"time"

	"exam-sim-service/internal/domain"
	"github.com/google/uuid"
)

// SimulationRepository loads simulation definitions (from cache/backing store).
type SimulationRepository interface {
	GetSimulation(ctx context.Context, simulationID string) (domain.Simulation, error)
}

// AttemptStore persists attempt records. Implementations must make both
// mutations atomic: CreateAttempt fails with *domain.ConflictError when an
// open attempt already exists for the (user, simulation) pair, and
// CloseAttempt only succeeds if the attempt is still open, returning
// domain.ErrAttemptClosed otherwise. Two concurrent starts yield exactly one
// attempt; two concurrent submits yield exactly one scored result.
type AttemptStore interface {
	CreateAttempt(ctx context.Context, attempt domain.Attempt) error
	GetAttempt(ctx context.Context, attemptID string) (domain.Attempt, error)
	CloseAttempt(ctx context.Context, attemptID string, result domain.ScoredResult) error
	ListCompleted(ctx context.Context, simulationID string) ([]domain.Attempt, error)
}

// Policy holds the tunable scoring and session constants.
type Policy struct {
	// WeakAreaThreshold is the accuracy percentage below which a topic is
	// flagged for remediation.
	WeakAreaThreshold float64
	// RecentWindow bounds the recent-results slice in statistics.
	RecentWindow int
	// EnforceDeadline rejects submissions arriving after the simulation
	// duration plus LateGrace. Off by default: the client timer drives
	// submission and the server accepts whatever answers were collected.
	EnforceDeadline bool
	LateGrace       time.Duration
}

// DefaultPolicy mirrors the observed production values.
func DefaultPolicy() Policy {
	return Policy{
		WeakAreaThreshold: 70,
		RecentWindow:      defaultRecentWindow,
		EnforceDeadline:   false,
		LateGrace:         5 * time.Minute,
	}
}

// ExamService contains the exam simulation use cases: session lifecycle,
// scoring, weak-area analysis, and cross-attempt statistics.
type ExamService struct {
	simulations SimulationRepository
	attempts    AttemptStore
	feed        *StatsFeed
	policy      Policy
	now         func() time.Time
	newID       func() string
}

func NewExamService(simulations SimulationRepository, attempts AttemptStore, feed *StatsFeed, policy Policy) *ExamService {
	return &ExamService{
		simulations: simulations,
		attempts:    attempts,
		feed:        feed,
		policy:      policy,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// NewExamServiceWithClock is test-only for deterministic timestamps and ids.
func NewExamServiceWithClock(simulations SimulationRepository, attempts AttemptStore, feed *StatsFeed, policy Policy, now func() time.Time, newID func() string) *ExamService {
	svc := NewExamService(simulations, attempts, feed, policy)
	if now != nil {
		svc.now = now
	}
	if newID != nil {
		svc.newID = newID
	}
	return svc
}

// StartedAttempt is the response to a successful StartAttempt: the new
// attempt id, the simulation summary, and the question list with answer keys
// and explanations withheld.
type StartedAttempt struct {
	AttemptID  string
	Simulation domain.Simulation
	Questions  []domain.Question
}

// SubmitOutcome bundles the scored result with the weak-area analysis.
type SubmitOutcome struct {
	Result   domain.ScoredResult
	Analysis domain.Analysis
}

// StartAttempt opens a new attempt for the user, snapshotting the
// simulation's current question set and freezing the max score. It fails with
// domain.ErrSimulationNotFound for unknown simulations and with
// *domain.ConflictError (carrying the open attempt's id) when the user
// already has this simulation in progress.
func (s *ExamService) StartAttempt(ctx context.Context, userID, displayName, simulationID string) (StartedAttempt, error) {
	if userID == "" || simulationID == "" {
		return StartedAttempt{}, fmt.Errorf("%w: userId and simulationId are required", domain.ErrValidation)
	}

	sim, err := s.simulations.GetSimulation(ctx, simulationID)
	if err != nil {
		return StartedAttempt{}, err
	}

	attempt := domain.Attempt{
		ID:           s.newID(),
		UserID:       userID,
		DisplayName:  displayName,
		SimulationID: sim.ID,
		StartedAt:    s.now().UTC(),
		MaxScore:     sim.MaxScore(),
		Questions:    sim.Questions,
	}
	if err := s.attempts.CreateAttempt(ctx, attempt); err != nil {
		return StartedAttempt{}, err
	}

	summary := sim
	summary.Questions = nil
	return StartedAttempt{
		AttemptID:  attempt.ID,
		Simulation: summary,
		Questions:  sanitizeQuestions(sim.Questions),
	}, nil
}

// SubmitAttempt closes an open attempt: it scores the submission against the
// frozen question set, derives the topic breakdown, and persists the result.
// The OPEN to CLOSED transition happens exactly once; a second submit returns
// domain.ErrAttemptClosed and leaves the stored score untouched.
func (s *ExamService) SubmitAttempt(ctx context.Context, attemptID string, answers map[string]string, timeSpentSeconds int) (SubmitOutcome, error) {
	if attemptID == "" {
		return SubmitOutcome{}, fmt.Errorf("%w: resultId is required", domain.ErrValidation)
	}
	if answers == nil {
		return SubmitOutcome{}, fmt.Errorf("%w: answers map is required", domain.ErrValidation)
	}

	attempt, err := s.attempts.GetAttempt(ctx, attemptID)
	if err != nil {
		return SubmitOutcome{}, err
	}
	if !attempt.Open() {
		return SubmitOutcome{}, domain.ErrAttemptClosed
	}

	sim, err := s.simulations.GetSimulation(ctx, attempt.SimulationID)
	if err != nil {
		return SubmitOutcome{}, err
	}

	completedAt := s.now().UTC()
	if s.policy.EnforceDeadline {
		deadline := attempt.StartedAt.Add(time.Duration(sim.DurationMinutes)*time.Minute + s.policy.LateGrace)
		if completedAt.After(deadline) {
			return SubmitOutcome{}, domain.ErrDeadlineExceeded
		}
	}

	score, records := Score(attempt.Questions, answers)
	result := domain.ScoredResult{
		AttemptID:        attempt.ID,
		Score:            score,
		MaxScore:         attempt.MaxScore,
		Percentage:       Percentage(score, attempt.MaxScore),
		Passed:           Passed(score, attempt.MaxScore, sim.PassingScore),
		TimeSpentSeconds: timeSpentSeconds,
		CompletedAt:      completedAt,
		Answers:          records,
	}
	if err := s.attempts.CloseAttempt(ctx, attempt.ID, result); err != nil {
		return SubmitOutcome{}, err
	}

	outcome := SubmitOutcome{
		Result:   result,
		Analysis: Analyze(attempt.Questions, records, s.policy.WeakAreaThreshold),
	}
	s.publishStats(ctx, sim)
	return outcome, nil
}

// SimulationStats aggregates completed attempts for reporting. Unknown
// simulations fail with domain.ErrSimulationNotFound; a simulation with no
// completed attempts yields zero-valued aggregates.
func (s *ExamService) SimulationStats(ctx context.Context, simulationID string) (domain.Simulation, domain.SimulationStats, error) {
	sim, err := s.simulations.GetSimulation(ctx, simulationID)
	if err != nil {
		return domain.Simulation{}, domain.SimulationStats{}, err
	}
	completed, err := s.attempts.ListCompleted(ctx, sim.ID)
	if err != nil {
		return domain.Simulation{}, domain.SimulationStats{}, err
	}
	return sim, Aggregate(sim.ID, sim.PassingScore, completed, s.policy.RecentWindow), nil
}

// WatchStats subscribes to live statistics snapshots for a simulation. The
// initial snapshot is delivered immediately; subsequent ones arrive as
// attempts complete.
func (s *ExamService) WatchStats(ctx context.Context, simulationID string) (<-chan domain.SimulationStats, func(), error) {
	_, initial, err := s.SimulationStats(ctx, simulationID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.feed.Subscribe(simulationID, initial)
	return ch, cancel, nil
}

func (s *ExamService) publishStats(ctx context.Context, sim domain.Simulation) {
	if !s.feed.HasSubscribers(sim.ID) {
		return
	}
	completed, err := s.attempts.ListCompleted(ctx, sim.ID)
	if err != nil {
		return
	}
	s.feed.Publish(sim.ID, Aggregate(sim.ID, sim.PassingScore, completed, s.policy.RecentWindow))
}

// sanitizeQuestions strips answer keys and explanations so correct answers
// never leak to the client during an open session.
func sanitizeQuestions(questions []domain.Question) []domain.Question {
	out := make([]domain.Question, len(questions))
	copy(out, questions)
	for i := range out {
		out[i].CorrectAnswer = ""
		out[i].Explanation = ""
	}
	return out
}
