package domain

import "time"

// Question is a single MCQ inside a simulation. Answers are normalized to plain
// strings at the boundary so correctness is an exact string comparison.
type Question struct {
	ID            string   `json:"id"`
	Prompt        string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Points        int      `json:"points"` // defaults to 1 if zero
	Order         int      `json:"order"`
	Difficulty    string   `json:"difficulty,omitempty"`
	TopicID       string   `json:"topicId,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
}

// Simulation is an exam simulation definition. Once attempts exist against it
// the question list is append-only.
type Simulation struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	DurationMinutes int        `json:"duration"`
	PassingScore    float64    `json:"passingScore"` // percentage threshold, 0-100
	Official        bool       `json:"official,omitempty"`
	Year            int        `json:"year,omitempty"`
	Questions       []Question `json:"questions"`
}

// MaxScore sums the point values of all questions, counting zero-point
// questions as worth one.
func (s Simulation) MaxScore() int {
	total := 0
	for _, q := range s.Questions {
		total += q.EffectivePoints()
	}
	return total
}

// EffectivePoints returns the question's point value, treating zero as one.
func (q Question) EffectivePoints() int {
	if q.Points <= 0 {
		return 1
	}
	return q.Points
}

// AnswerRecord is the per-question outcome frozen into a closed attempt.
type AnswerRecord struct {
	UserAnswer    string `json:"userAnswer"`
	CorrectAnswer string `json:"correctAnswer"`
	IsCorrect     bool   `json:"isCorrect"`
	Points        int    `json:"points"`
	Explanation   string `json:"explanation,omitempty"`
}

// Attempt is one user's run through a simulation. CompletedAt == nil means the
// attempt is open; an attempt closes exactly once, at submission.
//
// Questions is the snapshot taken at start time. MaxScore is frozen from that
// snapshot so later edits to the question bank never change a completed
// attempt's grading basis.
type Attempt struct {
	ID               string                  `json:"id"`
	UserID           string                  `json:"userId"`
	DisplayName      string                  `json:"displayName"`
	SimulationID     string                  `json:"simulationId"`
	StartedAt        time.Time               `json:"startedAt"`
	CompletedAt      *time.Time              `json:"completedAt,omitempty"`
	MaxScore         int                     `json:"maxScore"`
	Score            int                     `json:"score"`
	TimeSpentSeconds int                     `json:"timeSpent"`
	Questions        []Question              `json:"questions"`
	Answers          map[string]AnswerRecord `json:"answers,omitempty"`
}

// Open reports whether the attempt has not been submitted yet.
func (a Attempt) Open() bool {
	return a.CompletedAt == nil
}

// Percentage is the attempt's score against its frozen max, 0-100.
func (a Attempt) Percentage() float64 {
	if a.MaxScore == 0 {
		return 0
	}
	return float64(a.Score) / float64(a.MaxScore) * 100
}

// ScoredResult is the outcome of closing an attempt.
type ScoredResult struct {
	AttemptID        string                  `json:"id"`
	Score            int                     `json:"score"`
	MaxScore         int                     `json:"maxScore"`
	Percentage       float64                 `json:"percentage"`
	Passed           bool                    `json:"passed"`
	TimeSpentSeconds int                     `json:"timeSpent"`
	CompletedAt      time.Time               `json:"completedAt"`
	Answers          map[string]AnswerRecord `json:"-"`
}

// TopicPerformance is a derived per-topic accuracy breakdown. It is computed
// fresh from an attempt's answer records, never stored as its own entity.
type TopicPerformance struct {
	TopicID  string  `json:"topicId"`
	Correct  int     `json:"correct"`
	Total    int     `json:"total"`
	Accuracy float64 `json:"accuracy"`
}

// Analysis groups topic performance with the below-threshold subset.
type Analysis struct {
	TopicPerformance []TopicPerformance `json:"topicPerformance"`
	WeakAreas        []string           `json:"weakAreas"`
}

// RecentResult is a reporting view of one completed attempt.
type RecentResult struct {
	AttemptID        string    `json:"attemptId"`
	UserID           string    `json:"userId"`
	DisplayName      string    `json:"displayName"`
	Score            int       `json:"score"`
	MaxScore         int       `json:"maxScore"`
	Percentage       float64   `json:"percentage"`
	Passed           bool      `json:"passed"`
	TimeSpentSeconds int       `json:"timeSpent"`
	CompletedAt      time.Time `json:"completedAt"`
}

// SimulationStats aggregates completed attempts for one simulation. Open
// attempts never contribute to any field.
type SimulationStats struct {
	SimulationID       string         `json:"simulationId"`
	TotalAttempts      int            `json:"totalAttempts"`
	AverageScore       float64        `json:"averageScore"` // mean percentage, not mean raw score
	PassRate           float64        `json:"passRate"`
	AverageTimeSeconds float64        `json:"averageTime"`
	Recent             []RecentResult `json:"recentResults"`
}
