package app

import "exam-sim-service/internal/domain"

// Score grades a submission against an attempt's frozen question set.
//
// Every question in the set is graded: a question id missing from the answers
// map counts as unanswered and scores zero, it is never an error and never
// drops out of the denominator. Correctness is an exact string match against
// the recorded answer; points are all-or-nothing.
func Score(questions []domain.Question, answers map[string]string) (int, map[string]domain.AnswerRecord) {
	total := 0
	records := make(map[string]domain.AnswerRecord, len(questions))
	for _, q := range questions {
		submitted := answers[q.ID]
		correct := submitted != "" && submitted == q.CorrectAnswer
		awarded := 0
		if correct {
			awarded = q.EffectivePoints()
		}
		total += awarded
		records[q.ID] = domain.AnswerRecord{
			UserAnswer:    submitted,
			CorrectAnswer: q.CorrectAnswer,
			IsCorrect:     correct,
			Points:        awarded,
			Explanation:   q.Explanation,
		}
	}
	return total, records
}

// Percentage converts a score into 0-100 against the frozen max.
func Percentage(score, maxScore int) float64 {
	if maxScore == 0 {
		return 0
	}
	return float64(score) / float64(maxScore) * 100
}

// Passed compares the unrounded percentage against the simulation threshold.
// Rounding is a display concern only.
func Passed(score, maxScore int, passingScore float64) bool {
	return Percentage(score, maxScore) >= passingScore
}
