package app

import (
	"sort"

	"exam-sim-service/internal/domain"
)

// Analyze derives the per-topic accuracy breakdown for one scored attempt.
// Questions without a topic id are scored normally elsewhere but excluded
// here. Topics with accuracy below the threshold land in WeakAreas.
//
// The output is a pure function of the inputs: topics are sorted by id so
// re-running analysis on the same attempt always yields the same result.
func Analyze(questions []domain.Question, records map[string]domain.AnswerRecord, threshold float64) domain.Analysis {
	type tally struct {
		correct int
		total   int
	}
	byTopic := make(map[string]*tally)
	for _, q := range questions {
		if q.TopicID == "" {
			continue
		}
		t, ok := byTopic[q.TopicID]
		if !ok {
			t = &tally{}
			byTopic[q.TopicID] = t
		}
		t.total++
		if records[q.ID].IsCorrect {
			t.correct++
		}
	}

	analysis := domain.Analysis{
		TopicPerformance: make([]domain.TopicPerformance, 0, len(byTopic)),
		WeakAreas:        []string{},
	}
	for topicID, t := range byTopic {
		accuracy := float64(t.correct) / float64(t.total) * 100
		analysis.TopicPerformance = append(analysis.TopicPerformance, domain.TopicPerformance{
			TopicID:  topicID,
			Correct:  t.correct,
			Total:    t.total,
			Accuracy: accuracy,
		})
		if accuracy < threshold {
			analysis.WeakAreas = append(analysis.WeakAreas, topicID)
		}
	}
	sort.Slice(analysis.TopicPerformance, func(i, j int) bool {
		return analysis.TopicPerformance[i].TopicID < analysis.TopicPerformance[j].TopicID
	})
	sort.Strings(analysis.WeakAreas)
	return analysis
}
