package app

import (
	"testing"

	"exam-sim-service/internal/domain"
)

func scoringQuestions() []domain.Question {
	return []domain.Question{
		{ID: "q1", Prompt: "first", Options: []string{"a", "b"}, CorrectAnswer: "a", Points: 5},
		{ID: "q2", Prompt: "second", Options: []string{"c", "d"}, CorrectAnswer: "d", Points: 10, Explanation: "d is right"},
	}
}

func TestScorePartiallyCorrect(t *testing.T) {
	total, records := Score(scoringQuestions(), map[string]string{"q1": "a", "q2": "c"})

	if total != 5 {
		t.Fatalf("expected total 5, got %d", total)
	}
	if !records["q1"].IsCorrect || records["q1"].Points != 5 {
		t.Fatalf("expected q1 correct with 5 points, got %+v", records["q1"])
	}
	if records["q2"].IsCorrect || records["q2"].Points != 0 {
		t.Fatalf("expected q2 incorrect with 0 points, got %+v", records["q2"])
	}
	if records["q2"].Explanation != "d is right" {
		t.Fatalf("expected explanation carried into record, got %+v", records["q2"])
	}

	if Percentage(total, 15) < 33.3 || Percentage(total, 15) > 33.4 {
		t.Fatalf("expected percentage near 33.3, got %f", Percentage(total, 15))
	}
	if Passed(total, 15, 60) {
		t.Fatalf("expected 33%% to fail a 60%% threshold")
	}
}

func TestScoreAllCorrect(t *testing.T) {
	total, records := Score(scoringQuestions(), map[string]string{"q1": "a", "q2": "d"})

	if total != 15 {
		t.Fatalf("expected total 15, got %d", total)
	}
	if Percentage(total, 15) != 100 {
		t.Fatalf("expected 100%%, got %f", Percentage(total, 15))
	}
	if !Passed(total, 15, 60) {
		t.Fatalf("expected pass at 100%%")
	}
	for id, rec := range records {
		if rec.Points != 0 && rec.Points != 5 && rec.Points != 10 {
			t.Fatalf("question %s awarded out-of-range points %d", id, rec.Points)
		}
	}
}

func TestScoreMissingAnswersCountAsIncorrect(t *testing.T) {
	total, records := Score(scoringQuestions(), map[string]string{"q1": "a"})

	if total != 5 {
		t.Fatalf("expected missing q2 to contribute zero, total=%d", total)
	}
	rec, ok := records["q2"]
	if !ok {
		t.Fatalf("expected unanswered question to stay in the record set")
	}
	if rec.IsCorrect || rec.Points != 0 || rec.UserAnswer != "" {
		t.Fatalf("expected unanswered question scored as incorrect, got %+v", rec)
	}
}

func TestScoreTotalEqualsSumOfAwarded(t *testing.T) {
	total, records := Score(scoringQuestions(), map[string]string{"q1": "b", "q2": "d"})

	sum := 0
	for _, rec := range records {
		sum += rec.Points
	}
	if total != sum {
		t.Fatalf("total %d != sum of awarded %d", total, sum)
	}
}

func TestPassedComparesUnroundedPercentage(t *testing.T) {
	// 2/3 is 66.67%: must fail a 66.7 threshold even though it displays as 66.7.
	if Passed(2, 3, 66.7) {
		t.Fatalf("expected 66.66... to fail a 66.7 threshold")
	}
	if !Passed(2, 3, 66.6) {
		t.Fatalf("expected 66.66... to pass a 66.6 threshold")
	}
}

func TestPercentageZeroMax(t *testing.T) {
	if Percentage(0, 0) != 0 {
		t.Fatalf("expected zero max to yield zero percentage")
	}
}

func TestScoreZeroPointQuestionWorthOne(t *testing.T) {
	questions := []domain.Question{{ID: "q1", CorrectAnswer: "yes"}}
	total, records := Score(questions, map[string]string{"q1": "yes"})
	if total != 1 || records["q1"].Points != 1 {
		t.Fatalf("expected zero-point question to default to 1, got total=%d rec=%+v", total, records["q1"])
	}
}
