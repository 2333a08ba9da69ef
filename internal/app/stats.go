package app

import (
	"sort"

	"exam-sim-service/internal/domain"
)

// defaultRecentWindow bounds Recent when no (or a nonsensical) window is
// configured; the slice is for dashboards and must never grow with history.
const defaultRecentWindow = 10

// Aggregate computes simulation-level statistics over completed attempts.
// Zero completed attempts is a valid state and yields zero-valued aggregates.
//
// AverageScore is the mean of per-attempt percentages, not of raw scores:
// attempts can carry different frozen max scores when the question set grew
// between runs.
func Aggregate(simulationID string, passingScore float64, completed []domain.Attempt, recentWindow int) domain.SimulationStats {
	stats := domain.SimulationStats{
		SimulationID: simulationID,
		Recent:       []domain.RecentResult{},
	}
	if len(completed) == 0 {
		return stats
	}

	sorted := make([]domain.Attempt, len(completed))
	copy(sorted, completed)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CompletedAt.After(*sorted[j].CompletedAt)
	})

	var pctSum, timeSum float64
	passes := 0
	for _, a := range sorted {
		pct := a.Percentage()
		pctSum += pct
		timeSum += float64(a.TimeSpentSeconds)
		if pct >= passingScore {
			passes++
		}
	}

	n := float64(len(sorted))
	stats.TotalAttempts = len(sorted)
	stats.AverageScore = pctSum / n
	stats.PassRate = float64(passes) / n * 100
	stats.AverageTimeSeconds = timeSum / n

	limit := recentWindow
	if limit <= 0 {
		limit = defaultRecentWindow
	}
	if limit > len(sorted) {
		limit = len(sorted)
	}
	for _, a := range sorted[:limit] {
		stats.Recent = append(stats.Recent, domain.RecentResult{
			AttemptID:        a.ID,
			UserID:           a.UserID,
			DisplayName:      a.DisplayName,
			Score:            a.Score,
			MaxScore:         a.MaxScore,
			Percentage:       a.Percentage(),
			Passed:           a.Percentage() >= passingScore,
			TimeSpentSeconds: a.TimeSpentSeconds,
			CompletedAt:      *a.CompletedAt,
		})
	}
	return stats
}
