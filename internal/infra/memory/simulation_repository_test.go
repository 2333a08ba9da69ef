package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"exam-sim-service/internal/domain"
)

func TestSimulationRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		SimulationLoader: NewStaticSimulationLoader(map[string]domain.Simulation{
			"sim-1": sampleSimulation(),
		}),
	}
	repo := NewSimulationRepository(loader, time.Minute)

	if _, err := repo.GetSimulation(context.Background(), "sim-1"); err != nil {
		t.Fatalf("get simulation: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetSimulation(context.Background(), "sim-1"); err != nil {
		t.Fatalf("get simulation 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestStaticLoaderUnknownSimulation(t *testing.T) {
	repo := NewSimulationRepository(NewStaticSimulationLoader(nil), time.Minute)
	_, err := repo.GetSimulation(context.Background(), "missing")
	if !errors.Is(err, domain.ErrSimulationNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

type countingLoader struct {
	SimulationLoader
	calls int
}

func (l *countingLoader) LoadSimulation(ctx context.Context, simulationID string) (domain.Simulation, error) {
	l.calls++
	return l.SimulationLoader.LoadSimulation(ctx, simulationID)
}

func sampleSimulation() domain.Simulation {
	return domain.Simulation{
		ID:              "sim-1",
		Title:           "Sample",
		DurationMinutes: 30,
		PassingScore:    60,
		Questions: []domain.Question{
			{ID: "q1", Prompt: "What is 2 + 2?", Options: []string{"3", "4"}, CorrectAnswer: "4", Points: 1},
		},
	}
}
