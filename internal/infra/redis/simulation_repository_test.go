package redis

import (
	"context"
	"testing"
	"time"

	"exam-sim-service/internal/domain"
	"exam-sim-service/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestSimulationRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		SimulationLoader: memory.NewStaticSimulationLoader(map[string]domain.Simulation{
			"sim-1": sampleSimulation(),
		}),
	}
	repo := NewSimulationRepository(client, loader, time.Minute)

	sim, err := repo.GetSimulation(context.Background(), "sim-1")
	if err != nil {
		t.Fatalf("get simulation: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("simulation:sim-1") {
		t.Fatalf("expected cached key in redis")
	}

	// Second call should hit cache, loader not incremented, and the full
	// definition (answer keys included) must survive the round trip.
	sim, err = repo.GetSimulation(context.Background(), "sim-1")
	if err != nil {
		t.Fatalf("get simulation 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if len(sim.Questions) != 1 || sim.Questions[0].CorrectAnswer != "4" {
		t.Fatalf("cached simulation lost data: %+v", sim)
	}
}

func TestSimulationRepositoryMissFallsThrough(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	repo := NewSimulationRepository(newClient(mr), memory.NewStaticSimulationLoader(nil), time.Minute)
	if _, err := repo.GetSimulation(context.Background(), "missing"); err != domain.ErrSimulationNotFound {
		t.Fatalf("expected not found from loader, got %v", err)
	}
}

type countingLoader struct {
	memory.SimulationLoader
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

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
