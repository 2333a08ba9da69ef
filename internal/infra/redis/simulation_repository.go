package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"exam-sim-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// SimulationLoader fetches simulation definitions from a backing store
// (e.g., postgres).
type SimulationLoader interface {
	LoadSimulation(ctx context.Context, simulationID string) (domain.Simulation, error)
}

// SimulationRepository caches whole simulation definitions as JSON in Redis
// and falls back to the loader on cache miss. Attempt creation snapshots the
// full question set, so the cache keeps the complete definition rather than a
// stripped answer-key form:
//
//	SET simulation:{id} {json} EX {ttl}
type SimulationRepository struct {
	client *redis.Client
	loader SimulationLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewSimulationRepository(client *redis.Client, loader SimulationLoader, ttl time.Duration) *SimulationRepository {
	return &SimulationRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *SimulationRepository) GetSimulation(ctx context.Context, simulationID string) (domain.Simulation, error) {
	key := r.key(simulationID)

	if sim, ok := r.fromCache(ctx, key); ok {
		return sim, nil
	}

	result, err, _ := r.sf.Do(simulationID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if sim, ok := r.fromCache(ctx, key); ok {
			return sim, nil
		}

		sim, err := r.loader.LoadSimulation(ctx, simulationID)
		if err != nil {
			return domain.Simulation{}, err
		}

		data, err := json.Marshal(sim)
		if err != nil {
			return domain.Simulation{}, fmt.Errorf("marshal simulation: %w", err)
		}
		// best-effort cache fill
		_ = r.client.Set(ctx, key, data, r.ttlWithJitter()).Err()

		return sim, nil
	})
	if err != nil {
		return domain.Simulation{}, err
	}
	return result.(domain.Simulation), nil
}

func (r *SimulationRepository) fromCache(ctx context.Context, key string) (domain.Simulation, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil || len(raw) == 0 {
		return domain.Simulation{}, false
	}
	var sim domain.Simulation
	if err := json.Unmarshal(raw, &sim); err != nil {
		return domain.Simulation{}, false
	}
	return sim, true
}

func (r *SimulationRepository) key(simulationID string) string {
	return "simulation:" + simulationID
}

func (r *SimulationRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
