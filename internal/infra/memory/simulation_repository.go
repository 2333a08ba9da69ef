package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"exam-sim-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// SimulationLoader fetches simulation definitions from a backing store.
type SimulationLoader interface {
	LoadSimulation(ctx context.Context, simulationID string) (domain.Simulation, error)
}

// SimulationRepository caches simulation definitions with TTL to avoid
// repeated DB hits.
type SimulationRepository struct {
	loader SimulationLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedSimulation
}

type cachedSimulation struct {
	simulation domain.Simulation
	expiresAt  time.Time
}

func NewSimulationRepository(loader SimulationLoader, ttl time.Duration) *SimulationRepository {
	return &SimulationRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedSimulation),
	}
}

func (r *SimulationRepository) GetSimulation(ctx context.Context, simulationID string) (domain.Simulation, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[simulationID]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.simulation, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(simulationID, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[simulationID]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.simulation, nil
		}
		r.mu.RUnlock()

		sim, err := r.loader.LoadSimulation(ctx, simulationID)
		if err != nil {
			return domain.Simulation{}, err
		}

		r.mu.Lock()
		r.cache[simulationID] = cachedSimulation{
			simulation: sim,
			expiresAt:  now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return sim, nil
	})
	if err != nil {
		return domain.Simulation{}, err
	}
	return result.(domain.Simulation), nil
}

func (r *SimulationRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticSimulationLoader is a simple loader backed by an in-memory map
// (useful for tests/demos).
type StaticSimulationLoader struct {
	simulations map[string]domain.Simulation
}

func NewStaticSimulationLoader(simulations map[string]domain.Simulation) *StaticSimulationLoader {
	return &StaticSimulationLoader{simulations: simulations}
}

func (l *StaticSimulationLoader) LoadSimulation(_ context.Context, simulationID string) (domain.Simulation, error) {
	if sim, ok := l.simulations[simulationID]; ok {
		return sim, nil
	}
	return domain.Simulation{}, domain.ErrSimulationNotFound
}
