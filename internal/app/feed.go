package app

import (
	"sync"

	"exam-sim-service/internal/domain"
)

// StatsFeed fans out statistics snapshots to dashboard subscribers, keyed by
// simulation id. Publishing never blocks the submit path: slow subscribers
// have their stale snapshot dropped in favor of the newest one.
type StatsFeed struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan domain.SimulationStats]struct{}
}

func NewStatsFeed() *StatsFeed {
	return &StatsFeed{
		subscribers: make(map[string]map[chan domain.SimulationStats]struct{}),
	}
}

// Subscribe returns a channel of snapshots for one simulation, seeded with
// the initial snapshot. The caller must invoke the returned cancel function
// to avoid leaks.
func (f *StatsFeed) Subscribe(simulationID string, initial domain.SimulationStats) (<-chan domain.SimulationStats, func()) {
	ch := make(chan domain.SimulationStats, 8)

	f.mu.Lock()
	subs, ok := f.subscribers[simulationID]
	if !ok {
		subs = make(map[chan domain.SimulationStats]struct{})
		f.subscribers[simulationID] = subs
	}
	subs[ch] = struct{}{}
	f.mu.Unlock()

	ch <- initial

	cancel := func() {
		f.mu.Lock()
		if subs, ok := f.subscribers[simulationID]; ok {
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}
			if len(subs) == 0 {
				delete(f.subscribers, simulationID)
			}
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

// HasSubscribers lets callers skip snapshot computation when nobody listens.
func (f *StatsFeed) HasSubscribers(simulationID string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subscribers[simulationID]) > 0
}

// Publish delivers a snapshot to every subscriber of the simulation.
func (f *StatsFeed) Publish(simulationID string, stats domain.SimulationStats) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers[simulationID] {
		select {
		case ch <- stats:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- stats
		}
	}
}
