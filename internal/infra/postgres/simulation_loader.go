package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"exam-sim-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// SimulationLoader loads simulation JSONB from Postgres.
type SimulationLoader struct {
	pool *pgxpool.Pool
}

func NewSimulationLoader(pool *pgxpool.Pool) *SimulationLoader {
	return &SimulationLoader{pool: pool}
}

func (l *SimulationLoader) LoadSimulation(ctx context.Context, simulationID string) (domain.Simulation, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM simulations WHERE id=$1`, simulationID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Simulation{}, domain.ErrSimulationNotFound
		}
		return domain.Simulation{}, fmt.Errorf("load simulation: %w", err)
	}
	var sim domain.Simulation
	if err := json.Unmarshal(raw, &sim); err != nil {
		return domain.Simulation{}, fmt.Errorf("unmarshal simulation: %w", err)
	}
	return sim, nil
}
