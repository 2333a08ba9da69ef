package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"exam-sim-service/internal/app"
	"exam-sim-service/internal/domain"
	pgstore "exam-sim-service/internal/infra/postgres"
	pgmigrations "exam-sim-service/internal/infra/postgres/migrations"
	infraredis "exam-sim-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestAttemptLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedSimulation(t, ctx, pgURL, sampleSimulation())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	simulations := infraredis.NewSimulationRepository(redisClient, pgstore.NewSimulationLoader(pool), 5*time.Minute)
	attempts := pgstore.NewAttemptStore(pool)
	service := app.NewExamService(simulations, attempts, app.NewStatsFeed(), app.DefaultPolicy())

	started, err := service.StartAttempt(ctx, "u1", "Alice", "sim-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	for _, q := range started.Questions {
		if q.CorrectAnswer != "" {
			t.Fatalf("answer key leaked: %+v", q)
		}
	}

	// Second start for the same user must hit the partial unique index.
	_, err = service.StartAttempt(ctx, "u1", "Alice", "sim-1")
	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) || conflict.AttemptID != started.AttemptID {
		t.Fatalf("expected conflict with %s, got %v", started.AttemptID, err)
	}

	outcome, err := service.SubmitAttempt(ctx, started.AttemptID, map[string]string{"q1": "4", "q2": "6"}, 480)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if outcome.Result.Score != 5 || outcome.Result.MaxScore != 15 || outcome.Result.Passed {
		t.Fatalf("unexpected result: %+v", outcome.Result)
	}

	// Double submit is rejected atomically by the conditional update.
	if _, err := service.SubmitAttempt(ctx, started.AttemptID, map[string]string{"q1": "4", "q2": "9"}, 500); !errors.Is(err, domain.ErrAttemptClosed) {
		t.Fatalf("expected already closed, got %v", err)
	}
	stored, err := attempts.GetAttempt(ctx, started.AttemptID)
	if err != nil {
		t.Fatalf("get attempt: %v", err)
	}
	if stored.Score != 5 || stored.TimeSpentSeconds != 480 {
		t.Fatalf("double submit changed the record: %+v", stored)
	}

	_, stats, err := service.SimulationStats(ctx, "sim-1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalAttempts != 1 || stats.PassRate != 0 || stats.AverageTimeSeconds != 480 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(stats.Recent) != 1 || stats.Recent[0].DisplayName != "Alice" {
		t.Fatalf("unexpected recent results: %+v", stats.Recent)
	}

	// The slot is free again: a new attempt starts cleanly after the close.
	if _, err := service.StartAttempt(ctx, "u1", "Alice", "sim-1"); err != nil {
		t.Fatalf("restart after close: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "exam", "POSTGRES_PASSWORD": "exampass", "POSTGRES_DB": "examdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://exam:exampass@%s:%s/examdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedSimulation(t *testing.T, ctx context.Context, dsn string, sim domain.Simulation) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	data, err := json.Marshal(sim)
	if err != nil {
		t.Fatalf("marshal simulation: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO simulations (id, data) VALUES (?, ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, sim.ID, string(data)); err != nil {
		t.Fatalf("insert simulation: %v", err)
	}
}

func sampleSimulation() domain.Simulation {
	return domain.Simulation{
		ID:              "sim-1",
		Title:           "Practice Exam",
		DurationMinutes: 30,
		PassingScore:    60,
		Questions: []domain.Question{
			{ID: "q1", Prompt: "What is 2 + 2?", Options: []string{"3", "4", "5"}, CorrectAnswer: "4", Points: 5, Order: 1, TopicID: "arithmetic"},
			{ID: "q2", Prompt: "What is 3 x 3?", Options: []string{"6", "9", "12"}, CorrectAnswer: "9", Points: 10, Order: 2, TopicID: "arithmetic"},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
