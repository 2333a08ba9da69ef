package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"exam-sim-service/internal/app"
	"exam-sim-service/internal/config"
	"exam-sim-service/internal/domain"
	"exam-sim-service/internal/infra/memory"
	pgstore "exam-sim-service/internal/infra/postgres"
	redisstore "exam-sim-service/internal/infra/redis"
	transport "exam-sim-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the exam simulation server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.SimulationLoader = memory.NewStaticSimulationLoader(sampleSimulations())
	if pool != nil {
		loader = pgstore.NewSimulationLoader(pool)
	}

	simulationTTL := config.TTLDuration(cfg.Simulation.TTL, 10*time.Minute)
	var simulations app.SimulationRepository
	if redisClient != nil {
		simulations = redisstore.NewSimulationRepository(redisClient, loader, simulationTTL)
	} else {
		simulations = memory.NewSimulationRepository(loader, simulationTTL)
	}

	var attempts app.AttemptStore = memory.NewAttemptStore()
	if pool != nil {
		attempts = pgstore.NewAttemptStore(pool)
	}

	service := app.NewExamService(simulations, attempts, app.NewStatsFeed(), policyFromConfig(cfg))
	handler := transport.NewHandler(service)
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	handler.Register(mux)
	mux.HandleFunc("/ws/statistics", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting exam simulation service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func policyFromConfig(cfg config.Config) app.Policy {
	policy := app.DefaultPolicy()
	if cfg.Scoring.WeakAreaThreshold > 0 {
		policy.WeakAreaThreshold = cfg.Scoring.WeakAreaThreshold
	}
	if cfg.Stats.RecentWindow > 0 {
		policy.RecentWindow = cfg.Stats.RecentWindow
	}
	policy.EnforceDeadline = cfg.Session.EnforceDeadline
	policy.LateGrace = config.TTLDuration(cfg.Session.LateGrace, policy.LateGrace)
	return policy
}

// sampleSimulations provides a minimal definition set for running without
// postgres; production deployments load definitions from the database.
func sampleSimulations() map[string]domain.Simulation {
	return map[string]domain.Simulation{
		"sim-1": {
			ID:              "sim-1",
			Title:           "Sample Certification Exam",
			DurationMinutes: 30,
			PassingScore:    60,
			Questions: []domain.Question{
				{
					ID:            "q1",
					Prompt:        "What is 2 + 2?",
					Options:       []string{"3", "4", "5"},
					CorrectAnswer: "4",
					Points:        1,
					Order:         1,
					TopicID:       "arithmetic",
					Explanation:   "Basic addition.",
				},
				{
					ID:            "q2",
					Prompt:        "What is 3 x 3?",
					Options:       []string{"6", "9", "12"},
					CorrectAnswer: "9",
					Points:        2,
					Order:         2,
					TopicID:       "arithmetic",
					Explanation:   "Basic multiplication.",
				},
			},
		},
	}
}
