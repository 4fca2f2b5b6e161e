package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/prepcoach/internal/config"
	"github.com/felixgeelhaar/prepcoach/internal/daemon"
	"github.com/felixgeelhaar/prepcoach/internal/domain"
	"github.com/felixgeelhaar/prepcoach/internal/engine"
	"github.com/felixgeelhaar/prepcoach/internal/queue"
	"github.com/felixgeelhaar/prepcoach/internal/repository"
	"github.com/felixgeelhaar/prepcoach/internal/session"
	"github.com/felixgeelhaar/prepcoach/internal/storage/sqlite"
	"github.com/felixgeelhaar/prepcoach/internal/strategy"
)

func main() {
	if err := run(); err != nil {
		slog.Error("daemon error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Local analytics store
	db, err := sqlite.Open(cfg.SQLitePath)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate sqlite: %w", err)
	}
	store := sqlite.NewStore(db)

	// Postgres is optional; without it mastery does not survive restarts
	var repo *repository.PostgresRepository
	if cfg.DatabaseURL != "" {
		pool, err := repository.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		repo = repository.NewPostgresRepository(pool)
		logger.Info("postgres connected")
	}

	// RabbitMQ is optional; without it coaching events stay in-process
	var publisher session.Publisher
	if cfg.RabbitMQURL != "" {
		conn, err := queue.NewConnection(cfg.RabbitMQURL)
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		defer conn.Close()
		publisher = queue.NewPublisher(conn, logger)
		logger.Info("rabbitmq connected")
	}

	skills, err := domain.LoadSkills(cfg.SkillsPath)
	if err != nil {
		return fmt.Errorf("load skills: %w", err)
	}

	strategies, err := strategy.LoadCatalogue(cfg.StrategiesPath)
	if err != nil {
		return fmt.Errorf("load strategies: %w", err)
	}

	svc, err := session.NewService(skills, session.Options{
		Tick: cfg.TickInterval,
		Q: engine.QConfig{
			Alpha:   cfg.LearningAlpha,
			Gamma:   cfg.DiscountGamma,
			Epsilon: cfg.Epsilon,
		},
		MaxActive:  cfg.MaxConcurrent,
		Strategies: strategies,
	}, store, publisher, logger)
	if err != nil {
		return fmt.Errorf("create session service: %w", err)
	}

	logger.Info("starting prepcoach daemon",
		"port", cfg.Port,
		"skills", len(skills),
		"strategies", len(strategies),
		"tick", cfg.TickInterval,
	)

	handler := daemon.NewRouter(svc, repo, cfg, logger)
	return daemon.Run(ctx, fmt.Sprintf(":%d", cfg.Port), handler, svc, logger)
}
