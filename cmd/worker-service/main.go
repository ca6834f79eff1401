package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuongbtq/assignment-orchestrator/internal/config"
	"github.com/cuongbtq/assignment-orchestrator/internal/invitation"
	"github.com/cuongbtq/assignment-orchestrator/internal/monitor"
	"github.com/cuongbtq/assignment-orchestrator/internal/notify"
	"github.com/cuongbtq/assignment-orchestrator/internal/orchestrator"
	"github.com/cuongbtq/assignment-orchestrator/internal/ranker"
	"github.com/cuongbtq/assignment-orchestrator/internal/storage"
	"github.com/cuongbtq/assignment-orchestrator/internal/worker"
	"github.com/cuongbtq/assignment-orchestrator/shared/logger"
	"github.com/cuongbtq/assignment-orchestrator/shared/postgresql"
	"github.com/cuongbtq/assignment-orchestrator/shared/rabbitmq"
	"github.com/joho/godotenv"
	"github.com/rcrowley/go-metrics"
	"golang.org/x/sync/errgroup"
)

func main() {
	bootLogger := logger.NewDefault()
	if err := run(bootLogger); err != nil {
		bootLogger.Error("Service exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(bootLogger *logger.Logger) error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		bootLogger.Info("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()
	svcLogger := appLogger.With(slog.String("service", "assignment-worker-service"))

	svcLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Initialize PostgreSQL client
	dbClient, err := initPostgreSQL(&cfg.Database, svcLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbClient.Close()

	svcLogger.Info("Database connection established")

	// Initialize RabbitMQ client
	rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, svcLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}
	defer rabbitClient.Close()

	svcLogger.Info("RabbitMQ connection established")

	sender, err := notify.NewSMTPSender(&notify.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
		TLS:      cfg.Mail.TLS,
		Timeout:  cfg.Mail.Timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize mail sender: %w", err)
	}

	store := storage.NewStorage(dbClient, svcLogger.Logger,
		storage.WithDefaultExpiryMinutes(cfg.Orchestrator.DefaultExpiryMinutes))
	notifier := notify.NewService(sender, store, svcLogger.Logger)

	hub := monitor.NewHub()
	runs := orchestrator.NewRuns()

	registry := metrics.NewRegistry()
	registry.Register("runs.active", metrics.NewFunctionalGauge(func() int64 { return int64(runs.Len()) }))
	registry.Register("monitor.waiting", metrics.NewFunctionalGauge(func() int64 { return int64(hub.Waiting()) }))
	dbClient.RegisterMetrics(registry)

	orch := orchestrator.New(&orchestrator.Config{
		Jobs:        store,
		Ranker:      ranker.New(store, svcLogger.Logger),
		Ledger:      store,
		Expiry:      store,
		Issuer:      invitation.NewIssuer(cfg.Invitation.BaseURL, cfg.Invitation.SigningSecret),
		Offers:      notifier,
		Escalator:   notifier,
		Monitor:     monitor.New(hub, store, svcLogger.Logger, monitor.WithPollInterval(cfg.Orchestrator.PollInterval)),
		Metrics:     orchestrator.NewMetrics(registry),
		MaxAttempts: cfg.Orchestrator.MaxAttempts,
		Logger:      svcLogger.Logger,
	})

	workerInstance := worker.NewWorker(&worker.Config{
		Logger:      svcLogger.Logger,
		Consumer:    rabbitClient,
		Runner:      orch,
		Runs:        runs,
		Hub:         hub,
		Concurrency: cfg.Worker.Concurrency,
		QueueSize:   cfg.Worker.QueueSize,
		RunTimeout:  cfg.Worker.RunTimeout,
		ConsumerTag: cfg.RabbitMQ.Consumer.Tag,
	})

	// Cancelled on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return workerInstance.Start(gctx)
	})
	g.Go(func() error {
		return orchestrator.ReportEvery(gctx, registry, cfg.Worker.MetricsInterval, svcLogger.Logger)
	})

	svcLogger.Info("Worker service started successfully", slog.String("worker_id", workerInstance.WorkerID()))

	err = g.Wait()
	if ctx.Err() != nil {
		svcLogger.Info("Received signal, shutting down gracefully")
	} else if err != nil {
		svcLogger.Error("Worker error", slog.Any("error", err))
	}

	// Give in-flight runs time to return
	done := make(chan struct{})
	go func() {
		workerInstance.Stop()
		close(done)
	}()

	select {
	case <-done:
		svcLogger.Info("Worker stopped gracefully")
	case <-time.After(cfg.Worker.ShutdownTimeout):
		svcLogger.Warn("Worker shutdown timeout exceeded, forcing exit")
	}

	svcLogger.Info("Worker service shutdown complete")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(dbConfig, logger)
}

// initRabbitMQ initializes the RabbitMQ client
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		QueueExclusive:     cfg.Queue.Exclusive,
		RoutingKey:         cfg.RoutingKey,
		PrefetchCount:      cfg.Consumer.PrefetchCount,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}
