package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SscSPs/fund_ledger/internal/core/services"
	"github.com/SscSPs/fund_ledger/internal/events/amqp"
	"github.com/SscSPs/fund_ledger/internal/events/kafka"
	"github.com/SscSPs/fund_ledger/internal/handlers"
	"github.com/SscSPs/fund_ledger/internal/middleware"
	"github.com/SscSPs/fund_ledger/internal/platform/config"
	"github.com/SscSPs/fund_ledger/internal/repositories/database/pgsql"
	"github.com/SscSPs/fund_ledger/internal/repositories/memory"
	"github.com/SscSPs/fund_ledger/migrations"
	"github.com/SscSPs/fund_ledger/pkg/database"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	portsrepo "github.com/SscSPs/fund_ledger/internal/core/ports/repositories"
)

// @title Fund Ledger API
// @version 1.0
// @description Append-only allocation ledger for donations, support groups and spending requests.

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @security BearerAuth
func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, logger)
	stop()
	if err != nil {
		logger.Error("Server stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Server stopped")
}

// run wires the backend and serves until ctx is done. Every resource it opens is released
// before it returns.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	repos, closeRepos, err := setupRepositories(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize repositories: %w", err)
	}
	defer closeRepos()

	var serviceOptions []services.ServiceOption
	if len(cfg.KafkaBrokers) > 0 {
		publisher := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Error("Error closing Kafka publisher", slog.String("error", err.Error()))
			}
		}()
		serviceOptions = append(serviceOptions, services.WithEntryPublisher(publisher))
		logger.Info("Entry notifications enabled", slog.Any("brokers", cfg.KafkaBrokers), slog.String("topic", cfg.KafkaTopic))
	} else {
		logger.Info("Entry notifications disabled - no KAFKA_BROKERS provided")
	}

	serviceContainer := services.NewServiceContainer(cfg, repos, serviceOptions...)

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware (logging, recovery, CORS)
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery(), middleware.CORS(cfg.CORSAllowedOrigins))

	if err := r.SetTrustedProxies(nil); err != nil {
		return fmt.Errorf("set trusted proxies: %w", err)
	}

	if err := handlers.RegisterRoutes(r, cfg, serviceContainer); err != nil {
		return fmt.Errorf("register routes: %w", err)
	}

	var consumer *amqp.Consumer
	if cfg.AMQPURL != "" {
		consumer, err = amqp.NewConsumer(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, serviceContainer.Allocation, logger)
		if err != nil {
			return fmt.Errorf("initialize AMQP consumer: %w", err)
		}
		defer consumer.Close()
	} else {
		logger.Info("Payment status consumer disabled - no AMQP_URL provided")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Server starting", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		logger.Info("Shutting down server")
		return srv.Shutdown(shutdownCtx)
	})
	if consumer != nil {
		g.Go(func() error {
			if err := consumer.Consume(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	return g.Wait()
}

// setupRepositories builds the configured data backend. The returned func releases it.
func setupRepositories(ctx context.Context, cfg *config.Config, logger *slog.Logger) (portsrepo.RepositoryProvider, func(), error) {
	if cfg.DataBackend == config.BackendMemory {
		store := memory.NewStore()
		for _, groupID := range cfg.MemoryGroups {
			store.RegisterGroup(groupID)
		}
		logger.Warn("Using the in-memory ledger store; data is lost on restart", slog.Int("groups", len(cfg.MemoryGroups)))
		return portsrepo.RepositoryProvider{LedgerStore: store, Groups: store}, func() {}, nil
	}

	dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.EnableDBCheck)
	if err != nil {
		return portsrepo.RepositoryProvider{}, nil, err
	}
	logger.Info("Database connection pool established.")

	logger.Info("Running database migrations...")
	applied, err := database.RunMigrations(cfg.DatabaseURL, migrations.FS)
	if err != nil {
		database.ClosePgxPool(dbPool)
		return portsrepo.RepositoryProvider{}, nil, err
	}
	if applied {
		logger.Info("Database migrations applied successfully.")
	} else {
		logger.Info("No new migrations to apply.")
	}

	return pgsql.NewRepositoryProvider(dbPool, cfg.LedgerLockTimeout), func() { database.ClosePgxPool(dbPool) }, nil
}
