// Package main запускает HTTP-сервер учёта записей и кассы парикмахерской.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/barbershop-ledger/internal/config"
	"github.com/mmeshcher/barbershop-ledger/internal/events"
	"github.com/mmeshcher/barbershop-ledger/internal/handler"
	"github.com/mmeshcher/barbershop-ledger/internal/middleware"
	"github.com/mmeshcher/barbershop-ledger/internal/repository"
	"github.com/mmeshcher/barbershop-ledger/internal/service"
	"github.com/mmeshcher/barbershop-ledger/internal/telemetry"
	"github.com/mmeshcher/barbershop-ledger/internal/tenant"
)

const serviceName = "barbershop"

// store объединяет всё, что процесс требует от хранилища.
type store interface {
	service.Repository
	tenant.Provisioner
	events.Outbox
}

func main() {
	cfg, err := config.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(2)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger initialization error: %v\n", err)
		os.Exit(2)
	}
	defer logger.Sync()

	sugar := logger.Sugar()

	if err := run(cfg, logger); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	if lvl.Level() == zap.DebugLevel {
		return zap.NewDevelopment()
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = lvl
	return zcfg.Build()
}

func openStore(cfg *config.Config, sugar *zap.SugaredLogger) (store, error) {
	if cfg.DatabaseURI != "" {
		sugar.Infow("using PostgreSQL storage")
		return repository.NewPostgresRepository(cfg.DatabaseURI)
	}
	sugar.Infow("using SQLite storage", "path", cfg.SQLitePath)
	return repository.NewSQLiteRepository(cfg.SQLitePath)
}

func run(cfg *config.Config, logger *zap.Logger) error {
	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:  serviceName,
		OTLPEndpoint: cfg.OTLPEndpoint,
	})
	if err != nil {
		return fmt.Errorf("telemetry initialization: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			sugar.Warnw("tracer shutdown error", "error", err)
		}
	}()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	dir, err := tenant.LoadDirectory(cfg.TenantsFile)
	if err != nil {
		return fmt.Errorf("tenants initialization: %w", err)
	}

	repo, err := openStore(cfg, sugar)
	if err != nil {
		return fmt.Errorf("database initialization: %w", err)
	}

	svc := service.NewService(repo, loc)
	defer svc.Close()

	var limiter *middleware.RateLimiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			sugar.Warnw("redis is unavailable, login rate limit fails open", "addr", cfg.RedisAddr, "error", err)
		}
		limiter = middleware.NewRateLimiter(rdb, cfg.LoginRateLimit, time.Minute, "barbershop:login", logger).
			TrustForwardedFor(cfg.TrustProxy)
	}

	authMiddleware := middleware.NewAuthMiddleware(cfg.SecretKey)
	h := handler.NewHandler(svc, tenant.NewResolver(dir, repo), logger, authMiddleware, limiter)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           otelhttp.NewHandler(h.SetupRouter(), serviceName),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	if publisher := events.NewPublisher(repo, logger, events.Config{
		Brokers: events.SplitBrokers(cfg.KafkaBrokers),
		Topic:   cfg.KafkaTopic,
	}); publisher != nil {
		g.Go(func() error {
			sugar.Infow("starting outbox publisher", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
			return publisher.Run(ctx)
		})
	} else {
		sugar.Infow("outbox publisher disabled, no kafka brokers configured")
	}

	g.Go(func() error {
		sugar.Infow("starting barbershop server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Остановка по сигналу или при ошибке в другой горутине.
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	return g.Wait()
}
