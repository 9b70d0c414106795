package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	jwttoken "pampermomma/internal/jwt_token"
	"pampermomma/internal/notification"
	paymenthandler "pampermomma/internal/payment/handler"
	"pampermomma/internal/payment/processor"
	paymentservice "pampermomma/internal/payment/service"
	"pampermomma/internal/platform/config"
	"pampermomma/internal/platform/httpserver"
	"pampermomma/internal/platform/logger"
	"pampermomma/internal/platform/metrics"
	platformredis "pampermomma/internal/platform/redis"
	registryhandler "pampermomma/internal/registry/handler"
	registryservice "pampermomma/internal/registry/service"
	registrystore "pampermomma/internal/registry/store"
	withdrawalhandler "pampermomma/internal/withdrawal/handler"
	withdrawalservice "pampermomma/internal/withdrawal/service"
	withdrawalstore "pampermomma/internal/withdrawal/store"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Registry persistence: Postgres when configured, memory for local runs.
	var registries registrystore.Store
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping database: %w", err)
		}
		if err := registrystore.Migrate(ctx, db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		registries = registrystore.NewPostgres(db)
		log.Info("registry store ready", "backend", "postgres")
	} else {
		registries = registrystore.NewMemory()
		log.Warn("DATABASE_URL not set, registry data is in-memory only")
	}

	// Withdrawal verification codes: Redis when configured, memory otherwise.
	var otps withdrawalstore.OTPStore
	rdb, err := platformredis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if rdb != nil {
		defer rdb.Close()
		otps = withdrawalstore.NewRedis(rdb.Client)
		log.Info("otp store ready", "backend", "redis")
	} else {
		otps = withdrawalstore.NewMemory()
		log.Warn("REDIS_URL not set, withdrawal codes are in-memory only")
	}

	proc, err := processor.NewHTTPClient(cfg.Processor, log, processor.WithMetrics(m))
	if err != nil {
		return fmt.Errorf("processor client: %w", err)
	}

	var notifier notification.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := notification.NewKafka(cfg.KafkaBrokers, log)
		if err != nil {
			return fmt.Errorf("kafka publisher: %w", err)
		}
		defer kafka.Close()
		notifier = kafka
		log.Info("notification publisher ready", "backend", "kafka", "brokers", len(cfg.KafkaBrokers))
	} else {
		notifier = notification.NewMemory()
		log.Warn("KAFKA_BROKERS not set, notifications are not delivered")
	}

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "pampermomma", "pampermomma-api")
	validator := jwttoken.NewMiddlewareAdapter(jwtService)

	registrySvc := registryservice.New(registries, proc, log)
	paymentSvc := paymentservice.New(registries, proc, notifier, log, paymentservice.WithMetrics(m))
	withdrawalSvc := withdrawalservice.New(registries, otps, proc, withdrawalservice.NewLogMailer(log), log,
		withdrawalservice.WithOTPPolicy(cfg.OTPTTL, cfg.OTPMaxAttempts),
		withdrawalservice.WithMetrics(m),
		withdrawalservice.WithNotifier(notifier),
	)

	router := newRouter(
		registryhandler.New(registrySvc, log, validator),
		paymenthandler.New(paymentSvc, log, cfg.Processor.WebhookSecret, cfg.Processor.PublishableKey, cfg.FrontendBaseURL),
		withdrawalhandler.New(withdrawalSvc, log, validator),
	)

	srv := httpserver.New(cfg.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting pampermomma server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// registrar is the shared shape of the per-domain handlers.
type registrar interface {
	Register(r chi.Router)
}

// newRouter assembles the shared router. StripSlashes keeps the documented
// trailing-slash endpoint forms routable.
func newRouter(handlers ...registrar) chi.Router {
	router := chi.NewRouter()
	router.Use(chimiddleware.StripSlashes)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.Handler())

	for _, h := range handlers {
		h.Register(router)
	}
	return router
}
