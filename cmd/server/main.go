// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal services packages. Backends are
// optional: without Redis or PostgreSQL the in-memory stores are used, which
// is enough for local development.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"custodian/internal/authz"
	"custodian/internal/blob"
	httpapi "custodian/internal/http"
	"custodian/internal/incident"
	"custodian/internal/lifecycle"
	"custodian/internal/platform/config"
	"custodian/internal/platform/httpserver"
	"custodian/internal/platform/logger"
	"custodian/internal/platform/metrics"
	"custodian/internal/platform/middleware"
	platformpg "custodian/internal/platform/postgres"
	platformredis "custodian/internal/platform/redis"
	"custodian/internal/reconcile"
	resourcestore "custodian/internal/resource/store"
	"custodian/internal/whitelist"
	"custodian/pkg/platform/circuit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	slogger := logger.New(cfg.LogLevel)
	appMetrics := metrics.New()

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("connect redis: %v", err)
	}
	db, err := platformpg.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}

	// Store selection: real backends when configured, in-memory otherwise.
	var metaStore resourcestore.Store = resourcestore.NewInMemory()
	if db != nil {
		pg := resourcestore.NewPostgres(db)
		if err := pg.EnsureSchema(context.Background()); err != nil {
			log.Fatalf("ensure schema: %v", err)
		}
		metaStore = pg
	}
	var blobStore blob.Store = blob.NewInMemory()
	var whitelistProvider whitelist.Provider = whitelist.NewInMemoryProvider()
	if redisClient != nil {
		breaker := circuit.New("blob-store",
			circuit.WithFailureThreshold(5),
			circuit.WithSuccessThreshold(2))
		blobStore = blob.NewCircuitStore(blob.NewRedis(redisClient.Client), breaker, slogger)
		whitelistProvider = whitelist.NewRedisProvider(redisClient.Client, whitelist.DefaultRedisKey)
	}

	incidentStore := incident.NewInMemoryStore()
	recorderOpts := []incident.RecorderOption{
		incident.WithLogger(slogger),
		incident.WithMetrics(appMetrics),
	}

	var worker *incident.Worker
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := incident.NewKafkaPublisher(cfg.KafkaBrokers, cfg.IncidentTopic)
		if err != nil {
			log.Fatalf("create incident publisher: %v", err)
		}
		defer publisher.Close()
		outbox := make(chan incident.Incident, 256)
		recorderOpts = append(recorderOpts, incident.WithOutbox(outbox))
		worker = incident.NewWorker(publisher, outbox, slogger)
	}
	recorder := incident.NewRecorder(incidentStore, recorderOpts...)

	gate, err := authz.New(whitelistProvider, authz.WithLogger(slogger), authz.WithMetrics(appMetrics))
	if err != nil {
		log.Fatalf("create authorization gate: %v", err)
	}

	coordinator, err := lifecycle.New(metaStore, blobStore, recorder,
		lifecycle.WithLogger(slogger),
		lifecycle.WithMetrics(appMetrics),
		lifecycle.WithRetryPolicy(lifecycle.RetryPolicy{
			InitialInterval: cfg.RetryInitialInterval,
			MaxInterval:     cfg.RetryMaxInterval,
			MaxElapsed:      cfg.RetryMaxElapsed,
			CallTimeout:     cfg.StoreCallTimeout,
		}))
	if err != nil {
		log.Fatalf("create lifecycle coordinator: %v", err)
	}

	scanner, err := reconcile.New(metaStore, blobStore, recorder, cfg.OrphanGracePeriod,
		reconcile.WithLogger(slogger),
		reconcile.WithMetrics(appMetrics))
	if err != nil {
		log.Fatalf("create reconciliation scanner: %v", err)
	}

	handler := httpapi.New(gate, coordinator, scanner, incidentStore, slogger)
	validator := middleware.NewHMACValidator(cfg.JWTSigningKey)
	router := httpapi.NewRouter(handler, middleware.RequireIdentity(validator, slogger))

	srv := httpserver.New(cfg.HTTPAddr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := scanner.Run(ctx, cfg.ScanInterval); err != nil && !errors.Is(err, context.Canceled) {
			slogger.Error("scanner stopped", "error", err)
		}
	}()
	if worker != nil {
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slogger.Error("incident worker stopped", "error", err)
			}
		}()
	}

	go func() {
		slogger.Info("starting custodian", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	stop()

	if err := httpserver.Shutdown(srv); err != nil {
		log.Fatalf("graceful shutdown failed: %v", err)
	}
}
