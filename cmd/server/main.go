package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"bondly/internal/accord"
	accordhandler "bondly/internal/accord/handler"
	"bondly/internal/assets"
	"bondly/internal/escrow"
	escrowhandler "bondly/internal/escrow/handler"
	jwttoken "bondly/internal/jwt_token"
	"bondly/internal/penalty"
	"bondly/internal/platform/config"
	"bondly/internal/platform/httpserver"
	"bondly/internal/platform/locks"
	"bondly/internal/platform/logger"
	"bondly/internal/platform/metrics"
	"bondly/internal/platform/migrations"
	"bondly/internal/platform/postgres"
	platformredis "bondly/internal/platform/redis"
	"bondly/internal/project"
	httptransport "bondly/internal/transport/http"
	"bondly/internal/treasury"
	"bondly/pkg/platform/audit"
	auditpub "bondly/pkg/platform/audit/publisher"
	auditmem "bondly/pkg/platform/audit/store/memory"
	auditpg "bondly/pkg/platform/audit/store/postgres"
	auditstream "bondly/pkg/platform/audit/stream"
	auditworker "bondly/pkg/platform/audit/worker"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	registry := prometheus.NewRegistry()
	m := metrics.NewWith(registry)
	health := map[string]httptransport.HealthChecker{}

	// Storage: Postgres when configured, process-local otherwise.
	var (
		movementStore escrow.Store
		projectStore  project.Store
		accordStore   accord.Store
		auditStore    audit.Store
	)
	if cfg.PostgresDSN != "" {
		pool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := migrations.RunPostgres(ctx, pool); err != nil {
			return err
		}
		movementStore = escrow.NewPostgresStore(pool)
		projectStore = project.NewPostgresStore(pool)
		accordStore = accord.NewPostgresStore(pool)
		health["postgres"] = func() error { return pool.Ping(context.Background()) }

		store, err := auditpg.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer store.Close()
		auditStore = store
	} else {
		log.Warn("no postgres dsn configured, using in-memory stores")
		movementStore = escrow.NewInMemoryStore()
		projectStore = project.NewInMemoryStore()
		accordStore = accord.NewInMemoryStore()
		auditStore = auditmem.New()
	}

	// Locking: Redis when configured so multiple instances serialize on the
	// same project, in-process mutexes otherwise.
	var locker locks.Locker = locks.NewKeyed()
	redisClient, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		locker = platformredis.NewLocker(redisClient)
		health["redis"] = func() error { return redisClient.Health(context.Background()) }
	}

	group, ctx := errgroup.WithContext(ctx)

	// Audit pipeline: synchronous store writes, async Kafka forwarding.
	publisherOpts := []auditpub.Option{auditpub.WithLogger(log)}
	if cfg.KafkaBrokers != "" {
		stream, err := auditstream.NewKafka(ctx, strings.Split(cfg.KafkaBrokers, ","), cfg.AuditTopic)
		if err != nil {
			return err
		}
		defer stream.Close()
		inbox := make(chan audit.Event, 1024)
		publisherOpts = append(publisherOpts, auditpub.WithInbox(inbox))
		group.Go(func() error {
			return auditworker.New(stream, inbox, log).Run(ctx)
		})
	}
	auditor := auditpub.New(auditStore, publisherOpts...)

	// The asset ledger port. The in-memory ledger doubles as the deposit
	// mirror until an external ledger integration is configured.
	ledger := assets.NewInMemoryLedger()

	engine, err := penalty.NewEngine(penalty.DefaultSchedule())
	if err != nil {
		return err
	}

	escrowService := escrow.NewService(
		movementStore, projectStore, ledger, auditor, m, log, locker,
		escrow.WithDepositor(ledger),
	)
	accordService := accord.NewService(
		accordStore, engine, treasury.New(), ledger, auditor, m, log, locker,
		accord.Defaults{Deposit: cfg.AccordDeposit, FeeRateBps: cfg.PropertyFeeRateBps},
	)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "bondly", "bondly-api")
	validator := jwttoken.NewJWTServiceAdapter(jwtService)

	router := httptransport.NewRouter(registry, health,
		escrowhandler.New(escrowService, log, m, validator),
		accordhandler.New(accordService, log, m, validator),
	)
	srv := httpserver.New(cfg.Addr, router)

	group.Go(func() error {
		log.Info("starting bondly server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
