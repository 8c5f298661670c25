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

	"golang.org/x/sync/errgroup"

	consenthandler "trustledger/internal/consent/handler"
	consentmetrics "trustledger/internal/consent/metrics"
	consentservice "trustledger/internal/consent/service"
	consentstore "trustledger/internal/consent/store"
	credentialhandler "trustledger/internal/credential/handler"
	credentialmetrics "trustledger/internal/credential/metrics"
	credentialservice "trustledger/internal/credential/service"
	credentialstore "trustledger/internal/credential/store"
	identityhandler "trustledger/internal/identity/handler"
	identitymetrics "trustledger/internal/identity/metrics"
	identityservice "trustledger/internal/identity/service"
	identitystore "trustledger/internal/identity/store"
	"trustledger/internal/jwtauth"
	"trustledger/internal/ledger"
	"trustledger/internal/platform/config"
	"trustledger/internal/platform/database"
	"trustledger/internal/platform/health"
	"trustledger/internal/platform/httpserver"
	"trustledger/internal/platform/kafka"
	"trustledger/internal/platform/kafka/producer"
	"trustledger/internal/platform/logger"
	platformmetrics "trustledger/internal/platform/metrics"
	redisplatform "trustledger/internal/platform/redis"
	transporthttp "trustledger/internal/transport/http"
	"trustledger/migrations"
	id "trustledger/pkg/domain"
	audit "trustledger/pkg/platform/audit"
	"trustledger/pkg/platform/audit/publisher"
	auditkafka "trustledger/pkg/platform/audit/store/kafka"
)

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

	pool, err := database.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close() //nolint:errcheck // shutdown path

	if pool != nil {
		if err := migrations.Apply(ctx, pool.DB()); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		log.Info("database migrations applied")
	}

	redisClient, err := redisplatform.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck // shutdown path
	}

	var heights ledger.HeightSource
	if redisClient != nil {
		heights = ledger.NewRedisSource(redisClient, cfg.Ledger.HeightKey, cfg.Ledger.CacheTTL)
		log.Info("using redis ledger height source", "key", cfg.Ledger.HeightKey)
	} else {
		heights = ledger.NewManual(1)
		log.Warn("redis not configured, using manual ledger height source")
	}

	var auditStore audit.Store = audit.NewInMemoryStore()
	var kafkaProducer *producer.Producer
	if cfg.Kafka.Brokers != "" {
		kafkaProducer, err = producer.New(cfg.Kafka, log)
		if err != nil {
			return fmt.Errorf("create kafka producer: %w", err)
		}
		defer kafkaProducer.Close()

		if err := kafka.EnsureTopics(ctx, kafkaProducer.Client(), cfg.Kafka.AuditTopic); err != nil {
			return fmt.Errorf("ensure kafka topics: %w", err)
		}
		auditStore = auditkafka.New(kafkaProducer, cfg.Kafka.AuditTopic)
		log.Info("audit events publishing to kafka", "topic", cfg.Kafka.AuditTopic)
	} else {
		log.Warn("kafka not configured, audit events stay in memory")
	}

	auditor := publisher.New(auditStore,
		publisher.WithAsyncBuffer(256),
		publisher.WithLogger(log),
	)
	defer auditor.Close()

	var (
		identityStore   identitystore.Store   = identitystore.NewInMemory()
		credentialStore credentialstore.Store = credentialstore.NewInMemory()
		consentStore    consentstore.Store    = consentstore.NewInMemory()
	)
	if pool != nil {
		identityStore = identitystore.NewPostgres(pool.DB())
		credentialStore = credentialstore.NewPostgres(pool.DB())
		consentStore = consentstore.NewPostgres(pool.DB())
	} else {
		log.Warn("database not configured, using in-memory stores")
	}

	identitySvc := identityservice.NewService(identityStore, heights, auditor, log)
	credentialSvc := credentialservice.NewService(credentialStore, heights, auditor, log)
	consentSvc := consentservice.NewService(consentStore, heights, auditor, log)

	if cfg.Server.BootstrapAdmin != "" {
		admin, err := id.ParsePrincipal(cfg.Server.BootstrapAdmin)
		if err != nil {
			return fmt.Errorf("parse bootstrap admin: %w", err)
		}
		if err := identitySvc.SeedAdmin(ctx, admin); err != nil {
			return fmt.Errorf("seed identity admin: %w", err)
		}
		if err := credentialSvc.SeedAdmin(ctx, admin); err != nil {
			return fmt.Errorf("seed credential admin: %w", err)
		}
		if err := consentSvc.SeedAdmin(ctx, admin); err != nil {
			return fmt.Errorf("seed consent admin: %w", err)
		}
	}

	jwtSvc := jwtauth.NewService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer)

	var checkers []health.Checker
	if pool != nil {
		checkers = append(checkers, health.CheckerFunc{CheckName: "database", Fn: pool.Health})
	}
	if redisClient != nil {
		checkers = append(checkers, health.CheckerFunc{CheckName: "redis", Fn: redisClient.Health})
	}
	if cfg.Kafka.Brokers != "" {
		checkers = append(checkers, kafka.NewHealthChecker(cfg.Kafka.Brokers))
	}

	m := platformmetrics.New()
	router := transporthttp.NewRouter(log, m,
		identityhandler.New(identitySvc, log, identitymetrics.New(), jwtSvc),
		credentialhandler.New(credentialSvc, log, credentialmetrics.New(), jwtSvc),
		consenthandler.New(consentSvc, log, consentmetrics.New(), jwtSvc),
		health.New(checkers...),
	)

	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
