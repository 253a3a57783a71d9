package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"assura/internal/encryption"
	gdprhandler "assura/internal/gdpr/handler"
	gdprmetrics "assura/internal/gdpr/metrics"
	gdprservice "assura/internal/gdpr/service"
	gdprstore "assura/internal/gdpr/store"
	insured "assura/internal/insured/models"
	insuredstore "assura/internal/insured/store"
	jwttoken "assura/internal/jwt_token"
	"assura/internal/platform/config"
	"assura/internal/platform/database"
	"assura/internal/platform/health"
	"assura/internal/platform/logger"
	"assura/internal/platform/tracer"
	"assura/internal/seeder"
	httptransport "assura/internal/transport/http"
	"assura/internal/users"
	"assura/migrations"
	"assura/pkg/platform/middleware/metadata"
	"assura/pkg/platform/middleware/request"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Logging.Level)
	slog.SetDefault(log)

	log.Info("initializing assura",
		"addr", cfg.Server.Addr,
		"environment", cfg.Environment,
		"storage", storageKind(cfg),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := encryption.NewEngineFromBase64(cfg.Encryption.Key, cfg.Encryption.IV)
	if err != nil {
		log.Error("invalid encryption key material", "error", err)
		os.Exit(1)
	}
	if err := engine.SelfTest(); err != nil {
		log.Error("encryption self-test failed", "error", err)
		os.Exit(1)
	}

	codec := encryption.NewCodec(insured.PersonSchema, engine,
		encryption.WithLogger(log),
		encryption.WithMetrics(encryption.NewMetrics(prometheus.DefaultRegisterer)),
	)
	registry, err := insured.NewRegistry()
	if err != nil {
		log.Error("failed to build classification registry", "error", err)
		os.Exit(1)
	}
	log.Info("classification registry ready",
		"kind", string(insured.KindPerson),
		"encrypted_fields", len(registry.EncryptedFields(insured.KindPerson)),
	)

	metrics := gdprmetrics.New()
	healthHandler := health.NewWithLogger(cfg.Environment, log)
	healthHandler.RegisterCheck("encryption", func(context.Context) error { return engine.SelfTest() })

	pool, err := database.New(ctx, database.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close() //nolint:errcheck // best-effort on shutdown

	var (
		stores    gdprservice.Stores
		tx        gdprservice.TxRunner
		persons   seeder.PersonStore
		userStore seeder.UserStore
	)
	if pool != nil {
		if err := migrations.Apply(ctx, pool.DB()); err != nil {
			log.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
		personStore := insuredstore.NewPostgres(pool.DB(), codec)
		stores = gdprservice.Stores{
			Persons:  personStore,
			Consents: gdprstore.NewPostgresConsent(pool.DB()),
			Audit:    gdprstore.NewPostgresAudit(pool.DB()),
		}
		tx = newGDPRPostgresTx(pool, codec)
		persons, userStore = personStore, users.NewPostgres(pool.DB())
		healthHandler.RegisterCheck("database", pool.Health)
		if err := pool.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
			log.Warn("failed to register database metrics", "error", err)
		}
	} else {
		personStore := insuredstore.NewInMemoryStore(codec)
		stores = gdprservice.Stores{
			Persons:  personStore,
			Consents: gdprstore.NewInMemoryConsentStore(),
			Audit:    gdprstore.NewInMemoryAuditStore(),
		}
		tx = gdprservice.NewShardedTx(stores, metrics)
		persons, userStore = personStore, users.NewInMemoryStore()
	}

	if cfg.SeedDemo {
		if err := seeder.New(userStore, persons, cfg.Auth.AdminPassword, log).SeedAll(ctx); err != nil {
			log.Error("failed to seed demo data", "error", err)
			os.Exit(1)
		}
	}

	gdpr := gdprservice.New(stores, tx,
		gdprservice.WithLogger(log),
		gdprservice.WithMetrics(metrics),
		gdprservice.WithRegistry(registry),
		gdprservice.WithTracer(tracer.NewOTel()),
		gdprservice.WithTermsVersion(cfg.Consent.TermsVersion),
	)

	proxies, err := cfg.TrustedProxyPrefixes()
	if err != nil {
		log.Error("invalid trusted proxies", "error", err)
		os.Exit(1)
	}
	jwtService := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, jwttoken.DefaultIssuer, jwttoken.DefaultAudience, jwttoken.DefaultTokenTTL)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:         log,
		Health:         healthHandler,
		Validator:      jwttoken.NewJWTServiceAdapter(jwtService),
		Metadata:       metadata.NewMiddleware(proxies...),
		Metrics:        request.NewMetrics(),
		RequestTimeout: cfg.Server.RequestTimeout,
		Modules:        []httptransport.Registrar{gdprhandler.New(gdpr, log)},
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info("starting http server", "addr", cfg.Server.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

func storageKind(cfg config.Config) string {
	if cfg.Database.URL == "" {
		return "memory"
	}
	return "postgres"
}
