package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	httpadapter "rwadirectory/internal/adapters/http"
	pg "rwadirectory/internal/adapters/postgres"
	"rwadirectory/internal/adapters/rediscache"
	"rwadirectory/internal/adapters/reference"
	"rwadirectory/internal/adapters/supabase"
	"rwadirectory/internal/config"
	"rwadirectory/internal/ports"
	"rwadirectory/internal/services/checks"
	"rwadirectory/internal/services/validation"
	"rwadirectory/internal/workers/validationrunner"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.IsDevelopment() {
		zcfg = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zcfg.Level = level
	return zcfg.Build()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := pg.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer db.Close()
	if cfg.MigrateOnStartup {
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	phishing, reputation, sanctions, closeCache := referenceClients(ctx, cfg, logger)
	defer closeCache()

	var storage ports.FileStorage
	if cfg.Storage.Enabled() {
		s, err := supabase.New(supabase.Config{
			ProjectURL: cfg.Storage.SupabaseURL,
			APIKey:     cfg.Storage.SupabaseKey,
			Logger:     logger,
		})
		if err != nil {
			return fmt.Errorf("supabase storage: %w", err)
		}
		storage = s
	} else {
		logger.Warn("file storage not configured; audit documents cannot be verified")
	}

	svc, err := validation.New(validation.Deps{
		Projects: db,
		Records:  db,
		Checkers: []checks.Checker{
			checks.NewScamChecker(checks.ScamCheckerDeps{
				Phishing:    phishing,
				Reputation:  reputation,
				CallTimeout: cfg.ExternalCallTimeout,
				Logger:      logger,
			}),
			checks.NewSanctionsChecker(checks.SanctionsCheckerDeps{
				Search:      sanctions,
				CallTimeout: cfg.ExternalCallTimeout,
				Logger:      logger,
			}),
			checks.NewAuditChecker(checks.AuditCheckerDeps{
				Storage:     storage,
				Bucket:      cfg.Storage.AuditBucket,
				LinkClient:  &http.Client{Timeout: cfg.ExternalCallTimeout},
				CallTimeout: cfg.ExternalCallTimeout,
				Logger:      logger,
			}),
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}

	workersDone := validationrunner.Run(ctx, db, validationrunner.RevalidateProcessor{Validator: svc},
		cfg.ValidationWorkers, cfg.JobPollInterval, logger)
	if cfg.ValidationWorkers > 0 {
		logger.Info("validation workers started", zap.Int("workers", cfg.ValidationWorkers))
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httpadapter.New(svc, db, logger).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logger.Info("listening", zap.String("addr", cfg.ListenAddr))

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	select {
	case <-workersDone:
	case <-shutdownCtx.Done():
		logger.Warn("workers did not stop in time")
	}
	return nil
}

// referenceClients builds the reference-service clients, wrapped in the Redis
// cache when REDIS_URL is set and reachable.
func referenceClients(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.PhishingLookup, ports.URLReputation, ports.SanctionsSearch, func()) {
	opts := reference.Options{
		HTTPClient:    &http.Client{Timeout: cfg.ExternalCallTimeout},
		RatePerSecond: cfg.Reference.RatePerSecond,
		Burst:         cfg.Reference.RateBurst,
		Logger:        logger,
	}
	var (
		phishing   ports.PhishingLookup  = reference.NewPhishTank(cfg.Reference.PhishTankURL, cfg.Reference.PhishTankAppKey, opts)
		reputation ports.URLReputation   = reference.NewSafeBrowsing(cfg.Reference.SafeBrowsingURL, cfg.Reference.SafeBrowsingKey, opts)
		sanctions  ports.SanctionsSearch = reference.NewSanctionsAPI(cfg.Reference.SanctionsURL, cfg.Reference.SanctionsKey, cfg.Reference.SanctionsMinScore, opts)
	)
	if cfg.Reference.PhishTankAppKey == "" || cfg.Reference.SafeBrowsingKey == "" || cfg.Reference.SanctionsKey == "" {
		logger.Warn("some reference services have no credentials; their lookups will be inconclusive")
	}

	if cfg.Cache.RedisURL == "" {
		return phishing, reputation, sanctions, func() {}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	client, err := rediscache.Connect(pingCtx, cfg.Cache.RedisURL)
	if err != nil {
		logger.Warn("redis unavailable; reference lookups are not cached", zap.Error(err))
		return phishing, reputation, sanctions, func() {}
	}
	cache := rediscache.New(client, cfg.Cache.TTL, logger)
	return cache.Phishing(phishing), cache.Reputation(reputation), cache.Sanctions(sanctions), closeRedis(client, logger)
}

func closeRedis(client *redis.Client, logger *zap.Logger) func() {
	return func() {
		if err := client.Close(); err != nil {
			logger.Warn("redis close", zap.Error(err))
		}
	}
}
