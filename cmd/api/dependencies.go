package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/FACorreiaa/expense-tracker/internal/domain/categorization"
	importhandler "github.com/FACorreiaa/expense-tracker/internal/domain/import/handler"
	"github.com/FACorreiaa/expense-tracker/internal/domain/import/normalizer"
	"github.com/FACorreiaa/expense-tracker/internal/domain/import/parser"
	"github.com/FACorreiaa/expense-tracker/internal/domain/import/pdftext"
	importrepo "github.com/FACorreiaa/expense-tracker/internal/domain/import/repository"
	importservice "github.com/FACorreiaa/expense-tracker/internal/domain/import/service"
	"github.com/FACorreiaa/expense-tracker/pkg/config"
	"github.com/FACorreiaa/expense-tracker/pkg/cron"
	"github.com/FACorreiaa/expense-tracker/pkg/db"
	"github.com/FACorreiaa/expense-tracker/pkg/interceptors"
	"github.com/FACorreiaa/expense-tracker/pkg/metrics"
	"github.com/FACorreiaa/expense-tracker/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	Registry *prometheus.Registry
	Metrics  *metrics.ImportMetrics

	// Repositories
	ImportRepo    importrepo.ImportRepository
	OverrideStore *normalizer.OverrideStore
	FileStorage   storage.Storage

	// Services
	Extractor     *pdftext.Extractor
	Parser        *parser.Parser
	ImportService *importservice.ImportService
	Scheduler     *cron.Scheduler

	// Handlers
	ImportHandler *importhandler.ImportHandler
	RateLimiter   *interceptors.RateLimiter
}

// InitDependencies initializes all application dependencies
func InitDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	// Initialize database
	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	// Initialize repositories
	if err := deps.initRepositories(ctx); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}

	// Initialize services
	if err := deps.initServices(); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	// Initialize handlers
	if err := deps.initHandlers(); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init handlers: %w", err)
	}

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        int32(d.Config.Database.MaxConns),
		MinConns:        2,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	// Run migrations
	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initRepositories initializes all repository layer dependencies
func (d *Dependencies) initRepositories(ctx context.Context) error {
	d.ImportRepo = importrepo.NewPostgresImportRepository(d.DB.Pool)
	d.OverrideStore = normalizer.NewOverrideStore(d.DB.Pool)

	fileStorage, err := storage.New(ctx, &storage.Config{
		Type:      storage.StorageType(d.Config.Storage.Type),
		LocalPath: d.Config.Storage.LocalPath,
		GCSBucket: d.Config.Storage.GCSBucket,
		GCSPrefix: d.Config.Storage.GCSPrefix,
	})
	if err != nil {
		return fmt.Errorf("failed to init file storage: %w", err)
	}
	d.FileStorage = fileStorage

	d.Logger.Info("repositories initialized",
		slog.String("storage", d.Config.Storage.Type),
	)
	return nil
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() error {
	d.Registry = metrics.NewRegistry()
	d.Metrics = metrics.NewImportMetrics(d.Registry)

	d.Extractor = pdftext.NewExtractor(d.Logger,
		pdftext.WithMaxConcurrent(d.Config.Import.MaxConcurrentPDFs),
	)
	d.Parser = parser.NewParser(parser.DefaultConfig())

	d.ImportService = importservice.NewImportService(d.ImportRepo, d.Extractor, d.Parser, d.Logger).
		WithOverrides(d.OverrideStore).
		WithMetrics(d.Metrics).
		WithTimeout(d.Config.Import.Timeout)
	if d.Config.Import.ArchiveStatements {
		d.ImportService.WithFileStorage(d.FileStorage)
	}

	d.Scheduler = cron.NewScheduler(d.ImportRepo, d.FileStorage, d.Config.Storage.RetentionDays, d.Logger)

	d.Logger.Info("services initialized")
	return nil
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() error {
	d.ImportHandler = importhandler.NewImportHandler(d.ImportService, d.ImportRepo, categorization.DefaultTaxonomy, d.Logger).
		WithOverrides(d.OverrideStore).
		WithMaxUploadBytes(d.Config.Import.MaxUploadBytes)

	proxies, err := d.Config.Server.TrustedProxyPrefixes()
	if err != nil {
		return fmt.Errorf("failed to parse trusted proxies: %w", err)
	}
	d.RateLimiter = interceptors.NewRateLimiter(
		d.Config.Server.RateLimitPerSecond,
		d.Config.Server.RateLimitBurst,
		interceptors.WithTrustedProxies(proxies),
	)

	d.Logger.Info("handlers initialized", "trusted_proxies", len(proxies))
	return nil
}

// Router mounts every route behind the shared middleware
func (d *Dependencies) Router() http.Handler {
	mux := http.NewServeMux()
	d.ImportHandler.Register(mux)

	return interceptors.Chain(mux,
		interceptors.Logging(d.Logger),
		interceptors.CORS(d.Config.Server.AllowedOrigins),
		d.RateLimiter.Middleware,
		interceptors.Auth(interceptors.AuthConfig{
			Verifier:    interceptors.NewTokenVerifier([]byte(d.Config.Auth.JWTSecret)),
			Disabled:    d.Config.Auth.Disabled,
			PublicPaths: []string{"/healthz", "/v1/categories"},
		}, d.Logger),
	)
}

// MetricsHandler serves the Prometheus registry
func (d *Dependencies) MetricsHandler() http.Handler {
	return metrics.Handler(d.Registry)
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if closer, ok := d.FileStorage.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			d.Logger.Warn("failed to close file storage", slog.Any("error", err))
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
