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

	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/config"
	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/handlers"
	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/importer"
	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/models"
	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/service"
	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/storage"
	"github.com/Lixing-Zhang/nutri-catalog/backend/pkg/logger"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Load configuration from file and environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	log.Info("starting nutri-catalog api server",
		"version", version,
		"port", cfg.Server.Port,
		"host", cfg.Server.Host,
		"storage", cfg.Storage.Driver,
		"log_level", cfg.LogLevel,
	)

	ctx := context.Background()

	// Initialize repositories. External seed sources replace the demo catalog.
	stores, err := storage.Open(ctx, cfg.Storage, len(cfg.Seed.Sources) == 0, log)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if err := stores.Close(); err != nil {
			log.Error("failed to close storage", "error", err)
		}
	}()

	// Initialize services
	productService := service.NewProductService(stores.Products, log)
	authService, err := service.NewAuthService(ctx, stores.Users, stores.Sessions, service.NewLogNotifier(log),
		service.AuthOptions{
			SessionTTL:     time.Duration(cfg.Auth.SessionTTLHours) * time.Hour,
			ResetTTL:       time.Duration(cfg.Auth.ResetTokenMinutes) * time.Minute,
			ExclusiveUsers: stores.Exclusive,
		}, log)
	if err != nil {
		return fmt.Errorf("init auth: %w", err)
	}

	if cfg.Auth.AdminEmail != "" {
		if _, err := authService.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
	}

	if len(cfg.Seed.Sources) > 0 {
		if err := importSeed(ctx, cfg.Seed, productService, log); err != nil {
			return err
		}
	}

	sweeper := service.NewSessionSweeper(authService, log)
	if err := sweeper.Start(cfg.Auth.SweepSchedule); err != nil {
		return fmt.Errorf("start session sweeper: %w", err)
	}
	defer sweeper.Stop()

	router := handlers.NewRouter(handlers.RouterConfig{
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		RequestTimeout:    60 * time.Second,
		AuthRatePerMinute: cfg.Auth.RatePerMinute,
		TrustProxy:        cfg.Server.TrustProxy,
		Health:            handlers.NewHealthHandler(log, version, stores.Ping()),
	}, productService, authService, log)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed to start: %w", err)
	case <-quit:
	}

	log.Info("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}

// importSeed loads the configured seed sources and stores every valid
// product.
func importSeed(ctx context.Context, seed config.SeedConfig, products *service.ProductService, log *slog.Logger) error {
	// Persistent stores keep their catalog across restarts.
	_, existing, err := products.ListProducts(ctx, models.ProductFilter{Limit: 1})
	if err != nil {
		return fmt.Errorf("count products: %w", err)
	}
	if existing > 0 {
		log.Info("catalog already populated, skipping seed import", "products", existing)
		return nil
	}

	log.Info("loading seed data...", "sources", len(seed.Sources))

	sources := importer.NewSources(importer.S3Config{
		Region:    seed.S3Region,
		Endpoint:  seed.S3Endpoint,
		AccessKey: seed.S3AccessKey,
		SecretKey: seed.S3SecretKey,
	})
	defer sources.Close()

	loader := importer.NewLoader(sources)
	inputs, err := loader.Load(ctx, seed.Sources)
	if err != nil {
		return fmt.Errorf("load seed data: %w", err)
	}

	result, err := products.Import(ctx, inputs)
	if err != nil {
		return fmt.Errorf("import seed data: %w", err)
	}

	stats := loader.Stats()
	log.Info("seed data loaded successfully",
		"total_files", stats.TotalSources,
		"total_products", stats.TotalProducts,
		"created", result.Created,
		"failed", len(result.Failed),
	)
	for _, f := range result.Failed {
		log.Warn("seed product rejected", "index", f.Index, "name", f.Name, "error", f.Error)
	}
	return nil
}
