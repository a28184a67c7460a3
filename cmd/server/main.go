package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"package-tracking-service/internal/adapters/cache"
	"package-tracking-service/internal/adapters/document"
	"package-tracking-service/internal/adapters/geocode"
	"package-tracking-service/internal/adapters/notify"
	"package-tracking-service/internal/adapters/repositories"
	"package-tracking-service/internal/adapters/storage"
	"package-tracking-service/internal/api"
	"package-tracking-service/internal/auth"
	"package-tracking-service/internal/config"
	"package-tracking-service/internal/platform/logger"
	"package-tracking-service/internal/ports"
	"package-tracking-service/internal/services"
	"syscall"
	"time"
)

const shutdownTimeout = 15 * time.Second

// main is the application composition root.
// It wires concrete adapters (SQL, Redis, ORS, SMTP, renderers) behind ports and starts the HTTP server.
func main() {
	cfg, loadedDotEnv, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	lg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatal(err)
	}
	defer lg.Sync()

	if !loadedDotEnv {
		lg.Info("No .env file found (using environment variables)")
	}

	ctx := context.Background()

	store, err := repositories.OpenStore(cfg.StorageDriver, cfg.DBPath, cfg.DatabaseURL, lg)
	if err != nil {
		lg.Fatal("open store failed", "driver", cfg.StorageDriver, "err", err)
	}
	defer store.Close()

	// Schema bootstrap is explicit and non-fatal: a read-only replica or a
	// pre-migrated database still serves traffic.
	if err := store.Repo.Initialize(ctx); err != nil {
		lg.Error("repository initialize failed (continuing)", "driver", cfg.StorageDriver, "err", err)
	}

	if cfg.SeedPath != "" {
		n, err := repositories.SeedFromJSON(ctx, store.Repo, cfg.SeedPath, time.Now())
		if err != nil {
			lg.Error("seeding failed (continuing)", "path", cfg.SeedPath, "err", err)
		} else {
			lg.Info("seeded packages", "path", cfg.SeedPath, "created", n)
		}
	}

	var pkgCache ports.PackageCache = cache.NoopPackageCache{}
	if cfg.RedisAddr != "" {
		rdb, err := cache.DialRedis(ctx, cfg.RedisAddr)
		if err != nil {
			lg.Fatal("redis unavailable", "addr", cfg.RedisAddr, "err", err)
		}
		defer rdb.Close()
		pkgCache = cache.NewRedisPackageCache(rdb, cfg.CacheTTL, lg)
		lg.Info("tracking cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL.String())
	}

	var geocoder ports.Geocoder
	if cfg.ORSAPIKey != "" {
		var geoCache geocode.Cache
		if store.DB != nil {
			geoCache = cache.NewSQLGeocodeCache(store.DB, store.Dialect, lg)
		}
		g, err := geocode.NewORSGeocoder(cfg.ORSAPIKey, geoCache, lg)
		if err != nil {
			lg.Fatal("geocoder setup failed", "err", err)
		}
		geocoder = g
	} else {
		lg.Info("ORS_API_KEY not set, checkpoints are stored without geocoding")
	}

	files, err := storage.NewLocalFileStore(cfg.FilesDir, cfg.FilesBaseURL)
	if err != nil {
		lg.Fatal("file store setup failed", "dir", cfg.FilesDir, "err", err)
	}

	var renderer ports.DocumentRenderer
	switch cfg.DocumentFormat {
	case "png":
		renderer = document.NewLabelRenderer(files, lg)
	default:
		renderer = document.NewPDFRenderer(files, lg)
	}

	var notifier ports.Notifier = notify.LogNotifier{Log: lg}
	if cfg.SMTPAddr != "" {
		n, err := notify.NewSMTPNotifier(notify.SMTPConfig{
			Addr:     cfg.SMTPAddr,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
			FromName: cfg.MailFromName,
		}, lg)
		if err != nil {
			lg.Fatal("smtp setup failed", "err", err)
		}
		notifier = n
	}

	tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		lg.Fatal("operator auth setup failed", "err", err)
	}

	lifecycle := services.NewLifecycle(services.LifecycleDeps{
		Repo:           store.Repo,
		Cache:          pkgCache,
		Geocoder:       geocoder,
		Notifier:       notifier,
		Files:          files,
		Log:            lg,
		TrackingPrefix: cfg.TrackingPrefix,
	})

	router := api.NewRouter(api.RouterDeps{
		Lifecycle:    lifecycle,
		Tracker:      services.NewTracker(store.Repo, pkgCache, lg),
		Exporter:     services.NewExporter(store.Repo, pkgCache, renderer, files, lg),
		Tokens:       tokens,
		Log:          lg,
		FilesDir:     cfg.FilesDir,
		FilesBaseURL: cfg.FilesBaseURL,
	})

	startServer(lg, cfg.Port, router)
}

func startServer(lg *logger.Logger, port string, router http.Handler) {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	shutdownSignal := make(chan os.Signal, 1)
	signal.Notify(shutdownSignal, os.Interrupt, syscall.SIGTERM)

	go func() {
		lg.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("server error", "err", err)
		}
	}()

	<-shutdownSignal
	lg.Info("Shutdown signal received, initiating graceful shutdown")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		lg.Error("graceful shutdown failed", "err", err)
	}
	lg.Info("Server gracefully stopped")
}
