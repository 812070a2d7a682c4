package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"realform/internal/platform/config"
	"realform/internal/platform/httpserver"
	"realform/internal/platform/logger"
	"realform/internal/platform/metrics"
	"realform/internal/platform/otel"
	platformredis "realform/internal/platform/redis"
	"realform/internal/registration"
	"realform/internal/registration/media"
	regmetrics "realform/internal/registration/metrics"
	"realform/internal/registration/service"
	"realform/internal/registration/store/memory"
	"realform/internal/registration/store/postgres"
	redisstore "realform/internal/registration/store/redis"
	"realform/internal/registration/store/sqlite"
	"realform/internal/registration/upload"
	httptransport "realform/internal/transport/http"
	"realform/pkg/platform/middleware/cors"
	"realform/pkg/secrets"
)

const serviceName = "realform"

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	shutdownTracing, err := otel.Setup(ctx, serviceName, cfg.Telemetry.Endpoint)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("tracing shutdown failed", "error", err)
		}
	}()

	store, closeStore, err := openStore(ctx, cfg.Storage, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore.Close(); err != nil {
			log.Warn("store close failed", "error", err)
		}
	}()

	uploader, err := newUploader(ctx, cfg.S3)
	if err != nil {
		return err
	}

	m := metrics.New()
	images := media.NewValidator(cfg.Registration.AllowedImageTypes)
	log.Info("accepting profile pictures", "types", images.AllowedTypes())
	svc, err := registration.NewService(
		store,
		uploader,
		secrets.NewHasher(cfg.Registration.BcryptCost),
		images,
		service.WithLogger(log),
		service.WithMetrics(regmetrics.New(m.Registry)),
		service.WithTracer(otel.Tracer(serviceName+"/registration")),
		service.WithOrphanCleanup(cfg.Registration.CleanupOrphanedUploads),
	)
	if err != nil {
		return fmt.Errorf("create registration service: %w", err)
	}

	policy, err := cors.NewPolicy(cfg.CORS.AllowedOrigins)
	if err != nil {
		return fmt.Errorf("cors policy: %w", err)
	}

	router := httptransport.NewRouter(httptransport.Config{
		AdminUser: cfg.Admin.User,
		AdminPass: cfg.Admin.Pass,
		CORS:      policy,
	}, registration.NewHandler(svc, log, cfg.Server.MaxUploadBytes), m, log)

	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting realform", "addr", cfg.Server.Addr, "storage", cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// openStore returns the configured registration store and what must be
// closed once the server stops.
func openStore(ctx context.Context, cfg config.Storage, log *slog.Logger) (service.Store, io.Closer, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		log.Warn("using in-memory storage, registrations are lost on restart")
		return memory.New(), io.NopCloser(nil), nil
	case config.DriverSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, nil, fmt.Errorf("create sqlite directory: %w", err)
			}
		}
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		store := postgres.New(db)
		if err := store.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		return store, db, nil
	case config.DriverRedis:
		client, err := platformredis.New(ctx, cfg.RedisURL, platformredis.Options{
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		})
		if err != nil {
			return nil, nil, err
		}
		return redisstore.New(client.Client), client, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func newUploader(ctx context.Context, cfg config.S3) (*upload.S3Uploader, error) {
	uploadCfg := upload.Config{
		Bucket:        cfg.Bucket,
		Region:        cfg.Region,
		AccessKey:     cfg.AccessKey,
		SecretKey:     cfg.SecretKey,
		Endpoint:      cfg.Endpoint,
		UsePathStyle:  cfg.UsePathStyle,
		PublicBaseURL: cfg.PublicBaseURL,
		Prefix:        cfg.Prefix,
	}
	client, err := upload.NewClient(ctx, uploadCfg)
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}
	return upload.New(client, uploadCfg)
}
