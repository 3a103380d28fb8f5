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

	"golang.org/x/sync/errgroup"

	"github.com/kuldoc/ocrflow/internal/api"
	"github.com/kuldoc/ocrflow/internal/config"
	"github.com/kuldoc/ocrflow/internal/engine"
	"github.com/kuldoc/ocrflow/internal/engine/tesseract"
	"github.com/kuldoc/ocrflow/internal/engine/vertex"
	"github.com/kuldoc/ocrflow/internal/loader"
	"github.com/kuldoc/ocrflow/internal/repository"
	"github.com/kuldoc/ocrflow/internal/repository/gormstore"
	"github.com/kuldoc/ocrflow/internal/repository/memstore"
	"github.com/kuldoc/ocrflow/internal/service"
	"github.com/kuldoc/ocrflow/internal/storage"
	"github.com/kuldoc/ocrflow/internal/worker"
	"github.com/kuldoc/ocrflow/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	zl, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer zl.Sync()

	uow, err := newUnitOfWorkFactory(cfg)
	if err != nil {
		return err
	}

	fs, err := newFileStorage(ctx, cfg)
	if err != nil {
		return err
	}

	eng, err := newEngine(ctx, cfg)
	if err != nil {
		return err
	}
	zl.Info("engine ready", zap.String("engine", eng.Name()), zap.String("version", eng.Version()))

	pages := loader.NewStorageLoader(fs)
	orchestrator := service.NewOrchestrator(uow, pages, eng, cfg.Engine.Timeout, zl)

	queue := worker.NewMemoryQueue(cfg.Worker.QueueSize)
	runner := worker.NewRunner(orchestrator, cfg.Worker.MaxRetries, cfg.Worker.BaseDelay, zl)
	pool := worker.NewPool(queue, runner, cfg.Worker.PoolSize, zl)

	documents := service.NewDocumentService(uow, fs, zl)
	jobs := service.NewJobService(uow, queue, zl)

	router := api.NewRouter(api.NewHandler(documents, jobs, zl), zl)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return pool.Run(ctx)
	})
	g.Go(func() error {
		zl.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	zl.Info("server stopped")
	return nil
}

func newUnitOfWorkFactory(cfg *config.Config) (repository.UnitOfWorkFactory, error) {
	switch cfg.Store.Backend {
	case "memory":
		return memstore.NewStore(), nil
	default:
		db, err := gormstore.Open(gormstore.Options{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			Name:            cfg.Database.Name,
			SSLMode:         cfg.Database.SSLMode,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
		return gormstore.NewFactory(db), nil
	}
}

func newFileStorage(ctx context.Context, cfg *config.Config) (storage.FileStorage, error) {
	switch cfg.Storage.Backend {
	case "gcs":
		return storage.NewGCSStorage(ctx, cfg.Storage.GCSBucket)
	case "minio":
		return storage.NewMinioStorage(ctx, storage.MinioOptions{
			Endpoint:  cfg.Storage.MinioEndpoint,
			AccessKey: cfg.Storage.MinioAccessKey,
			SecretKey: cfg.Storage.MinioSecretKey,
			Bucket:    cfg.Storage.MinioBucket,
			UseSSL:    cfg.Storage.MinioUseSSL,
		})
	default:
		return storage.NewLocalStorage(cfg.Storage.LocalRoot)
	}
}

func newEngine(ctx context.Context, cfg *config.Config) (engine.Engine, error) {
	switch cfg.Engine.Backend {
	case "vertex":
		return vertex.New(ctx, vertex.Options{
			ProjectID: cfg.Engine.VertexProjectID,
			Region:    cfg.Engine.VertexRegion,
			Model:     cfg.Engine.VertexModel,
		})
	default:
		return tesseract.New(tesseract.Options{Languages: cfg.Engine.Languages})
	}
}
