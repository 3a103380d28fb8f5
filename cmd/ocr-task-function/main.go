// Binary ocr-task-function processes one OCR job per CloudEvent. The event
// payload carries the job id; the retry budget and backoff are applied
// in-process, and a job whose budget is spent is marked failed before the
// error is returned to the platform for its own bookkeeping.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"go.uber.org/zap"

	"github.com/kuldoc/ocrflow/internal/config"
	"github.com/kuldoc/ocrflow/internal/engine"
	"github.com/kuldoc/ocrflow/internal/engine/tesseract"
	"github.com/kuldoc/ocrflow/internal/engine/vertex"
	"github.com/kuldoc/ocrflow/internal/loader"
	"github.com/kuldoc/ocrflow/internal/repository/gormstore"
	"github.com/kuldoc/ocrflow/internal/service"
	"github.com/kuldoc/ocrflow/internal/storage"
	"github.com/kuldoc/ocrflow/internal/worker"
	"github.com/kuldoc/ocrflow/pkg/logger"
)

var (
	runner  *worker.Runner
	zl      *zap.Logger
	once    sync.Once
	initErr error
)

// taskPayload is the event data published for each submitted job.
type taskPayload struct {
	JobID string `json:"job_id"`
}

func init() {
	functions.CloudEvent("ProcessOCRJob", processOCRJob)
}

// main is required by the Go Functions Framework.
func main() {}

func processOCRJob(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		runner, zl, initErr = setup(context.Background())
	})
	if initErr != nil {
		return fmt.Errorf("function initialization failed: %w", initErr)
	}

	var payload taskPayload
	if err := json.Unmarshal(e.Data(), &payload); err != nil {
		zl.Error("failed to unmarshal event data", zap.Error(err), zap.String("data", string(e.Data())))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}
	if payload.JobID == "" {
		zl.Error("event payload has no job id", zap.String("data", string(e.Data())))
		return fmt.Errorf("event payload has no job id")
	}

	res, err := runner.Handle(ctx, payload.JobID)
	if err != nil {
		// The job is already marked failed; the returned error is for the
		// platform's bookkeeping only.
		return err
	}
	zl.Info("job handled",
		zap.String("job_id", res.JobID),
		zap.String("status", string(res.Status)))
	return nil
}

func setup(ctx context.Context) (*worker.Runner, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

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
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}

	var fs storage.FileStorage
	switch cfg.Storage.Backend {
	case "gcs":
		fs, err = storage.NewGCSStorage(ctx, cfg.Storage.GCSBucket)
	case "minio":
		fs, err = storage.NewMinioStorage(ctx, storage.MinioOptions{
			Endpoint:  cfg.Storage.MinioEndpoint,
			AccessKey: cfg.Storage.MinioAccessKey,
			SecretKey: cfg.Storage.MinioSecretKey,
			Bucket:    cfg.Storage.MinioBucket,
			UseSSL:    cfg.Storage.MinioUseSSL,
		})
	default:
		fs, err = storage.NewLocalStorage(cfg.Storage.LocalRoot)
	}
	if err != nil {
		return nil, nil, err
	}

	var eng engine.Engine
	switch cfg.Engine.Backend {
	case "vertex":
		eng, err = vertex.New(ctx, vertex.Options{
			ProjectID: cfg.Engine.VertexProjectID,
			Region:    cfg.Engine.VertexRegion,
			Model:     cfg.Engine.VertexModel,
		})
	default:
		eng, err = tesseract.New(tesseract.Options{Languages: cfg.Engine.Languages})
	}
	if err != nil {
		return nil, nil, err
	}

	pages := loader.NewStorageLoader(fs)
	orchestrator := service.NewOrchestrator(gormstore.NewFactory(db), pages, eng, cfg.Engine.Timeout, log)
	return worker.NewRunner(orchestrator, cfg.Worker.MaxRetries, cfg.Worker.BaseDelay, log), log, nil
}
