package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillkom/drive-filing-bot/internal/config"
	"github.com/kirillkom/drive-filing-bot/internal/core/ports"
	"github.com/kirillkom/drive-filing-bot/internal/core/usecase"
	"github.com/kirillkom/drive-filing-bot/internal/infrastructure/batchstore/memory"
	redisstore "github.com/kirillkom/drive-filing-bot/internal/infrastructure/batchstore/redis"
	"github.com/kirillkom/drive-filing-bot/internal/infrastructure/extractor/composite"
	"github.com/kirillkom/drive-filing-bot/internal/infrastructure/extractor/pdfx"
	"github.com/kirillkom/drive-filing-bot/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/drive-filing-bot/internal/infrastructure/extractor/spreadsheet"
	"github.com/kirillkom/drive-filing-bot/internal/infrastructure/notifier/lognotify"
	"github.com/kirillkom/drive-filing-bot/internal/infrastructure/queue/nats"
	"github.com/kirillkom/drive-filing-bot/internal/infrastructure/remote/drive"
	"github.com/kirillkom/drive-filing-bot/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/drive-filing-bot/internal/infrastructure/resilience"
	"github.com/kirillkom/drive-filing-bot/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config

	Queue ports.MessageQueue
	Repo  ports.BatchRepository

	Collector   *usecase.Collector
	SubmitUC    ports.FileSubmitter
	Corrections *usecase.CorrectionWorkflow
	ConfirmUC   *usecase.ConfirmBatchUseCase
	UploadUC    *usecase.UploadBatchUseCase
	ProcessUC   *usecase.ProcessBatchUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewBatchRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init staging storage: %w", err)
	}

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	var store ports.BatchStore
	var storeClose func() error
	switch cfg.BatchStoreBackend {
	case "redis":
		redisStore, err := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, 0)
		if err != nil {
			queue.Close()
			_ = db.Close()
			return nil, fmt.Errorf("init redis batch store: %w", err)
		}
		store = redisStore
		storeClose = redisStore.Close
	default:
		store = memory.New()
	}

	extractor := composite.New().
		Register(plaintext.NewExtractor(storage), "txt").
		Register(pdfx.NewExtractor(storage), "pdf").
		Register(spreadsheet.NewExtractor(storage), "xlsx", "xls")

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    cfg.RetryMaxAttempts,
		RetryInitialBackoff: time.Duration(cfg.RetryInitialBackoffMS) * time.Millisecond,
		RetryMaxBackoff:     time.Duration(cfg.RetryMaxBackoffMS) * time.Millisecond,
		RetryMultiplier:     2.0,
		RetryJitter:         0.2,

		BreakerEnabled:          true,
		BreakerMinRequests:      10,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 2,
	})

	driveClient := drive.New(cfg.DriveToken, drive.Options{
		BaseURL:       cfg.DriveBaseURL,
		UploadURL:     cfg.DriveUploadURL,
		RatePerSecond: float64(cfg.DriveRatePerSecond),
	})

	notifier := lognotify.New(nil)

	collector := usecase.NewCollector(ctx, store, notifier, cfg.BatchTTL(), cfg.BatchHardCap)
	inference := usecase.NewInferIdentityUseCase(extractor)
	submitUC := usecase.NewSubmitFileUseCase(storage, collector, inference, cfg.MaxFileSizeMB)
	corrections := usecase.NewCorrectionWorkflow()
	confirmUC := usecase.NewConfirmBatchUseCase(repo, queue)

	resolver := usecase.NewFolderResolver(driveClient, executor, drive.ClassifyError)
	uploadUC := usecase.NewUploadBatchUseCase(
		storage,
		driveClient,
		resolver,
		executor,
		drive.ClassifyError,
		cfg.DriveRootFolderID,
		cfg.UploadConcurrency,
	)
	processUC := usecase.NewProcessBatchUseCase(repo, uploadUC, notifier)

	return &App{
		Config: cfg,
		Queue:  queue,
		Repo:   repo,

		Collector:   collector,
		SubmitUC:    submitUC,
		Corrections: corrections,
		ConfirmUC:   confirmUC,
		UploadUC:    uploadUC,
		ProcessUC:   processUC,

		closeFn: func() {
			queue.Close()
			if storeClose != nil {
				_ = storeClose()
			}
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
