package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/kirillkom/drive-filing-bot/internal/core/domain"
	"github.com/kirillkom/drive-filing-bot/internal/core/ports"
	"github.com/kirillkom/drive-filing-bot/internal/infrastructure/resilience"
)

const (
	DefaultUploadConcurrency = 3

	remoteCallTimeout = 60 * time.Second
)

// ProgressFunc observes per-item completion: a side channel for user
// feedback, not part of the result contract.
type ProgressFunc func(index, total int, status domain.UploadStatus)

// UploadMetrics is implemented by the prometheus worker metrics; a nil
// recorder disables observation.
type UploadMetrics interface {
	ObserveItem(status string, duration time.Duration)
	ObserveBatch(size int)
	InFlightAdd(delta float64)
}

// UploadBatchUseCase drains a finalized batch with bounded concurrency.
// Partial failure is normal: every input item yields exactly one result,
// and one item's exhausted retries never abort its siblings.
type UploadBatchUseCase struct {
	storage     ports.StagingStorage
	remote      ports.RemoteStorage
	resolver    *FolderResolver
	executor    *resilience.Executor
	classify    resilience.ErrorClassifier
	rootID      string
	concurrency int64
	metrics     UploadMetrics
	progress    ProgressFunc
}

func NewUploadBatchUseCase(
	storage ports.StagingStorage,
	remote ports.RemoteStorage,
	resolver *FolderResolver,
	executor *resilience.Executor,
	classify resilience.ErrorClassifier,
	rootID string,
	concurrency int,
) *UploadBatchUseCase {
	if concurrency <= 0 {
		concurrency = DefaultUploadConcurrency
	}
	return &UploadBatchUseCase{
		storage:     storage,
		remote:      remote,
		resolver:    resolver,
		executor:    executor,
		classify:    classify,
		rootID:      rootID,
		concurrency: int64(concurrency),
	}
}

func (uc *UploadBatchUseCase) WithMetrics(m UploadMetrics) *UploadBatchUseCase {
	uc.metrics = m
	return uc
}

func (uc *UploadBatchUseCase) WithProgress(fn ProgressFunc) *UploadBatchUseCase {
	uc.progress = fn
	return uc
}

// UploadBatch uploads every item and returns one result per input item.
// The semaphore bounds concurrency, not eventual completion: all items
// are scheduled and awaited.
func (uc *UploadBatchUseCase) UploadBatch(ctx context.Context, batch *domain.Batch) ([]domain.UploadResult, error) {
	if batch == nil || len(batch.Items) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload batch", fmt.Errorf("batch is empty"))
	}

	if uc.metrics != nil {
		uc.metrics.ObserveBatch(len(batch.Items))
	}

	total := len(batch.Items)
	results := make([]domain.UploadResult, total)
	sem := semaphore.NewWeighted(uc.concurrency)
	var wg sync.WaitGroup

	for idx, item := range batch.Items {
		wg.Add(1)
		go func(idx int, item domain.PendingItem) {
			defer wg.Done()

			if err := sem.Acquire(ctx, 1); err != nil {
				results[idx] = failedResult(item, fmt.Errorf("acquire upload slot: %w", err))
				uc.report(idx, total, results[idx].Status, time.Duration(0))
				return
			}
			defer sem.Release(1)

			if uc.metrics != nil {
				uc.metrics.InFlightAdd(1)
				defer uc.metrics.InFlightAdd(-1)
			}

			started := time.Now()
			results[idx] = uc.uploadOne(ctx, item)
			uc.report(idx, total, results[idx].Status, time.Since(started))
		}(idx, item)
	}
	wg.Wait()

	return results, nil
}

// uploadOne runs a single item's lifecycle. The staged copy is removed
// on every exit path.
func (uc *UploadBatchUseCase) uploadOne(ctx context.Context, item domain.PendingItem) domain.UploadResult {
	defer uc.cleanupStaging(ctx, item.StorageKey)

	if !item.Resolved() {
		// Grammar, inference and correction all came up empty; the
		// operator chose to proceed. Surface it for a manual folder
		// choice instead of guessing a destination.
		return domain.UploadResult{
			ItemID:       item.ItemID,
			OriginalName: item.OriginalName,
			Status:       domain.UploadNeedsManualFolder,
		}
	}

	folderID, err := uc.resolver.EnsurePath(ctx, uc.rootID, item.Identity.CanonicalPath())
	if err != nil {
		return failedResult(item, err)
	}

	var remoteFile domain.RemoteFile
	err = uc.executor.Execute(ctx, "drive.upload", func(callCtx context.Context) error {
		reader, openErr := uc.storage.Open(callCtx, item.StorageKey)
		if openErr != nil {
			return fmt.Errorf("open staged file: %w", openErr)
		}
		defer reader.Close()

		uploadCtx, cancel := context.WithTimeout(callCtx, remoteCallTimeout)
		defer cancel()

		var uploadErr error
		remoteFile, uploadErr = uc.remote.UploadFile(uploadCtx, folderID, item.Identity.CanonicalFilename(), reader)
		return uploadErr
	}, uc.classify)
	if err != nil {
		return failedResult(item, err)
	}

	return domain.UploadResult{
		ItemID:       item.ItemID,
		OriginalName: item.OriginalName,
		RemoteFileID: remoteFile.ID,
		RemoteLink:   remoteFile.ViewLink,
		Status:       domain.UploadSuccess,
	}
}

// cleanupStaging is a hard requirement on every exit path; a failure is
// logged and must not block the item's result.
func (uc *UploadBatchUseCase) cleanupStaging(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := uc.storage.Remove(ctx, key); err != nil {
		slog.Warn("staging_cleanup_failed", "key", key, "error", err)
	}
}

func (uc *UploadBatchUseCase) report(index, total int, status domain.UploadStatus, duration time.Duration) {
	if uc.progress != nil {
		uc.progress(index, total, status)
	}
	if uc.metrics != nil {
		uc.metrics.ObserveItem(string(status), duration)
	}
}

func failedResult(item domain.PendingItem, err error) domain.UploadResult {
	return domain.UploadResult{
		ItemID:       item.ItemID,
		OriginalName: item.OriginalName,
		Status:       domain.UploadFailed,
		Error:        err.Error(),
	}
}
