package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/drive-filing-bot/internal/core/domain"
	"github.com/kirillkom/drive-filing-bot/internal/core/ports"
)

// ProcessBatchUseCase is the worker-side entry point: load a confirmed
// batch, run the upload scheduler, persist the report, notify the owner.
type ProcessBatchUseCase struct {
	repo     ports.BatchRepository
	uploader *UploadBatchUseCase
	notifier ports.BatchNotifier
}

func NewProcessBatchUseCase(repo ports.BatchRepository, uploader *UploadBatchUseCase, notifier ports.BatchNotifier) *ProcessBatchUseCase {
	return &ProcessBatchUseCase{
		repo:     repo,
		uploader: uploader,
		notifier: notifier,
	}
}

func (uc *ProcessBatchUseCase) ProcessByID(ctx context.Context, batchID string) error {
	batch, err := uc.repo.GetBatch(ctx, batchID)
	if err != nil {
		return fmt.Errorf("fetch batch by id: %w", err)
	}

	if err := uc.repo.UpdateBatchStatus(ctx, batchID, domain.BatchUploading); err != nil {
		return fmt.Errorf("set status=uploading: %w", err)
	}

	results, err := uc.uploader.UploadBatch(ctx, batch)
	if err != nil {
		if failErr := uc.repo.UpdateBatchStatus(ctx, batchID, domain.BatchFailed); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.SaveResults(ctx, batchID, results); err != nil {
		if failErr := uc.repo.UpdateBatchStatus(ctx, batchID, domain.BatchFailed); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return fmt.Errorf("save upload results: %w", err)
	}

	if err := uc.repo.UpdateBatchStatus(ctx, batchID, finalStatus(results)); err != nil {
		return fmt.Errorf("set final status: %w", err)
	}

	uc.notifier.NotifyReport(ctx, batch.OwnerID, results)
	return nil
}

// finalStatus is done when at least one item landed; a batch where every
// item failed is marked failed so the owner can retry it wholesale.
func finalStatus(results []domain.UploadResult) domain.BatchStatus {
	for _, result := range results {
		if result.Status == domain.UploadSuccess {
			return domain.BatchDone
		}
	}
	return domain.BatchFailed
}
