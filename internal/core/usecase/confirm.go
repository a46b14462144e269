package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/drive-filing-bot/internal/core/domain"
	"github.com/kirillkom/drive-filing-bot/internal/core/ports"
)

// ConfirmBatchUseCase persists a finalized batch and hands it to the
// upload worker through the queue.
type ConfirmBatchUseCase struct {
	repo  ports.BatchRepository
	queue ports.MessageQueue
}

func NewConfirmBatchUseCase(repo ports.BatchRepository, queue ports.MessageQueue) *ConfirmBatchUseCase {
	return &ConfirmBatchUseCase{repo: repo, queue: queue}
}

func (uc *ConfirmBatchUseCase) Confirm(ctx context.Context, ownerID string, items []domain.PendingItem) (*domain.Batch, error) {
	if len(items) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "confirm batch", errors.New("no items to upload"))
	}

	now := time.Now().UTC()
	batch := &domain.Batch{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Items:     items,
		Status:    domain.BatchConfirmed,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := uc.repo.CreateBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("persist confirmed batch: %w", err)
	}
	if err := uc.queue.PublishBatchReady(ctx, batch.ID, batch.OwnerID); err != nil {
		return nil, fmt.Errorf("publish batch-ready event: %w", err)
	}
	return batch, nil
}
