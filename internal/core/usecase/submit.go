package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/kirillkom/drive-filing-bot/internal/core/domain"
	"github.com/kirillkom/drive-filing-bot/internal/core/filename"
	"github.com/kirillkom/drive-filing-bot/internal/core/ports"
)

const DefaultMaxFileSizeMB = 20

// SubmitFileUseCase validates an inbound file, stages its bytes, derives
// an identity (grammar first, content inference second) and hands the
// item to the batch collector.
type SubmitFileUseCase struct {
	storage   ports.StagingStorage
	collector *Collector
	inference *InferIdentityUseCase
	maxBytes  int64
}

func NewSubmitFileUseCase(storage ports.StagingStorage, collector *Collector, inference *InferIdentityUseCase, maxFileSizeMB int) *SubmitFileUseCase {
	if maxFileSizeMB <= 0 {
		maxFileSizeMB = DefaultMaxFileSizeMB
	}
	return &SubmitFileUseCase{
		storage:   storage,
		collector: collector,
		inference: inference,
		maxBytes:  int64(maxFileSizeMB) * 1024 * 1024,
	}
}

func (uc *SubmitFileUseCase) Submit(ctx context.Context, ownerID, declaredName string, size int64, body io.Reader) (domain.SubmissionAck, error) {
	if strings.TrimSpace(ownerID) == "" {
		return domain.SubmissionAck{}, domain.WrapError(domain.ErrInvalidInput, "submit file", errors.New("owner id is required"))
	}

	safeName, err := uc.validate(declaredName, size)
	if err != nil {
		return domain.SubmissionAck{}, err
	}

	itemID := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", itemID, safeName)
	if err := uc.storage.Save(ctx, storageKey, io.LimitReader(body, uc.maxBytes+1)); err != nil {
		return domain.SubmissionAck{}, fmt.Errorf("stage file bytes: %w", err)
	}

	identity := filename.Parse(declaredName)
	if identity == nil {
		identity = uc.inference.Infer(ctx, storageKey, declaredName)
	}

	item := domain.PendingItem{
		ItemID:       itemID,
		OriginalName: declaredName,
		StorageKey:   storageKey,
		Size:         size,
		Identity:     identity,
		Status:       domain.ItemNeedsCorrection,
	}
	if identity != nil {
		item.Status = domain.ItemResolved
	}

	batchSize, capExceeded, err := uc.collector.Add(ctx, ownerID, item)
	if err != nil {
		// The item never entered the batch; do not leak the staged copy.
		if cleanupErr := uc.storage.Remove(ctx, storageKey); cleanupErr != nil {
			slog.Warn("staging_cleanup_failed", "key", storageKey, "error", cleanupErr)
		}
		return domain.SubmissionAck{}, err
	}

	return domain.SubmissionAck{
		ItemID:      itemID,
		Recognized:  identity != nil,
		BatchSize:   batchSize,
		CapExceeded: capExceeded,
	}, nil
}

// validate rejects the file before it enters a batch: extension
// allow-list, size ceiling, dangerous characters. Never retried.
func (uc *SubmitFileUseCase) validate(declaredName string, size int64) (string, error) {
	safeName, err := filename.Sanitize(declaredName)
	if err != nil {
		return "", err
	}

	ext := strings.TrimPrefix(strings.ToLower(path.Ext(safeName)), ".")
	if !domain.IsSupportedExtension(ext) {
		return "", domain.WrapError(domain.ErrValidation, "validate file", fmt.Errorf("unsupported extension %q", ext))
	}
	if size > uc.maxBytes {
		return "", domain.WrapError(domain.ErrValidation, "validate file",
			fmt.Errorf("file too large: %.2f MB over %d MB ceiling", float64(size)/(1024*1024), uc.maxBytes/(1024*1024)))
	}
	return safeName, nil
}
