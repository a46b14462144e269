package ports

import (
	"context"
	"io"

	"github.com/kirillkom/drive-filing-bot/internal/core/domain"
)

// FileSubmitter accepts one raw file into the owner's current batch.
type FileSubmitter interface {
	Submit(ctx context.Context, ownerID, declaredName string, size int64, body io.Reader) (domain.SubmissionAck, error)
}

// BatchCollector exposes the buffer-level batch operations. Flushed
// items stay in the collector's custody until taken, so a batch closed
// by the TTL timer or the hard cap is still reachable for correction
// and confirm.
type BatchCollector interface {
	Flush(ctx context.Context, ownerID string) ([]domain.PendingItem, error)
	Cancel(ctx context.Context, ownerID string) error
	Size(ctx context.Context, ownerID string) (int, error)
	ParkFlushed(ctx context.Context, ownerID string, items []domain.PendingItem)
	PeekFlushed(ctx context.Context, ownerID string) []domain.PendingItem
	TakeFlushed(ctx context.Context, ownerID string) []domain.PendingItem
}

// CorrectionDriver runs the field-by-field repair dialogue.
type CorrectionDriver interface {
	Start(ctx context.Context, ownerID string, items []domain.PendingItem) (domain.CorrectionPrompt, error)
	Reply(ctx context.Context, ownerID, text string) (domain.CorrectionPrompt, error)
	Cancel(ctx context.Context, ownerID string)
}

// BatchUploader uploads a finalized batch and reports per-item results.
type BatchUploader interface {
	UploadBatch(ctx context.Context, batch *domain.Batch) ([]domain.UploadResult, error)
}
