package ports

import (
	"context"
	"io"

	"github.com/kirillkom/drive-filing-bot/internal/core/domain"
)

// BatchStore keeps each submitter's in-flight items. Implementations must
// make Append and Flush atomic per owner key; a memory map and a
// TTL-capable external store are both acceptable backings.
type BatchStore interface {
	Append(ctx context.Context, ownerID string, item domain.PendingItem) error
	Items(ctx context.Context, ownerID string) ([]domain.PendingItem, error)
	Replace(ctx context.Context, ownerID string, items []domain.PendingItem) error
	Flush(ctx context.Context, ownerID string) ([]domain.PendingItem, error)
	Size(ctx context.Context, ownerID string) (int, error)
}

// BatchRepository persists confirmed batches and their upload reports.
type BatchRepository interface {
	CreateBatch(ctx context.Context, batch *domain.Batch) error
	GetBatch(ctx context.Context, id string) (*domain.Batch, error)
	UpdateBatchStatus(ctx context.Context, id string, status domain.BatchStatus) error
	SaveResults(ctx context.Context, batchID string, results []domain.UploadResult) error
	ListResults(ctx context.Context, batchID string) ([]domain.UploadResult, error)
}

// StagingStorage holds raw file bytes between submission and upload.
type StagingStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// RemoteStorage is the Drive-side backend. Retrying CreateFolder may
// produce at most one duplicate in the worst case; callers serialize
// creation per (parentID, name) to keep that window closed.
type RemoteStorage interface {
	ListChildFolders(ctx context.Context, parentID string) ([]domain.RemoteFolder, error)
	CreateFolder(ctx context.Context, parentID, name string) (string, error)
	UploadFile(ctx context.Context, parentID, name string, data io.Reader) (domain.RemoteFile, error)
}

// TextExtractor pulls plain text out of a staged file for inference.
type TextExtractor interface {
	Extract(ctx context.Context, storageKey, originalName string) (string, error)
}

// MessageQueue carries batch-ready events from the API to the upload worker.
type MessageQueue interface {
	PublishBatchReady(ctx context.Context, batchID, ownerID string) error
	SubscribeBatchReady(ctx context.Context, handler func(ctx context.Context, batchID, ownerID string) error) error
}

// BatchNotifier delivers flush summaries and upload reports to the
// front end (chat, web, CLI); presentation is out of the core's scope.
type BatchNotifier interface {
	NotifySummary(ctx context.Context, summary domain.BatchSummary)
	NotifyReport(ctx context.Context, ownerID string, results []domain.UploadResult)
}
