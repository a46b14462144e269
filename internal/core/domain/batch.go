package domain

import "time"

type ItemStatus string

const (
	ItemResolved        ItemStatus = "resolved"
	ItemNeedsCorrection ItemStatus = "needs_correction"
)

// PendingItem is one submitted file waiting in a batch. Identity is nil
// until the grammar, inference or the correction workflow resolves it.
type PendingItem struct {
	ItemID       string            `json:"item_id"`
	OriginalName string            `json:"original_name"`
	StorageKey   string            `json:"storage_key"`
	Size         int64             `json:"size"`
	Identity     *DocumentIdentity `json:"identity,omitempty"`
	Status       ItemStatus        `json:"status"`
}

func (i PendingItem) Resolved() bool {
	return i.Status == ItemResolved && i.Identity != nil
}

// SubmissionAck is returned to the front end after a file is accepted.
type SubmissionAck struct {
	ItemID      string `json:"item_id"`
	Recognized  bool   `json:"recognized"`
	BatchSize   int    `json:"batch_size"`
	CapExceeded bool   `json:"cap_exceeded,omitempty"`
}

type BatchStatus string

const (
	BatchCollecting BatchStatus = "collecting"
	BatchConfirmed  BatchStatus = "confirmed"
	BatchUploading  BatchStatus = "uploading"
	BatchDone       BatchStatus = "done"
	BatchFailed     BatchStatus = "failed"
)

// Batch is the finalized set of items one submitter confirmed for upload.
type Batch struct {
	ID        string        `json:"id"`
	OwnerID   string        `json:"owner_id"`
	Items     []PendingItem `json:"items"`
	Status    BatchStatus   `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type UploadStatus string

const (
	UploadSuccess           UploadStatus = "success"
	UploadFailed            UploadStatus = "failed"
	UploadNeedsManualFolder UploadStatus = "needs_manual_folder"
)

// UploadResult is the per-item outcome of an upload run. Immutable.
type UploadResult struct {
	ItemID       string       `json:"item_id"`
	OriginalName string       `json:"original_name"`
	RemoteFileID string       `json:"remote_file_id,omitempty"`
	RemoteLink   string       `json:"remote_link,omitempty"`
	Status       UploadStatus `json:"status"`
	Error        string       `json:"error,omitempty"`
}

// BatchSummary is what the front end renders when a batch flushes:
// original name to canonical name (or unrecognized) per item.
type BatchSummary struct {
	OwnerID     string        `json:"owner_id"`
	Items       []SummaryLine `json:"items"`
	Resolved    int           `json:"resolved"`
	Unresolved  int           `json:"unresolved"`
	CapExceeded bool          `json:"cap_exceeded,omitempty"`
	Error       string        `json:"error,omitempty"`
}

type SummaryLine struct {
	OriginalName  string `json:"original_name"`
	CanonicalName string `json:"canonical_name,omitempty"`
	Recognized    bool   `json:"recognized"`
}

func SummarizeBatch(ownerID string, items []PendingItem) BatchSummary {
	summary := BatchSummary{OwnerID: ownerID, Items: make([]SummaryLine, 0, len(items))}
	for _, item := range items {
		line := SummaryLine{OriginalName: item.OriginalName}
		if item.Resolved() {
			line.CanonicalName = item.Identity.CanonicalFilename()
			line.Recognized = true
			summary.Resolved++
		} else {
			summary.Unresolved++
		}
		summary.Items = append(summary.Items, line)
	}
	return summary
}
