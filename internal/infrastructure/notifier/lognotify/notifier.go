package lognotify

import (
	"context"
	"log/slog"

	"github.com/kirillkom/drive-filing-bot/internal/core/domain"
)

// Notifier writes summaries and reports to the structured log. It stands in
// for a chat transport and keeps the core ports satisfied in API-only setups.
type Notifier struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{logger: logger}
}

func (n *Notifier) NotifySummary(ctx context.Context, summary domain.BatchSummary) {
	attrs := []any{
		"owner_id", summary.OwnerID,
		"items", len(summary.Items),
		"resolved", summary.Resolved,
		"unresolved", summary.Unresolved,
		"cap_exceeded", summary.CapExceeded,
	}
	if summary.Error != "" {
		attrs = append(attrs, "error", summary.Error)
		n.logger.ErrorContext(ctx, "batch_summary", attrs...)
		return
	}
	n.logger.InfoContext(ctx, "batch_summary", attrs...)
}

func (n *Notifier) NotifyReport(ctx context.Context, ownerID string, results []domain.UploadResult) {
	success := 0
	failed := 0
	manual := 0
	for _, res := range results {
		switch res.Status {
		case domain.UploadSuccess:
			success++
		case domain.UploadNeedsManualFolder:
			manual++
		default:
			failed++
		}
	}
	n.logger.InfoContext(ctx, "batch_report",
		"owner_id", ownerID,
		"items", len(results),
		"success", success,
		"failed", failed,
		"needs_manual_folder", manual,
	)
}
