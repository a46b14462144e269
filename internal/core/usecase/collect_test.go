package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kirillkom/drive-filing-bot/internal/core/domain"
)

func pendingItem(n int) domain.PendingItem {
	return domain.PendingItem{
		ItemID:       fmt.Sprintf("item-%d", n),
		OriginalName: fmt.Sprintf("doc-%d.pdf", n),
		StorageKey:   fmt.Sprintf("key-%d", n),
		Status:       domain.ItemResolved,
		Identity:     mustIdentity("Альфатрекс", "", "акт", fmt.Sprintf("%d", n), "010125", "pdf"),
	}
}

func TestCollectorAddArmsTimerAndAutoFlushes(t *testing.T) {
	store := newFakeBatchStore()
	notifier := &fakeNotifier{}
	collector := NewCollector(context.Background(), store, notifier, 20*time.Millisecond, 15)

	for i := 0; i < 3; i++ {
		if _, _, err := collector.Add(context.Background(), "owner", pendingItem(i)); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}

	deadline := time.After(2 * time.Second)
	for notifier.summaryCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("timer flush never fired")
		case <-time.After(5 * time.Millisecond):
		}
	}

	summary := notifier.lastSummary()
	if len(summary.Items) != 3 {
		t.Fatalf("expected 3 items in summary, got %d", len(summary.Items))
	}
	if size, _ := collector.Size(context.Background(), "owner"); size != 0 {
		t.Fatalf("buffer should be empty after flush, got %d", size)
	}

	// The window fired once; no second summary may appear.
	time.Sleep(50 * time.Millisecond)
	if notifier.summaryCount() != 1 {
		t.Fatalf("expected exactly one summary, got %d", notifier.summaryCount())
	}
}

func TestCollectorWindowIsNotRestartedByLaterAdds(t *testing.T) {
	store := newFakeBatchStore()
	notifier := &fakeNotifier{}
	collector := NewCollector(context.Background(), store, notifier, 40*time.Millisecond, 15)

	if _, _, err := collector.Add(context.Background(), "owner", pendingItem(0)); err != nil {
		t.Fatalf("add: %v", err)
	}
	// Keep adding past the original deadline; the window must still close.
	start := time.Now()
	for notifier.summaryCount() == 0 {
		if time.Since(start) > 2*time.Second {
			t.Fatal("window never closed despite continuous adds")
		}
		_, _, _ = collector.Add(context.Background(), "owner", pendingItem(1))
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCollectorHardCapFlushesSynchronously(t *testing.T) {
	store := newFakeBatchStore()
	notifier := &fakeNotifier{}
	collector := NewCollector(context.Background(), store, notifier, time.Hour, 3)

	var capExceeded bool
	for i := 0; i < 4; i++ {
		var err error
		_, capExceeded, err = collector.Add(context.Background(), "owner", pendingItem(i))
		if err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}

	if !capExceeded {
		t.Fatal("expected cap exceeded on the 4th item")
	}
	if notifier.summaryCount() != 1 {
		t.Fatalf("expected one synchronous summary, got %d", notifier.summaryCount())
	}
	summary := notifier.lastSummary()
	if !summary.CapExceeded {
		t.Fatal("summary must be marked cap-exceeded")
	}
	if len(summary.Items) != 4 {
		t.Fatalf("expected all 4 items flushed, got %d", len(summary.Items))
	}
}

func TestCollectorCancelDisarmsTimer(t *testing.T) {
	store := newFakeBatchStore()
	notifier := &fakeNotifier{}
	collector := NewCollector(context.Background(), store, notifier, 20*time.Millisecond, 15)

	if _, _, err := collector.Add(context.Background(), "owner", pendingItem(0)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := collector.Cancel(context.Background(), "owner"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	time.Sleep(60 * time.Millisecond)
	if notifier.summaryCount() != 0 {
		t.Fatalf("cancelled batch must not flush, got %d summaries", notifier.summaryCount())
	}
	if size, _ := collector.Size(context.Background(), "owner"); size != 0 {
		t.Fatalf("buffer should be empty after cancel, got %d", size)
	}
}

func TestCollectorFlushIsIdempotent(t *testing.T) {
	store := newFakeBatchStore()
	notifier := &fakeNotifier{}
	collector := NewCollector(context.Background(), store, notifier, time.Hour, 15)

	if _, _, err := collector.Add(context.Background(), "owner", pendingItem(0)); err != nil {
		t.Fatalf("add: %v", err)
	}

	first, err := collector.Flush(context.Background(), "owner")
	if err != nil {
		t.Fatalf("first flush: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("expected 1 item, got %d", len(first))
	}

	second, err := collector.Flush(context.Background(), "owner")
	if err != nil {
		t.Fatalf("second flush: %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("second flush must be empty, got %d items", len(second))
	}
}

func TestCollectorManualFlushDisarmsTimer(t *testing.T) {
	store := newFakeBatchStore()
	notifier := &fakeNotifier{}
	collector := NewCollector(context.Background(), store, notifier, 20*time.Millisecond, 15)

	if _, _, err := collector.Add(context.Background(), "owner", pendingItem(0)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := collector.Flush(context.Background(), "owner"); err != nil {
		t.Fatalf("flush: %v", err)
	}

	time.Sleep(60 * time.Millisecond)
	if notifier.summaryCount() != 0 {
		t.Fatalf("stale timer must not produce a summary, got %d", notifier.summaryCount())
	}
}

func TestCollectorTimerFlushFailureIsReported(t *testing.T) {
	store := newFakeBatchStore()
	notifier := &fakeNotifier{}
	collector := NewCollector(context.Background(), store, notifier, 20*time.Millisecond, 15)

	if _, _, err := collector.Add(context.Background(), "owner", pendingItem(0)); err != nil {
		t.Fatalf("add: %v", err)
	}
	store.mu.Lock()
	store.flushErr = fmt.Errorf("redis down")
	store.mu.Unlock()

	deadline := time.After(2 * time.Second)
	for notifier.summaryCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("failure summary never arrived")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if notifier.lastSummary().Error == "" {
		t.Fatal("summary must carry the flush error")
	}
}

func TestCollectorTimerFlushKeepsCustodyOfItems(t *testing.T) {
	store := newFakeBatchStore()
	notifier := &fakeNotifier{}
	collector := NewCollector(context.Background(), store, notifier, 20*time.Millisecond, 15)

	for i := 0; i < 3; i++ {
		if _, _, err := collector.Add(context.Background(), "owner", pendingItem(i)); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}

	deadline := time.After(2 * time.Second)
	for notifier.summaryCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("timer flush never fired")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// The store is drained, but the batch must stay reachable so the
	// submitter can still correct, confirm or cancel it.
	if size, _ := collector.Size(context.Background(), "owner"); size != 0 {
		t.Fatalf("buffer should be empty after flush, got %d", size)
	}
	items := collector.TakeFlushed(context.Background(), "owner")
	if len(items) != 3 {
		t.Fatalf("expected 3 flushed items in custody, got %d", len(items))
	}
	if items[0].ItemID != "item-0" || items[0].StorageKey != "key-0" {
		t.Fatalf("custody lost item fields: %+v", items[0])
	}
	if again := collector.TakeFlushed(context.Background(), "owner"); len(again) != 0 {
		t.Fatalf("second take must be empty, got %d", len(again))
	}
}

func TestCollectorHardCapFlushKeepsCustodyOfItems(t *testing.T) {
	store := newFakeBatchStore()
	notifier := &fakeNotifier{}
	collector := NewCollector(context.Background(), store, notifier, time.Hour, 3)

	for i := 0; i < 4; i++ {
		if _, _, err := collector.Add(context.Background(), "owner", pendingItem(i)); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}

	items := collector.PeekFlushed(context.Background(), "owner")
	if len(items) != 4 {
		t.Fatalf("expected 4 items in custody after cap flush, got %d", len(items))
	}
}

func TestCollectorManualFlushKeepsCustodyOfItems(t *testing.T) {
	store := newFakeBatchStore()
	notifier := &fakeNotifier{}
	collector := NewCollector(context.Background(), store, notifier, time.Hour, 15)

	if _, _, err := collector.Add(context.Background(), "owner", pendingItem(0)); err != nil {
		t.Fatalf("add: %v", err)
	}
	flushed, err := collector.Flush(context.Background(), "owner")
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if len(flushed) != 1 {
		t.Fatalf("expected 1 flushed item, got %d", len(flushed))
	}

	held := collector.PeekFlushed(context.Background(), "owner")
	if len(held) != 1 || held[0].ItemID != flushed[0].ItemID {
		t.Fatalf("custody must mirror the flush result, got %+v", held)
	}
}

func TestCollectorFlushAppendsBehindUnclaimedBatch(t *testing.T) {
	store := newFakeBatchStore()
	notifier := &fakeNotifier{}
	collector := NewCollector(context.Background(), store, notifier, time.Hour, 15)

	_, _, _ = collector.Add(context.Background(), "owner", pendingItem(0))
	if _, err := collector.Flush(context.Background(), "owner"); err != nil {
		t.Fatalf("first flush: %v", err)
	}
	_, _, _ = collector.Add(context.Background(), "owner", pendingItem(1))
	if _, err := collector.Flush(context.Background(), "owner"); err != nil {
		t.Fatalf("second flush: %v", err)
	}

	items := collector.TakeFlushed(context.Background(), "owner")
	if len(items) != 2 {
		t.Fatalf("expected both batches in custody, got %d", len(items))
	}
}

func TestCollectorCancelDropsCustody(t *testing.T) {
	store := newFakeBatchStore()
	notifier := &fakeNotifier{}
	collector := NewCollector(context.Background(), store, notifier, time.Hour, 15)

	_, _, _ = collector.Add(context.Background(), "owner", pendingItem(0))
	if _, err := collector.Flush(context.Background(), "owner"); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := collector.Cancel(context.Background(), "owner"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if items := collector.PeekFlushed(context.Background(), "owner"); len(items) != 0 {
		t.Fatalf("cancel must clear custody, got %d items", len(items))
	}
}
