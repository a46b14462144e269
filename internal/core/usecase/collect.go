package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kirillkom/drive-filing-bot/internal/core/domain"
	"github.com/kirillkom/drive-filing-bot/internal/core/ports"
)

const (
	DefaultBatchTTL     = 45 * time.Second
	DefaultBatchHardCap = 15

	flushTimeout = 10 * time.Second
)

// Collector owns the "when do we stop collecting" decision: one TTL
// window per owner starting at the first item, an immediate synchronous
// flush past the hard cap, and epoch-guarded timers so a stale timer can
// never flush a batch that was cancelled or replaced.
//
// Every flush, manual or automatic, parks the removed items in a
// per-owner holding area. The front end reads them back through
// PeekFlushed/TakeFlushed to drive correction and confirm; without this
// a timer flush would strand the batch with nothing downstream able to
// reach it.
type Collector struct {
	store    ports.BatchStore
	notifier ports.BatchNotifier
	ttl      time.Duration
	hardCap  int

	// baseCtx outlives individual requests; timer flushes run on it.
	baseCtx context.Context

	mu     sync.Mutex
	owners map[string]*ownerState

	flushedMu sync.Mutex
	flushed   map[string][]domain.PendingItem
}

// ownerState serializes all mutations for one owner. Contention is
// scoped to the owner key, never the whole collector.
type ownerState struct {
	mu          sync.Mutex
	epoch       uint64
	timerCancel context.CancelFunc
}

func NewCollector(baseCtx context.Context, store ports.BatchStore, notifier ports.BatchNotifier, ttl time.Duration, hardCap int) *Collector {
	if ttl <= 0 {
		ttl = DefaultBatchTTL
	}
	if hardCap <= 0 {
		hardCap = DefaultBatchHardCap
	}
	return &Collector{
		store:    store,
		notifier: notifier,
		ttl:      ttl,
		hardCap:  hardCap,
		baseCtx:  baseCtx,
		owners:   make(map[string]*ownerState),
		flushed:  make(map[string][]domain.PendingItem),
	}
}

func (c *Collector) ownerState(ownerID string) *ownerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.owners[ownerID]
	if !ok {
		st = &ownerState{}
		c.owners[ownerID] = st
	}
	return st
}

// Add appends the item to the owner's batch. The first item arms the TTL
// timer; crossing the hard cap flushes synchronously in the same call.
func (c *Collector) Add(ctx context.Context, ownerID string, item domain.PendingItem) (size int, capExceeded bool, err error) {
	st := c.ownerState(ownerID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := c.store.Append(ctx, ownerID, item); err != nil {
		return 0, false, domain.WrapError(domain.ErrBufferUnavailable, "append item", err)
	}
	size, err = c.store.Size(ctx, ownerID)
	if err != nil {
		return 0, false, domain.WrapError(domain.ErrBufferUnavailable, "read batch size", err)
	}

	if size == 1 {
		c.armTimerLocked(st, ownerID)
	}

	if size > c.hardCap {
		c.disarmTimerLocked(st)
		items, err := c.store.Flush(ctx, ownerID)
		if err != nil {
			return size, true, domain.WrapError(domain.ErrBufferUnavailable, "flush over cap", err)
		}
		c.appendFlushed(ownerID, items)
		summary := domain.SummarizeBatch(ownerID, items)
		summary.CapExceeded = true
		c.notifier.NotifySummary(ctx, summary)
		return size, true, nil
	}
	return size, false, nil
}

// Flush removes and returns all pending items. Idempotent: a second call
// returns an empty slice. Any armed timer for the owner is disarmed.
func (c *Collector) Flush(ctx context.Context, ownerID string) ([]domain.PendingItem, error) {
	st := c.ownerState(ownerID)
	st.mu.Lock()
	defer st.mu.Unlock()

	c.disarmTimerLocked(st)
	items, err := c.store.Flush(ctx, ownerID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrBufferUnavailable, "flush batch", err)
	}
	c.appendFlushed(ownerID, items)
	return items, nil
}

// Cancel discards the owner's batch and invalidates the current epoch so
// no scheduled flush can fire for it afterwards.
func (c *Collector) Cancel(ctx context.Context, ownerID string) error {
	st := c.ownerState(ownerID)
	st.mu.Lock()
	defer st.mu.Unlock()

	c.disarmTimerLocked(st)
	if _, err := c.store.Flush(ctx, ownerID); err != nil {
		return domain.WrapError(domain.ErrBufferUnavailable, "cancel batch", err)
	}
	c.TakeFlushed(ctx, ownerID)
	return nil
}

// ParkFlushed replaces the owner's flushed custody, used by the front
// end to write corrected items back or restore them after a failed
// confirm. An empty slice clears the custody.
func (c *Collector) ParkFlushed(_ context.Context, ownerID string, items []domain.PendingItem) {
	c.flushedMu.Lock()
	defer c.flushedMu.Unlock()
	if len(items) == 0 {
		delete(c.flushed, ownerID)
		return
	}
	c.flushed[ownerID] = items
}

// PeekFlushed returns the owner's flushed items without releasing custody.
func (c *Collector) PeekFlushed(_ context.Context, ownerID string) []domain.PendingItem {
	c.flushedMu.Lock()
	defer c.flushedMu.Unlock()
	return c.flushed[ownerID]
}

// TakeFlushed removes and returns the owner's flushed items. A second
// call returns nil.
func (c *Collector) TakeFlushed(_ context.Context, ownerID string) []domain.PendingItem {
	c.flushedMu.Lock()
	defer c.flushedMu.Unlock()
	items := c.flushed[ownerID]
	delete(c.flushed, ownerID)
	return items
}

// appendFlushed merges a fresh flush behind any batch still waiting on
// the submitter, so an automatic flush never overwrites an earlier one.
func (c *Collector) appendFlushed(ownerID string, items []domain.PendingItem) {
	if len(items) == 0 {
		return
	}
	c.flushedMu.Lock()
	defer c.flushedMu.Unlock()
	c.flushed[ownerID] = append(c.flushed[ownerID], items...)
}

func (c *Collector) Size(ctx context.Context, ownerID string) (int, error) {
	size, err := c.store.Size(ctx, ownerID)
	if err != nil {
		return 0, domain.WrapError(domain.ErrBufferUnavailable, "read batch size", err)
	}
	return size, nil
}

// Replace swaps the owner's pending items, used by the correction
// workflow to write repaired identities back.
func (c *Collector) Replace(ctx context.Context, ownerID string, items []domain.PendingItem) error {
	st := c.ownerState(ownerID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := c.store.Replace(ctx, ownerID, items); err != nil {
		return domain.WrapError(domain.ErrBufferUnavailable, "replace items", err)
	}
	return nil
}

// armTimerLocked starts the one TTL timer for this window. The window
// length is fixed from the first item; later Adds do not restart it.
func (c *Collector) armTimerLocked(st *ownerState, ownerID string) {
	st.epoch++
	epoch := st.epoch
	timerCtx, cancel := context.WithCancel(c.baseCtx)
	st.timerCancel = cancel

	go func() {
		timer := time.NewTimer(c.ttl)
		defer timer.Stop()
		select {
		case <-timerCtx.Done():
			return
		case <-timer.C:
		}
		c.timerFlush(ownerID, epoch)
	}()
}

func (c *Collector) disarmTimerLocked(st *ownerState) {
	st.epoch++
	if st.timerCancel != nil {
		st.timerCancel()
		st.timerCancel = nil
	}
}

func (c *Collector) timerFlush(ownerID string, epoch uint64) {
	st := c.ownerState(ownerID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.epoch != epoch {
		// Batch was flushed, cancelled or replaced while we slept.
		return
	}
	st.timerCancel = nil

	ctx, cancel := context.WithTimeout(c.baseCtx, flushTimeout)
	defer cancel()

	items, err := c.store.Flush(ctx, ownerID)
	if err != nil {
		c.notifyFlushFailure(ctx, ownerID, err)
		return
	}
	if len(items) == 0 {
		return
	}
	c.appendFlushed(ownerID, items)
	c.notifier.NotifySummary(ctx, domain.SummarizeBatch(ownerID, items))
}

// notifyFlushFailure keeps the "batch never silently vanishes" promise
// when the backing store is unreachable at timer expiry.
func (c *Collector) notifyFlushFailure(ctx context.Context, ownerID string, err error) {
	c.notifier.NotifySummary(ctx, domain.BatchSummary{
		OwnerID: ownerID,
		Error:   fmt.Sprintf("batch flush failed: %v", err),
	})
}
