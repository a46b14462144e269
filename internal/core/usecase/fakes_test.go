package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/kirillkom/drive-filing-bot/internal/core/domain"
	"github.com/kirillkom/drive-filing-bot/internal/infrastructure/resilience"
)

func newTestExecutor() *resilience.Executor {
	return resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: 1,
		RetryMaxBackoff:     1,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	})
}

func retryAllClassifier(error) resilience.ErrorClassification {
	return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
}

type fakeBatchStore struct {
	mu        sync.Mutex
	items     map[string][]domain.PendingItem
	appendErr error
	flushErr  error
}

func newFakeBatchStore() *fakeBatchStore {
	return &fakeBatchStore{items: make(map[string][]domain.PendingItem)}
}

func (s *fakeBatchStore) Append(_ context.Context, ownerID string, item domain.PendingItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	s.items[ownerID] = append(s.items[ownerID], item)
	return nil
}

func (s *fakeBatchStore) Items(_ context.Context, ownerID string) ([]domain.PendingItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.PendingItem(nil), s.items[ownerID]...), nil
}

func (s *fakeBatchStore) Replace(_ context.Context, ownerID string, items []domain.PendingItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[ownerID] = append([]domain.PendingItem(nil), items...)
	return nil
}

func (s *fakeBatchStore) Flush(_ context.Context, ownerID string) ([]domain.PendingItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flushErr != nil {
		return nil, s.flushErr
	}
	items := s.items[ownerID]
	delete(s.items, ownerID)
	return items, nil
}

func (s *fakeBatchStore) Size(_ context.Context, ownerID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items[ownerID]), nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	summaries []domain.BatchSummary
	reports   [][]domain.UploadResult
}

func (n *fakeNotifier) NotifySummary(_ context.Context, summary domain.BatchSummary) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.summaries = append(n.summaries, summary)
}

func (n *fakeNotifier) NotifyReport(_ context.Context, _ string, results []domain.UploadResult) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reports = append(n.reports, results)
}

func (n *fakeNotifier) summaryCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.summaries)
}

func (n *fakeNotifier) lastSummary() domain.BatchSummary {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.summaries) == 0 {
		return domain.BatchSummary{}
	}
	return n.summaries[len(n.summaries)-1]
}

type fakeStaging struct {
	mu      sync.Mutex
	files   map[string][]byte
	removed []string
	saveErr error
}

func newFakeStaging() *fakeStaging {
	return &fakeStaging{files: make(map[string][]byte)}
}

func (s *fakeStaging) Save(_ context.Context, key string, r io.Reader) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[key] = data
	return nil
}

func (s *fakeStaging) Open(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[key]
	if !ok {
		return nil, fmt.Errorf("no staged file %q", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeStaging) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, key)
	s.removed = append(s.removed, key)
	return nil
}

func (s *fakeStaging) removedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.removed)
}

type fakeRemote struct {
	mu          sync.Mutex
	folders     map[string][]domain.RemoteFolder
	nextID      int
	createCalls int
	listCalls   int
	uploadErrs  map[string]error
	uploaded    []string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		folders:    make(map[string][]domain.RemoteFolder),
		uploadErrs: make(map[string]error),
	}
}

func (r *fakeRemote) ListChildFolders(_ context.Context, parentID string) ([]domain.RemoteFolder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	return append([]domain.RemoteFolder(nil), r.folders[parentID]...), nil
}

func (r *fakeRemote) CreateFolder(_ context.Context, parentID, name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createCalls++
	r.nextID++
	id := fmt.Sprintf("folder-%d", r.nextID)
	r.folders[parentID] = append(r.folders[parentID], domain.RemoteFolder{ID: id, Name: name})
	return id, nil
}

func (r *fakeRemote) UploadFile(_ context.Context, folderID, name string, _ io.Reader) (domain.RemoteFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.uploadErrs[name]; ok {
		return domain.RemoteFile{}, err
	}
	r.uploaded = append(r.uploaded, folderID+"/"+name)
	return domain.RemoteFile{
		ID:       "file-" + name,
		Name:     name,
		ViewLink: "https://drive.example/" + name,
	}, nil
}

type fakeExtractor struct {
	text string
	err  error
}

func (e *fakeExtractor) Extract(context.Context, string, string) (string, error) {
	return e.text, e.err
}

type fakeRepo struct {
	mu       sync.Mutex
	batches  map[string]*domain.Batch
	results  map[string][]domain.UploadResult
	statuses map[string][]domain.BatchStatus
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		batches:  make(map[string]*domain.Batch),
		results:  make(map[string][]domain.UploadResult),
		statuses: make(map[string][]domain.BatchStatus),
	}
}

func (r *fakeRepo) CreateBatch(_ context.Context, batch *domain.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *batch
	r.batches[batch.ID] = &copied
	return nil
}

func (r *fakeRepo) GetBatch(_ context.Context, id string) (*domain.Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	batch, ok := r.batches[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrBatchNotFound, "get batch", fmt.Errorf("id %q", id))
	}
	copied := *batch
	return &copied, nil
}

func (r *fakeRepo) UpdateBatchStatus(_ context.Context, id string, status domain.BatchStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	batch, ok := r.batches[id]
	if !ok {
		return domain.WrapError(domain.ErrBatchNotFound, "update batch status", fmt.Errorf("id %q", id))
	}
	batch.Status = status
	r.statuses[id] = append(r.statuses[id], status)
	return nil
}

func (r *fakeRepo) SaveResults(_ context.Context, batchID string, results []domain.UploadResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[batchID] = append([]domain.UploadResult(nil), results...)
	return nil
}

func (r *fakeRepo) ListResults(_ context.Context, batchID string) ([]domain.UploadResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.UploadResult(nil), r.results[batchID]...), nil
}

type fakeQueue struct {
	mu        sync.Mutex
	published []string
}

func (q *fakeQueue) PublishBatchReady(_ context.Context, batchID, _ string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.published = append(q.published, batchID)
	return nil
}

func (q *fakeQueue) SubscribeBatchReady(context.Context, func(context.Context, string, string) error) error {
	return nil
}

func mustIdentity(principal, agent, doctype, number, date, ext string) *domain.DocumentIdentity {
	identity, err := domain.NewDocumentIdentity(principal, agent, doctype, number, date, ext)
	if err != nil {
		panic(err)
	}
	return identity
}
