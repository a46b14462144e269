package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/kirillkom/drive-filing-bot/internal/core/domain"
	"github.com/kirillkom/drive-filing-bot/internal/core/ports"
	"github.com/kirillkom/drive-filing-bot/internal/core/usecase"
	"github.com/kirillkom/drive-filing-bot/internal/observability/metrics"
)

// Router exposes the filing pipeline over JSON endpoints. Flushed items
// stay in the collector's custody between flush and confirm; the router
// only reads them back, so batches closed by the TTL timer or the hard
// cap go through the same correction and confirm path as manual flushes.
type Router struct {
	submitter   ports.FileSubmitter
	collector   ports.BatchCollector
	corrections *usecase.CorrectionWorkflow
	confirmUC   *usecase.ConfirmBatchUseCase
	repo        ports.BatchRepository

	serverMetrics *metrics.HTTPServerMetrics
	service       string
}

func NewRouter(
	submitter ports.FileSubmitter,
	collector ports.BatchCollector,
	corrections *usecase.CorrectionWorkflow,
	confirmUC *usecase.ConfirmBatchUseCase,
	repo ports.BatchRepository,
) *Router {
	return &Router{
		submitter:   submitter,
		collector:   collector,
		corrections: corrections,
		confirmUC:   confirmUC,
		repo:        repo,
	}
}

func (rt *Router) WithMetrics(m *metrics.HTTPServerMetrics, service string) *Router {
	rt.serverMetrics = m
	rt.service = service
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/files", rt.submitFile)
	mux.HandleFunc("/v1/batches/flush", rt.flushBatch)
	mux.HandleFunc("/v1/batches/cancel", rt.cancelBatch)
	mux.HandleFunc("/v1/batches/confirm", rt.confirmBatch)
	mux.HandleFunc("/v1/corrections/start", rt.startCorrections)
	mux.HandleFunc("/v1/corrections/reply", rt.replyCorrections)
	mux.HandleFunc("/v1/batches/", rt.batchReport)

	var handler http.Handler = mux
	if rt.serverMetrics != nil {
		handler = rt.serverMetrics.Middleware(rt.service, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) submitFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	ownerID := strings.TrimSpace(r.FormValue("owner_id"))
	if ownerID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "form field 'owner_id' is required"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	ack, err := rt.submitter.Submit(r.Context(), ownerID, fileHeader.Filename, fileHeader.Size, file)
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.serverMetrics != nil {
		rt.serverMetrics.RecordSubmission(rt.service, ack.Recognized)
	}
	writeJSON(w, http.StatusAccepted, ack)
}

func (rt *Router) flushBatch(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := rt.ownerFromBody(w, r)
	if !ok {
		return
	}

	items, err := rt.collector.Flush(r.Context(), ownerID)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(items) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"owner_id": ownerID, "items": []domain.PendingItem{}})
		return
	}

	if rt.serverMetrics != nil {
		rt.serverMetrics.RecordBatchFlush(rt.service, "manual")
	}
	writeJSON(w, http.StatusOK, domain.SummarizeBatch(ownerID, items))
}

func (rt *Router) cancelBatch(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := rt.ownerFromBody(w, r)
	if !ok {
		return
	}

	if err := rt.collector.Cancel(r.Context(), ownerID); err != nil {
		writeError(w, err)
		return
	}
	rt.corrections.Cancel(r.Context(), ownerID)

	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (rt *Router) confirmBatch(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := rt.ownerFromBody(w, r)
	if !ok {
		return
	}

	items := rt.collector.TakeFlushed(r.Context(), ownerID)
	if len(items) == 0 {
		writeError(w, domain.WrapError(domain.ErrWorkflowViolation, "http.confirm", errNoFlushedBatch))
		return
	}

	batch, err := rt.confirmUC.Confirm(r.Context(), ownerID, items)
	if err != nil {
		rt.collector.ParkFlushed(r.Context(), ownerID, items)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"batch_id": batch.ID,
		"status":   string(batch.Status),
	})
}

func (rt *Router) startCorrections(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := rt.ownerFromBody(w, r)
	if !ok {
		return
	}

	items := rt.collector.PeekFlushed(r.Context(), ownerID)
	if len(items) == 0 {
		writeError(w, domain.WrapError(domain.ErrWorkflowViolation, "http.corrections_start", errNoFlushedBatch))
		return
	}

	prompt, err := rt.corrections.Start(r.Context(), ownerID, items)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prompt)
}

func (rt *Router) replyCorrections(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		OwnerID string `json:"owner_id"`
		Text    string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.OwnerID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "owner_id is required"})
		return
	}

	prompt, err := rt.corrections.Reply(r.Context(), req.OwnerID, req.Text)
	if err != nil {
		if rt.serverMetrics != nil {
			rt.serverMetrics.RecordCorrectionReply(rt.service, "error")
		}
		writeError(w, err)
		return
	}

	if prompt.State == domain.CorrectionDone {
		if items, done := rt.corrections.Finalized(req.OwnerID); done {
			rt.collector.ParkFlushed(r.Context(), req.OwnerID, items)
		}
	}
	if rt.serverMetrics != nil {
		rt.serverMetrics.RecordCorrectionReply(rt.service, string(prompt.State))
	}
	writeJSON(w, http.StatusOK, prompt)
}

func (rt *Router) batchReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/batches/")
	batchID := strings.TrimSuffix(rest, "/report")
	if batchID == "" || batchID == rest {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	batch, err := rt.repo.GetBatch(r.Context(), batchID)
	if err != nil {
		writeError(w, err)
		return
	}
	results, err := rt.repo.ListResults(r.Context(), batchID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"batch_id": batch.ID,
		"owner_id": batch.OwnerID,
		"status":   string(batch.Status),
		"results":  results,
	})
}

func (rt *Router) ownerFromBody(w http.ResponseWriter, r *http.Request) (string, bool) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return "", false
	}

	var req struct {
		OwnerID string `json:"owner_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return "", false
	}
	ownerID := strings.TrimSpace(req.OwnerID)
	if ownerID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "owner_id is required"})
		return "", false
	}
	return ownerID, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
