// Package handlers exposes the budget toolkit and pipeline runs over HTTP.
// Every endpoint answers with the tool envelope; the HTTP status mirrors
// the envelope status.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/dvloznov/smart-budget/internal/api/middleware"
	"github.com/dvloznov/smart-budget/internal/domain"
	"github.com/dvloznov/smart-budget/internal/export"
	"github.com/dvloznov/smart-budget/internal/jobs"
	"github.com/dvloznov/smart-budget/internal/jobs/inmemory"
	"github.com/dvloznov/smart-budget/internal/tools"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MaxBodyBytes caps request bodies, CSV uploads included.
const MaxBodyBytes = 32 << 20

// BudgetHandler handles the toolkit endpoints.
type BudgetHandler struct {
	kit   *tools.Toolkit
	paths PathPolicy
	log   zerolog.Logger
}

// NewBudgetHandler creates a new budget handler. Paths in request bodies
// are resolved through paths.
func NewBudgetHandler(kit *tools.Toolkit, paths PathPolicy, log zerolog.Logger) *BudgetHandler {
	return &BudgetHandler{
		kit:   kit,
		paths: paths,
		log:   log,
	}
}

// Import handles POST /api/import. The body is either JSON {"path": ...}
// naming a file relative to the data directory or a gs:// URI in the
// served bucket, or the CSV itself with a text/csv content type.
func (h *BudgetHandler) Import(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "text/csv" {
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Failed to read request body")
			return
		}
		name := r.URL.Query().Get("name")
		if name == "" {
			name = "upload.csv"
		}
		writeEnvelope(w, h.kit.LoadCSVData(ctx, name, data))
		return
	}

	var req struct {
		Path string `json:"path"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Path == "" {
		middleware.WriteError(w, http.StatusBadRequest, "path is required")
		return
	}
	source, ok := resolvePath(w, h.log, h.paths.Source, req.Path)
	if !ok {
		return
	}

	writeEnvelope(w, h.kit.LoadCSVTransactions(ctx, source))
}

// Categorize handles POST /api/categorize
func (h *BudgetHandler) Categorize(w http.ResponseWriter, r *http.Request) {
	txs, ok := h.readTransactions(w, r)
	if !ok {
		return
	}
	writeEnvelope(w, h.kit.AutoCategorize(r.Context(), txs))
}

// Analyze handles POST /api/analyze
func (h *BudgetHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	txs, ok := h.readTransactions(w, r)
	if !ok {
		return
	}
	writeEnvelope(w, h.kit.ComputeSpendingAnalytics(r.Context(), txs))
}

// Anomalies handles POST /api/anomalies
func (h *BudgetHandler) Anomalies(w http.ResponseWriter, r *http.Request) {
	txs, ok := h.readTransactions(w, r)
	if !ok {
		return
	}
	writeEnvelope(w, h.kit.DetectAnomalies(r.Context(), txs))
}

// ExportTransactions handles POST /api/export/transactions. The body is a
// transaction envelope with an optional "path" relative to the output
// directory.
func (h *BudgetHandler) ExportTransactions(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	var req struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	dest, ok := h.output(w, req.Path)
	if !ok {
		return
	}
	txs, err := tools.ExtractTransactions(body)
	if err != nil {
		h.writeTransactionsError(w, err)
		return
	}

	writeEnvelope(w, h.kit.ExportCategorizedCSV(r.Context(), txs, dest))
}

// ExportAnalytics handles POST /api/export/analytics with a body of
// {"analytics": {...}, "path": "..."}.
func (h *BudgetHandler) ExportAnalytics(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Analytics json.RawMessage `json:"analytics"`
		Path      string          `json:"path"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Analytics) == 0 || string(req.Analytics) == "null" {
		middleware.WriteError(w, http.StatusBadRequest, "analytics is required")
		return
	}
	dest, ok := h.output(w, req.Path)
	if !ok {
		return
	}

	writeEnvelope(w, h.kit.ExportAnalyticsJSON(r.Context(), req.Analytics, dest))
}

// Rules handles GET /api/rules
func (h *BudgetHandler) Rules(w http.ResponseWriter, r *http.Request) {
	writeEnvelope(w, h.kit.ActiveRules())
}

// output resolves an optional export path; "" keeps the toolkit default.
func (h *BudgetHandler) output(w http.ResponseWriter, path string) (string, bool) {
	if path == "" {
		return "", true
	}
	return resolvePath(w, h.log, h.paths.Output, path)
}

func (h *BudgetHandler) readTransactions(w http.ResponseWriter, r *http.Request) ([]domain.Transaction, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read request body")
		return nil, false
	}
	txs, err := tools.ExtractTransactions(body)
	if err != nil {
		h.writeTransactionsError(w, err)
		return nil, false
	}
	return txs, true
}

func (h *BudgetHandler) writeTransactionsError(w http.ResponseWriter, err error) {
	var missing *domain.MissingFieldError
	if errors.As(err, &missing) {
		middleware.WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	h.log.Debug().Err(err).Msg("Rejected transactions payload")
	middleware.WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid transactions: %v", err))
}

// RunsHandler handles pipeline run endpoints.
type RunsHandler struct {
	publisher jobs.Publisher
	store     jobs.JobStore
	paths     PathPolicy
	log       zerolog.Logger
}

// NewRunsHandler creates a new runs handler. Run sources resolve under
// paths.DataDir; runs without an explicit output directory export under
// paths.OutputDir/<job id>.
func NewRunsHandler(publisher jobs.Publisher, store jobs.JobStore, paths PathPolicy, log zerolog.Logger) *RunsHandler {
	return &RunsHandler{
		publisher: publisher,
		store:     store,
		paths:     paths,
		log:       log,
	}
}

// CreateRun handles POST /api/runs
func (h *RunsHandler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Source    string `json:"source"`
		OutputDir string `json:"output_dir"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Source == "" {
		middleware.WriteError(w, http.StatusBadRequest, "source is required")
		return
	}

	source, ok := resolvePath(w, h.log, h.paths.Source, req.Source)
	if !ok {
		return
	}

	ctx := r.Context()

	job := &jobs.PipelineRunJob{
		JobID:     uuid.NewString(),
		Source:    source,
		Status:    jobs.JobStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if req.OutputDir == "" {
		job.OutputDir = export.Join(h.paths.OutputDir, job.JobID)
	} else if job.OutputDir, ok = resolvePath(w, h.log, h.paths.Output, req.OutputDir); !ok {
		return
	}
	// Workers own the job once it is published.
	accepted := *job

	if err := h.publisher.PublishPipelineRun(ctx, job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue pipeline run")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue pipeline run")
		return
	}

	h.log.Info().Str("job_id", accepted.JobID).Str("source", accepted.Source).Msg("Pipeline run enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"status": tools.StatusSuccess,
		"run":    accepted,
	})
}

// GetRun handles GET /api/runs/{id}
func (h *RunsHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")

	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, inmemory.ErrJobNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Run not found")
			return
		}
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get run")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get run")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": tools.StatusSuccess,
		"run":    job,
	})
}

// ListRuns handles GET /api/runs
func (h *RunsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Parse query parameters
	query := r.URL.Query()
	filter := jobs.JobFilter{
		Status: jobs.JobStatus(query.Get("status")),
	}

	// Stored sources are resolved paths
	if source := query.Get("source"); source != "" {
		resolved, ok := resolvePath(w, h.log, h.paths.Source, source)
		if !ok {
			return
		}
		filter.Source = resolved
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	runs, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list runs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": tools.StatusSuccess,
		"runs":   runs,
		"count":  len(runs),
	})
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// StatusFor maps an envelope to its HTTP status.
func StatusFor(resp tools.Response) int {
	if resp.OK() {
		return http.StatusOK
	}

	var (
		schemaErr  *domain.SchemaInferenceError
		missingErr *domain.MissingFieldError
		ioErr      *domain.IOFailure
	)
	switch {
	case errors.As(resp.Err, &schemaErr), errors.As(resp.Err, &missingErr):
		return http.StatusUnprocessableEntity
	case errors.As(resp.Err, &ioErr) && errors.Is(ioErr, fs.ErrNotExist):
		return http.StatusBadRequest
	case errors.As(resp.Err, &ioErr) && ioErr.Op == "parse CSV":
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// resolvePath applies resolve and answers 400 when the path is not served.
func resolvePath(w http.ResponseWriter, log zerolog.Logger, resolve func(string) (string, error), path string) (string, bool) {
	resolved, err := resolve(path)
	if err != nil {
		log.Warn().Err(err).Msg("Rejected request path")
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return resolved, true
}

func writeEnvelope(w http.ResponseWriter, resp tools.Response) {
	middleware.WriteJSON(w, StatusFor(resp), resp)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes)).Decode(v)
}
