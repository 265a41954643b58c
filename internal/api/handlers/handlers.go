// Package handlers implements the HTTP endpoints of the import service.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/ledgerline/importer/internal/api/middleware"
	"github.com/ledgerline/importer/internal/importer"
	"github.com/ledgerline/importer/internal/jobs"
)

// ImportsHandler handles import job endpoints.
type ImportsHandler struct {
	publisher jobs.Publisher
	store     jobs.JobStore
	registry  *importer.Registry
	log       zerolog.Logger
}

// NewImportsHandler creates a new imports handler.
func NewImportsHandler(publisher jobs.Publisher, store jobs.JobStore, registry *importer.Registry, log zerolog.Logger) *ImportsHandler {
	return &ImportsHandler{
		publisher: publisher,
		store:     store,
		registry:  registry,
		log:       log,
	}
}

type createImportRequest struct {
	LedgerID  string `json:"ledger_id"`
	UserID    string `json:"user_id"`
	Platform  string `json:"platform"`
	SourceURI string `json:"source_uri"`
	Content   string `json:"content"`
	Classify  bool   `json:"classify"`
}

// CreateImport handles POST /api/imports
func (h *ImportsHandler) CreateImport(w http.ResponseWriter, r *http.Request) {
	var req createImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.LedgerID == "" || req.UserID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "ledger_id and user_id are required")
		return
	}
	if _, err := importer.ProfileByID(req.Platform); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Unknown platform: "+req.Platform)
		return
	}
	if req.SourceURI == "" && req.Content == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Either source_uri or content is required")
		return
	}

	job := &jobs.ImportJob{
		LedgerID:  req.LedgerID,
		UserID:    req.UserID,
		Platform:  req.Platform,
		SourceURI: req.SourceURI,
		Content:   []byte(req.Content),
		Classify:  req.Classify,
	}

	if err := h.publisher.PublishImport(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue import job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue import job")
		return
	}

	h.log.Info().
		Str("job_id", job.JobID).
		Str("ledger_id", job.LedgerID).
		Str("platform", job.Platform).
		Msg("Import job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

// GetImport handles GET /api/imports/{id}
func (h *ImportsHandler) GetImport(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Import not found")
		return
	}

	response := map[string]interface{}{"job": job}
	if run, ok := h.registry.Get(jobID); ok {
		snap := run.Snapshot()
		runInfo := map[string]interface{}{
			"state":        string(snap.State),
			"progress":     snap.Progress,
			"transactions": snap.Transactions,
			"duplicates":   snap.PreSkipped,
		}
		// Closest ledger categories for transactions that matched nothing,
		// so the caller can fix them up before the commit.
		if suggestions := run.Suggestions(); len(suggestions) > 0 {
			runInfo["suggestions"] = suggestions
		}
		response["run"] = runInfo
	}

	middleware.WriteJSON(w, http.StatusOK, response)
}

// ListImports handles GET /api/imports
func (h *ImportsHandler) ListImports(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		LedgerID: query.Get("ledger_id"),
		Status:   jobs.JobStatus(query.Get("status")),
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

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list import jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list imports")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"imports": jobsList,
		"count":   len(jobsList),
	})
}

// CancelImport handles POST /api/imports/{id}/cancel
//
// Cancellation only interrupts classification; commits always run to
// completion once started.
func (h *ImportsHandler) CancelImport(w http.ResponseWriter, r *http.Request, jobID string) {
	run, ok := h.registry.Get(jobID)
	if !ok {
		if _, err := h.store.GetJob(r.Context(), jobID); err != nil {
			middleware.WriteError(w, http.StatusNotFound, "Import not found")
			return
		}
		middleware.WriteError(w, http.StatusConflict, "Import is not running")
		return
	}

	run.Cancel()
	h.log.Info().Str("job_id", jobID).Msg("Import cancellation requested")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": jobID,
		"status": "cancelling",
	})
}

// PlatformsHandler handles the platform catalogue endpoint.
type PlatformsHandler struct {
	log zerolog.Logger
}

// NewPlatformsHandler creates a new platforms handler.
func NewPlatformsHandler(log zerolog.Logger) *PlatformsHandler {
	return &PlatformsHandler{log: log}
}

// ListPlatforms handles GET /api/platforms
func (h *PlatformsHandler) ListPlatforms(w http.ResponseWriter, r *http.Request) {
	profiles := importer.Profiles()
	platforms := make([]map[string]string, 0, len(profiles))
	for _, p := range profiles {
		platforms = append(platforms, map[string]string{
			"id":       p.ID,
			"name":     p.Name,
			"encoding": p.Encoding,
		})
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"platforms": platforms,
		"count":     len(platforms),
	})
}
