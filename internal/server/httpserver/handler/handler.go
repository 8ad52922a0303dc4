// Package handler implements the admin HTTP API: triggering snapshot
// sessions and inspecting live and archived results.
package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/yndnr/snapmesh-go/internal/core/domain"
	"github.com/yndnr/snapmesh-go/internal/core/service"
	"github.com/yndnr/snapmesh-go/internal/storage/archive"
	"github.com/yndnr/snapmesh-go/internal/telemetry/logger"
)

// Handler routes admin API requests to the snapshot service.
type Handler struct {
	svc     *service.SnapshotService
	archive *archive.Archive
	log     logger.Logger
	mux     *http.ServeMux
}

// New creates a handler. The archive may be nil when history is
// disabled; its endpoints then answer 503.
func New(svc *service.SnapshotService, arch *archive.Archive, log logger.Logger) *Handler {
	h := &Handler{
		svc:     svc,
		archive: arch,
		log:     log,
		mux:     http.NewServeMux(),
	}
	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)
	h.mux.HandleFunc("GET /version", h.handleVersion)

	h.mux.HandleFunc("POST /v1/snapshots", h.handleInitiate)
	h.mux.HandleFunc("GET /v1/snapshots", h.handleListSnapshots)
	h.mux.HandleFunc("GET /v1/snapshots/{id}", h.handleGetSnapshot)

	h.mux.HandleFunc("GET /v1/processes", h.handleListProcesses)

	h.mux.HandleFunc("GET /v1/archive", h.handleListArchive)
	h.mux.HandleFunc("GET /v1/archive/{id}", h.handleGetArchived)
}

// writeJSON writes a success response in the standard envelope.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := getRequestID(r)
	response := NewResponse(requestID, data)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error("failed to encode response", "error", err)
	}
}

// writeError writes an error response in the standard envelope.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	requestID := getRequestID(r)
	response := NewErrorResponse(requestID, code, message)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// handleServiceError maps domain errors onto HTTP statuses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if domain.IsDomainError(err, "") {
		code := domain.GetErrorCode(err)
		h.writeError(w, r, errorCodeToHTTPStatus(code), code, err.Error())
		return
	}

	h.log.Error("internal error", "error", err)
	h.writeError(w, r, http.StatusInternalServerError, "SM-SYS-5000", "internal server error")
}

func errorCodeToHTTPStatus(code string) int {
	switch {
	case strings.HasSuffix(code, "-4040"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "-4090"), strings.HasSuffix(code, "-4091"):
		return http.StatusConflict
	case strings.HasSuffix(code, "-4000"), strings.HasSuffix(code, "-4001"):
		return http.StatusBadRequest
	case strings.HasSuffix(code, "-4100"):
		return http.StatusGone
	case strings.HasSuffix(code, "-5030"):
		return http.StatusServiceUnavailable
	case strings.HasPrefix(code, "SM-ARG-"):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func getRequestID(r *http.Request) string {
	if reqID := r.Header.Get("X-Request-ID"); reqID != "" {
		return reqID
	}
	return ""
}
