package handler

import (
	"net/http"

	"github.com/yndnr/snapmesh-go/internal/infra/buildinfo"
)

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	// The mesh runs in-process; once the handler is serving, the
	// service behind it is up.
	h.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, buildinfo.Get())
}
