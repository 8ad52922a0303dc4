package handler

import (
	"encoding/json"
	"net/http"

	"github.com/yndnr/snapmesh-go/internal/core/domain"
	"github.com/yndnr/snapmesh-go/internal/core/service"
)

func summarize(snap *domain.GlobalSnapshot) SnapshotSummary {
	return SnapshotSummary{
		SessionID:    snap.SessionID,
		Initiator:    snap.Initiator,
		Status:       snap.Status,
		StartedAt:    snap.StartedAt,
		CompletedAt:  snap.CompletedAt,
		ProcessCount: snap.ProcessCount(),
		MessageCount: snap.MessageCount(),
	}
}

func detail(snap *domain.GlobalSnapshot) SnapshotDetail {
	d := SnapshotDetail{SnapshotSummary: summarize(snap)}
	for _, c := range snap.Contributions {
		view := ContributionView{
			ProcessID:   c.ProcessID,
			LocalState:  c.LocalState,
			ChannelLogs: make(map[domain.ChannelID]int, len(c.ChannelLogs)),
			RecordedAt:  c.RecordedAt,
			FinalizedAt: c.FinalizedAt,
		}
		for channel, log := range c.ChannelLogs {
			view.ChannelLogs[channel] = len(log)
		}
		d.Contributions = append(d.Contributions, view)
	}
	return d
}

func (h *Handler) handleInitiate(w http.ResponseWriter, r *http.Request) {
	var req InitiateSnapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "SM-ARG-1001", "invalid request body")
		return
	}

	resp, err := h.svc.Initiate(r.Context(), &service.InitiateRequest{
		Initiator: domain.ProcessID(req.Initiator),
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusAccepted, resp)
}

func (h *Handler) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	snaps := h.svc.List(r.Context())

	resp := ListSnapshotsResponse{Total: len(snaps)}
	for _, snap := range snaps {
		resp.Items = append(resp.Items, summarize(snap))
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, detail(snap))
}

func (h *Handler) handleListProcesses(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, ListProcessesResponse{Processes: h.svc.Processes()})
}

func (h *Handler) handleListArchive(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		h.writeError(w, r, http.StatusServiceUnavailable, "SM-SYS-5030", "archive disabled")
		return
	}

	summaries, err := h.archive.List(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, summaries)
}

func (h *Handler) handleGetArchived(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		h.writeError(w, r, http.StatusServiceUnavailable, "SM-SYS-5030", "archive disabled")
		return
	}

	id := domain.NormalizeSessionID(r.PathValue("id"))
	if !domain.IsValidSessionID(string(id)) {
		h.writeError(w, r, http.StatusBadRequest, "SM-SESS-4000", "invalid session id")
		return
	}

	snap, err := h.archive.Load(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, detail(snap))
}
