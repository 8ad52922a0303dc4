package handler

import (
	"time"

	"github.com/yndnr/snapmesh-go/internal/core/domain"
)

// Response is the standard API response envelope. All JSON endpoints
// use it; /metrics speaks Prometheus text format instead.
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
	}
}

// InitiateSnapshotRequest is the body of POST /v1/snapshots.
type InitiateSnapshotRequest struct {
	Initiator string `json:"initiator"`
}

// SnapshotSummary is one session in list responses.
type SnapshotSummary struct {
	SessionID    domain.SessionID      `json:"session_id"`
	Initiator    domain.ProcessID      `json:"initiator"`
	Status       domain.SnapshotStatus `json:"status"`
	StartedAt    int64                 `json:"started_at"`
	CompletedAt  int64                 `json:"completed_at,omitempty"`
	ProcessCount int                   `json:"process_count"`
	MessageCount int                   `json:"message_count"`
}

// ContributionView is one process's part of a snapshot in detail
// responses. LocalState is base64 of the captured opaque state.
type ContributionView struct {
	ProcessID   domain.ProcessID         `json:"process_id"`
	LocalState  []byte                   `json:"local_state"`
	ChannelLogs map[domain.ChannelID]int `json:"channel_logs"`
	RecordedAt  int64                    `json:"recorded_at"`
	FinalizedAt int64                    `json:"finalized_at"`
}

// SnapshotDetail is the body of GET /v1/snapshots/{id}.
type SnapshotDetail struct {
	SnapshotSummary
	Contributions []ContributionView `json:"contributions"`
}

// ListSnapshotsResponse is the body of GET /v1/snapshots.
type ListSnapshotsResponse struct {
	Items []SnapshotSummary `json:"items"`
	Total int               `json:"total"`
}

// ListProcessesResponse is the body of GET /v1/processes.
type ListProcessesResponse struct {
	Processes []domain.ProcessID `json:"processes"`
}
