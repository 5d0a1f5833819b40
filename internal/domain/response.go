package domain

import (
	"encoding/json"
	"fmt"
)

// Wire status values.
const (
	StatusReady   = "READY"
	StatusSuccess = "success"
	StatusError   = "error"
)

// ReadyMessage is the handshake line written once the daemon accepts requests.
type ReadyMessage struct {
	Status string `json:"status"`
}

// NewReadyMessage returns the handshake message.
func NewReadyMessage() ReadyMessage {
	return ReadyMessage{Status: StatusReady}
}

// Response is the outcome of exactly one request. It is either a
// SuccessResponse or an ErrorResponse.
type Response interface {
	CorrelationID() string
	isResponse()
}

// SuccessResponse reports how many chunks a request indexed.
type SuccessResponse struct {
	ID           string
	IndexedCount int
}

func (r SuccessResponse) CorrelationID() string { return r.ID }
func (SuccessResponse) isResponse()             {}

// MarshalJSON writes {"id","status":"success","indexed_count"}.
func (r SuccessResponse) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireResponse{
		ID:           r.ID,
		Status:       StatusSuccess,
		IndexedCount: &r.IndexedCount,
	})
}

// ErrorResponse reports a request that failed. The daemon keeps serving.
type ErrorResponse struct {
	ID      string
	Message string
}

func (r ErrorResponse) CorrelationID() string { return r.ID }
func (ErrorResponse) isResponse()             {}

// MarshalJSON writes {"id","status":"error","message"}.
func (r ErrorResponse) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireResponse{
		ID:      r.ID,
		Status:  StatusError,
		Message: r.Message,
	})
}

type wireResponse struct {
	ID           string `json:"id,omitempty"`
	Status       string `json:"status"`
	IndexedCount *int   `json:"indexed_count,omitempty"`
	Message      string `json:"message,omitempty"`
}

// DecodeResponse parses one response line as written by the daemon.
func DecodeResponse(line []byte) (Response, error) {
	var w wireResponse
	if err := json.Unmarshal(line, &w); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	switch w.Status {
	case StatusSuccess:
		count := 0
		if w.IndexedCount != nil {
			count = *w.IndexedCount
		}
		return SuccessResponse{ID: w.ID, IndexedCount: count}, nil
	case StatusError:
		return ErrorResponse{ID: w.ID, Message: w.Message}, nil
	default:
		return nil, fmt.Errorf("unexpected response status %q", w.Status)
	}
}
