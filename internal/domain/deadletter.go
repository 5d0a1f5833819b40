package domain

import "time"

// DeadLetter records a request line that produced an error response.
type DeadLetter struct {
	ID         string    `json:"id"`
	Code       string    `json:"code,omitempty"`
	Message    string    `json:"message"`
	Line       string    `json:"line"`
	ReceivedAt time.Time `json:"received_at"`
}
