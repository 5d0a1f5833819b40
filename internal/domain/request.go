package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// RequestMeta carries optional request metadata.
type RequestMeta struct {
	ID string `json:"id,omitempty"`
}

// Request is one decoded input line.
type Request struct {
	Meta   *RequestMeta `json:"meta,omitempty"`
	Chunks []Chunk      `json:"chunks"`
}

// CorrelationID returns meta.id, or an empty string when none was sent.
func (r *Request) CorrelationID() string {
	if r == nil || r.Meta == nil {
		return ""
	}
	return r.Meta.ID
}

// Validate checks the request has at least one valid chunk.
func (r *Request) Validate() error {
	if len(r.Chunks) == 0 {
		return ErrNoChunks
	}
	for i, c := range r.Chunks {
		if err := c.Validate(); err != nil {
			return NewDomainErrorWithCause(ErrCodeValidation, fmt.Sprintf("chunk %d", i), err)
		}
	}
	return nil
}

// ParseRequest decodes a single request line. On a decode error the returned
// request is still non-nil and holds whatever fields decoded before the
// failure, so callers can recover a correlation id on a best-effort basis.
func ParseRequest(line []byte) (*Request, error) {
	var req Request
	if len(bytes.TrimSpace(line)) == 0 {
		return &req, ErrEmptyLine
	}

	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		return &req, Wrap(ErrInvalidJSON, describeDecodeError(err))
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return &req, Wrap(ErrInvalidJSON, errors.New("unexpected data after JSON value"))
	}

	return &req, nil
}

func describeDecodeError(err error) error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		return fmt.Errorf("%s (offset %d)", syntaxErr.Error(), syntaxErr.Offset)
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "request"
		}
		return fmt.Errorf("%s must be %s, got %s", field, describeType(typeErr.Type.Kind().String()), typeErr.Value)
	case errors.Is(err, io.ErrUnexpectedEOF):
		return errors.New("unexpected end of input")
	default:
		return err
	}
}

func describeType(kind string) string {
	switch kind {
	case "struct", "map", "ptr":
		return "an object"
	case "slice":
		return "an array"
	default:
		return "a " + strings.ToLower(kind)
	}
}
