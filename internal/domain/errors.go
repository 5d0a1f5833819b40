package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches another DomainError by code and message so wrapped sentinels
// still compare equal after a cause has been attached.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// Description renders the error without codes, for the parent process.
func (e *DomainError) Description() string {
	if e.Err != nil {
		return e.Message + ": " + Describe(e.Err)
	}
	return e.Message
}

// Describe renders err for an error response. DomainErrors are rendered by
// Description, anything else by Error.
func Describe(err error) string {
	if de, ok := err.(*DomainError); ok {
		return de.Description()
	}
	return err.Error()
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeParse      = "PARSE_ERROR"
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodePipeline   = "PIPELINE_ERROR"
	ErrCodeStartup    = "STARTUP_ERROR"
	ErrCodeNotFound   = "NOT_FOUND"
)

// Protocol errors
var (
	ErrInvalidJSON       = NewDomainError(ErrCodeParse, "invalid JSON")
	ErrEmptyLine         = NewDomainError(ErrCodeParse, "empty request line")
	ErrNoChunks          = NewDomainError(ErrCodeValidation, "no chunks provided")
	ErrMissingChunkID    = NewDomainError(ErrCodeValidation, "chunk id is required")
	ErrNestedMetadata    = NewDomainError(ErrCodeValidation, "metadata values must be string, number, boolean or null")
	ErrEmbeddingCount    = NewDomainError(ErrCodePipeline, "embedding count does not match chunk count")
	ErrDimensionMismatch = NewDomainError(ErrCodePipeline, "embedding dimension does not match collection")
)

// Startup errors
var (
	ErrModelLoad             = NewDomainError(ErrCodeStartup, "failed to load embedding model")
	ErrDependencyUnavailable = NewDomainError(ErrCodeStartup, "vector store did not become ready")
	ErrMigrationFailed       = NewDomainError(ErrCodeStartup, "failed to migrate vector store schema")
)

// Not found errors
var (
	ErrCollectionNotFound = NewDomainError(ErrCodeNotFound, "collection not found")
	ErrChunkNotFound      = NewDomainError(ErrCodeNotFound, "chunk not found")
)

// Wrap attaches a cause to a sentinel DomainError, keeping its code and message.
func Wrap(sentinel *DomainError, err error) *DomainError {
	return NewDomainErrorWithCause(sentinel.Code, sentinel.Message, err)
}

// CodeOf returns the DomainError code in err's chain, or an empty string.
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
