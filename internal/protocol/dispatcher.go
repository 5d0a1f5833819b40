package protocol

import (
	"context"
	"time"

	"github.com/cloo-solutions/codeindex/internal/domain"
	"github.com/cloo-solutions/codeindex/internal/telemetry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Indexer runs the indexing pipeline for one request.
type Indexer interface {
	Index(ctx context.Context, requestID string, chunks []domain.Chunk) (int, error)
}

// Archiver keeps a copy of requests that failed.
type Archiver interface {
	Archive(ctx context.Context, entry domain.DeadLetter) (string, error)
}

// Dispatcher turns one request line into exactly one response. It never
// returns an error: every failure becomes an ErrorResponse.
type Dispatcher struct {
	indexer Indexer
	archive Archiver
	newID   func() string
	now     func() time.Time
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithArchive archives failed requests.
func WithArchive(a Archiver) DispatcherOption {
	return func(d *Dispatcher) { d.archive = a }
}

// WithIDGenerator replaces the UUID generator for requests without meta.id.
func WithIDGenerator(newID func() string) DispatcherOption {
	return func(d *Dispatcher) { d.newID = newID }
}

func NewDispatcher(indexer Indexer, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		indexer: indexer,
		newID:   uuid.NewString,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handle parses, validates and indexes one request line.
func (d *Dispatcher) Handle(ctx context.Context, line string) domain.Response {
	start := d.now()

	req, err := domain.ParseRequest([]byte(line))
	id := req.CorrelationID()
	if id == "" {
		id = d.newID()
	}

	logger := zerolog.Ctx(ctx).With().Str("request_id", id).Logger()
	ctx = logger.WithContext(ctx)
	ctx, span := telemetry.StartSpan(ctx, "index.request", telemetry.SpanAttributes{
		RequestID:  id,
		ChunkCount: len(req.Chunks),
	})
	defer span.End()

	if err == nil {
		err = req.Validate()
	}

	var count int
	if err == nil {
		count, err = d.indexer.Index(ctx, id, req.Chunks)
	}

	if err != nil {
		return d.fail(ctx, id, line, err, start)
	}

	logger.Info().
		Int("chunks", count).
		Int64("duration_ms", d.now().Sub(start).Milliseconds()).
		Msg("request indexed")

	return domain.SuccessResponse{ID: id, IndexedCount: count}
}

func (d *Dispatcher) fail(ctx context.Context, id, line string, err error, start time.Time) domain.Response {
	logger := zerolog.Ctx(ctx)
	message := domain.Describe(err)

	logger.Warn().
		Str("code", domain.CodeOf(err)).
		Str("error", message).
		Int64("duration_ms", d.now().Sub(start).Milliseconds()).
		Msg("request failed")

	if d.archive != nil {
		key, archiveErr := d.archive.Archive(ctx, domain.DeadLetter{
			ID:         id,
			Code:       domain.CodeOf(err),
			Message:    message,
			Line:       line,
			ReceivedAt: start,
		})
		if archiveErr != nil {
			logger.Error().Err(archiveErr).Msg("failed to archive request")
		} else {
			logger.Debug().Str("key", key).Msg("request archived")
		}
	}

	return domain.ErrorResponse{ID: id, Message: message}
}
