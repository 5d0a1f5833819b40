package service

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/codeindex/internal/domain"
	"github.com/cloo-solutions/codeindex/internal/telemetry"
	"github.com/rs/zerolog"
)

// IndexingService embeds chunks and stores them in the configured collection.
type IndexingService struct {
	embedder    EmbeddingClient
	collections CollectionRepositoryInterface
	chunks      ChunkRepositoryInterface
	collection  string
	metadata    map[string]any
}

func NewIndexingService(
	embedder EmbeddingClient,
	collections CollectionRepositoryInterface,
	chunks ChunkRepositoryInterface,
	collection string,
) *IndexingService {
	if collection == "" {
		collection = domain.DefaultCollectionName
	}
	return &IndexingService{
		embedder:    embedder,
		collections: collections,
		chunks:      chunks,
		collection:  collection,
		metadata:    map[string]any{"description": domain.DefaultCollectionDescription},
	}
}

// Index embeds all chunks in one batch and upserts them. It returns the number
// of chunks in the request, counting repeated ids once per occurrence; only the
// last occurrence of a repeated id is stored.
func (s *IndexingService) Index(ctx context.Context, requestID string, chunks []domain.Chunk) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "index.pipeline", telemetry.SpanAttributes{
		RequestID:  requestID,
		Collection: s.collection,
		ChunkCount: len(chunks),
	})
	defer span.End()

	count, err := s.index(ctx, chunks)
	if err != nil {
		span.SetError(err)
		return 0, err
	}
	return count, nil
}

func (s *IndexingService) index(ctx context.Context, chunks []domain.Chunk) (int, error) {
	logger := zerolog.Ctx(ctx)
	if len(chunks) == 0 {
		return 0, domain.ErrNoChunks
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	embedCtx, embedSpan := telemetry.StartSpan(ctx, "index.embed", telemetry.SpanAttributes{Operation: "embed"})
	vectors, err := s.embedder.EmbedBatch(embedCtx, texts)
	embedSpan.End()
	if err != nil {
		return 0, domain.NewDomainErrorWithCause(domain.ErrCodePipeline, "embedding failed", err)
	}
	if len(vectors) != len(chunks) {
		return 0, domain.Wrap(domain.ErrEmbeddingCount, fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks)))
	}

	dims := len(vectors[0])
	collection, err := s.collections.GetOrCreate(ctx, s.collection, dims, s.metadata)
	if err != nil {
		return 0, domain.NewDomainErrorWithCause(domain.ErrCodePipeline, "failed to open collection "+s.collection, err)
	}
	if collection.Dimensions != dims {
		return 0, domain.Wrap(domain.ErrDimensionMismatch,
			fmt.Errorf("collection %s stores %d, model produced %d", collection.Name, collection.Dimensions, dims))
	}

	records := make([]domain.ChunkRecord, len(chunks))
	for i, c := range chunks {
		records[i] = domain.ChunkRecord{Chunk: c, Embedding: vectors[i]}
	}
	records = domain.LatestByID(records)

	upsertCtx, upsertSpan := telemetry.StartSpan(ctx, "index.upsert", telemetry.SpanAttributes{Operation: "upsert"})
	err = s.chunks.Upsert(upsertCtx, collection.ID, records)
	upsertSpan.End()
	if err != nil {
		return 0, domain.NewDomainErrorWithCause(domain.ErrCodePipeline, "failed to store chunks", err)
	}

	logger.Debug().
		Str("collection", collection.Name).
		Int("chunks", len(chunks)).
		Int("stored", len(records)).
		Msg("chunks indexed")

	return len(chunks), nil
}
