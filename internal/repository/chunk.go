package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloo-solutions/codeindex/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ChunkRepository stores chunk embeddings keyed by (collection, chunk id).
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx dbtx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

const upsertChunkSQL = `
	INSERT INTO chunks (collection_id, id, content, metadata, embedding, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $6)
	ON CONFLICT (collection_id, id) DO UPDATE SET
		content = EXCLUDED.content,
		metadata = EXCLUDED.metadata,
		embedding = EXCLUDED.embedding,
		updated_at = EXCLUDED.updated_at`

// Upsert writes all records in one transaction. A record whose id is already
// stored replaces it; later records in the slice win over earlier ones.
func (r *ChunkRepository) Upsert(ctx context.Context, collectionID string, records []domain.ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(upsertChunkSQL,
			collectionID,
			rec.ID,
			rec.Content,
			nonNilMetadata(rec.Metadata),
			pgvector.NewVector(rec.Embedding),
			now,
		)
	}

	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		results := tx.SendBatch(ctx, batch)
		for i := range records {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("upsert chunk %q: %w", records[i].ID, err)
			}
		}
		return results.Close()
	})
}

// Query returns the k chunks nearest to embedding by cosine distance.
func (r *ChunkRepository) Query(ctx context.Context, collectionID string, embedding []float32, k int) ([]*domain.QueryResult, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, content, metadata, embedding <=> $2 AS distance
		 FROM chunks
		 WHERE collection_id = $1
		 ORDER BY distance
		 LIMIT $3`,
		collectionID, pgvector.NewVector(embedding), k,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.QueryResult
	for rows.Next() {
		var res domain.QueryResult
		if err := rows.Scan(&res.ID, &res.Document, &res.Metadata, &res.Distance); err != nil {
			return nil, err
		}
		results = append(results, &res)
	}

	return results, rows.Err()
}

func (r *ChunkRepository) Count(ctx context.Context, collectionID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM chunks WHERE collection_id = $1`,
		collectionID,
	).Scan(&count)
	return count, err
}

// Get returns one stored chunk, or nil when the id is unknown.
func (r *ChunkRepository) Get(ctx context.Context, collectionID, id string) (*domain.Chunk, error) {
	var c domain.Chunk
	err := r.db.QueryRow(ctx,
		`SELECT id, content, metadata FROM chunks WHERE collection_id = $1 AND id = $2`,
		collectionID, id,
	).Scan(&c.ID, &c.Content, &c.Metadata)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}
