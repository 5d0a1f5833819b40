package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cloo-solutions/codeindex/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CollectionRepository struct {
	db dbtx
}

func NewCollectionRepository(pool *pgxpool.Pool) *CollectionRepository {
	return &CollectionRepository{db: pool}
}

func NewCollectionRepositoryWithTx(tx dbtx) *CollectionRepository {
	return &CollectionRepository{db: tx}
}

// GetOrCreate returns the named collection, creating it with the given
// dimension and metadata when it does not exist yet; nil metadata gets the
// default description. An existing collection is returned unchanged, whatever
// its dimension.
func (r *CollectionRepository) GetOrCreate(ctx context.Context, name string, dimensions int, metadata map[string]any) (*domain.Collection, error) {
	c := domain.NewCollection(uuid.NewString(), name, dimensions, time.Now().UTC())
	if metadata != nil {
		c.Metadata = metadata
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO collections (id, name, dimensions, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (name) DO NOTHING`,
		c.ID, c.Name, c.Dimensions, c.Metadata, c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return r.GetByName(ctx, name)
}

func (r *CollectionRepository) GetByName(ctx context.Context, name string) (*domain.Collection, error) {
	var c domain.Collection
	err := r.db.QueryRow(ctx,
		`SELECT id, name, dimensions, metadata, created_at FROM collections WHERE name = $1`,
		name,
	).Scan(&c.ID, &c.Name, &c.Dimensions, &c.Metadata, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCollectionNotFound
		}
		return nil, err
	}
	return &c, nil
}

// List returns every collection with its chunk count, by name.
func (r *CollectionRepository) List(ctx context.Context) ([]*domain.Collection, error) {
	rows, err := r.db.Query(ctx,
		`SELECT c.id, c.name, c.dimensions, c.metadata, c.created_at, COUNT(ch.id)
		 FROM collections c
		 LEFT JOIN chunks ch ON ch.collection_id = c.id
		 GROUP BY c.id
		 ORDER BY c.name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var collections []*domain.Collection
	for rows.Next() {
		var c domain.Collection
		if err := rows.Scan(&c.ID, &c.Name, &c.Dimensions, &c.Metadata, &c.CreatedAt, &c.ChunkCount); err != nil {
			return nil, err
		}
		collections = append(collections, &c)
	}

	return collections, rows.Err()
}
