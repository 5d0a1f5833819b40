package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the liveness view of the chunk store.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Heartbeat succeeds once the store accepts connections.
func (s *Store) Heartbeat(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
