package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_URL(t *testing.T) {
	cfg := Config{Host: "db", Port: 5433, User: "codeindex", Password: "secret", Database: "chunks"}
	assert.Equal(t, "postgres://codeindex:secret@db:5433/chunks", cfg.URL())
}

func TestNewPool_DoesNotConnect(t *testing.T) {
	// Nothing listens on port 1; pool creation must still succeed.
	pool, err := NewPool(context.Background(), Config{
		Host:     "127.0.0.1",
		Port:     1,
		User:     "codeindex",
		Password: "codeindex",
		Database: "codeindex",
		MaxConns: 2,
	})
	require.NoError(t, err)
	defer pool.Close()

	assert.Equal(t, int32(2), pool.Config().MaxConns)
	assert.Error(t, pool.Ping(context.Background()))
}
