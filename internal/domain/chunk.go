package domain

import (
	"encoding/json"
	"fmt"
)

// Chunk is one unit of source text submitted for indexing. ID is its identity
// in the collection; indexing the same ID again replaces the stored chunk.
type Chunk struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Validate checks that the chunk has an id and only scalar metadata values.
func (c Chunk) Validate() error {
	if c.ID == "" {
		return ErrMissingChunkID
	}
	for key, value := range c.Metadata {
		if !isScalar(value) {
			return Wrap(ErrNestedMetadata, fmt.Errorf("key %q", key))
		}
	}
	return nil
}

func isScalar(v any) bool {
	switch v.(type) {
	case nil, string, bool, float64, float32, int, int32, int64, json.Number:
		return true
	default:
		return false
	}
}

// ChunkRecord is a chunk paired with its embedding, ready to be stored.
type ChunkRecord struct {
	Chunk
	Embedding []float32
}

// LatestByID collapses records that share an id, keeping the last occurrence
// at the position of the first one.
func LatestByID(records []ChunkRecord) []ChunkRecord {
	index := make(map[string]int, len(records))
	out := make([]ChunkRecord, 0, len(records))
	for _, r := range records {
		if i, ok := index[r.ID]; ok {
			out[i] = r
			continue
		}
		index[r.ID] = len(out)
		out = append(out, r)
	}
	return out
}
