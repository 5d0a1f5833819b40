package domain

import "time"

// Default collection settings.
const (
	DefaultCollectionName        = "code_chunks"
	DefaultCollectionDescription = "Code chunks for semantic search"
)

// Collection is a named group of stored chunks sharing one vector dimension.
type Collection struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Dimensions int            `json:"dimensions"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	ChunkCount int            `json:"chunk_count"`
	CreatedAt  time.Time      `json:"created_at"`
}

// NewCollection creates a collection with the default description metadata.
func NewCollection(id, name string, dimensions int, createdAt time.Time) *Collection {
	return &Collection{
		ID:         id,
		Name:       name,
		Dimensions: dimensions,
		Metadata:   map[string]any{"description": DefaultCollectionDescription},
		CreatedAt:  createdAt,
	}
}

// QueryResult is one stored chunk returned by a similarity query.
type QueryResult struct {
	ID       string         `json:"id"`
	Document string         `json:"document"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Distance float64        `json:"distance"`
}

// FilterByDistance keeps results at or under maxDistance, up to limit entries.
// Results must already be ordered by ascending distance.
func FilterByDistance(results []*QueryResult, maxDistance float64, limit int) []*QueryResult {
	out := make([]*QueryResult, 0, limit)
	for _, r := range results {
		if len(out) == limit {
			break
		}
		if r.Distance <= maxDistance {
			out = append(out, r)
		}
	}
	return out
}
