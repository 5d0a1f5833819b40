package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/cloo-solutions/codeindex/internal/domain"
	"github.com/google/uuid"
)

// ObjectStore is the part of an object store the archive uses.
type ObjectStore interface {
	PutObject(ctx context.Context, key, contentType string, body []byte) error
	GetObject(ctx context.Context, key string) ([]byte, error)
	ListKeys(ctx context.Context, prefix string) ([]string, error)
}

// StoredDeadLetter is an archived entry and the key it is stored under.
type StoredDeadLetter struct {
	Key string `json:"key"`
	domain.DeadLetter
}

// DeadLetterArchive writes failed request lines to object storage as JSON,
// one object per failure, grouped by UTC day.
type DeadLetterArchive struct {
	objects ObjectStore
	prefix  string
}

func NewDeadLetterArchive(objects ObjectStore, prefix string) *DeadLetterArchive {
	return &DeadLetterArchive{objects: objects, prefix: strings.Trim(prefix, "/")}
}

// Archive stores entry and returns its object key.
func (a *DeadLetterArchive) Archive(ctx context.Context, entry domain.DeadLetter) (string, error) {
	body, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("failed to encode dead letter: %w", err)
	}

	key := a.key(entry)
	if err := a.objects.PutObject(ctx, key, "application/json", body); err != nil {
		return "", err
	}
	return key, nil
}

// List returns archived entries, optionally limited to one UTC day
// (YYYY-MM-DD), oldest key first.
func (a *DeadLetterArchive) List(ctx context.Context, day string) ([]StoredDeadLetter, error) {
	prefix := path.Join(a.prefix, day)
	if prefix != "" {
		prefix += "/"
	}

	keys, err := a.objects.ListKeys(ctx, prefix)
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)

	entries := make([]StoredDeadLetter, 0, len(keys))
	for _, key := range keys {
		body, err := a.objects.GetObject(ctx, key)
		if err != nil {
			return nil, err
		}
		entry := StoredDeadLetter{Key: key}
		if err := json.Unmarshal(body, &entry.DeadLetter); err != nil {
			return nil, fmt.Errorf("failed to decode dead letter %s: %w", key, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (a *DeadLetterArchive) key(entry domain.DeadLetter) string {
	name := fmt.Sprintf("%s-%s.json", url.PathEscape(entry.ID), uuid.NewString()[:8])
	return path.Join(a.prefix, entry.ReceivedAt.UTC().Format("2006-01-02"), name)
}
