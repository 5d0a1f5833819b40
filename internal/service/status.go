package service

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/codeindex/internal/domain"
)

// Heartbeater checks that the store answers.
type Heartbeater interface {
	Heartbeat(ctx context.Context) error
}

// StatusReport summarises the store for the status command.
type StatusReport struct {
	Collections []*domain.Collection `json:"collections"`
	TotalChunks int                  `json:"total_chunks"`
}

// StatusService reports whether the store is reachable and what it holds.
type StatusService struct {
	store       Heartbeater
	collections CollectionRepositoryInterface
}

func NewStatusService(store Heartbeater, collections CollectionRepositoryInterface) *StatusService {
	return &StatusService{store: store, collections: collections}
}

func (s *StatusService) Status(ctx context.Context) (*StatusReport, error) {
	if err := s.store.Heartbeat(ctx); err != nil {
		return nil, fmt.Errorf("store heartbeat failed: %w", err)
	}

	collections, err := s.collections.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	report := &StatusReport{Collections: collections}
	for _, c := range collections {
		report.TotalChunks += c.ChunkCount
	}
	return report, nil
}
