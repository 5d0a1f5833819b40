package service

import (
	"context"
	"errors"
	"testing"

	"github.com/cloo-solutions/codeindex/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type stubHeartbeater struct {
	err error
}

func (s stubHeartbeater) Heartbeat(context.Context) error { return s.err }

func TestStatusService_Status(t *testing.T) {
	collections := new(MockCollectionRepo)
	svc := NewStatusService(stubHeartbeater{}, collections)

	list := []*domain.Collection{
		{Name: "code_chunks", ChunkCount: 12},
		{Name: "docs", ChunkCount: 3},
	}
	collections.On("List", mock.Anything).Return(list, nil)

	report, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, list, report.Collections)
	assert.Equal(t, 15, report.TotalChunks)
}

func TestStatusService_Status_StoreDown(t *testing.T) {
	collections := new(MockCollectionRepo)
	svc := NewStatusService(stubHeartbeater{err: errors.New("connection refused")}, collections)

	_, err := svc.Status(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	collections.AssertNotCalled(t, "List", mock.Anything)
}

func TestStatusService_Status_ListFails(t *testing.T) {
	collections := new(MockCollectionRepo)
	svc := NewStatusService(stubHeartbeater{}, collections)
	collections.On("List", mock.Anything).Return(nil, errors.New("boom"))

	_, err := svc.Status(context.Background())

	assert.ErrorContains(t, err, "failed to list collections")
}
