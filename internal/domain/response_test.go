package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponse_WireShape(t *testing.T) {
	tests := []struct {
		name     string
		resp     Response
		expected string
	}{
		{"success", SuccessResponse{ID: "r1", IndexedCount: 3}, `{"id":"r1","status":"success","indexed_count":3}`},
		{"success zero", SuccessResponse{ID: "r1"}, `{"id":"r1","status":"success","indexed_count":0}`},
		{"error", ErrorResponse{ID: "r2", Message: "no chunks provided"}, `{"id":"r2","status":"error","message":"no chunks provided"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.resp)
			require.NoError(t, err)
			assert.JSONEq(t, tt.expected, string(data))
		})
	}
}

func TestReadyMessage(t *testing.T) {
	data, err := json.Marshal(NewReadyMessage())
	require.NoError(t, err)
	assert.Equal(t, `{"status":"READY"}`, string(data))
}

func TestDecodeResponse(t *testing.T) {
	resp, err := DecodeResponse([]byte(`{"id":"r1","status":"success","indexed_count":2}`))
	require.NoError(t, err)
	assert.Equal(t, SuccessResponse{ID: "r1", IndexedCount: 2}, resp)

	resp, err = DecodeResponse([]byte(`{"id":"r2","status":"error","message":"boom"}`))
	require.NoError(t, err)
	assert.Equal(t, ErrorResponse{ID: "r2", Message: "boom"}, resp)

	_, err = DecodeResponse([]byte(`{"status":"READY"}`))
	assert.Error(t, err)
}
