package readiness

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWaitForDependency_ImmediateSuccess(t *testing.T) {
	var calls atomic.Int32
	probe := ProbeFunc(func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})

	start := time.Now()
	assert.True(t, WaitForDependency(context.Background(), probe, time.Second, 5*time.Second))
	assert.Equal(t, int32(1), calls.Load())
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestWaitForDependency_SucceedsAfterRetries(t *testing.T) {
	var calls atomic.Int32
	probe := ProbeFunc(func(ctx context.Context) error {
		if calls.Add(1) < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	assert.True(t, WaitForDependency(context.Background(), probe, 10*time.Millisecond, 2*time.Second))
	assert.Equal(t, int32(3), calls.Load())
}

func TestWaitForDependency_TimesOut(t *testing.T) {
	probe := ProbeFunc(func(ctx context.Context) error {
		return errors.New("connection refused")
	})

	start := time.Now()
	assert.False(t, WaitForDependency(context.Background(), probe, 10*time.Millisecond, 100*time.Millisecond))
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
}

func TestWaitForDependency_ProbeBoundedByTimeout(t *testing.T) {
	probe := ProbeFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	start := time.Now()
	assert.False(t, WaitForDependency(context.Background(), probe, 10*time.Millisecond, 50*time.Millisecond))
	assert.Less(t, time.Since(start), time.Second)
}

func TestAwait_ReturnsLastError(t *testing.T) {
	refused := errors.New("connection refused")
	probe := ProbeFunc(func(ctx context.Context) error { return refused })

	err := Await(context.Background(), probe, 5*time.Millisecond, 30*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, refused)
}

func TestAwait_ParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	probe := ProbeFunc(func(ctx context.Context) error { return ctx.Err() })

	assert.Error(t, Await(ctx, probe, 5*time.Millisecond, time.Minute))
}
