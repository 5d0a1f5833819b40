// Package readiness waits for an external dependency to answer a liveness probe.
package readiness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// DefaultInterval is the pause between probes.
const DefaultInterval = 200 * time.Millisecond

// ErrTimeout is returned by Await when the dependency never answered.
var ErrTimeout = errors.New("dependency did not become ready in time")

// Probe checks a dependency once.
type Probe interface {
	Heartbeat(ctx context.Context) error
}

// ProbeFunc adapts a function to Probe.
type ProbeFunc func(ctx context.Context) error

func (f ProbeFunc) Heartbeat(ctx context.Context) error { return f(ctx) }

// WaitForDependency probes immediately and then every interval until the
// probe succeeds or timeout elapses. It reports whether the dependency became
// ready and never returns an error.
func WaitForDependency(ctx context.Context, probe Probe, interval, timeout time.Duration) bool {
	return Await(ctx, probe, interval, timeout) == nil
}

// Await is WaitForDependency returning the last probe failure, wrapped with
// ErrTimeout, when the dependency never became ready.
func Await(ctx context.Context, probe Probe, interval, timeout time.Duration) error {
	if interval <= 0 {
		interval = DefaultInterval
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger := zerolog.Ctx(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	for attempt := 1; ; attempt++ {
		err := probe.Heartbeat(ctx)
		if err == nil {
			logger.Debug().Int("attempts", attempt).Msg("dependency ready")
			return nil
		}
		lastErr = err
		logger.Debug().Err(err).Int("attempt", attempt).Msg("dependency not ready")

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrTimeout, lastErr)
		case <-ticker.C:
		}
	}
}
