package protocol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cloo-solutions/codeindex/internal/domain"
	"github.com/cloo-solutions/codeindex/internal/readiness"
	"github.com/cloo-solutions/codeindex/internal/telemetry"
	"github.com/rs/zerolog"
)

// State is a daemon lifecycle state.
type State int

const (
	StateBooting State = iota
	StateWaitingForDependency
	StateReady
	StateProcessing
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateBooting:
		return "booting"
	case StateWaitingForDependency:
		return "waiting_for_dependency"
	case StateReady:
		return "ready"
	case StateProcessing:
		return "processing"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ModelLoader prepares the embedding model before any request is served.
type ModelLoader interface {
	Load(ctx context.Context) error
}

// Handler answers one request line.
type Handler interface {
	Handle(ctx context.Context, line string) domain.Response
}

// Config wires a Daemon.
type Config struct {
	In      io.Reader
	Out     io.Writer
	Model   ModelLoader
	Store   readiness.Probe
	Handler Handler
	// Migrate runs after the store is reachable and before READY. Optional.
	Migrate func(ctx context.Context) error

	PollInterval   time.Duration
	StartupTimeout time.Duration
}

// Daemon serves requests from In to Out until end of input or the
// termination token. Requests are handled one at a time, in order.
type Daemon struct {
	cfg    Config
	reader *LineReader
	out    *Emitter

	mu    sync.RWMutex
	state State
}

func NewDaemon(cfg Config) *Daemon {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = readiness.DefaultInterval
	}
	return &Daemon{
		cfg:    cfg,
		reader: NewLineReader(cfg.In),
		out:    NewEmitter(cfg.Out),
		state:  StateBooting,
	}
}

// State returns the current lifecycle state.
func (d *Daemon) State() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

func (d *Daemon) setState(ctx context.Context, s State) {
	d.mu.Lock()
	prev := d.state
	d.state = s
	d.mu.Unlock()

	if prev != s {
		zerolog.Ctx(ctx).Debug().Stringer("from", prev).Stringer("to", s).Msg("state change")
		telemetry.AddBreadcrumb(ctx, "daemon", s.String())
	}
}

// Run starts the daemon and blocks until it terminates. It returns nil on
// clean termination. A startup failure is returned before anything has been
// written to Out.
//
// Loading the model and waiting for the store share one StartupTimeout.
func (d *Daemon) Run(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)

	startCtx, cancel := d.startupContext(ctx)
	defer cancel()

	d.setState(ctx, StateBooting)
	if err := d.cfg.Model.Load(startCtx); err != nil {
		if errors.Is(startCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("model did not load within %s: %w", d.cfg.StartupTimeout, err)
		}
		return d.fail(ctx, domain.Wrap(domain.ErrModelLoad, err))
	}

	d.setState(ctx, StateWaitingForDependency)
	if err := readiness.Await(startCtx, d.cfg.Store, d.cfg.PollInterval, d.cfg.StartupTimeout); err != nil {
		return d.fail(ctx, domain.Wrap(domain.ErrDependencyUnavailable, err))
	}
	cancel()

	if d.cfg.Migrate != nil {
		if err := d.cfg.Migrate(ctx); err != nil {
			return d.fail(ctx, domain.Wrap(domain.ErrMigrationFailed, err))
		}
	}

	if err := d.out.Emit(domain.NewReadyMessage()); err != nil {
		return d.fail(ctx, err)
	}
	d.setState(ctx, StateReady)
	logger.Info().Msg("ready for requests")

	return d.serve(ctx)
}

func (d *Daemon) startupContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.cfg.StartupTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.cfg.StartupTimeout)
}

func (d *Daemon) serve(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)

	for {
		if ctx.Err() != nil {
			logger.Info().Msg("shutting down: context cancelled")
			d.setState(ctx, StateTerminated)
			return nil
		}

		text, err := d.next(ctx)
		if err != nil {
			d.setState(ctx, StateTerminated)
			switch {
			case errors.Is(err, io.EOF):
				logger.Info().Msg("shutting down: end of input")
				return nil
			case ctx.Err() != nil:
				logger.Info().Msg("shutting down: context cancelled")
				return nil
			}
			return fmt.Errorf("read request: %w", err)
		}
		if IsTermination(text) {
			logger.Info().Msg("shutting down: termination requested")
			d.setState(ctx, StateTerminated)
			return nil
		}

		d.setState(ctx, StateProcessing)
		resp := d.cfg.Handler.Handle(context.WithoutCancel(ctx), text)
		if err := d.out.Emit(resp); err != nil {
			d.setState(ctx, StateTerminated)
			return err
		}
		d.setState(ctx, StateReady)
	}
}

// next reads one line. Nothing is read ahead of the request being served.
// When ctx is cancelled while the read is blocked, In is closed if it is an
// io.Closer so the pending read returns.
func (d *Daemon) next(ctx context.Context) (string, error) {
	result := make(chan Line, 1)
	go func() {
		text, err := d.reader.Next()
		result <- Line{Text: text, Err: err}
	}()

	select {
	case line := <-result:
		return line.Text, line.Err
	case <-ctx.Done():
		if c, ok := d.cfg.In.(io.Closer); ok {
			_ = c.Close()
		}
		return "", ctx.Err()
	}
}

func (d *Daemon) fail(ctx context.Context, err error) error {
	d.setState(ctx, StateTerminated)
	zerolog.Ctx(ctx).Error().Err(err).Msg("startup failed")
	telemetry.CaptureError(ctx, err)
	return err
}
