// Package indexer is the parent side of the daemon protocol. It starts
// codeindexd as a subprocess, waits for its READY handshake and exchanges one
// request line for one response line.
package indexer

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/cloo-solutions/codeindex/internal/domain"
	"github.com/cloo-solutions/codeindex/internal/protocol"
	"github.com/rs/zerolog"
)

const (
	defaultReadyTimeout = time.Minute
	defaultStopTimeout  = 10 * time.Second
)

var (
	ErrNotReady = errors.New("indexer did not become ready")
	ErrExited   = errors.New("indexer exited")
	ErrClosed   = errors.New("indexer is closed")
	ErrAbandon  = errors.New("indexer has an abandoned request in flight")
)

// Options configures how the daemon is started.
type Options struct {
	Args         []string
	Env          []string
	Dir          string
	ReadyTimeout time.Duration
	StopTimeout  time.Duration
}

// Option mutates Options.
type Option func(*Options)

// WithArgs replaces the daemon arguments. The default is "serve".
func WithArgs(args ...string) Option {
	return func(o *Options) { o.Args = args }
}

// WithEnv sets the daemon environment, in os/exec form.
func WithEnv(env ...string) Option {
	return func(o *Options) { o.Env = env }
}

func WithDir(dir string) Option {
	return func(o *Options) { o.Dir = dir }
}

func WithReadyTimeout(d time.Duration) Option {
	return func(o *Options) { o.ReadyTimeout = d }
}

func WithStopTimeout(d time.Duration) Option {
	return func(o *Options) { o.StopTimeout = d }
}

// Indexer is a running daemon. Requests are sent one at a time; Index blocks
// until the matching response line has been read.
type Indexer struct {
	opts   Options
	logger *zerolog.Logger

	cmd   *exec.Cmd
	stdin io.WriteCloser

	lines       chan protocol.Line
	done        chan struct{}
	readersDone chan struct{}

	stderrMu   sync.Mutex
	stderrTail string

	mu        sync.Mutex
	closed    bool
	abandoned bool
}

// Start launches binary and blocks until it reports READY, exits, or the
// ready timeout elapses.
func Start(ctx context.Context, binary string, opts ...Option) (*Indexer, error) {
	logger := zerolog.Ctx(ctx)

	options := buildOptions(opts...)

	cmd := exec.Command(binary, options.Args...)
	cmd.Dir = options.Dir
	if options.Env != nil {
		cmd.Env = options.Env
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		_ = stdin.Close()
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		_ = stdin.Close()
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	logger.Debug().Str("binary", binary).Strs("args", options.Args).Msg("starting indexer")
	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return nil, fmt.Errorf("failed to start indexer: %w", err)
	}

	i := &Indexer{
		opts:        options,
		logger:      logger,
		cmd:         cmd,
		stdin:       stdin,
		lines:       make(chan protocol.Line),
		done:        make(chan struct{}),
		readersDone: make(chan struct{}),
	}
	i.captureOutput(stdout, stderr)

	if err := i.waitReady(ctx); err != nil {
		_ = i.Close()
		return nil, err
	}
	logger.Debug().Int("pid", cmd.Process.Pid).Msg("indexer ready")
	return i, nil
}

func (i *Indexer) captureOutput(stdout, stderr io.Reader) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		protocol.NewLineReader(stdout).Feed(i.lines, i.done)
	}()
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			i.stderrMu.Lock()
			i.stderrTail = line
			i.stderrMu.Unlock()
			i.logger.Debug().Str("stream", "stderr").Msg(line)
		}
		if err := scanner.Err(); err != nil && !strings.Contains(err.Error(), "closed") {
			i.logger.Error().Err(err).Msg("error reading stderr")
		}
	}()
	go func() {
		wg.Wait()
		close(i.readersDone)
	}()
}

func (i *Indexer) waitReady(ctx context.Context) error {
	timer := time.NewTimer(i.opts.ReadyTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("%w after %s", ErrNotReady, i.opts.ReadyTimeout)
	case line := <-i.lines:
		if line.Err != nil {
			return i.exitedError(line.Err)
		}
		var msg domain.ReadyMessage
		if err := json.Unmarshal([]byte(line.Text), &msg); err != nil || msg.Status != domain.StatusReady {
			return fmt.Errorf("%w: unexpected handshake %q", ErrNotReady, line.Text)
		}
		return nil
	}
}

// Index sends one request for chunks and returns the daemon's response. An
// empty id lets the daemon generate one. A non-nil error means the exchange
// itself failed; request-level failures come back as domain.ErrorResponse.
func (i *Indexer) Index(ctx context.Context, id string, chunks []domain.Chunk) (domain.Response, error) {
	req := domain.Request{Chunks: chunks}
	if id != "" {
		req.Meta = &domain.RequestMeta{ID: id}
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return i.Send(ctx, string(payload))
}

// Send writes line verbatim and reads the response to it. If ctx ends before
// the response arrives the Indexer can no longer pair responses with requests
// and only Close remains usable.
func (i *Indexer) Send(ctx context.Context, line string) (domain.Response, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return nil, ErrClosed
	}
	if i.abandoned {
		return nil, ErrAbandon
	}
	if strings.ContainsAny(line, "\r\n") {
		return nil, fmt.Errorf("request must be a single line")
	}

	if _, err := io.WriteString(i.stdin, line+"\n"); err != nil {
		return nil, fmt.Errorf("failed to write request: %w", err)
	}

	select {
	case <-ctx.Done():
		i.abandoned = true
		return nil, ctx.Err()
	case out := <-i.lines:
		if out.Err != nil {
			return nil, i.exitedError(out.Err)
		}
		resp, err := domain.DecodeResponse([]byte(out.Text))
		if err != nil {
			return nil, err
		}
		return resp, nil
	}
}

// Close asks the daemon to stop with the termination token and waits for it
// to exit, killing it after the stop timeout.
func (i *Indexer) Close() error {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return nil
	}
	i.closed = true
	i.mu.Unlock()

	i.logger.Trace().Msg("closing indexer")

	var errs []error
	if _, err := io.WriteString(i.stdin, protocol.TerminationToken+"\n"); err != nil {
		i.logger.Debug().Err(err).Msg("failed to send termination token")
	}
	if err := i.stdin.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		errs = append(errs, fmt.Errorf("failed to close stdin: %w", err))
	}
	close(i.done)

	timer := time.NewTimer(i.opts.StopTimeout)
	defer timer.Stop()
	select {
	case <-i.readersDone:
	case <-timer.C:
		i.logger.Warn().Dur("timeout", i.opts.StopTimeout).Msg("indexer did not stop, killing it")
		if err := i.cmd.Process.Kill(); err != nil {
			errs = append(errs, fmt.Errorf("failed to kill process: %w", err))
		}
		<-i.readersDone
	}

	if err := i.cmd.Wait(); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrExited, err))
	}
	return errors.Join(errs...)
}

func (i *Indexer) exitedError(err error) error {
	if !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read response: %w", err)
	}
	i.stderrMu.Lock()
	tail := i.stderrTail
	i.stderrMu.Unlock()
	if tail == "" {
		return ErrExited
	}
	return fmt.Errorf("%w: %s", ErrExited, tail)
}

func buildOptions(opts ...Option) Options {
	options := Options{
		Args:         []string{"serve"},
		ReadyTimeout: defaultReadyTimeout,
		StopTimeout:  defaultStopTimeout,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
