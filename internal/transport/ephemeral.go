package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/vk/planner/internal/ctxlog"
	"github.com/vk/planner/internal/wire"
)

// DefaultMaxStderr caps how much worker stderr is kept for diagnostics.
const DefaultMaxStderr = 64 << 10

// Ephemeral runs a fresh worker process for every request. The request is
// written to the worker's stdin and exactly one response is read from its
// stdout.
type Ephemeral struct {
	command   string
	args      []string
	env       []string
	timeout   time.Duration
	maxStderr int
}

// EphemeralOption configures an Ephemeral transport.
type EphemeralOption func(*Ephemeral)

// WithArgs sets the worker's command line arguments.
func WithArgs(args ...string) EphemeralOption {
	return func(t *Ephemeral) { t.args = args }
}

// WithEnv appends KEY=VALUE pairs to the worker's inherited environment.
func WithEnv(env ...string) EphemeralOption {
	return func(t *Ephemeral) { t.env = append(t.env, env...) }
}

// WithTimeout bounds how long a worker may take to respond.
func WithTimeout(d time.Duration) EphemeralOption {
	return func(t *Ephemeral) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// WithMaxStderr caps the captured stderr.
func WithMaxStderr(n int) EphemeralOption {
	return func(t *Ephemeral) { t.maxStderr = n }
}

// NewEphemeral creates a transport that runs command for each request.
func NewEphemeral(command string, opts ...EphemeralOption) *Ephemeral {
	t := &Ephemeral{
		command:   command,
		timeout:   DefaultTimeout,
		maxStderr: DefaultMaxStderr,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Invoke spawns the worker, waits for it to exit and decodes its response.
func (t *Ephemeral) Invoke(ctx context.Context, req *wire.Request) (*wire.Response, error) {
	id := req.EnsureID()
	logger := ctxlog.FromContext(ctx).With("transport", "ephemeral", "request_id", id)

	var stdin bytes.Buffer
	if err := wire.Encode(&stdin, req); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, t.command, t.args...)
	cmd.Env = append(os.Environ(), t.env...)
	cmd.Stdin = &stdin
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	stderr := &boundedBuffer{limit: t.maxStderr}
	cmd.Stderr = stderr
	cmd.WaitDelay = time.Second

	logger.Debug("Spawning worker process.", "command", t.command, "args", t.args)
	start := time.Now()
	runErr := cmd.Run()
	logger.Debug("Worker process exited.", "duration", time.Since(start), "error", runErr)

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, &WorkerProcessError{
			ExitCode: -1,
			Stderr:   stderr.String(),
			Err:      fmt.Errorf("%w after %s", ErrWorkerTimeout, t.timeout),
		}
	}
	if ctx.Err() != nil {
		return nil, &WorkerProcessError{ExitCode: -1, Stderr: stderr.String(), Err: ctx.Err()}
	}

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return nil, &WorkerProcessError{ExitCode: -1, Stderr: stderr.String(), Err: runErr}
		}
		exitCode = exitErr.ExitCode()
	}
	if exitCode != 0 && exitCode != wire.ExitCodeFailure {
		return nil, &WorkerProcessError{ExitCode: exitCode, Stderr: stderr.String(), Err: runErr}
	}

	resp, err := decodeSingleResponse(stdout.Bytes(), id, exitCode)
	if err != nil {
		return nil, &WorkerProcessError{ExitCode: exitCode, Stderr: stderr.String(), Err: err}
	}
	return resp, nil
}

// decodeSingleResponse decodes exactly one response and checks that it
// agrees with the exit code and the request id.
func decodeSingleResponse(data []byte, requestID string, exitCode int) (*wire.Response, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: worker wrote no response", ErrMalformedResponse)
	}

	r := bytes.NewReader(data)
	var resp wire.Response
	if err := wire.Decode(r, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if r.Len() > 0 {
		return nil, fmt.Errorf("%w: %d unexpected trailing bytes", ErrMalformedResponse, r.Len())
	}
	if err := resp.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if resp.RequestID != requestID {
		return nil, fmt.Errorf("%w: response is for request %q, expected %q", ErrMalformedResponse, resp.RequestID, requestID)
	}

	switch {
	case exitCode == 0 && resp.Snapshot == nil:
		return nil, fmt.Errorf("%w: exit code 0 without a snapshot", ErrMalformedResponse)
	case exitCode == wire.ExitCodeFailure && resp.Failure == nil:
		return nil, fmt.Errorf("%w: exit code %d without a failure", ErrMalformedResponse, exitCode)
	}
	return &resp, nil
}

// boundedBuffer keeps the first limit bytes written to it and drops the rest.
type boundedBuffer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	room := b.limit - b.buf.Len()
	if room <= 0 {
		b.truncated = len(p) > 0 || b.truncated
		return len(p), nil
	}
	if len(p) > room {
		b.buf.Write(p[:room])
		b.truncated = true
		return len(p), nil
	}
	b.buf.Write(p)
	return len(p), nil
}

func (b *boundedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.truncated {
		return b.buf.String() + "\n[stderr truncated]"
	}
	return b.buf.String()
}
