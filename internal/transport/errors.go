package transport

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrWorkerTimeout is wrapped when an ephemeral worker does not finish in time.
	ErrWorkerTimeout = errors.New("worker did not respond in time")
	// ErrMalformedResponse is wrapped when a worker's output cannot be used.
	ErrMalformedResponse = errors.New("malformed worker response")
	// ErrNotConnected is wrapped when a persistent connection is down.
	ErrNotConnected = errors.New("not connected")
	// ErrClosed is wrapped when a request is made on a closed transport.
	ErrClosed = errors.New("transport closed")
)

// WorkerProcessError reports an ephemeral worker that crashed, timed out or
// exited without a well-formed response.
type WorkerProcessError struct {
	// ExitCode is -1 when the process did not exit normally.
	ExitCode int
	Stderr   string
	Err      error
}

func (e *WorkerProcessError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "worker process failed (exit code %d): %v", e.ExitCode, e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		b.WriteString("\nstderr:\n")
		b.WriteString(s)
	}
	return b.String()
}

func (e *WorkerProcessError) Unwrap() error { return e.Err }

// TransportUnavailableError reports a persistent connection that could not
// deliver a request or its response.
type TransportUnavailableError struct {
	Transport string
	Op        string
	Err       error
}

func (e *TransportUnavailableError) Error() string {
	return fmt.Sprintf("%s transport unavailable during %s: %v", e.Transport, e.Op, e.Err)
}

func (e *TransportUnavailableError) Unwrap() error { return e.Err }
