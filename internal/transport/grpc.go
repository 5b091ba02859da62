package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/planner/internal/ctxlog"
	"github.com/vk/planner/internal/wire"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// GRPC sends requests to a worker service over a shared gRPC connection.
// Concurrent calls are multiplexed by the connection.
type GRPC struct {
	conn    *grpc.ClientConn
	timeout time.Duration
	owned   bool
}

// DialGRPC creates a connection to a worker service at target. The connection
// is established lazily on the first call.
func DialGRPC(target string, timeout time.Duration, opts ...grpc.DialOption) (*GRPC, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, &TransportUnavailableError{Transport: "grpc", Op: "dial", Err: err}
	}
	t := NewGRPC(conn, timeout)
	t.owned = true
	return t, nil
}

// NewGRPC wraps an existing connection. The caller keeps ownership of conn.
func NewGRPC(conn *grpc.ClientConn, timeout time.Duration) *GRPC {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &GRPC{conn: conn, timeout: timeout}
}

// Invoke performs one unary call. Any gRPC error means the service could not
// deliver a response.
func (t *GRPC) Invoke(ctx context.Context, req *wire.Request) (*wire.Response, error) {
	id := req.EnsureID()
	logger := ctxlog.FromContext(ctx).With("transport", "grpc", "request_id", id)

	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	resp := new(wire.Response)
	logger.Debug("Invoking worker service.", "target", t.conn.Target())
	if err := t.conn.Invoke(callCtx, wire.MethodExecutionPlanSnapshot, req, resp, grpc.ForceCodec(wire.Codec{})); err != nil {
		logger.Debug("Worker service call failed.", "code", status.Code(err).String(), "error", err)
		return nil, &TransportUnavailableError{Transport: "grpc", Op: "invoke", Err: err}
	}

	if err := resp.Validate(); err != nil {
		return nil, &TransportUnavailableError{Transport: "grpc", Op: "decode", Err: fmt.Errorf("%w: %v", ErrMalformedResponse, err)}
	}
	if resp.RequestID != id {
		return nil, &TransportUnavailableError{Transport: "grpc", Op: "decode", Err: fmt.Errorf("%w: response is for request %q", ErrMalformedResponse, resp.RequestID)}
	}
	return resp, nil
}

// Close releases the connection if this transport created it.
func (t *GRPC) Close() error {
	if !t.owned {
		return nil
	}
	return t.conn.Close()
}
