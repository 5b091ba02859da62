package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/vk/planner/internal/ctxlog"
	"github.com/vk/planner/internal/wire"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// DefaultSocketIOPath is where the worker service mounts socket.io.
const DefaultSocketIOPath = "/socket.io/"

type socketResult struct {
	resp *wire.Response
	err  error
}

// SocketIO sends requests to a worker service over one socket.io connection.
// Responses are matched to requests by request id, so concurrent calls share
// the connection.
type SocketIO struct {
	client  *socket.Socket
	timeout time.Duration

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan socketResult
	closed  bool
}

// DialSocketIO connects to a worker service at rawURL and waits until the
// connection is established or ctx is done.
func DialSocketIO(ctx context.Context, rawURL string, timeout time.Duration) (*SocketIO, error) {
	logger := ctxlog.FromContext(ctx).With("transport", "socketio", "url", rawURL)

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, &TransportUnavailableError{Transport: "socketio", Op: "dial", Err: fmt.Errorf("failed to parse URL: %w", err)}
	}
	path := parsedURL.Path
	if path == "" || path == "/" {
		path = DefaultSocketIOPath
	}

	opts := socket.DefaultOptions()
	opts.SetPath(path)
	opts.SetReconnection(false)
	opts.SetTransports(types.NewSet(transports.WebSocket))

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket("/", opts)

	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	t := &SocketIO{
		client:  io,
		timeout: timeout,
		pending: make(map[string]chan socketResult),
	}

	connectChan := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) {
		logger.Debug("Connected to worker service.", "sid", io.Id())
		select {
		case connectChan <- nil:
		default:
		}
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		select {
		case connectChan <- err:
		default:
		}
	})
	io.On(types.EventName(wire.EventExecutionPlanResult), t.onResult)
	io.On(types.EventName("disconnect"), t.onDisconnect)

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, &TransportUnavailableError{Transport: "socketio", Op: "connect", Err: err}
		}
		return t, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, &TransportUnavailableError{Transport: "socketio", Op: "connect", Err: ctx.Err()}
	}
}

// Invoke emits the request and waits for the matching result event.
func (t *SocketIO) Invoke(ctx context.Context, req *wire.Request) (*wire.Response, error) {
	id := req.EnsureID()
	logger := ctxlog.FromContext(ctx).With("transport", "socketio", "request_id", id)

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	ch := make(chan socketResult, 1)
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, &TransportUnavailableError{Transport: "socketio", Op: "emit", Err: ErrClosed}
	}
	if !t.client.Connected() {
		t.mu.Unlock()
		return nil, &TransportUnavailableError{Transport: "socketio", Op: "emit", Err: ErrNotConnected}
	}
	t.pending[id] = ch
	t.mu.Unlock()

	t.writeMu.Lock()
	err = t.client.Emit(wire.EventExecutionPlan, string(payload))
	t.writeMu.Unlock()
	if err != nil {
		t.forget(id)
		return nil, &TransportUnavailableError{Transport: "socketio", Op: "emit", Err: err}
	}
	logger.Debug("Emitted execution plan request.")

	waitCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, &TransportUnavailableError{Transport: "socketio", Op: "await", Err: res.err}
		}
		return res.resp, nil
	case <-waitCtx.Done():
		t.forget(id)
		return nil, &TransportUnavailableError{Transport: "socketio", Op: "await", Err: waitCtx.Err()}
	}
}

// Close disconnects and fails every request still waiting.
func (t *SocketIO) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	t.client.Disconnect()
	t.failPending(ErrClosed)
	return nil
}

func (t *SocketIO) onResult(args ...any) {
	if len(args) == 0 {
		return
	}
	raw, ok := args[0].(string)
	if !ok {
		return
	}

	var resp wire.Response
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return
	}

	t.mu.Lock()
	ch, ok := t.pending[resp.RequestID]
	delete(t.pending, resp.RequestID)
	t.mu.Unlock()
	if !ok {
		return
	}

	if err := resp.Validate(); err != nil {
		ch <- socketResult{err: fmt.Errorf("%w: %v", ErrMalformedResponse, err)}
		return
	}
	ch <- socketResult{resp: &resp}
}

func (t *SocketIO) onDisconnect(args ...any) {
	reason := "disconnected"
	if len(args) > 0 {
		reason = fmt.Sprint(args[0])
	}
	t.failPending(fmt.Errorf("%w: %s", ErrNotConnected, reason))
}

func (t *SocketIO) failPending(err error) {
	t.mu.Lock()
	pending := t.pending
	t.pending = make(map[string]chan socketResult)
	t.mu.Unlock()

	for _, ch := range pending {
		ch <- socketResult{err: err}
	}
}

func (t *SocketIO) forget(id string) {
	t.mu.Lock()
	delete(t.pending, id)
	t.mu.Unlock()
}
