package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/vk/planner/internal/ctxlog"
	"github.com/vk/planner/internal/wire"
	"github.com/vk/planner/internal/worker"
	"github.com/zishang520/socket.io/v2/socket"
)

// SocketIOServer serves plan requests as socket.io events, next to a
// /health endpoint on the same HTTP listener.
type SocketIOServer struct {
	handler *worker.Handler
	io      *socket.Server
	http    *http.Server
	ctx     context.Context
}

// NewSocketIOServer creates a socket.io server backed by h.
func NewSocketIOServer(ctx context.Context, h *worker.Handler) *SocketIOServer {
	s := &SocketIOServer{
		handler: h,
		io:      socket.NewServer(nil, nil),
		ctx:     ctx,
	}

	s.io.On("connection", func(clients ...any) {
		client, ok := clients[0].(*socket.Socket)
		if !ok {
			return
		}
		s.onConnection(client)
	})

	mux := http.NewServeMux()
	mux.Handle("/socket.io/", s.io.ServeHandler(nil))
	mux.HandleFunc("/health", s.healthHandler)
	s.http = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler, for mounting in tests.
func (s *SocketIOServer) Handler() http.Handler {
	return s.http.Handler
}

func (s *SocketIOServer) onConnection(client *socket.Socket) {
	logger := ctxlog.FromContext(s.ctx).With("transport", "socketio", "sid", string(client.Id()))
	logger.Debug("Client connected.")

	client.On(wire.EventExecutionPlan, func(args ...any) {
		// Requests on one connection are independent; answer them concurrently.
		go s.handleEvent(logger, client, args)
	})
	client.On("disconnect", func(reason ...any) {
		logger.Debug("Client disconnected.", "reason", fmt.Sprint(reason...))
	})
}

func (s *SocketIOServer) handleEvent(logger *slog.Logger, client *socket.Socket, args []any) {
	if len(args) == 0 {
		logger.Warn("Received execution plan event without payload.")
		return
	}
	raw, ok := args[0].(string)
	if !ok {
		logger.Warn("Received execution plan event with non-string payload.", "type", fmt.Sprintf("%T", args[0]))
		return
	}

	var req wire.Request
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		logger.Warn("Failed to decode execution plan request.", "error", err)
		return
	}
	req.EnsureID()

	resp := s.handler.Handle(ctxlog.WithLogger(s.ctx, logger), &req)
	payload, err := json.Marshal(resp)
	if err != nil {
		logger.Error("Failed to encode execution plan response.", "error", err, "request_id", req.RequestID)
		return
	}
	if err := client.Emit(wire.EventExecutionPlanResult, string(payload)); err != nil {
		logger.Error("Failed to emit execution plan response.", "error", err, "request_id", req.RequestID)
	}
}

func (s *SocketIOServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctxlog.FromContext(s.ctx).Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// Serve accepts HTTP connections on lis until Shutdown is called.
func (s *SocketIOServer) Serve(lis net.Listener) error {
	ctxlog.FromContext(s.ctx).Info("socket.io worker service starting", "address", lis.Addr().String())
	if err := s.http.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown closes every socket and then the HTTP server.
func (s *SocketIOServer) Shutdown(ctx context.Context) error {
	logger := ctxlog.FromContext(s.ctx)
	logger.Info("Shutting down socket.io worker service...")

	s.io.Close(nil)

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		logger.Error("socket.io worker service shutdown failed", "error", err)
		return err
	}
	return nil
}
