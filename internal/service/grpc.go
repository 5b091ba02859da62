// Package service exposes a worker.Handler as a persistent network service,
// over gRPC and over socket.io.
package service

import (
	"context"
	"errors"
	"net"

	"github.com/vk/planner/internal/ctxlog"
	"github.com/vk/planner/internal/wire"
	"github.com/vk/planner/internal/worker"
	"google.golang.org/grpc"
)

// PlanWorkerServer is the server side of the planner.v1.PlanWorker service.
type PlanWorkerServer interface {
	ExecutionPlanSnapshot(context.Context, *wire.Request) (*wire.Response, error)
}

// planWorkerServiceDesc is written by hand: messages are msgpack-encoded
// wire types rather than generated protobufs.
var planWorkerServiceDesc = grpc.ServiceDesc{
	ServiceName: wire.ServiceName,
	HandlerType: (*PlanWorkerServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ExecutionPlanSnapshot",
			Handler:    executionPlanSnapshotHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "planner/v1/plan_worker",
}

func executionPlanSnapshotHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wire.Request)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PlanWorkerServer).ExecutionPlanSnapshot(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: wire.MethodExecutionPlanSnapshot,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PlanWorkerServer).ExecutionPlanSnapshot(ctx, req.(*wire.Request))
	}
	return interceptor(ctx, in, info, handler)
}

// GRPCServer serves plan requests over gRPC.
type GRPCServer struct {
	handler *worker.Handler
	server  *grpc.Server
	ctx     context.Context
}

// NewGRPCServer creates a gRPC server backed by h. ctx carries the logger
// used for every request.
func NewGRPCServer(ctx context.Context, h *worker.Handler, opts ...grpc.ServerOption) *GRPCServer {
	opts = append([]grpc.ServerOption{grpc.ForceServerCodec(wire.Codec{})}, opts...)
	s := &GRPCServer{
		handler: h,
		server:  grpc.NewServer(opts...),
		ctx:     ctx,
	}
	s.server.RegisterService(&planWorkerServiceDesc, s)
	return s
}

// ExecutionPlanSnapshot implements PlanWorkerServer. Planning failures travel
// inside the response; a gRPC error only ever means transport trouble.
func (s *GRPCServer) ExecutionPlanSnapshot(ctx context.Context, req *wire.Request) (*wire.Response, error) {
	req.EnsureID()
	ctx = ctxlog.WithLogger(ctx, ctxlog.FromContext(s.ctx).With("transport", "grpc"))
	return s.handler.Handle(ctx, req), nil
}

// Serve accepts connections on lis until Stop is called.
func (s *GRPCServer) Serve(lis net.Listener) error {
	ctxlog.FromContext(s.ctx).Info("gRPC worker service starting", "address", lis.Addr().String())
	if err := s.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Stop drains in-flight calls and stops the server.
func (s *GRPCServer) Stop() {
	ctxlog.FromContext(s.ctx).Info("Shutting down gRPC worker service...")
	s.server.GracefulStop()
}
