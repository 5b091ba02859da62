package app

import (
	"context"
	"net"

	"github.com/vk/planner/internal/ctxlog"
	"github.com/vk/planner/internal/service"
	"golang.org/x/sync/errgroup"
)

// runServe runs the persistent worker services until ctx is cancelled or one
// of them fails.
func (a *App) runServe(ctx context.Context) error {
	cfg := a.config.Serve
	logger := ctxlog.FromContext(ctx)

	var grpcLis, sioLis net.Listener
	var err error
	if cfg.GRPCAddr != "" {
		if grpcLis, err = net.Listen("tcp", cfg.GRPCAddr); err != nil {
			return err
		}
	}
	if cfg.SocketIOAddr != "" {
		if sioLis, err = net.Listen("tcp", cfg.SocketIOAddr); err != nil {
			if grpcLis != nil {
				_ = grpcLis.Close()
			}
			return err
		}
	}

	a.healthCheckServer()
	defer func() { _ = a.closeHealthCheckServer() }()

	g, gctx := errgroup.WithContext(ctx)

	if grpcLis != nil {
		srv := service.NewGRPCServer(ctx, a.handler)
		g.Go(func() error { return srv.Serve(grpcLis) })
		g.Go(func() error {
			<-gctx.Done()
			srv.Stop()
			return nil
		})
	}

	if sioLis != nil {
		srv := service.NewSocketIOServer(ctx, a.handler)
		g.Go(func() error { return srv.Serve(sioLis) })
		g.Go(func() error {
			<-gctx.Done()
			return srv.Shutdown(context.WithoutCancel(ctx))
		})
	}

	logger.Info("🚀 Worker service ready.", "grpc_addr", cfg.GRPCAddr, "socketio_addr", cfg.SocketIOAddr)
	err = g.Wait()
	logger.Info("🏁 Worker service stopped.")
	return err
}
