package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vk/planner/internal/app"
	"github.com/vk/planner/internal/cli"
	"github.com/vk/planner/internal/hcl_adapter"
)

// main is the entrypoint for the planner application.
func main() {
	// Use a minimal logger until the full one is configured. Stdout belongs
	// to the worker protocol, so logs always go to stderr.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, app.Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}, os.Args[1:])
	stop()

	os.Exit(exitCode(err, os.Stderr))
}

// run encapsulates the main application logic for easier testing and error handling.
func run(ctx context.Context, streams app.Streams, args []string) error {
	cfg, shouldExit, err := cli.Parse(args, streams.Err)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	return app.NewApp(streams, cfg, hcl_adapter.NewLoader()).Run(ctx)
}

// exitCode reports err on w and maps it to a process exit code.
func exitCode(err error, w io.Writer) int {
	if err == nil {
		return 0
	}

	var workerExit *app.WorkerExitError
	if errors.As(err, &workerExit) {
		return workerExit.Code
	}

	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		fmt.Fprintln(w, exitErr.Message)
		return exitErr.Code
	}

	fmt.Fprintln(w, err)
	return 1
}
