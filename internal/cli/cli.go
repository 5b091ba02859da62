package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/vk/planner/internal/app"
	"github.com/vk/planner/internal/env"
	"github.com/vk/planner/internal/transport"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

const usage = `
Planner - computes execution plan snapshots for pipeline definitions in an
isolated worker.

Usage:
  planner plan   [options]   request a plan and print it as JSON
  planner worker [options]   answer one request on stdin/stdout
  planner serve  [options]   run the persistent worker service

Run 'planner <command> -h' for the options of a command.
`

// defaults are read from the environment before flags are applied.
type defaults struct {
	logLevel     string
	logFormat    string
	timeout      time.Duration
	grpcAddr     string
	socketIOAddr string
	healthPort   int
}

func loadDefaults() (defaults, error) {
	d := defaults{
		logLevel:     env.String("PLANNER_LOG_LEVEL", "info"),
		logFormat:    env.String("PLANNER_LOG_FORMAT", "text"),
		grpcAddr:     env.String("PLANNER_GRPC_ADDR", ""),
		socketIOAddr: env.String("PLANNER_SOCKETIO_ADDR", ""),
	}
	var err error
	if d.timeout, err = env.Duration("PLANNER_WORKER_TIMEOUT", transport.DefaultTimeout); err != nil {
		return d, err
	}
	if d.healthPort, err = env.Int("PLANNER_HEALTHCHECK_PORT", 0); err != nil {
		return d, err
	}
	return d, nil
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")

	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		fmt.Fprint(output, usage)
		return nil, true, nil
	}

	d, err := loadDefaults()
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	command, rest := args[0], args[1:]
	flagSet := flag.NewFlagSet("planner "+command, flag.ContinueOnError)
	flagSet.SetOutput(output)

	cfg := app.Config{Command: command}
	logLevelFlag := flagSet.String("log-level", d.logLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	logFormatFlag := flagSet.String("log-format", d.logFormat, "Log output format. Options: 'text' or 'json'.")

	var solidSelection, stepKeys, workerCommand string
	switch command {
	case app.CommandPlan:
		p := &cfg.Plan
		flagSet.StringVar(&p.OriginPath, "origin", "", "Path to a .hcl file or a directory containing .hcl files.")
		flagSet.StringVar(&p.Pipeline, "pipeline", "", "Name of the pipeline to plan.")
		flagSet.StringVar(&p.Mode, "mode", "", "Mode to plan for. Defaults to the pipeline's default mode.")
		flagSet.StringVar(&p.RunConfigPath, "run-config", "", "Path to a YAML or JSON run configuration.")
		flagSet.StringVar(&solidSelection, "solid-selection", "", "Comma-separated solid queries, e.g. '*report,source+'.")
		flagSet.StringVar(&stepKeys, "step-keys", "", "Comma-separated step keys to execute.")
		flagSet.StringVar(&p.SnapshotID, "snapshot-id", "", "Opaque id copied into the snapshot.")
		flagSet.StringVar(&p.Transport, "transport", app.TransportEphemeral, "How to reach the worker. Options: 'ephemeral', 'grpc', 'socketio'.")
		flagSet.StringVar(&p.Addr, "addr", "", "Worker service address: host:port for grpc, http://host:port for socketio.")
		flagSet.DurationVar(&p.Timeout, "timeout", d.timeout, "Maximum time to wait for the worker's response.")
		flagSet.StringVar(&workerCommand, "worker-command", "", "Command line of the ephemeral worker. Defaults to this binary.")
	case app.CommandServe:
		s := &cfg.Serve
		flagSet.StringVar(&s.GRPCAddr, "grpc-addr", d.grpcAddr, "Listen address of the gRPC service. Empty disables it.")
		flagSet.StringVar(&s.SocketIOAddr, "socketio-addr", d.socketIOAddr, "Listen address of the socket.io service. Empty disables it.")
		flagSet.IntVar(&s.HealthcheckPort, "healthcheck-port", d.healthPort, "Port for the HTTP health check server. 0 is disabled.")
	case app.CommandWorker:
	default:
		fmt.Fprint(output, usage)
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unknown command %q", command)}
	}

	if err := flagSet.Parse(rest); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if flagSet.NArg() > 0 {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unexpected arguments: %s", strings.Join(flagSet.Args(), " "))}
	}
	slog.Debug("Arguments parsed successfully.", "command", command)

	cfg.LogFormat = strings.ToLower(*logFormatFlag)
	if !slices.Contains(app.LogFormats, cfg.LogFormat) {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	cfg.LogLevel = strings.ToLower(*logLevelFlag)
	if !slices.Contains(app.LogLevels, cfg.LogLevel) {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	cfg.Plan.SolidSelection = splitList(solidSelection)
	cfg.Plan.StepKeys = splitList(stepKeys)
	cfg.Plan.WorkerCommand = strings.Fields(workerCommand)
	cfg.Plan.Transport = strings.ToLower(cfg.Plan.Transport)
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

// splitList splits a comma-separated flag value, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
