package app

import (
	"errors"
	"fmt"
	"time"
)

// Commands understood by App.Run.
const (
	CommandPlan   = "plan"
	CommandWorker = "worker"
	CommandServe  = "serve"
)

// Transports a plan request can be sent over.
const (
	TransportEphemeral = "ephemeral"
	TransportGRPC      = "grpc"
	TransportSocketIO  = "socketio"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Command string

	LogFormat string
	LogLevel  string

	Plan  PlanConfig
	Serve ServeConfig
}

// PlanConfig describes one execution plan request.
type PlanConfig struct {
	OriginPath     string // hcl file or directory
	Pipeline       string
	Mode           string
	RunConfigPath  string // yaml or json, optional
	SolidSelection []string
	StepKeys       []string
	SnapshotID     string

	Transport string
	Addr      string // service address for grpc and socketio
	Timeout   time.Duration
	// WorkerCommand runs the ephemeral worker. Empty means this binary.
	WorkerCommand []string
}

// ServeConfig describes the persistent worker service.
type ServeConfig struct {
	GRPCAddr        string
	SocketIOAddr    string
	HealthcheckPort int
}

// NewConfig validates cfg for its command.
func NewConfig(cfg Config) (*Config, error) {
	switch cfg.Command {
	case CommandPlan:
		p := cfg.Plan
		if p.OriginPath == "" {
			return nil, errors.New("origin is a required configuration field and cannot be empty")
		}
		if p.Pipeline == "" {
			return nil, errors.New("pipeline is a required configuration field and cannot be empty")
		}
		if len(p.SolidSelection) > 0 && len(p.StepKeys) > 0 {
			return nil, errors.New("solid-selection and step-keys are mutually exclusive")
		}
		switch p.Transport {
		case TransportEphemeral:
		case TransportGRPC, TransportSocketIO:
			if p.Addr == "" {
				return nil, fmt.Errorf("addr is required for the %s transport", p.Transport)
			}
		default:
			return nil, fmt.Errorf("unknown transport %q: must be 'ephemeral', 'grpc' or 'socketio'", p.Transport)
		}
	case CommandServe:
		if cfg.Serve.GRPCAddr == "" && cfg.Serve.SocketIOAddr == "" {
			return nil, errors.New("at least one of grpc-addr and socketio-addr must be set")
		}
	case CommandWorker:
	default:
		return nil, fmt.Errorf("unknown command %q", cfg.Command)
	}
	return &cfg, nil
}
