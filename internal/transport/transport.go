// Package transport carries wire requests to a worker and brings back its
// response. Ephemeral spawns one worker process per request; GRPC and
// SocketIO talk to a long-lived worker service over a shared connection.
//
// A transport returns an error only when it could not obtain a well-formed
// response. Worker-side failures travel inside the response.
package transport

import (
	"context"
	"time"

	"github.com/vk/planner/internal/wire"
)

// DefaultTimeout bounds a single request on every transport.
const DefaultTimeout = 60 * time.Second

// Transport delivers one request and returns the worker's response.
type Transport interface {
	Invoke(ctx context.Context, req *wire.Request) (*wire.Response, error)
}
