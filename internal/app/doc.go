// Package app wires the planner's components together. It owns the logger,
// picks a transport for plan requests, and runs the worker in either its
// ephemeral (stdin/stdout) or persistent (gRPC and socket.io) form,
// decoupled from any specific entrypoint like a CLI.
package app
