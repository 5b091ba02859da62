package worker

import (
	"bufio"
	"context"
	"io"

	"github.com/vk/planner/internal/ctxlog"
	"github.com/vk/planner/internal/wire"
)

// Exit codes of an ephemeral worker besides 0 and wire.ExitCodeFailure.
const (
	ExitCodeEncode   = 1
	ExitCodeProtocol = 2
)

// ServeStdio reads one request from r, writes one response to w and returns
// the process exit code: 0 for a snapshot, wire.ExitCodeFailure for a
// serialized failure, anything else when no response could be written.
func ServeStdio(ctx context.Context, h *Handler, r io.Reader, w io.Writer) int {
	logger := ctxlog.FromContext(ctx)

	var req wire.Request
	if err := wire.Decode(bufio.NewReader(r), &req); err != nil {
		logger.Error("Failed to read request from stdin.", "error", err)
		return ExitCodeProtocol
	}

	resp := h.Handle(ctx, &req)

	out := bufio.NewWriter(w)
	if err := wire.Encode(out, resp); err != nil {
		logger.Error("Failed to write response.", "error", err)
		return ExitCodeEncode
	}
	if err := out.Flush(); err != nil {
		logger.Error("Failed to flush response.", "error", err)
		return ExitCodeEncode
	}

	if resp.Failure != nil {
		return wire.ExitCodeFailure
	}
	return 0
}
