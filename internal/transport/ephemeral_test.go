package transport

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/planner/internal/origin"
	"github.com/vk/planner/internal/plan"
	"github.com/vk/planner/internal/selection"
	"github.com/vk/planner/internal/testutil"
	"github.com/vk/planner/internal/wire"
)

func TestEphemeral_Snapshot(t *testing.T) {
	ctx, _ := testutil.Context(t)
	path := testutil.WriteFooPipeline(t)
	tr := testWorker(t, "serve")

	req := wire.NewRequest(origin.File(path, "foo"), nil, "default", selection.None(), "snap-1")
	resp, err := tr.Invoke(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, req.RequestID, resp.RequestID)
	require.NotNil(t, resp.Snapshot)
	assert.Nil(t, resp.Failure)
	assert.Equal(t, []string{"do_something.compute", "do_input.compute"}, resp.Snapshot.StepKeysToExecute)
	assert.Equal(t, "snap-1", resp.Snapshot.PipelineSnapshotID)
}

func TestEphemeral_SerializedFailure(t *testing.T) {
	ctx, _ := testutil.Context(t)
	path := testutil.WriteFooPipeline(t)
	tr := testWorker(t, "serve")

	resp, err := tr.Invoke(ctx, wire.NewRequest(origin.File(path, "foo"), nil, "made_up_mode", selection.None(), ""))
	require.NoError(t, err, "a worker-side failure is a response, not a transport error")

	require.NotNil(t, resp.Failure)
	assert.Nil(t, resp.Snapshot)
	assert.Equal(t, "Could not find mode made_up_mode in pipeline foo", resp.Failure.Message)
	assert.Equal(t, "ModeNotFoundError", resp.Failure.ClassName)
	assert.NotEmpty(t, resp.Failure.StackTrace)
}

func TestEphemeral_WorkerProcessErrors(t *testing.T) {
	testCases := []struct {
		name      string
		mode      string
		opts      []EphemeralOption
		wantCode  int
		wantErr   error
		wantInErr string
	}{
		{
			name:      "crash before responding",
			mode:      "crash",
			wantCode:  7,
			wantInErr: "worker exploded before responding",
		},
		{
			name:     "garbage on stdout",
			mode:     "garbage",
			wantCode: 0,
			wantErr:  ErrMalformedResponse,
		},
		{
			name:      "exit zero without a response",
			mode:      "silent",
			wantCode:  0,
			wantErr:   ErrMalformedResponse,
			wantInErr: "worker wrote no response",
		},
		{
			name:     "timeout",
			mode:     "sleep",
			opts:     []EphemeralOption{WithTimeout(300 * time.Millisecond)},
			wantCode: -1,
			wantErr:  ErrWorkerTimeout,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ctx, _ := testutil.Context(t)
			tr := testWorker(t, tc.mode, tc.opts...)

			resp, err := tr.Invoke(ctx, wire.NewRequest(origin.File("unused.hcl", "foo"), nil, "", selection.None(), ""))
			require.Error(t, err)
			assert.Nil(t, resp)

			var wpe *WorkerProcessError
			require.ErrorAs(t, err, &wpe)
			assert.Equal(t, tc.wantCode, wpe.ExitCode)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			}
			if tc.wantInErr != "" {
				assert.Contains(t, err.Error(), tc.wantInErr)
			}
		})
	}
}

func TestEphemeral_ConcurrentCallsGetTheirOwnWorker(t *testing.T) {
	ctx, _ := testutil.Context(t)
	foo := testutil.WriteFooPipeline(t)
	tr := testWorker(t, "serve")

	modes := []string{"default", "other", "missing", "default", "other"}
	var wg sync.WaitGroup
	responses := make([]*wire.Response, len(modes))
	requests := make([]*wire.Request, len(modes))
	errs := make([]error, len(modes))
	for i, mode := range modes {
		requests[i] = wire.NewRequest(origin.File(foo, "foo"), nil, mode, selection.None(), "")
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			responses[i], errs[i] = tr.Invoke(ctx, requests[i])
		}(i)
	}
	wg.Wait()

	for i, mode := range modes {
		require.NoError(t, errs[i])
		assert.Equal(t, requests[i].RequestID, responses[i].RequestID)
		if mode == "missing" {
			require.NotNil(t, responses[i].Failure)
			assert.Equal(t, "Could not find mode missing in pipeline foo", responses[i].Failure.Message)
			continue
		}
		require.NotNil(t, responses[i].Snapshot)
		assert.Equal(t, mode, responses[i].Snapshot.Mode)
	}
}

func TestDecodeSingleResponse(t *testing.T) {
	snapshot := &plan.Snapshot{
		Pipeline:          "foo",
		Mode:              "default",
		Steps:             []plan.StepSnapshot{{Key: "a.compute", Solid: "a", Kind: "compute", Dependencies: []string{}}},
		StepKeysToExecute: []string{"a.compute"},
	}
	encode := func(t *testing.T, values ...any) []byte {
		t.Helper()
		var buf bytes.Buffer
		for _, v := range values {
			require.NoError(t, wire.Encode(&buf, v))
		}
		return buf.Bytes()
	}

	testCases := []struct {
		name     string
		data     func(t *testing.T) []byte
		exitCode int
		wantErr  string
	}{
		{
			name:     "snapshot with exit code zero",
			data:     func(t *testing.T) []byte { return encode(t, &wire.Response{RequestID: "r1", Snapshot: snapshot}) },
			exitCode: 0,
		},
		{
			name:     "failure with reserved exit code",
			data:     func(t *testing.T) []byte { return encode(t, &wire.Response{RequestID: "r1", Failure: &wire.Failure{Message: "boom"}}) },
			exitCode: wire.ExitCodeFailure,
		},
		{
			name:     "wrong request id",
			data:     func(t *testing.T) []byte { return encode(t, &wire.Response{RequestID: "r2", Snapshot: snapshot}) },
			exitCode: 0,
			wantErr:  `response is for request "r2"`,
		},
		{
			name:     "failure with exit code zero",
			data:     func(t *testing.T) []byte { return encode(t, &wire.Response{RequestID: "r1", Failure: &wire.Failure{Message: "boom"}}) },
			exitCode: 0,
			wantErr:  "exit code 0 without a snapshot",
		},
		{
			name:     "snapshot with reserved exit code",
			data:     func(t *testing.T) []byte { return encode(t, &wire.Response{RequestID: "r1", Snapshot: snapshot}) },
			exitCode: wire.ExitCodeFailure,
			wantErr:  "without a failure",
		},
		{
			name: "two responses",
			data: func(t *testing.T) []byte {
				resp := &wire.Response{RequestID: "r1", Snapshot: snapshot}
				return encode(t, resp, resp)
			},
			exitCode: 0,
			wantErr:  "unexpected trailing bytes",
		},
		{
			name:     "empty response",
			data:     func(t *testing.T) []byte { return encode(t, &wire.Response{RequestID: "r1"}) },
			exitCode: 0,
			wantErr:  "neither a snapshot nor a failure",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := decodeSingleResponse(tc.data(t), "r1", tc.exitCode)
			if tc.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "r1", resp.RequestID)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedResponse))
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestBoundedBuffer(t *testing.T) {
	b := &boundedBuffer{limit: 8}
	n, err := b.Write([]byte("12345"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = b.Write([]byte("67890"))
	require.NoError(t, err)
	assert.Equal(t, 5, n, "writes report full length so the child never blocks")

	_, _ = b.Write([]byte("more"))
	assert.True(t, strings.HasPrefix(b.String(), "12345678"))
	assert.Contains(t, b.String(), "[stderr truncated]")
}

func TestWorkerProcessError_Message(t *testing.T) {
	err := &WorkerProcessError{ExitCode: 2, Stderr: "  traceback here \n", Err: ErrMalformedResponse}
	assert.Equal(t, "worker process failed (exit code 2): malformed worker response\nstderr:\ntraceback here", err.Error())
	assert.ErrorIs(t, err, ErrMalformedResponse)
}
