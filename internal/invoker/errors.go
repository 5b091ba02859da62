package invoker

// RemoteComputationError is the single error kind for any failure computed
// on the worker side. Message is the worker's message verbatim, so callers
// can match on it regardless of transport.
type RemoteComputationError struct {
	Message    string
	StackTrace string
	// ClassName is the worker-side classification, kept for diagnostics only.
	ClassName string
	RequestID string
}

func (e *RemoteComputationError) Error() string {
	return e.Message
}
