package domain

import "fmt"

// ModelStatus is the in-memory lifecycle state of one model during a run.
// Transitions are monotonic: once a model reaches a terminal state it never
// re-enters streaming within the same attempt.
type ModelStatus string

const (
	ModelIdle      ModelStatus = "idle"
	ModelStreaming ModelStatus = "streaming"
	ModelDone      ModelStatus = "done"
	ModelError     ModelStatus = "error"
	ModelCancelled ModelStatus = "cancelled"
	ModelTimeout   ModelStatus = "timeout"
)

// Terminal reports whether the status is a final state.
func (s ModelStatus) Terminal() bool {
	switch s {
	case ModelDone, ModelError, ModelCancelled, ModelTimeout:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next is a legal transition.
func (s ModelStatus) CanTransition(next ModelStatus) bool {
	switch s {
	case ModelIdle:
		return next == ModelStreaming
	case ModelStreaming:
		return next.Terminal()
	default:
		return false
	}
}

// ResponseStatus is the persisted outcome of one model's participation in a run.
type ResponseStatus string

const (
	ResponseCompleted ResponseStatus = "completed"
	ResponseError     ResponseStatus = "error"
	ResponseTimeout   ResponseStatus = "timeout"
	ResponseCancelled ResponseStatus = "cancelled"
)

// ResponseStatusFor maps a terminal in-memory status to its persisted form.
func ResponseStatusFor(s ModelStatus) (ResponseStatus, error) {
	switch s {
	case ModelDone:
		return ResponseCompleted, nil
	case ModelError:
		return ResponseError, nil
	case ModelCancelled:
		return ResponseCancelled, nil
	case ModelTimeout:
		return ResponseTimeout, nil
	}
	return "", fmt.Errorf("status %q is not terminal", s)
}

// FragmentKind distinguishes the output channels of a streaming reply.
type FragmentKind string

const (
	FragmentText      FragmentKind = "text"
	FragmentReasoning FragmentKind = "reasoning"
)
