package domain

import (
	"fmt"
	"time"
)

// OutputFragment is one accumulated slice of a model's output snapshot.
// The orchestrator replaces a model's fragment list wholesale on every
// update, so later snapshots are always supersets of earlier ones.
type OutputFragment struct {
	Kind FragmentKind `json:"kind"`
	Text string       `json:"text"`
}

// ToolCall records one tool invocation made by a model mid-generation.
// Result is nil while the call is pending.
type ToolCall struct {
	Name   string         `json:"name"`
	Args   map[string]any `json:"args"`
	Result any            `json:"result,omitempty"`
}

// Usage carries provider-reported token counts. Every field is optional
// because providers report different subsets.
type Usage struct {
	InputTokens      *int `json:"input_tokens,omitempty"`
	OutputTokens     *int `json:"output_tokens,omitempty"`
	TotalTokens      *int `json:"total_tokens,omitempty"`
	CacheReadTokens  *int `json:"cache_read_tokens,omitempty"`
	CacheWriteTokens *int `json:"cache_write_tokens,omitempty"`
	ReasoningTokens  *int `json:"reasoning_tokens,omitempty"`
}

// ModelConfig holds per-invocation sampling overrides.
type ModelConfig struct {
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
}

// BenchmarkModel is the working state of one model slot during a benchmark
// run. It is owned by the orchestrator and updated only by that model's own
// streaming session.
type BenchmarkModel struct {
	ID           string // slot id, unique within the working set
	Model        string // provider model identifier
	ModelName    string // display name
	Output       []OutputFragment
	ToolCalls    []ToolCall
	Status       ModelStatus
	Error        string
	StartTime    *time.Time
	EndTime      *time.Time
	Usage        *Usage
	FinishReason string
}

// Transition moves the model to the next status, rejecting illegal moves.
func (m *BenchmarkModel) Transition(next ModelStatus) error {
	if !m.Status.CanTransition(next) {
		return fmt.Errorf("illegal status transition %s -> %s for model %s", m.Status, next, m.Model)
	}
	m.Status = next
	return nil
}

// Text returns the accumulated text output.
func (m *BenchmarkModel) Text() string {
	return m.fragment(FragmentText)
}

// Reasoning returns the accumulated reasoning output.
func (m *BenchmarkModel) Reasoning() string {
	return m.fragment(FragmentReasoning)
}

func (m *BenchmarkModel) fragment(kind FragmentKind) string {
	for _, f := range m.Output {
		if f.Kind == kind {
			return f.Text
		}
	}
	return ""
}

// Duration returns end-start when both are set.
func (m *BenchmarkModel) Duration() (time.Duration, bool) {
	if m.StartTime == nil || m.EndTime == nil {
		return 0, false
	}
	return m.EndTime.Sub(*m.StartTime), true
}

// Clone returns a deep copy safe to hand to the presentation layer while the
// run is still mutating the original.
func (m *BenchmarkModel) Clone() BenchmarkModel {
	out := *m
	out.Output = append([]OutputFragment(nil), m.Output...)
	out.ToolCalls = append([]ToolCall(nil), m.ToolCalls...)
	if m.StartTime != nil {
		t := *m.StartTime
		out.StartTime = &t
	}
	if m.EndTime != nil {
		t := *m.EndTime
		out.EndTime = &t
	}
	if m.Usage != nil {
		u := *m.Usage
		out.Usage = &u
	}
	return out
}
