// Package bench orchestrates benchmark runs: it fans one prompt out to
// every model in the working set, streams their output concurrently, and
// persists the settled responses.
package bench

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hochfrequenz/litmus/internal/domain"
	"github.com/hochfrequenz/litmus/internal/llm"
	"github.com/hochfrequenz/litmus/internal/tools"
)

var (
	ErrNoModels       = errors.New("no models in the working set")
	ErrRunInFlight    = errors.New("a run is already in flight")
	ErrEmptyPrompt    = errors.New("prompt is empty")
	ErrDuplicateModel = errors.New("model is already in the working set")
	ErrRunning        = errors.New("working set is locked while a run is in flight")
)

// Streamer produces streaming completions. *llm.Client satisfies it.
type Streamer interface {
	Stream(ctx context.Context, opts llm.StreamOptions, fn llm.EventFunc) (*llm.StreamResult, error)
}

// Store persists runs and their responses.
type Store interface {
	CreateRun(promptText string, toolsEnabled []string) (int64, error)
	CreateResponse(resp *domain.ModelResponse) (int64, error)
}

// Options configures a Runner.
type Options struct {
	Streamer Streamer
	Store    Store
	Tools    []tools.Tool
	// ModelTimeout bounds each model's streaming session. Zero means no
	// timeout.
	ModelTimeout time.Duration
	// OnUpdate is invoked after every state change, for display refresh.
	// May be nil.
	OnUpdate func()
}

// RunOptions configures one benchmark run.
type RunOptions struct {
	Prompt string
	Images []llm.ImageAttachment
	Config *domain.ModelConfig
}

// Runner owns the model working set and drives runs. All exported methods
// are safe for concurrent use.
type Runner struct {
	streamer Streamer
	store    Store
	tools    []tools.Tool
	timeout  time.Duration
	onUpdate func()

	mu      sync.Mutex
	models  []*domain.BenchmarkModel
	cancels map[string]context.CancelFunc
	running bool
}

// NewRunner builds a Runner. Streamer and Store must be set.
func NewRunner(opts Options) *Runner {
	return &Runner{
		streamer: opts.Streamer,
		store:    opts.Store,
		tools:    opts.Tools,
		timeout:  opts.ModelTimeout,
		onUpdate: opts.OnUpdate,
		cancels:  map[string]context.CancelFunc{},
	}
}

// AddModel adds a model to the working set and returns its slot id. The
// same model identifier cannot be added twice.
func (r *Runner) AddModel(modelID, displayName string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return "", ErrRunning
	}
	for _, m := range r.models {
		if m.Model == modelID {
			return "", fmt.Errorf("%w: %s", ErrDuplicateModel, modelID)
		}
	}
	slot := &domain.BenchmarkModel{
		ID:        uuid.NewString(),
		Model:     modelID,
		ModelName: displayName,
		Status:    domain.ModelIdle,
	}
	r.models = append(r.models, slot)
	return slot.ID, nil
}

// RemoveModel removes the slot with the given id from the working set.
func (r *Runner) RemoveModel(slotID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return ErrRunning
	}
	for i, m := range r.models {
		if m.ID == slotID {
			r.models = append(r.models[:i], r.models[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("no model slot %s", slotID)
}

// Models returns a snapshot of the working set, deep-copied so callers can
// read it while a run mutates the originals.
func (r *Runner) Models() []domain.BenchmarkModel {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.BenchmarkModel, len(r.models))
	for i, m := range r.models {
		out[i] = m.Clone()
	}
	return out
}

// Running reports whether a run is in flight.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Run records the run, fans the prompt out to every model, waits for all
// of them to settle, and persists one response per model. A model failing,
// timing out, or being cancelled never aborts its siblings; the run ends
// when the last model settles. Returns the persisted run id.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (int64, error) {
	if strings.TrimSpace(opts.Prompt) == "" {
		return 0, ErrEmptyPrompt
	}

	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return 0, ErrRunInFlight
	}
	if len(r.models) == 0 {
		r.mu.Unlock()
		return 0, ErrNoModels
	}

	toolNames := make([]string, len(r.tools))
	for i, t := range r.tools {
		toolNames[i] = t.Name
	}
	runID, err := r.store.CreateRun(opts.Prompt, toolNames)
	if err != nil {
		r.mu.Unlock()
		return 0, fmt.Errorf("recording run: %w", err)
	}

	r.running = true
	r.cancels = make(map[string]context.CancelFunc, len(r.models))
	models := make([]*domain.BenchmarkModel, len(r.models))
	copy(models, r.models)
	for _, m := range models {
		m.Output = nil
		m.ToolCalls = nil
		m.Status = domain.ModelIdle
		m.Error = ""
		m.StartTime = nil
		m.EndTime = nil
		m.Usage = nil
		m.FinishReason = ""
	}
	r.mu.Unlock()
	r.notify()

	var g errgroup.Group
	for _, m := range models {
		g.Go(func() error {
			r.streamModel(ctx, runID, m, opts)
			return nil
		})
	}
	g.Wait()

	r.mu.Lock()
	r.running = false
	r.cancels = map[string]context.CancelFunc{}
	r.mu.Unlock()
	r.notify()

	return runID, nil
}

// streamModel drives one model's session from start to its terminal state
// and persists the result. It never propagates errors; failures settle
// into the slot's status.
func (r *Runner) streamModel(ctx context.Context, runID int64, m *domain.BenchmarkModel, opts RunOptions) {
	log := clog.FromContext(ctx)

	var cancel context.CancelFunc
	if r.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	r.mu.Lock()
	r.cancels[m.ID] = cancel
	now := time.Now()
	m.StartTime = &now
	if err := m.Transition(domain.ModelStreaming); err != nil {
		r.mu.Unlock()
		log.Error("starting model", "model", m.Model, "err", err)
		return
	}
	r.mu.Unlock()
	r.notify()

	var text, reasoning strings.Builder
	result, streamErr := r.streamer.Stream(ctx, llm.StreamOptions{
		Model:  m.Model,
		Prompt: opts.Prompt,
		Images: opts.Images,
		Tools:  r.tools,
		Config: opts.Config,
	}, func(ev llm.Event) {
		r.mu.Lock()
		switch {
		case ev.TextDelta != "":
			text.WriteString(ev.TextDelta)
		case ev.ReasoningDelta != "":
			reasoning.WriteString(ev.ReasoningDelta)
		case ev.ToolCall != nil:
			m.ToolCalls = append(m.ToolCalls, *ev.ToolCall)
		}
		m.Output = buildFragments(text.String(), reasoning.String())
		r.mu.Unlock()
		r.notify()
	})

	r.mu.Lock()
	end := time.Now()
	m.EndTime = &end
	m.Output = buildFragments(text.String(), reasoning.String())
	terminal := domain.ModelError
	switch {
	case streamErr == nil:
		terminal = domain.ModelDone
		if result != nil {
			m.Usage = result.Usage
			m.FinishReason = result.FinishReason
		}
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		terminal = domain.ModelTimeout
		m.Error = "timed out after " + r.timeout.String()
	case errors.Is(ctx.Err(), context.Canceled):
		terminal = domain.ModelCancelled
		m.Error = "cancelled"
	default:
		m.Error = streamErr.Error()
	}
	if err := m.Transition(terminal); err != nil {
		log.Error("settling model", "model", m.Model, "err", err)
	}
	snapshot := m.Clone()
	r.mu.Unlock()
	r.notify()

	if streamErr != nil {
		log.Info("model settled with failure", "model", m.Model, "status", string(snapshot.Status), "err", streamErr)
	}
	if err := r.persist(runID, &snapshot, opts.Config); err != nil {
		log.Error("persisting model response", "model", m.Model, "err", err)
	}
}

func (r *Runner) persist(runID int64, m *domain.BenchmarkModel, cfg *domain.ModelConfig) error {
	status, err := domain.ResponseStatusFor(m.Status)
	if err != nil {
		return err
	}
	resp := &domain.ModelResponse{
		RunID:         runID,
		ModelID:       m.Model,
		ModelName:     m.ModelName,
		OutputText:    m.Text(),
		ReasoningText: m.Reasoning(),
		ToolCalls:     m.ToolCalls,
		Status:        status,
		ErrorMessage:  m.Error,
		EndTime:       m.EndTime,
		Config:        cfg,
	}
	if m.StartTime != nil {
		resp.StartTime = *m.StartTime
	}
	if d, ok := m.Duration(); ok {
		ms := d.Milliseconds()
		resp.DurationMS = &ms
	}
	if m.Usage != nil {
		resp.TokensInput = m.Usage.InputTokens
		resp.TokensOutput = m.Usage.OutputTokens
	}
	_, err = r.store.CreateResponse(resp)
	return err
}

// CancelModel cancels one model's in-flight session. The slot settles as
// cancelled with whatever output it has produced so far.
func (r *Runner) CancelModel(slotID string) {
	r.mu.Lock()
	cancel := r.cancels[slotID]
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Cancel cancels every in-flight session of the current run.
func (r *Runner) Cancel() {
	r.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(r.cancels))
	for _, c := range r.cancels {
		cancels = append(cancels, c)
	}
	r.mu.Unlock()
	for _, c := range cancels {
		c()
	}
}

func (r *Runner) notify() {
	if r.onUpdate != nil {
		r.onUpdate()
	}
}

// buildFragments rebuilds a slot's output snapshot wholesale, reasoning
// first so displays render the trace above the answer.
func buildFragments(text, reasoning string) []domain.OutputFragment {
	var out []domain.OutputFragment
	if reasoning != "" {
		out = append(out, domain.OutputFragment{Kind: domain.FragmentReasoning, Text: reasoning})
	}
	if text != "" {
		out = append(out, domain.OutputFragment{Kind: domain.FragmentText, Text: text})
	}
	return out
}
