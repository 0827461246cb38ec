// Package tui renders the interactive benchmark dashboard.
package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hochfrequenz/litmus/internal/bench"
	"github.com/hochfrequenz/litmus/internal/domain"
	"github.com/hochfrequenz/litmus/internal/judge"
)

// Focus determines which pane receives key input
type Focus int

const (
	FocusPrompt Focus = iota
	FocusModels
)

// Evaluator runs a judge evaluation over a persisted run
type Evaluator interface {
	EvaluateRun(ctx context.Context, runID int64, opts judge.Options) (*judge.Result, error)
}

// Historian lists past runs for the history pane
type Historian interface {
	RecentRuns(limit, offset int) ([]domain.RunSummary, error)
}

// Model is the TUI application model
type Model struct {
	runner     *bench.Runner
	evaluator  Evaluator
	historian  Historian
	judgeModel string

	// Data snapshots refreshed on every tick
	models []domain.BenchmarkModel

	// History pane
	showHistory bool
	history     []domain.RunSummary

	// Run state
	lastRunID  int64
	running    bool
	evaluating bool
	scores     []judge.ModelEvaluation
	summary    string

	// UI state
	prompt      string
	focus       Focus
	selectedRow int
	width       int
	height      int
	statusMsg   string
}

// ModelConfig holds initial data for the TUI model
type ModelConfig struct {
	Runner     *bench.Runner
	Evaluator  Evaluator
	Historian  Historian
	JudgeModel string
	Prompt     string
}

// NewModel creates a new TUI model
func NewModel(cfg ModelConfig) Model {
	return Model{
		runner:     cfg.Runner,
		evaluator:  cfg.Evaluator,
		historian:  cfg.Historian,
		judgeModel: cfg.JudgeModel,
		prompt:     cfg.Prompt,
		models:     cfg.Runner.Models(),
		focus:      FocusPrompt,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// TickMsg triggers a refresh
type TickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// RunDoneMsg is sent when a benchmark run settles
type RunDoneMsg struct {
	RunID int64
	Err   error
}

// EvalDoneMsg is sent when a judge evaluation completes
type EvalDoneMsg struct {
	Result *judge.Result
	Err    error
}

// HistoryMsg carries the loaded run history
type HistoryMsg struct {
	Runs []domain.RunSummary
	Err  error
}
