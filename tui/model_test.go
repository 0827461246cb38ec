package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hochfrequenz/litmus/internal/bench"
	"github.com/hochfrequenz/litmus/internal/domain"
	"github.com/hochfrequenz/litmus/internal/judge"
	"github.com/hochfrequenz/litmus/internal/llm"
)

type noopStreamer struct{}

func (noopStreamer) Stream(_ context.Context, _ llm.StreamOptions, _ llm.EventFunc) (*llm.StreamResult, error) {
	return &llm.StreamResult{Text: "ok", FinishReason: "stop"}, nil
}

type benchStore struct{}

func (benchStore) CreateRun(string, []string) (int64, error) { return 1, nil }

func (benchStore) CreateResponse(*domain.ModelResponse) (int64, error) { return 1, nil }

type fakeEvaluator struct {
	result *judge.Result
	err    error
}

func (f *fakeEvaluator) EvaluateRun(_ context.Context, _ int64, _ judge.Options) (*judge.Result, error) {
	return f.result, f.err
}

type fakeHistorian struct {
	runs []domain.RunSummary
}

func (f *fakeHistorian) RecentRuns(int, int) ([]domain.RunSummary, error) {
	return f.runs, nil
}

func testModel(t *testing.T) Model {
	t.Helper()
	runner := bench.NewRunner(bench.Options{Streamer: noopStreamer{}, Store: benchStore{}})
	runner.AddModel("m1", "Model One")
	runner.AddModel("m2", "Model Two")
	return NewModel(ModelConfig{Runner: runner, Evaluator: &fakeEvaluator{}, JudgeModel: "j"})
}

func TestModel_PromptTyping(t *testing.T) {
	m := testModel(t)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("hi")})
	m = updated.(Model)
	if m.prompt != "hi" {
		t.Errorf("prompt = %q, want hi", m.prompt)
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	m = updated.(Model)
	if m.prompt != "h" {
		t.Errorf("prompt = %q, want h", m.prompt)
	}
}

func TestModel_TabSwitchesFocus(t *testing.T) {
	m := testModel(t)
	if m.focus != FocusPrompt {
		t.Fatalf("initial focus = %v, want prompt", m.focus)
	}

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = updated.(Model)
	if m.focus != FocusModels {
		t.Errorf("focus = %v, want models", m.focus)
	}
}

func TestModel_Selection(t *testing.T) {
	m := testModel(t)
	m.focus = FocusModels

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	m = updated.(Model)
	if m.selectedRow != 1 {
		t.Errorf("selectedRow = %d, want 1", m.selectedRow)
	}
	// Stays in bounds.
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	m = updated.(Model)
	if m.selectedRow != 1 {
		t.Errorf("selectedRow = %d, want clamped to 1", m.selectedRow)
	}
}

func TestModel_RunDone(t *testing.T) {
	m := testModel(t)

	updated, _ := m.Update(RunDoneMsg{RunID: 42})
	m = updated.(Model)
	if m.lastRunID != 42 {
		t.Errorf("lastRunID = %d, want 42", m.lastRunID)
	}
	if !strings.Contains(m.statusMsg, "42") {
		t.Errorf("statusMsg = %q, want run id mention", m.statusMsg)
	}
}

func TestModel_RunDoneError(t *testing.T) {
	m := testModel(t)

	updated, _ := m.Update(RunDoneMsg{Err: errors.New("boom")})
	m = updated.(Model)
	if m.lastRunID != 0 {
		t.Errorf("lastRunID = %d, want 0", m.lastRunID)
	}
	if !strings.Contains(m.statusMsg, "boom") {
		t.Errorf("statusMsg = %q, want error mention", m.statusMsg)
	}
}

func TestModel_EvalDone(t *testing.T) {
	m := testModel(t)
	m.evaluating = true

	updated, _ := m.Update(EvalDoneMsg{Result: &judge.Result{
		Evaluations: []judge.ModelEvaluation{{ModelID: "m1", OverallScore: 7}},
		Summary:     "m1 was fine",
	}})
	m = updated.(Model)
	if m.evaluating {
		t.Error("evaluating still true after EvalDoneMsg")
	}
	if len(m.scores) != 1 || m.scores[0].OverallScore != 7 {
		t.Errorf("scores = %+v", m.scores)
	}
}

func TestModel_HistoryToggle(t *testing.T) {
	m := testModel(t)
	m.historian = &fakeHistorian{runs: []domain.RunSummary{
		{Run: domain.Run{ID: 7, PromptText: "sum of squares"}, ModelCount: 2},
	}}
	m.focus = FocusModels
	m.width = 100

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("h")})
	m = updated.(Model)
	if !m.showHistory {
		t.Fatal("showHistory not set after h")
	}
	if cmd == nil {
		t.Fatal("expected a load command")
	}
	updated, _ = m.Update(cmd())
	m = updated.(Model)

	out := m.View()
	if !strings.Contains(out, "sum of squares") {
		t.Error("view is missing the history row")
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("h")})
	m = updated.(Model)
	if m.showHistory {
		t.Error("showHistory still set after second h")
	}
}

func TestModel_View(t *testing.T) {
	m := testModel(t)
	m.width = 100
	m.height = 40
	m.prompt = "what is love"

	out := m.View()
	if !strings.Contains(out, "Model One") || !strings.Contains(out, "Model Two") {
		t.Error("view is missing model rows")
	}
	if !strings.Contains(out, "what is love") {
		t.Error("view is missing the prompt")
	}
}

func TestTail(t *testing.T) {
	got := tail("a\nb\nc\nd", 2)
	if got != "c\nd" {
		t.Errorf("tail = %q, want c\\nd", got)
	}
	if tail("a", 3) != "a" {
		t.Error("tail of short input should be unchanged")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("hello", 3); got != "hel…" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("hi", 10); got != "hi" {
		t.Errorf("truncate = %q, want unchanged", got)
	}
}
