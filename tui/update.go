package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hochfrequenz/litmus/internal/bench"
	"github.com/hochfrequenz/litmus/internal/judge"
)

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case TickMsg:
		m.models = m.runner.Models()
		m.running = m.runner.Running()
		return m, tickCmd()

	case RunDoneMsg:
		m.running = false
		if msg.Err != nil {
			m.statusMsg = "Run failed: " + msg.Err.Error()
		} else {
			m.lastRunID = msg.RunID
			m.statusMsg = fmt.Sprintf("Run #%d complete. Press e to evaluate.", msg.RunID)
		}
		m.models = m.runner.Models()
		return m, nil

	case EvalDoneMsg:
		m.evaluating = false
		if msg.Err != nil {
			m.statusMsg = "Evaluation failed: " + msg.Err.Error()
			return m, nil
		}
		m.scores = msg.Result.Evaluations
		m.summary = msg.Result.Summary
		m.statusMsg = "Evaluation complete."
		return m, nil

	case HistoryMsg:
		if msg.Err != nil {
			m.statusMsg = "History load failed: " + msg.Err.Error()
			m.showHistory = false
			return m, nil
		}
		m.history = msg.Runs
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Prompt editing captures printable keys, so global bindings are
	// limited to control chords while the prompt has focus.
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "tab":
		if m.focus == FocusPrompt {
			m.focus = FocusModels
		} else {
			m.focus = FocusPrompt
		}
		return m, nil
	case "enter":
		return m.startRun()
	}

	if m.focus == FocusPrompt {
		switch msg.Type {
		case tea.KeyBackspace:
			if len(m.prompt) > 0 {
				m.prompt = m.prompt[:len(m.prompt)-1]
			}
		case tea.KeyRunes, tea.KeySpace:
			m.prompt += string(msg.Runes)
			if msg.Type == tea.KeySpace {
				m.prompt += " "
			}
		}
		return m, nil
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "j", "down":
		if m.selectedRow < len(m.models)-1 {
			m.selectedRow++
		}
	case "k", "up":
		if m.selectedRow > 0 {
			m.selectedRow--
		}
	case "c":
		if m.running && m.selectedRow < len(m.models) {
			m.runner.CancelModel(m.models[m.selectedRow].ID)
			m.statusMsg = "Cancelled " + m.models[m.selectedRow].ModelName
		}
	case "C":
		if m.running {
			m.runner.Cancel()
			m.statusMsg = "Cancelling all models..."
		}
	case "e":
		return m.startEvaluation()
	case "h":
		return m.toggleHistory()
	}
	return m, nil
}

func (m Model) toggleHistory() (tea.Model, tea.Cmd) {
	if m.showHistory {
		m.showHistory = false
		return m, nil
	}
	if m.historian == nil {
		return m, nil
	}
	m.showHistory = true
	historian := m.historian
	return m, func() tea.Msg {
		runs, err := historian.RecentRuns(10, 0)
		return HistoryMsg{Runs: runs, Err: err}
	}
}

func (m Model) startRun() (tea.Model, tea.Cmd) {
	if m.running {
		m.statusMsg = "A run is already in flight"
		return m, nil
	}
	if strings.TrimSpace(m.prompt) == "" {
		m.statusMsg = "Enter a prompt first"
		return m, nil
	}
	m.running = true
	m.scores = nil
	m.summary = ""
	m.statusMsg = "Running..."
	m.focus = FocusModels

	runner, prompt := m.runner, m.prompt
	return m, func() tea.Msg {
		runID, err := runner.Run(context.Background(), bench.RunOptions{Prompt: prompt})
		return RunDoneMsg{RunID: runID, Err: err}
	}
}

func (m Model) startEvaluation() (tea.Model, tea.Cmd) {
	if m.lastRunID == 0 {
		m.statusMsg = "No finished run to evaluate"
		return m, nil
	}
	if m.evaluating {
		return m, nil
	}
	m.evaluating = true
	m.statusMsg = "Judging..."

	evaluator, runID, judgeModel := m.evaluator, m.lastRunID, m.judgeModel
	return m, func() tea.Msg {
		result, err := evaluator.EvaluateRun(context.Background(), runID, judge.Options{JudgeModel: judgeModel})
		return EvalDoneMsg{Result: result, Err: err}
	}
}
