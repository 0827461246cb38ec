package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/hochfrequenz/litmus/internal/domain"
)

var (
	headerStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	promptFocusStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("205")).
				Padding(0, 1)

	streamingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	idleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	reasoningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	scoreStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("255"))
)

const outputTailLines = 6

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	header := fmt.Sprintf(" litmus │ Models: %d │ %s ", len(m.models), m.runStateLabel())
	b.WriteString(headerStyle.Width(m.width).Render(header))
	b.WriteString("\n")

	promptBox := sectionStyle
	if m.focus == FocusPrompt {
		promptBox = promptFocusStyle
	}
	promptLine := m.prompt
	if m.focus == FocusPrompt {
		promptLine += "█"
	}
	b.WriteString(promptBox.Width(m.width - 2).Render("Prompt: " + promptLine))
	b.WriteString("\n")

	b.WriteString(sectionStyle.Width(m.width - 2).Render(m.renderModels()))
	b.WriteString("\n")

	if len(m.scores) > 0 {
		b.WriteString(sectionStyle.Width(m.width - 2).Render(m.renderScores()))
		b.WriteString("\n")
	}

	if m.showHistory {
		b.WriteString(sectionStyle.Width(m.width - 2).Render(m.renderHistory()))
		b.WriteString("\n")
	}

	if m.statusMsg != "" {
		b.WriteString(statusBarStyle.Width(m.width).Render(" " + m.statusMsg + " "))
		b.WriteString("\n")
	}

	b.WriteString(idleStyle.Render(" enter: run │ e: evaluate │ h: history │ c: cancel model │ C: cancel all │ tab: focus │ q: quit "))

	return b.String()
}

func (m Model) runStateLabel() string {
	switch {
	case m.running:
		return "streaming"
	case m.evaluating:
		return "judging"
	case m.lastRunID > 0:
		return fmt.Sprintf("run #%d", m.lastRunID)
	default:
		return "idle"
	}
}

func (m Model) renderModels() string {
	if len(m.models) == 0 {
		return "No models. Add models with `litmus models add` before launching the dashboard."
	}

	var b strings.Builder
	for i, model := range m.models {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderModelRow(i, model))
	}
	return b.String()
}

func (m Model) renderModelRow(i int, model domain.BenchmarkModel) string {
	var b strings.Builder

	name := model.ModelName
	if m.focus == FocusModels && i == m.selectedRow {
		name = selectedStyle.Render("▸ " + name)
	} else {
		name = "  " + name
	}

	b.WriteString(fmt.Sprintf("%s %s %s", name, statusBadge(model.Status), m.modelMeta(model)))

	if reasoning := model.Reasoning(); reasoning != "" && model.Status == domain.ModelStreaming {
		b.WriteString("\n")
		b.WriteString(reasoningStyle.Render(indent(tail(reasoning, 2))))
	}
	if text := model.Text(); text != "" {
		b.WriteString("\n")
		b.WriteString(indent(tail(text, outputTailLines)))
	}
	if model.Error != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(indent(model.Error)))
	}
	for _, tc := range model.ToolCalls {
		b.WriteString("\n")
		b.WriteString(idleStyle.Render(fmt.Sprintf("    ⚒ %s", tc.Name)))
	}
	return b.String()
}

func (m Model) modelMeta(model domain.BenchmarkModel) string {
	var parts []string
	if d, ok := model.Duration(); ok {
		parts = append(parts, d.Round(100*time.Millisecond).String())
	} else if model.StartTime != nil {
		parts = append(parts, time.Since(*model.StartTime).Round(time.Second).String())
	}
	if model.Usage != nil && model.Usage.OutputTokens != nil {
		parts = append(parts, humanize.Comma(int64(*model.Usage.OutputTokens))+" tok")
	}
	if len(parts) == 0 {
		return ""
	}
	return idleStyle.Render("(" + strings.Join(parts, ", ") + ")")
}

func (m Model) renderScores() string {
	var b strings.Builder
	b.WriteString("Scores\n")
	for _, s := range m.scores {
		b.WriteString(fmt.Sprintf("  %s %s  %s\n",
			scoreStyle.Render(fmt.Sprintf("%4.1f", s.OverallScore)),
			s.ModelID,
			idleStyle.Render(truncate(s.Reasoning, 80))))
	}
	if m.summary != "" {
		b.WriteString(idleStyle.Render("  " + truncate(m.summary, 120)))
	}
	return b.String()
}

func (m Model) renderHistory() string {
	if len(m.history) == 0 {
		return "History\n  no past runs"
	}

	var b strings.Builder
	b.WriteString("History\n")
	for _, r := range m.history {
		score := "  - "
		if r.AvgScore != nil {
			score = scoreStyle.Render(fmt.Sprintf("%4.1f", *r.AvgScore))
		}
		b.WriteString(fmt.Sprintf("  #%-4d %s %s  %s\n",
			r.ID, score,
			idleStyle.Render(fmt.Sprintf("%d models, %s", r.ModelCount, humanize.Time(r.CreatedAt))),
			truncate(strings.ReplaceAll(r.PromptText, "\n", " "), 60)))
	}
	return strings.TrimRight(b.String(), "\n")
}

func statusBadge(s domain.ModelStatus) string {
	switch s {
	case domain.ModelStreaming:
		return streamingStyle.Render("● streaming")
	case domain.ModelDone:
		return doneStyle.Render("✓ done")
	case domain.ModelError:
		return errorStyle.Render("✗ error")
	case domain.ModelCancelled:
		return idleStyle.Render("⊘ cancelled")
	case domain.ModelTimeout:
		return errorStyle.Render("⏱ timeout")
	default:
		return idleStyle.Render("○ idle")
	}
}

func tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) <= n {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "    " + l
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
