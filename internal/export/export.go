// Package export renders persisted runs as JSON or CSV files.
package export

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/hochfrequenz/litmus/internal/domain"
)

// Store is the read surface the exporter needs.
type Store interface {
	GetRun(id int64) (*domain.Run, error)
	GetResponsesForRun(runID int64) ([]domain.ModelResponse, error)
	GetLatestEvaluationForRun(runID int64) (*domain.EvaluationWithScores, error)
}

// Run is the JSON export shape of one run with its responses and, when
// present, its latest evaluation.
type Run struct {
	ID           int64       `json:"id"`
	Prompt       string      `json:"prompt"`
	ToolsEnabled []string    `json:"tools_enabled,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	Responses    []Response  `json:"responses"`
	Evaluation   *Evaluation `json:"evaluation,omitempty"`
}

// Response is the JSON export shape of one model response.
type Response struct {
	ModelID    string            `json:"model_id"`
	ModelName  string            `json:"model_name"`
	Output     string            `json:"output"`
	Reasoning  string            `json:"reasoning,omitempty"`
	ToolCalls  []domain.ToolCall `json:"tool_calls,omitempty"`
	Status     string            `json:"status"`
	DurationMS *int64            `json:"duration_ms,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// Evaluation is the JSON export shape of a run's latest evaluation.
type Evaluation struct {
	JudgeModel string  `json:"judge_model"`
	Scores     []Score `json:"scores"`
}

// Score is one model's score within an exported evaluation.
type Score struct {
	ModelID        string             `json:"model_id"`
	ModelName      string             `json:"model_name"`
	Score          float64            `json:"score"`
	Reasoning      string             `json:"reasoning,omitempty"`
	CriteriaScores map[string]float64 `json:"criteria_scores,omitempty"`
}

// Exporter reads runs from the store and writes export files.
type Exporter struct {
	store Store
}

// New builds an Exporter.
func New(store Store) *Exporter {
	return &Exporter{store: store}
}

// BuildRun assembles the export shape for one run.
func (e *Exporter) BuildRun(runID int64) (*Run, error) {
	run, err := e.store.GetRun(runID)
	if err != nil {
		return nil, fmt.Errorf("loading run %d: %w", runID, err)
	}

	responses, err := e.store.GetResponsesForRun(runID)
	if err != nil {
		return nil, err
	}

	out := &Run{
		ID:           run.ID,
		Prompt:       run.PromptText,
		ToolsEnabled: run.ToolsEnabled,
		CreatedAt:    run.CreatedAt,
		Responses:    make([]Response, len(responses)),
	}
	for i, r := range responses {
		out.Responses[i] = Response{
			ModelID:    r.ModelID,
			ModelName:  r.ModelName,
			Output:     r.OutputText,
			Reasoning:  r.ReasoningText,
			ToolCalls:  r.ToolCalls,
			Status:     string(r.Status),
			DurationMS: r.DurationMS,
			Error:      r.ErrorMessage,
		}
	}

	eval, err := e.store.GetLatestEvaluationForRun(runID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// no evaluation yet
	case err != nil:
		return nil, err
	default:
		scores := make([]Score, len(eval.Scores))
		for i, s := range eval.Scores {
			scores[i] = Score{
				ModelID:        s.ModelID,
				ModelName:      s.ModelName,
				Score:          s.Score,
				Reasoning:      s.Reasoning,
				CriteriaScores: s.CriteriaScores,
			}
		}
		out.Evaluation = &Evaluation{JudgeModel: eval.JudgeModel, Scores: scores}
	}

	return out, nil
}

// WriteJSON writes one run as indented JSON.
func (e *Exporter) WriteJSON(w io.Writer, runID int64) error {
	run, err := e.BuildRun(runID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(run)
}

var csvHeader = []string{
	"run_id", "prompt", "model_id", "model_name", "output",
	"status", "duration_ms", "score", "created_at",
}

// WriteCSV writes one row per response across the given runs. The score
// column holds the latest evaluation's score for that model, when any.
func (e *Exporter) WriteCSV(w io.Writer, runIDs []int64) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, runID := range runIDs {
		run, err := e.BuildRun(runID)
		if err != nil {
			return err
		}
		scoreByModel := map[string]float64{}
		if run.Evaluation != nil {
			for _, s := range run.Evaluation.Scores {
				scoreByModel[s.ModelID] = s.Score
			}
		}
		for _, r := range run.Responses {
			duration := ""
			if r.DurationMS != nil {
				duration = strconv.FormatInt(*r.DurationMS, 10)
			}
			score := ""
			if v, ok := scoreByModel[r.ModelID]; ok {
				score = strconv.FormatFloat(v, 'f', -1, 64)
			}
			row := []string{
				strconv.FormatInt(run.ID, 10),
				run.Prompt,
				r.ModelID,
				r.ModelName,
				r.Output,
				r.Status,
				duration,
				score,
				run.CreatedAt.UTC().Format(time.RFC3339),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

// ToFile writes a run export into dir, named by run id and format, and
// returns the file path. Format is "json" or "csv".
func (e *Exporter) ToFile(dir string, runID int64, format string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("run-%d.%s", runID, format))

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	switch format {
	case "json":
		err = e.WriteJSON(f, runID)
	case "csv":
		err = e.WriteCSV(f, []int64{runID})
	default:
		err = fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return "", err
	}
	return path, nil
}
