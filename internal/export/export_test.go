package export

import (
	"bytes"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/hochfrequenz/litmus/internal/domain"
)

type fakeStore struct {
	run        *domain.Run
	responses  []domain.ModelResponse
	evaluation *domain.EvaluationWithScores
}

func (f *fakeStore) GetRun(id int64) (*domain.Run, error) {
	if f.run == nil || f.run.ID != id {
		return nil, sql.ErrNoRows
	}
	return f.run, nil
}

func (f *fakeStore) GetResponsesForRun(_ int64) ([]domain.ModelResponse, error) {
	return f.responses, nil
}

func (f *fakeStore) GetLatestEvaluationForRun(_ int64) (*domain.EvaluationWithScores, error) {
	if f.evaluation == nil {
		return nil, sql.ErrNoRows
	}
	return f.evaluation, nil
}

func testStore() *fakeStore {
	duration := int64(1500)
	return &fakeStore{
		run: &domain.Run{
			ID:           3,
			PromptText:   "compare, please",
			ToolsEnabled: []string{"calculator"},
			CreatedAt:    time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		},
		responses: []domain.ModelResponse{
			{ModelID: "m1", ModelName: "Model One", OutputText: "answer", Status: domain.ResponseCompleted, DurationMS: &duration},
			{ModelID: "m2", ModelName: "Model Two", Status: domain.ResponseError, ErrorMessage: "boom"},
		},
		evaluation: &domain.EvaluationWithScores{
			Evaluation: domain.Evaluation{JudgeModel: "judge/model"},
			Scores: []domain.ScoredResponse{
				{EvaluationScore: domain.EvaluationScore{Score: 8.5, Reasoning: "good"}, ModelID: "m1", ModelName: "Model One"},
			},
		},
	}
}

func TestExporter_WriteJSON(t *testing.T) {
	e := New(testStore())

	var buf bytes.Buffer
	if err := e.WriteJSON(&buf, 3); err != nil {
		t.Fatal(err)
	}

	var got Run
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.ID != 3 || got.Prompt != "compare, please" {
		t.Errorf("run = %+v", got)
	}
	if len(got.Responses) != 2 {
		t.Fatalf("responses = %d, want 2", len(got.Responses))
	}
	if got.Responses[1].Error != "boom" {
		t.Errorf("error response = %+v", got.Responses[1])
	}
	if got.Evaluation == nil || got.Evaluation.Scores[0].Score != 8.5 {
		t.Errorf("evaluation = %+v", got.Evaluation)
	}
}

func TestExporter_WriteJSON_NoEvaluation(t *testing.T) {
	store := testStore()
	store.evaluation = nil
	e := New(store)

	var buf bytes.Buffer
	if err := e.WriteJSON(&buf, 3); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "judge_model") {
		t.Error("export contains an evaluation section for an unevaluated run")
	}
}

func TestExporter_WriteCSV(t *testing.T) {
	e := New(testStore())

	var buf bytes.Buffer
	if err := e.WriteCSV(&buf, []int64{3}); err != nil {
		t.Fatal(err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("rows = %d, want header plus 2", len(records))
	}
	if records[0][0] != "run_id" {
		t.Errorf("header = %v", records[0])
	}
	// m1 row carries its score, m2 has none.
	if records[1][7] != "8.5" {
		t.Errorf("m1 score column = %q, want 8.5", records[1][7])
	}
	if records[2][7] != "" {
		t.Errorf("m2 score column = %q, want empty", records[2][7])
	}
	if records[1][8] != "2026-08-01T12:00:00Z" {
		t.Errorf("created_at = %q", records[1][8])
	}
}

func TestExporter_ToFile(t *testing.T) {
	e := New(testStore())
	dir := t.TempDir()

	path, err := e.ToFile(dir, 3, "json")
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "compare, please") {
		t.Error("exported file is missing the prompt")
	}

	if _, err := e.ToFile(dir, 3, "xml"); err == nil {
		t.Error("ToFile accepted an unsupported format")
	}
}
