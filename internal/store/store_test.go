package store

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/hochfrequenz/litmus/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_CreateAndGetRun(t *testing.T) {
	s := newTestStore(t)

	id, err := s.CreateRun("What is 2+2?", []string{"calculator"})
	if err != nil {
		t.Fatal(err)
	}

	run, err := s.GetRun(id)
	if err != nil {
		t.Fatal(err)
	}
	if run.PromptText != "What is 2+2?" {
		t.Errorf("PromptText = %q, want %q", run.PromptText, "What is 2+2?")
	}
	if diff := cmp.Diff([]string{"calculator"}, run.ToolsEnabled); diff != "" {
		t.Errorf("ToolsEnabled mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_CreateRun_NoTools(t *testing.T) {
	s := newTestStore(t)

	id, err := s.CreateRun("hello", nil)
	if err != nil {
		t.Fatal(err)
	}
	run, err := s.GetRun(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(run.ToolsEnabled) != 0 {
		t.Errorf("ToolsEnabled = %v, want empty", run.ToolsEnabled)
	}
}

func TestStore_CreateAndGetResponses(t *testing.T) {
	s := newTestStore(t)

	runID, err := s.CreateRun("prompt", nil)
	if err != nil {
		t.Fatal(err)
	}

	start := time.Now().Truncate(time.Millisecond)
	end := start.Add(2 * time.Second)
	duration := int64(2000)
	tokensIn, tokensOut := 10, 42

	resp := &domain.ModelResponse{
		RunID:         runID,
		ModelID:       "openai/gpt-4o",
		ModelName:     "GPT-4o",
		OutputText:    "four",
		ReasoningText: "it is basic arithmetic",
		ToolCalls: []domain.ToolCall{
			{Name: "calculator", Args: map[string]any{"expression": "2+2"}, Result: map[string]any{"result": 4.0}},
		},
		Status:       domain.ResponseCompleted,
		StartTime:    start,
		EndTime:      &end,
		DurationMS:   &duration,
		TokensInput:  &tokensIn,
		TokensOutput: &tokensOut,
	}

	if _, err := s.CreateResponse(resp); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateResponse(&domain.ModelResponse{
		RunID:        runID,
		ModelID:      "meta/llama-3",
		ModelName:    "Llama 3",
		Status:       domain.ResponseError,
		ErrorMessage: "provider unavailable",
		StartTime:    start,
	}); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetResponsesForRun(runID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("responses count = %d, want 2", len(got))
	}

	first := got[0]
	if first.ModelID != "openai/gpt-4o" {
		t.Errorf("ModelID = %q, want openai/gpt-4o", first.ModelID)
	}
	if first.Status != domain.ResponseCompleted {
		t.Errorf("Status = %q, want completed", first.Status)
	}
	if len(first.ToolCalls) != 1 || first.ToolCalls[0].Name != "calculator" {
		t.Errorf("ToolCalls = %+v, want one calculator call", first.ToolCalls)
	}
	if first.DurationMS == nil || *first.DurationMS != 2000 {
		t.Errorf("DurationMS = %v, want 2000", first.DurationMS)
	}
	if first.TokensOutput == nil || *first.TokensOutput != 42 {
		t.Errorf("TokensOutput = %v, want 42", first.TokensOutput)
	}

	second := got[1]
	if second.Status != domain.ResponseError {
		t.Errorf("Status = %q, want error", second.Status)
	}
	if second.ErrorMessage != "provider unavailable" {
		t.Errorf("ErrorMessage = %q, want provider message", second.ErrorMessage)
	}
	if second.EndTime != nil {
		t.Errorf("EndTime = %v, want nil", second.EndTime)
	}
}

func TestStore_EvaluationWithScores(t *testing.T) {
	s := newTestStore(t)

	runID, _ := s.CreateRun("prompt", nil)
	respA, _ := s.CreateResponse(&domain.ModelResponse{
		RunID: runID, ModelID: "m1", ModelName: "Model One",
		Status: domain.ResponseCompleted, StartTime: time.Now(),
	})
	respB, _ := s.CreateResponse(&domain.ModelResponse{
		RunID: runID, ModelID: "m2", ModelName: "Model Two",
		Status: domain.ResponseCompleted, StartTime: time.Now(),
	})

	evalID, err := s.CreateEvaluation(runID, "judge/model", "judge prompt text")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.CreateEvaluationScore(&domain.EvaluationScore{
		EvaluationID:   evalID,
		ResponseID:     respA,
		Score:          6.5,
		Reasoning:      "adequate",
		CriteriaScores: map[string]float64{"accuracy": 7, "clarity": 6},
		RawResponse:    `{"evaluations":[]}`,
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateEvaluationScore(&domain.EvaluationScore{
		EvaluationID: evalID,
		ResponseID:   respB,
		Score:        8.0,
	}); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetLatestEvaluationForRun(runID)
	if err != nil {
		t.Fatal(err)
	}
	if got.JudgeModel != "judge/model" {
		t.Errorf("JudgeModel = %q, want judge/model", got.JudgeModel)
	}
	if len(got.Scores) != 2 {
		t.Fatalf("scores count = %d, want 2", len(got.Scores))
	}
	// Sorted descending by score.
	if got.Scores[0].ModelID != "m2" || got.Scores[1].ModelID != "m1" {
		t.Errorf("score order = [%s, %s], want [m2, m1]", got.Scores[0].ModelID, got.Scores[1].ModelID)
	}
	if diff := cmp.Diff(map[string]float64{"accuracy": 7, "clarity": 6}, got.Scores[1].CriteriaScores); diff != "" {
		t.Errorf("CriteriaScores mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_GetLatestEvaluationForRun_None(t *testing.T) {
	s := newTestStore(t)
	runID, _ := s.CreateRun("prompt", nil)

	_, err := s.GetLatestEvaluationForRun(runID)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("err = %v, want sql.ErrNoRows", err)
	}
}

func TestStore_RecentRuns(t *testing.T) {
	s := newTestStore(t)

	oldID, _ := s.CreateRun("first", nil)
	newID, _ := s.CreateRun("second", nil)
	respID, _ := s.CreateResponse(&domain.ModelResponse{
		RunID: newID, ModelID: "m1", ModelName: "Model One",
		Status: domain.ResponseCompleted, StartTime: time.Now(),
	})
	evalID, _ := s.CreateEvaluation(newID, "judge/model", "prompt")
	s.CreateEvaluationScore(&domain.EvaluationScore{EvaluationID: evalID, ResponseID: respID, Score: 9})

	runs, err := s.RecentRuns(10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs count = %d, want 2", len(runs))
	}

	byID := map[int64]domain.RunSummary{}
	for _, r := range runs {
		byID[r.ID] = r
	}
	latest := byID[newID]
	if latest.ModelCount != 1 {
		t.Errorf("ModelCount = %d, want 1", latest.ModelCount)
	}
	if !latest.HasEvaluation {
		t.Error("HasEvaluation = false, want true")
	}
	if latest.AvgScore == nil || *latest.AvgScore != 9 {
		t.Errorf("AvgScore = %v, want 9", latest.AvgScore)
	}
	if byID[oldID].HasEvaluation {
		t.Error("run without evaluation reports HasEvaluation = true")
	}
}

func TestStore_ModelAverages(t *testing.T) {
	s := newTestStore(t)

	runID, _ := s.CreateRun("prompt", nil)
	respA, _ := s.CreateResponse(&domain.ModelResponse{
		RunID: runID, ModelID: "m1", ModelName: "Model One",
		Status: domain.ResponseCompleted, StartTime: time.Now(),
	})
	respB, _ := s.CreateResponse(&domain.ModelResponse{
		RunID: runID, ModelID: "m2", ModelName: "Model Two",
		Status: domain.ResponseCompleted, StartTime: time.Now(),
	})
	evalID, _ := s.CreateEvaluation(runID, "judge/model", "prompt")
	s.CreateEvaluationScore(&domain.EvaluationScore{EvaluationID: evalID, ResponseID: respA, Score: 4})
	s.CreateEvaluationScore(&domain.EvaluationScore{EvaluationID: evalID, ResponseID: respB, Score: 8})

	averages, err := s.ModelAverages()
	if err != nil {
		t.Fatal(err)
	}
	if len(averages) != 2 {
		t.Fatalf("averages count = %d, want 2", len(averages))
	}
	if averages[0].ModelID != "m2" || averages[0].AvgScore != 8 {
		t.Errorf("top average = %+v, want m2 at 8", averages[0])
	}
	if averages[1].EvalCount != 1 {
		t.Errorf("EvalCount = %d, want 1", averages[1].EvalCount)
	}
}

func TestStore_CascadeDelete(t *testing.T) {
	s := newTestStore(t)

	runID, _ := s.CreateRun("prompt", nil)
	respID, _ := s.CreateResponse(&domain.ModelResponse{
		RunID: runID, ModelID: "m1", ModelName: "Model One",
		Status: domain.ResponseCompleted, StartTime: time.Now(),
	})
	evalID, _ := s.CreateEvaluation(runID, "judge/model", "prompt")
	s.CreateEvaluationScore(&domain.EvaluationScore{EvaluationID: evalID, ResponseID: respID, Score: 5})

	if _, err := s.db.Exec(`DELETE FROM runs WHERE id = ?`, runID); err != nil {
		t.Fatal(err)
	}

	responses, err := s.GetResponsesForRun(runID)
	if err != nil {
		t.Fatal(err)
	}
	if len(responses) != 0 {
		t.Errorf("responses remaining after run delete = %d, want 0", len(responses))
	}
	var scores int
	s.db.QueryRow(`SELECT COUNT(*) FROM evaluation_scores`).Scan(&scores)
	if scores != 0 {
		t.Errorf("scores remaining after run delete = %d, want 0", scores)
	}
}
