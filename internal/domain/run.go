package domain

import "time"

// Run is one persisted benchmark session: a prompt fanned out to a chosen
// set of models.
type Run struct {
	ID           int64
	PromptText   string
	ToolsEnabled []string
	CreatedAt    time.Time
}

// ModelResponse is the persisted outcome of one model's participation in a
// run. Exactly one row is written per model, after its session settles.
type ModelResponse struct {
	ID            int64
	RunID         int64
	ModelID       string
	ModelName     string
	OutputText    string
	ReasoningText string
	ToolCalls     []ToolCall
	Status        ResponseStatus
	ErrorMessage  string
	StartTime     time.Time
	EndTime       *time.Time
	DurationMS    *int64
	TokensInput   *int
	TokensOutput  *int
	Config        *ModelConfig
}

// Evaluation is one judge invocation's persisted results for a run.
type Evaluation struct {
	ID               int64
	RunID            int64
	JudgeModel       string
	EvaluationPrompt string
	CreatedAt        time.Time
}

// EvaluationScore is one model's score within an evaluation.
type EvaluationScore struct {
	ID             int64
	EvaluationID   int64
	ResponseID     int64
	Score          float64
	Reasoning      string
	CriteriaScores map[string]float64
	RawResponse    string
}

// ScoredResponse joins a score to its response's model identity.
type ScoredResponse struct {
	EvaluationScore
	ModelID   string
	ModelName string
}

// EvaluationWithScores is an evaluation with its scores, sorted descending
// by score.
type EvaluationWithScores struct {
	Evaluation
	Scores []ScoredResponse
}

// RunSummary is a run row enriched with aggregates for history listings.
type RunSummary struct {
	Run
	ModelCount    int
	AvgScore      *float64
	HasEvaluation bool
}

// ModelAverage aggregates a model's judge scores across all evaluations.
type ModelAverage struct {
	ModelID   string
	ModelName string
	AvgScore  float64
	EvalCount int
}
