package judge

import (
	"context"
	"fmt"

	"github.com/chainguard-dev/clog"

	"github.com/hochfrequenz/litmus/internal/domain"
	"github.com/hochfrequenz/litmus/internal/llm"
)

// Judging temperature is low for consistency; token caps bound the reply.
const (
	judgeTemperature  = 0.3
	evaluateMaxTokens = 2048
	pairwiseMaxTokens = 1024
)

// Generator produces plain completions. *llm.Client satisfies it.
type Generator interface {
	Generate(ctx context.Context, opts llm.GenerateOptions) (string, error)
}

// Store is the persistence surface the engine needs.
type Store interface {
	GetRun(id int64) (*domain.Run, error)
	GetResponsesForRun(runID int64) ([]domain.ModelResponse, error)
	CreateEvaluation(runID int64, judgeModel, evaluationPrompt string) (int64, error)
	CreateEvaluationScore(score *domain.EvaluationScore) (int64, error)
}

// Options selects the judge model and criteria for an evaluation.
type Options struct {
	JudgeModel string
	// Criteria overrides automatic selection when non-nil.
	Criteria []Criterion
	// IncludeToolUse switches to the tool-use criteria set.
	IncludeToolUse bool
}

// Engine evaluates benchmark responses with a judge model.
type Engine struct {
	gen   Generator
	store Store
}

// NewEngine builds an Engine. Store may be nil when only Evaluate and
// PairwiseCompare are used.
func NewEngine(gen Generator, store Store) *Engine {
	return &Engine{gen: gen, store: store}
}

// Evaluate asks the judge to score the given responses against the
// original prompt. Transport failures are fatal; a malformed judge reply
// degrades to zero-score evaluations.
func (e *Engine) Evaluate(ctx context.Context, originalPrompt string, outputs []ModelOutput, opts Options) (*Result, string, error) {
	criteria := opts.Criteria
	if criteria == nil {
		if opts.IncludeToolUse {
			criteria = ToolUseCriteria()
		} else {
			criteria = CriteriaForPrompt(originalPrompt)
		}
	}

	prompt := buildJudgePrompt(originalPrompt, outputs, criteria)
	reply, err := e.gen.Generate(ctx, llm.GenerateOptions{
		Model:       opts.JudgeModel,
		Prompt:      prompt,
		Temperature: judgeTemperature,
		MaxTokens:   evaluateMaxTokens,
	})
	if err != nil {
		return nil, "", fmt.Errorf("evaluation failed: %w", err)
	}

	expected := make([]string, len(outputs))
	for i, o := range outputs {
		expected[i] = o.ModelID
	}
	return ParseJudgeResponse(reply, expected), prompt, nil
}

// PairwiseCompare asks the judge which of two responses is better.
func (e *Engine) PairwiseCompare(ctx context.Context, originalPrompt string, a, b ModelOutput, judgeModel string) (*PairwiseResult, error) {
	prompt := buildPairwisePrompt(originalPrompt, a, b)
	reply, err := e.gen.Generate(ctx, llm.GenerateOptions{
		Model:       judgeModel,
		Prompt:      prompt,
		Temperature: judgeTemperature,
		MaxTokens:   pairwiseMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("comparison failed: %w", err)
	}
	return ParsePairwiseResponse(reply), nil
}

// EvaluateRun loads a persisted run, judges its responses, and persists
// the evaluation with one score row per matched response. When no
// criteria override is given, the tool-use set is used if any response
// recorded tool calls.
func (e *Engine) EvaluateRun(ctx context.Context, runID int64, opts Options) (*Result, error) {
	log := clog.FromContext(ctx)

	run, err := e.store.GetRun(runID)
	if err != nil {
		return nil, fmt.Errorf("loading run %d: %w", runID, err)
	}
	responses, err := e.store.GetResponsesForRun(runID)
	if err != nil {
		return nil, fmt.Errorf("loading responses for run %d: %w", runID, err)
	}
	if len(responses) == 0 {
		return nil, fmt.Errorf("run %d has no responses to evaluate", runID)
	}

	outputs := make([]ModelOutput, len(responses))
	usedTools := false
	for i, r := range responses {
		outputs[i] = ModelOutput{
			ModelID:   r.ModelID,
			ModelName: r.ModelName,
			Output:    r.OutputText,
			ToolCalls: r.ToolCalls,
		}
		if len(r.ToolCalls) > 0 {
			usedTools = true
		}
	}
	if opts.Criteria == nil && !opts.IncludeToolUse {
		opts.IncludeToolUse = usedTools
	}

	result, prompt, err := e.Evaluate(ctx, run.PromptText, outputs, opts)
	if err != nil {
		return nil, err
	}

	evalID, err := e.store.CreateEvaluation(runID, opts.JudgeModel, prompt)
	if err != nil {
		return nil, fmt.Errorf("persisting evaluation: %w", err)
	}

	responseByModel := make(map[string]*domain.ModelResponse, len(responses))
	for i := range responses {
		responseByModel[responses[i].ModelID] = &responses[i]
	}
	for _, ev := range result.Evaluations {
		resp, ok := responseByModel[ev.ModelID]
		if !ok {
			log.Warn("judge scored an unknown model", "model", ev.ModelID, "run", runID)
			continue
		}
		if _, err := e.store.CreateEvaluationScore(&domain.EvaluationScore{
			EvaluationID:   evalID,
			ResponseID:     resp.ID,
			Score:          ev.OverallScore,
			Reasoning:      ev.Reasoning,
			CriteriaScores: ev.CriteriaScores,
			RawResponse:    result.RawResponse,
		}); err != nil {
			return nil, fmt.Errorf("persisting score for %s: %w", ev.ModelID, err)
		}
	}

	return result, nil
}
