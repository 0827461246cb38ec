package judge

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hochfrequenz/litmus/internal/domain"
)

const toolResultMaxLength = 100

// ModelOutput is one response handed to the judge.
type ModelOutput struct {
	ModelID   string
	ModelName string
	Output    string
	ToolCalls []domain.ToolCall
}

func buildJudgePrompt(originalPrompt string, outputs []ModelOutput, criteria []Criterion) string {
	var criteriaList strings.Builder
	for i, c := range criteria {
		if i > 0 {
			criteriaList.WriteString("\n")
		}
		fmt.Fprintf(&criteriaList, "- **%s**: %s (weight: %g)", c.Name, c.Description, c.Weight)
	}

	sections := make([]string, len(outputs))
	for i, o := range outputs {
		section := fmt.Sprintf("\n### Response %d (Model: %s)\n%s\n", i+1, o.ModelID, o.Output)
		if len(o.ToolCalls) > 0 {
			section += "\n**Tool calls made:**\n" + formatToolCallLines(o.ToolCalls) + "\n"
		}
		sections[i] = section
	}

	return fmt.Sprintf(`You are an expert judge evaluating AI model responses. Your task is to objectively score each response based on the given criteria.

## Original Prompt
%s

## Evaluation Criteria
%s

## Responses to Evaluate
%s

## Instructions
For each response, provide:
1. A score from 0-10 for each criterion
2. A brief reasoning for your scores
3. An overall score (weighted average)

**You MUST respond with valid JSON only. No other text.**

Format your response as JSON:
{
  "evaluations": [
    {
      "model_id": "model-identifier",
      "criteria_scores": {
        "accuracy": 8,
        "clarity": 7
      },
      "overall_score": 7.5,
      "reasoning": "Brief explanation of the scores..."
    }
  ],
  "ranking": ["model-1", "model-2", "model-3"],
  "summary": "Overall comparison summary..."
}

Be objective and consistent in your scoring. Consider both strengths and weaknesses.`,
		originalPrompt, criteriaList.String(), strings.Join(sections, "\n---\n"))
}

func buildPairwisePrompt(originalPrompt string, a, b ModelOutput) string {
	return fmt.Sprintf(`You are an expert judge comparing two AI model responses. Your task is to determine which response is better.

## Original Prompt
%s

## Response A (Model: %s)
%s%s

## Response B (Model: %s)
%s%s

## Instructions
Compare the two responses and provide:
1. Which response is better (A, B, or TIE)
2. A brief explanation of your choice

**You MUST respond with valid JSON only.**

{
  "winner": "A" | "B" | "TIE",
  "confidence": 0.0-1.0,
  "reasoning": "Explanation of why this response is better..."
}`,
		originalPrompt,
		a.ModelID, a.Output, pairwiseToolSuffix(a.ToolCalls),
		b.ModelID, b.Output, pairwiseToolSuffix(b.ToolCalls))
}

// formatToolCallLines renders tool calls one per line as name(args) => result,
// truncating long results so the judge prompt stays bounded.
func formatToolCallLines(calls []domain.ToolCall) string {
	lines := make([]string, len(calls))
	for i, tc := range calls {
		lines[i] = fmt.Sprintf("  - %s(%s) => %s", tc.Name, marshalCompact(tc.Args), formatToolResult(tc.Result))
	}
	return strings.Join(lines, "\n")
}

func pairwiseToolSuffix(calls []domain.ToolCall) string {
	if len(calls) == 0 {
		return ""
	}
	parts := make([]string, len(calls))
	for i, tc := range calls {
		parts[i] = fmt.Sprintf("%s(%s)", tc.Name, marshalCompact(tc.Args))
	}
	return "\nTool calls: " + strings.Join(parts, ", ")
}

func formatToolResult(result any) string {
	if result == nil {
		return "null"
	}
	s := marshalCompact(result)
	if len(s) > toolResultMaxLength {
		return s[:toolResultMaxLength] + "..."
	}
	return s
}

func marshalCompact(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "[Object]"
	}
	return string(b)
}
