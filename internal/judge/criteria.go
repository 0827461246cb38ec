// Package judge scores benchmark responses with an LLM acting as judge.
// The judge's free-text reply is parsed tolerantly: fenced or embedded
// JSON is accepted, scores are clamped, and parse failures degrade to
// neutral results instead of erroring.
package judge

import "strings"

// Criterion is one scoring dimension with its weight in the overall score.
type Criterion struct {
	Name        string
	Description string
	Weight      float64
}

// DefaultCriteria applies to general prompts.
func DefaultCriteria() []Criterion {
	return []Criterion{
		{Name: "accuracy", Description: "Factual correctness and precision of the response", Weight: 1.0},
		{Name: "clarity", Description: "How clear and understandable the response is", Weight: 0.8},
		{Name: "completeness", Description: "Whether the response fully addresses the prompt", Weight: 0.9},
		{Name: "relevance", Description: "How relevant the response is to the prompt", Weight: 0.9},
	}
}

// ToolUseCriteria extends the defaults with tool-usage dimensions, for runs
// where models called tools.
func ToolUseCriteria() []Criterion {
	return append(DefaultCriteria(),
		Criterion{Name: "tool_appropriateness", Description: "Whether tools were used appropriately for the task", Weight: 1.0},
		Criterion{Name: "tool_efficiency", Description: "Whether tool use was efficient (not excessive or unnecessary)", Weight: 0.7},
	)
}

// CodingCriteria applies to prompts asking for code.
func CodingCriteria() []Criterion {
	return []Criterion{
		{Name: "correctness", Description: "Whether the code would work correctly", Weight: 1.0},
		{Name: "clarity", Description: "Code readability and organization", Weight: 0.8},
		{Name: "efficiency", Description: "Algorithmic and runtime efficiency", Weight: 0.7},
		{Name: "best_practices", Description: "Adherence to coding best practices and conventions", Weight: 0.6},
	}
}

var codingKeywords = []string{"code", "function", "program", "implement", "algorithm"}

// CriteriaForPrompt picks a criteria set from the prompt text: coding
// criteria when the prompt looks like a coding task, defaults otherwise.
func CriteriaForPrompt(promptText string) []Criterion {
	lower := strings.ToLower(promptText)
	for _, kw := range codingKeywords {
		if strings.Contains(lower, kw) {
			return CodingCriteria()
		}
	}
	return DefaultCriteria()
}

// Weights maps criterion names to their weights.
func Weights(criteria []Criterion) map[string]float64 {
	out := make(map[string]float64, len(criteria))
	for _, c := range criteria {
		out[c.Name] = c.Weight
	}
	return out
}
