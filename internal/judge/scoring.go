package judge

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ModelEvaluation is the judge's verdict on one response.
type ModelEvaluation struct {
	ModelID        string
	CriteriaScores map[string]float64
	OverallScore   float64
	Reasoning      string
}

// Result is a parsed judge evaluation. It is always well-formed: when the
// judge's reply could not be parsed, Evaluations holds a zero-score entry
// per expected model.
type Result struct {
	Evaluations []ModelEvaluation
	Ranking     []string
	Summary     string
	RawResponse string
}

// Winner identifies the outcome of a pairwise comparison.
type Winner string

const (
	WinnerA   Winner = "A"
	WinnerB   Winner = "B"
	WinnerTie Winner = "TIE"
)

// PairwiseResult is a parsed pairwise verdict.
type PairwiseResult struct {
	Winner      Winner
	Confidence  float64
	Reasoning   string
	RawResponse string
}

// judgeReply mirrors the JSON shape the judge is instructed to produce.
// Judges are inconsistent about casing, so both spellings are accepted.
type judgeReply struct {
	Evaluations []judgeEvaluation `json:"evaluations"`
	Ranking     []string          `json:"ranking"`
	Summary     string            `json:"summary"`
}

type judgeEvaluation struct {
	ModelID             string             `json:"model_id"`
	ModelIDCamel        string             `json:"modelId"`
	CriteriaScores      map[string]float64 `json:"criteria_scores"`
	CriteriaScoresCamel map[string]float64 `json:"criteriaScores"`
	OverallScore        *float64           `json:"overall_score"`
	OverallScoreCamel   *float64           `json:"overallScore"`
	Reasoning           string             `json:"reasoning"`
}

type pairwiseReply struct {
	Winner     string   `json:"winner"`
	Confidence *float64 `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
}

// ParseJudgeResponse parses the judge's reply. On any parse failure it
// falls back to a zero-score evaluation per expected model, in input
// order, so a malformed judge reply still yields a persistable result.
func ParseJudgeResponse(response string, expectedModels []string) *Result {
	result, err := parseJudgeReply(response)
	if err != nil {
		evaluations := make([]ModelEvaluation, len(expectedModels))
		for i, modelID := range expectedModels {
			evaluations[i] = ModelEvaluation{
				ModelID:        modelID,
				CriteriaScores: map[string]float64{},
				Reasoning:      fmt.Sprintf("Failed to parse evaluation: %v", err),
			}
		}
		return &Result{
			Evaluations: evaluations,
			Ranking:     append([]string(nil), expectedModels...),
			Summary:     "Evaluation parsing failed - please try again",
			RawResponse: response,
		}
	}
	result.RawResponse = response
	return result
}

func parseJudgeReply(response string) (*Result, error) {
	payload := extractJSON(response)
	if payload == "" {
		return nil, fmt.Errorf("no JSON found in judge response")
	}

	var reply judgeReply
	if err := json.Unmarshal([]byte(payload), &reply); err != nil {
		return nil, fmt.Errorf("decoding judge response: %w", err)
	}
	if len(reply.Evaluations) == 0 {
		return nil, fmt.Errorf("judge response has no evaluations")
	}

	evaluations := make([]ModelEvaluation, len(reply.Evaluations))
	for i, e := range reply.Evaluations {
		modelID := e.ModelID
		if modelID == "" {
			modelID = e.ModelIDCamel
		}
		if modelID == "" {
			modelID = "unknown"
		}
		scores := e.CriteriaScores
		if scores == nil {
			scores = e.CriteriaScoresCamel
		}
		if scores == nil {
			scores = map[string]float64{}
		}
		var overall float64
		switch {
		case e.OverallScore != nil:
			overall = *e.OverallScore
		case e.OverallScoreCamel != nil:
			overall = *e.OverallScoreCamel
		}
		reasoning := e.Reasoning
		if reasoning == "" {
			reasoning = "No reasoning provided"
		}
		evaluations[i] = ModelEvaluation{
			ModelID:        modelID,
			CriteriaScores: scores,
			OverallScore:   NormalizeScore(overall),
			Reasoning:      reasoning,
		}
	}

	ranking := reply.Ranking
	if len(ranking) == 0 {
		ranking = rankByScore(evaluations)
	}
	summary := reply.Summary
	if summary == "" {
		summary = "No summary provided"
	}

	return &Result{Evaluations: evaluations, Ranking: ranking, Summary: summary}, nil
}

// ParsePairwiseResponse parses a pairwise verdict. Parse failures degrade
// to a zero-confidence tie.
func ParsePairwiseResponse(response string) *PairwiseResult {
	result, err := parsePairwiseReply(response)
	if err != nil {
		return &PairwiseResult{
			Winner:      WinnerTie,
			Reasoning:   fmt.Sprintf("Failed to parse: %v", err),
			RawResponse: response,
		}
	}
	result.RawResponse = response
	return result
}

func parsePairwiseReply(response string) (*PairwiseResult, error) {
	payload := extractJSON(response)
	if payload == "" {
		return nil, fmt.Errorf("no JSON found in pairwise response")
	}

	var reply pairwiseReply
	if err := json.Unmarshal([]byte(payload), &reply); err != nil {
		return nil, fmt.Errorf("decoding pairwise response: %w", err)
	}

	winner := Winner(strings.ToUpper(strings.TrimSpace(reply.Winner)))
	switch winner {
	case WinnerA, WinnerB, WinnerTie:
	default:
		return nil, fmt.Errorf("invalid winner value %q", reply.Winner)
	}

	confidence := 0.5
	if reply.Confidence != nil {
		confidence = clamp(*reply.Confidence, 0, 1)
	}
	reasoning := reply.Reasoning
	if reasoning == "" {
		reasoning = "No reasoning provided"
	}

	return &PairwiseResult{Winner: winner, Confidence: confidence, Reasoning: reasoning}, nil
}

// NormalizeScore clamps a score into the 0-10 range.
func NormalizeScore(score float64) float64 {
	return clamp(score, 0, 10)
}

// CalculateWeightedScore computes the weighted mean of the criteria
// scores. Criteria without a known weight count at 1.0; no scores means 0.
func CalculateWeightedScore(criteriaScores map[string]float64, weights map[string]float64) float64 {
	var totalWeight, weightedSum float64
	for criterion, score := range criteriaScores {
		weight, ok := weights[criterion]
		if !ok {
			weight = 1.0
		}
		weightedSum += score * weight
		totalWeight += weight
	}
	if totalWeight == 0 {
		return 0
	}
	return weightedSum / totalWeight
}

// rankByScore derives a ranking from overall scores, highest first. The
// sort is stable so equal scores keep the judge's ordering.
func rankByScore(evaluations []ModelEvaluation) []string {
	sorted := append([]ModelEvaluation(nil), evaluations...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OverallScore > sorted[j].OverallScore
	})
	ranking := make([]string, len(sorted))
	for i, e := range sorted {
		ranking[i] = e.ModelID
	}
	return ranking
}

// extractJSON pulls a JSON object out of a free-text reply: fenced blocks
// are unwrapped first, then the outermost brace span is taken.
func extractJSON(response string) string {
	text := strings.TrimSpace(response)

	if idx := strings.Index(text, "```json"); idx >= 0 {
		text = text[idx+len("```json"):]
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
