package tools

import (
	"context"
	"math"
	"testing"
)

func evalExpression(t *testing.T, expr string) map[string]any {
	t.Helper()
	return Calculator().Execute(context.Background(), map[string]any{"expression": expr})
}

func TestCalculator(t *testing.T) {
	tests := []struct {
		expr string
		want float64
	}{
		{"2 + 2", 4},
		{"2 * (3 + 4)", 14},
		{"2^10", 1024},
		{"sqrt(144)", 12},
		{"pow(2, 8)", 256},
		{"abs(-7.5)", 7.5},
		{"floor(3.9)", 3},
		{"round(2.5)", 3},
		{"PI", math.Pi},
		{"E", math.E},
		{"sqrt(144) + 2^10", 1036},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got := evalExpression(t, tt.expr)
			if got["success"] != true {
				t.Fatalf("Execute(%q) failed: %v", tt.expr, got["error"])
			}
			result := got["result"].(float64)
			if math.Abs(result-tt.want) > 1e-9 {
				t.Errorf("Execute(%q) = %v, want %v", tt.expr, result, tt.want)
			}
		})
	}
}

func TestCalculator_Errors(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"gibberish", "2 +* 3"},
		{"division by zero", "1 / 0"},
		{"unknown function", "foo(3)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evalExpression(t, tt.expr)
			if got["success"] != false {
				t.Errorf("Execute(%q) succeeded, want failure", tt.expr)
			}
			if msg, _ := got["error"].(string); msg == "" {
				t.Errorf("Execute(%q) returned no error message", tt.expr)
			}
		})
	}
}

func TestSelect(t *testing.T) {
	got := Select([]string{"web_search", "calculator", "nope"})
	if len(got) != 2 {
		t.Fatalf("Select returned %d tools, want 2", len(got))
	}
	// Registry order wins over request order.
	if got[0].Name != "calculator" || got[1].Name != "web_search" {
		t.Errorf("Select order = [%s, %s], want [calculator, web_search]", got[0].Name, got[1].Name)
	}
}

func TestSelect_Empty(t *testing.T) {
	if got := Select(nil); len(got) != 0 {
		t.Errorf("Select(nil) = %d tools, want 0", len(got))
	}
}

func TestWebSearch_MissingKey(t *testing.T) {
	t.Setenv("EXA_API_KEY", "")
	got := WebSearch().Execute(context.Background(), map[string]any{"query": "golang"})
	if got["success"] != false {
		t.Error("Execute succeeded without an API key, want failure")
	}
}

func TestWebSearch_MissingQuery(t *testing.T) {
	got := WebSearch().Execute(context.Background(), map[string]any{})
	if got["success"] != false {
		t.Error("Execute succeeded without a query, want failure")
	}
}
