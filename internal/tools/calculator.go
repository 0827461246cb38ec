package tools

import (
	"context"
	"math"
	"strings"

	"github.com/Knetic/govaluate"
)

var calculatorFunctions = map[string]govaluate.ExpressionFunction{
	"sqrt":  unaryMath(math.Sqrt),
	"abs":   unaryMath(math.Abs),
	"sin":   unaryMath(math.Sin),
	"cos":   unaryMath(math.Cos),
	"tan":   unaryMath(math.Tan),
	"log":   unaryMath(math.Log),
	"log10": unaryMath(math.Log10),
	"exp":   unaryMath(math.Exp),
	"floor": unaryMath(math.Floor),
	"ceil":  unaryMath(math.Ceil),
	"round": unaryMath(math.Round),
	"pow": func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, errArity("pow", 2, len(args))
		}
		x, err := toFloat(args[0])
		if err != nil {
			return nil, err
		}
		y, err := toFloat(args[1])
		if err != nil {
			return nil, err
		}
		return math.Pow(x, y), nil
	},
}

// Calculator evaluates arithmetic expressions. The caret operator and the
// PI/E constants are rewritten into govaluate's dialect before evaluation.
func Calculator() Tool {
	return Tool{
		Name:        "calculator",
		DisplayName: "Calculator",
		Description: "Evaluate a mathematical expression. Supports basic arithmetic, exponentiation (^), and functions like sqrt, sin, cos, log, and pow. Constants PI and E are available.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"expression": map[string]any{
					"type":        "string",
					"description": "The mathematical expression to evaluate, e.g. \"2 * (3 + 4)\" or \"sqrt(144) + 2^10\"",
				},
			},
			"required": []string{"expression"},
		},
		Execute: func(_ context.Context, args map[string]any) map[string]any {
			raw, _ := args["expression"].(string)
			if strings.TrimSpace(raw) == "" {
				return map[string]any{"success": false, "error": "expression is required"}
			}

			expr, err := govaluate.NewEvaluableExpressionWithFunctions(rewriteExpression(raw), calculatorFunctions)
			if err != nil {
				return map[string]any{"success": false, "error": "invalid expression: " + err.Error()}
			}
			result, err := expr.Evaluate(map[string]any{"PI": math.Pi, "E": math.E})
			if err != nil {
				return map[string]any{"success": false, "error": err.Error()}
			}
			val, ok := result.(float64)
			if !ok {
				return map[string]any{"success": false, "error": "expression did not produce a number"}
			}
			if math.IsNaN(val) || math.IsInf(val, 0) {
				return map[string]any{"success": false, "error": "result is not a finite number"}
			}
			return map[string]any{"expression": raw, "result": val, "success": true}
		},
	}
}

// rewriteExpression maps the caret exponent operator onto govaluate's **.
func rewriteExpression(expr string) string {
	return strings.ReplaceAll(expr, "^", "**")
}

func unaryMath(fn func(float64) float64) govaluate.ExpressionFunction {
	return func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, errArity("function", 1, len(args))
		}
		x, err := toFloat(args[0])
		if err != nil {
			return nil, err
		}
		return fn(x), nil
	}
}

func toFloat(v any) (float64, error) {
	f, ok := v.(float64)
	if !ok {
		return 0, &argError{v}
	}
	return f, nil
}

type argError struct{ got any }

func (e *argError) Error() string { return "expected a numeric argument" }

type arityError struct {
	name string
	want int
	got  int
}

func errArity(name string, want, got int) error {
	return &arityError{name: name, want: want, got: got}
}

func (e *arityError) Error() string {
	return e.name + ": wrong number of arguments"
}
