package llm

import (
	"context"
	"errors"
	"testing"

	openai "github.com/openai/openai-go/v3"

	"github.com/hochfrequenz/litmus/internal/domain"
	"github.com/hochfrequenz/litmus/internal/tools"
)

func TestNew_MissingAPIKey(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")
	_, err := New("")
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("New() error = %v, want ErrMissingAPIKey", err)
	}
}

func TestNew_WithKey(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "sk-test")
	c, err := New("")
	if err != nil {
		t.Fatal(err)
	}
	if c == nil {
		t.Fatal("New() returned nil client")
	}
}

func TestExecuteTool(t *testing.T) {
	available := []tools.Tool{tools.Calculator()}

	call := executeTool(context.Background(), available, "calculator", `{"expression":"3*7"}`)
	if call.Name != "calculator" {
		t.Errorf("Name = %q, want calculator", call.Name)
	}
	result, ok := call.Result.(map[string]any)
	if !ok || result["success"] != true {
		t.Fatalf("Result = %v, want success", call.Result)
	}
	if result["result"] != 21.0 {
		t.Errorf("result = %v, want 21", result["result"])
	}
}

func TestExecuteTool_Unknown(t *testing.T) {
	call := executeTool(context.Background(), nil, "nope", `{}`)
	result := call.Result.(map[string]any)
	if result["success"] != false {
		t.Error("unknown tool reported success")
	}
}

func TestExecuteTool_BadArgs(t *testing.T) {
	call := executeTool(context.Background(), []tools.Tool{tools.Calculator()}, "calculator", `{not json`)
	result := call.Result.(map[string]any)
	if result["success"] != false {
		t.Error("invalid arguments reported success")
	}
}

func TestApplyConfig_Defaults(t *testing.T) {
	var params openai.ChatCompletionNewParams
	applyConfig(&params, nil)
	if got := params.Temperature.Value; got != DefaultTemperature {
		t.Errorf("Temperature = %v, want %v", got, DefaultTemperature)
	}
	if got := params.MaxTokens.Value; got != DefaultMaxOutputTokens {
		t.Errorf("MaxTokens = %v, want %v", got, DefaultMaxOutputTokens)
	}
	if params.TopP.Valid() {
		t.Errorf("TopP = %v, want unset", params.TopP.Value)
	}
}

func TestApplyConfig_Overrides(t *testing.T) {
	temperature := 0.2
	maxTokens := 512
	topP := 0.9
	cfg := &domain.ModelConfig{Temperature: &temperature, MaxTokens: &maxTokens, TopP: &topP}

	var params openai.ChatCompletionNewParams
	applyConfig(&params, cfg)
	if got := params.Temperature.Value; got != 0.2 {
		t.Errorf("Temperature = %v, want 0.2", got)
	}
	if got := params.MaxTokens.Value; got != 512 {
		t.Errorf("MaxTokens = %v, want 512", got)
	}
	if got := params.TopP.Value; got != 0.9 {
		t.Errorf("TopP = %v, want 0.9", got)
	}
}

func TestAddUsage_Accumulates(t *testing.T) {
	usage := &domain.Usage{}
	n := 10
	usage.InputTokens = &n

	addTokens(&usage.InputTokens, 5)
	if usage.InputTokens == nil || *usage.InputTokens != 15 {
		t.Errorf("InputTokens = %v, want 15", usage.InputTokens)
	}

	addTokens(&usage.OutputTokens, 0)
	if usage.OutputTokens != nil {
		t.Errorf("OutputTokens = %v, want nil for zero count", usage.OutputTokens)
	}
}

func TestDataURL(t *testing.T) {
	got := dataURL(ImageAttachment{Data: []byte("hi"), MIMEType: "image/jpeg"})
	want := "data:image/jpeg;base64,aGk="
	if got != want {
		t.Errorf("dataURL = %q, want %q", got, want)
	}

	got = dataURL(ImageAttachment{Data: []byte("hi")})
	if got != "data:image/png;base64,aGk=" {
		t.Errorf("dataURL without MIME = %q, want png default", got)
	}
}
