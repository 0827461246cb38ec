package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/chainguard-dev/clog"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"

	"github.com/hochfrequenz/litmus/internal/domain"
	"github.com/hochfrequenz/litmus/internal/tools"
)

// Sampling defaults applied when the model config leaves them unset.
const (
	DefaultTemperature     = 0.7
	DefaultMaxOutputTokens = 2048
)

// maxToolSteps bounds the tool-call loop. After this many rounds the model
// is forced to answer in text.
const maxToolSteps = 5

// Event is one incremental update from a streaming session. Exactly one
// field is set per event.
type Event struct {
	TextDelta      string
	ReasoningDelta string
	ToolCall       *domain.ToolCall
}

// EventFunc receives streaming events. It is called from the goroutine
// driving the stream, so implementations must be safe for that.
type EventFunc func(Event)

// ImageAttachment is an image included with the prompt, either by URL or
// as raw bytes that get embedded as a data URL.
type ImageAttachment struct {
	URL      string
	Data     []byte
	MIMEType string
}

// StreamOptions configures one streaming invocation.
type StreamOptions struct {
	Model  string
	Prompt string
	Images []ImageAttachment
	Tools  []tools.Tool
	Config *domain.ModelConfig
}

// StreamResult is the final outcome of a streaming session.
type StreamResult struct {
	Text         string
	Reasoning    string
	ToolCalls    []domain.ToolCall
	Usage        *domain.Usage
	FinishReason string
}

// Stream runs a chat completion with streaming output, driving the tool
// loop until the model produces a text answer. Tool results feed back into
// the conversation; after maxToolSteps rounds tool use is disabled so the
// final turn must be text.
func (c *Client) Stream(ctx context.Context, opts StreamOptions, fn EventFunc) (*StreamResult, error) {
	log := clog.FromContext(ctx)

	messages := []openai.ChatCompletionMessageParamUnion{userMessage(opts)}
	toolParams := toolUnionParams(opts.Tools)

	result := &StreamResult{}
	usage := &domain.Usage{}

	for step := 0; ; step++ {
		params := openai.ChatCompletionNewParams{
			Model:    opts.Model,
			Messages: messages,
		}
		applyConfig(&params, opts.Config)
		if len(toolParams) > 0 {
			params.Tools = toolParams
			if step >= maxToolSteps {
				params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
					OfAuto: openai.String(string(openai.ChatCompletionToolChoiceOptionAutoNone)),
				}
			}
		}

		completion, err := c.streamOnce(ctx, params, fn)
		if err != nil {
			return nil, err
		}
		addUsage(usage, completion.Usage)

		if len(completion.Choices) == 0 {
			break
		}
		choice := completion.Choices[0]
		result.Text += choice.Message.Content
		result.FinishReason = string(choice.FinishReason)

		if choice.FinishReason != "tool_calls" || len(choice.Message.ToolCalls) == 0 || step >= maxToolSteps {
			break
		}

		messages = append(messages, assistantToolCallMessage(choice.Message))
		for _, tc := range choice.Message.ToolCalls {
			if tc.Type != "function" || tc.Function.Name == "" {
				continue
			}
			call := executeTool(ctx, opts.Tools, tc.Function.Name, tc.Function.Arguments)
			result.ToolCalls = append(result.ToolCalls, *call)
			fn(Event{ToolCall: call})

			payload, err := json.Marshal(call.Result)
			if err != nil {
				payload = []byte(`{"success":false,"error":"failed to encode tool result"}`)
			}
			messages = append(messages, openai.ToolMessage(string(payload), tc.ID))
			log.Debug("tool call completed", "tool", call.Name, "model", opts.Model)
		}
	}

	if usage.TotalTokens != nil || usage.InputTokens != nil || usage.OutputTokens != nil {
		result.Usage = usage
	}
	return result, nil
}

// streamOnce drives one streaming completion to the end, emitting text and
// reasoning deltas, and returns the accumulated completion.
func (c *Client) streamOnce(
	ctx context.Context,
	params openai.ChatCompletionNewParams,
	fn EventFunc,
) (*openai.ChatCompletion, error) {
	stream := c.oc.Chat.Completions.NewStreaming(ctx, params)
	acc := openai.ChatCompletionAccumulator{}

	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)

		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta

		if delta.Content != "" {
			fn(Event{TextDelta: delta.Content})
		}
		// OpenRouter reports reasoning traces in a non-standard delta field.
		if raw := delta.JSON.ExtraFields["reasoning"].Raw(); raw != "" {
			var reasoning string
			if err := json.Unmarshal([]byte(raw), &reasoning); err == nil && reasoning != "" {
				fn(Event{ReasoningDelta: reasoning})
			}
		}
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("streaming completion: %w", err)
	}

	completion := acc.ChatCompletion
	return &completion, nil
}

// userMessage builds the opening user turn. Images come first so the text
// prompt reads as the question about them.
func userMessage(opts StreamOptions) openai.ChatCompletionMessageParamUnion {
	if len(opts.Images) == 0 {
		return openai.UserMessage(opts.Prompt)
	}
	parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(opts.Images)+1)
	for _, img := range opts.Images {
		url := img.URL
		if url == "" {
			url = dataURL(img)
		}
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: url,
		}))
	}
	parts = append(parts, openai.TextContentPart(opts.Prompt))
	return openai.UserMessage(parts)
}

func dataURL(img ImageAttachment) string {
	mime := img.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// assistantToolCallMessage rebuilds the assistant turn that requested the
// tool calls, so the follow-up completion sees its own request.
func assistantToolCallMessage(msg openai.ChatCompletionMessage) openai.ChatCompletionMessageParamUnion {
	assistant := openai.ChatCompletionAssistantMessageParam{}
	if msg.Content != "" {
		assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
			OfString: openai.String(msg.Content),
		}
	}
	for _, tc := range msg.ToolCalls {
		if tc.Type != "function" || tc.ID == "" || tc.Function.Name == "" {
			continue
		}
		assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
				ID: tc.ID,
				Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			},
		})
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant}
}

// executeTool parses the arguments and runs the named tool. Argument parse
// failures and unknown tools produce failure results rather than aborting
// the stream.
func executeTool(ctx context.Context, available []tools.Tool, name, rawArgs string) *domain.ToolCall {
	call := &domain.ToolCall{Name: name}
	if rawArgs != "" {
		if err := json.Unmarshal([]byte(rawArgs), &call.Args); err != nil {
			call.Result = map[string]any{"success": false, "error": "invalid tool arguments: " + err.Error()}
			return call
		}
	}
	for _, t := range available {
		if t.Name == name {
			call.Result = t.Execute(ctx, call.Args)
			return call
		}
	}
	call.Result = map[string]any{"success": false, "error": "unknown tool: " + name}
	return call
}

func toolUnionParams(selected []tools.Tool) []openai.ChatCompletionToolUnionParam {
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(selected))
	for _, t := range selected {
		fn := shared.FunctionDefinitionParam{
			Name:        t.Name,
			Description: openai.String(t.Description),
			Parameters:  shared.FunctionParameters(t.Schema),
		}
		out = append(out, openai.ChatCompletionFunctionTool(fn))
	}
	return out
}

func applyConfig(params *openai.ChatCompletionNewParams, cfg *domain.ModelConfig) {
	temperature := DefaultTemperature
	maxTokens := DefaultMaxOutputTokens
	if cfg != nil {
		if cfg.Temperature != nil {
			temperature = *cfg.Temperature
		}
		if cfg.MaxTokens != nil {
			maxTokens = *cfg.MaxTokens
		}
		if cfg.TopP != nil {
			params.TopP = openai.Float(*cfg.TopP)
		}
	}
	params.Temperature = openai.Float(temperature)
	params.MaxTokens = openai.Int(int64(maxTokens))
}

func addUsage(into *domain.Usage, u openai.CompletionUsage) {
	addTokens(&into.InputTokens, u.PromptTokens)
	addTokens(&into.OutputTokens, u.CompletionTokens)
	addTokens(&into.TotalTokens, u.TotalTokens)
	addTokens(&into.CacheReadTokens, u.PromptTokensDetails.CachedTokens)
	addTokens(&into.ReasoningTokens, u.CompletionTokensDetails.ReasoningTokens)
}

func addTokens(field **int, n int64) {
	if n == 0 {
		return
	}
	v := int(n)
	if *field != nil {
		v += **field
	}
	*field = &v
}
