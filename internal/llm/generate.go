package llm

import (
	"context"
	"fmt"

	openai "github.com/openai/openai-go/v3"
)

// GenerateOptions configures one non-streaming completion.
type GenerateOptions struct {
	Model       string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Generate runs a plain chat completion and returns the full reply text.
// The judge uses this; it never needs streaming or tools.
func (c *Client) Generate(ctx context.Context, opts GenerateOptions) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       opts.Model,
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(opts.Prompt)},
		Temperature: openai.Float(opts.Temperature),
	}
	if opts.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(opts.MaxTokens))
	}

	completion, err := c.oc.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}
	return completion.Choices[0].Message.Content, nil
}
