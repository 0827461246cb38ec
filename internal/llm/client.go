// Package llm talks to an OpenRouter-compatible chat completion API,
// streaming model output for benchmark runs and issuing plain completions
// for the judge.
package llm

import (
	"errors"
	"os"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// DefaultBaseURL is the OpenRouter API endpoint used when the config does
// not override it.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

const apiKeyEnv = "OPENROUTER_API_KEY"

// ErrMissingAPIKey is returned by New when no API key is configured. The
// check happens before any request so a misconfigured environment fails
// immediately instead of mid-run.
var ErrMissingAPIKey = errors.New("OPENROUTER_API_KEY is not set")

// Client wraps the OpenAI-compatible SDK client.
type Client struct {
	oc openai.Client
}

// New builds a client against the given base URL, falling back to
// OpenRouter. The API key is read from the environment.
func New(baseURL string) (*Client, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		oc: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithBaseURL(baseURL),
		),
	}, nil
}
