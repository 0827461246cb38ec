package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

const (
	exaSearchURL      = "https://api.exa.ai/search"
	maxSearchResults  = 10
	snippetMaxLength  = 500
	searchHTTPTimeout = 30 * time.Second
)

type exaRequest struct {
	Query      string       `json:"query"`
	NumResults int          `json:"numResults"`
	Contents   *exaContents `json:"contents,omitempty"`
}

type exaContents struct {
	Text bool `json:"text"`
}

type exaResponse struct {
	Results []exaResult `json:"results"`
}

type exaResult struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Text  string `json:"text"`
}

// WebSearch queries the Exa search API. It requires the EXA_API_KEY
// environment variable; without it the tool reports failure to the model
// instead of erroring out of the run.
func WebSearch() Tool {
	client := &http.Client{Timeout: searchHTTPTimeout}
	return Tool{
		Name:        "web_search",
		DisplayName: "Web Search",
		Description: "Search the web for current information. Returns a list of results with title, URL, and a text snippet.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The search query",
				},
				"max_results": map[string]any{
					"type":        "number",
					"description": "Maximum number of results to return (default 5, max 10)",
				},
			},
			"required": []string{"query"},
		},
		Execute: func(ctx context.Context, args map[string]any) map[string]any {
			query, _ := args["query"].(string)
			if query == "" {
				return map[string]any{"success": false, "error": "query is required"}
			}
			apiKey := os.Getenv("EXA_API_KEY")
			if apiKey == "" {
				return map[string]any{"success": false, "error": "EXA_API_KEY is not set"}
			}

			numResults := 5
			if n, ok := args["max_results"].(float64); ok && n > 0 {
				numResults = int(n)
				if numResults > maxSearchResults {
					numResults = maxSearchResults
				}
			}

			body, err := json.Marshal(exaRequest{
				Query:      query,
				NumResults: numResults,
				Contents:   &exaContents{Text: true},
			})
			if err != nil {
				return map[string]any{"success": false, "error": err.Error()}
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodPost, exaSearchURL, bytes.NewReader(body))
			if err != nil {
				return map[string]any{"success": false, "error": err.Error()}
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("x-api-key", apiKey)

			resp, err := client.Do(req)
			if err != nil {
				return map[string]any{"success": false, "error": "search request failed: " + err.Error()}
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return map[string]any{"success": false, "error": fmt.Sprintf("search API returned status %d", resp.StatusCode)}
			}

			var parsed exaResponse
			if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
				return map[string]any{"success": false, "error": "failed to decode search response: " + err.Error()}
			}

			results := make([]map[string]any, 0, len(parsed.Results))
			for _, r := range parsed.Results {
				snippet := r.Text
				if len(snippet) > snippetMaxLength {
					snippet = snippet[:snippetMaxLength] + "..."
				}
				results = append(results, map[string]any{
					"title":   r.Title,
					"url":     r.URL,
					"snippet": snippet,
				})
			}
			return map[string]any{"query": query, "results": results, "success": true}
		},
	}
}
