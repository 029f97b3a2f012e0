package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/drewomix/Oasis/internal/agent"
)

const searchSchema = `{
  "type": "object",
  "properties": {
    "query": {
      "type": "string",
      "minLength": 1,
      "description": "Search query"
    }
  },
  "required": ["query"]
}`

const maxSearchResults = 5

// SearchTool answers queries about current events and facts by calling a
// web search API. It carries its own HTTP deadline, independent of the
// query pipeline's timers.
type SearchTool struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewSearchTool(endpoint, apiKey string, timeout time.Duration) *SearchTool {
	return &SearchTool{
		endpoint: strings.TrimSpace(endpoint),
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

func (t *SearchTool) Name() string { return "web_search" }

func (t *SearchTool) Description() string {
	return "Search the web for current information: news, weather, facts, anything outside your own knowledge."
}

func (t *SearchTool) ParameterSchema() string { return searchSchema }

func (t *SearchTool) Invoke(ctx context.Context, args map[string]any) (agent.Result, error) {
	query, _ := args["query"].(string)
	query = strings.TrimSpace(query)
	if query == "" {
		return agent.Result{}, fmt.Errorf("query must be a non-empty string")
	}

	reqURL := t.endpoint + "?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return agent.Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if t.apiKey != "" {
		req.Header.Set("X-Subscription-Token", t.apiKey)
	}

	res, err := t.client.Do(req)
	if err != nil {
		return agent.Result{}, fmt.Errorf("search request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return agent.Result{}, fmt.Errorf("search status %d: %s", res.StatusCode, string(body))
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return agent.Result{}, fmt.Errorf("read response: %w", err)
	}

	var payload struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return agent.Result{}, fmt.Errorf("decode response: %w", err)
	}
	if len(payload.Web.Results) == 0 {
		return agent.Result{Content: "No results found for: " + query}, nil
	}

	var b strings.Builder
	for i, r := range payload.Web.Results {
		if i == maxSearchResults {
			break
		}
		fmt.Fprintf(&b, "%d. %s\n%s\n%s\n\n", i+1, r.Title, r.URL, r.Description)
	}
	return agent.Result{Content: strings.TrimSpace(b.String())}, nil
}
