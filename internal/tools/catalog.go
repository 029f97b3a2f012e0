package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/drewomix/Oasis/internal/agent"
	"github.com/drewomix/Oasis/internal/reliability"
)

const (
	catalogFetchAttempts = 3
	catalogBackoffBase   = 500 * time.Millisecond
	catalogBackoffCap    = 5 * time.Second
)

// Definition is one remotely declared tool: its calling contract plus the
// HTTP endpoint that executes it.
type Definition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
	Endpoint    string          `json:"endpoint"`
}

// Catalog fetches per-user tool definitions from a remote service and
// turns them into invocable tools.
type Catalog struct {
	url    string
	client *http.Client
}

func NewCatalog(catalogURL string, timeout time.Duration) *Catalog {
	return &Catalog{
		url:    strings.TrimSpace(catalogURL),
		client: &http.Client{Timeout: timeout},
	}
}

// LoadAsync fetches the user's catalog in the background and appends each
// tool to the registry as it lands. Session setup never blocks on it: a
// query that arrives early simply runs with whatever is registered.
func (c *Catalog) LoadAsync(ctx context.Context, userID string, reg *agent.Registry) {
	if c.url == "" {
		return
	}
	go func() {
		defs, err := c.Fetch(ctx, userID)
		if err != nil {
			log.Printf("tool catalog fetch for user %s failed: %v", userID, err)
			return
		}
		registered := 0
		for _, def := range defs {
			tool, err := c.toolFromDefinition(def)
			if err != nil {
				log.Printf("skipping catalog tool %q: %v", def.Name, err)
				continue
			}
			reg.Register(tool)
			registered++
		}
		log.Printf("registered %d catalog tools for user %s", registered, userID)
	}()
}

// Fetch retrieves the user's tool definitions, retrying transient HTTP
// failures with capped exponential backoff.
func (c *Catalog) Fetch(ctx context.Context, userID string) ([]Definition, error) {
	reqURL := c.url + "?user_id=" + url.QueryEscape(userID)

	var lastErr error
	for attempt := 0; attempt < catalogFetchAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(reliability.ExponentialBackoff(attempt-1, catalogBackoffBase, catalogBackoffCap)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		defs, retryable, err := c.fetchOnce(ctx, reqURL)
		if err == nil {
			return defs, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}
	return nil, fmt.Errorf("catalog fetch exhausted retries: %w", lastErr)
}

func (c *Catalog) fetchOnce(ctx context.Context, reqURL string) ([]Definition, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("catalog request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return nil, reliability.IsRetryableHTTPStatus(res.StatusCode),
			fmt.Errorf("catalog status %d: %s", res.StatusCode, string(body))
	}

	var payload struct {
		Tools []Definition `json:"tools"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, false, fmt.Errorf("decode catalog: %w", err)
	}
	return payload.Tools, false, nil
}

func (c *Catalog) toolFromDefinition(def Definition) (agent.Tool, error) {
	name := strings.TrimSpace(def.Name)
	if name == "" {
		return nil, fmt.Errorf("definition has no name")
	}
	endpoint := strings.TrimSpace(def.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("definition has no endpoint")
	}
	return &remoteTool{
		name:        name,
		description: def.Description,
		schema:      string(def.Parameters),
		endpoint:    endpoint,
		client:      c.client,
	}, nil
}

// remoteTool executes a catalog tool by POSTing its arguments to the
// declared endpoint.
type remoteTool struct {
	name        string
	description string
	schema      string
	endpoint    string
	client      *http.Client
}

func (t *remoteTool) Name() string            { return t.name }
func (t *remoteTool) Description() string     { return t.description }
func (t *remoteTool) ParameterSchema() string { return t.schema }

func (t *remoteTool) Invoke(ctx context.Context, args map[string]any) (agent.Result, error) {
	payload, err := json.Marshal(args)
	if err != nil {
		return agent.Result{}, fmt.Errorf("marshal arguments: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return agent.Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := t.client.Do(req)
	if err != nil {
		return agent.Result{}, fmt.Errorf("invoke %s: %w", t.name, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return agent.Result{}, fmt.Errorf("read %s response: %w", t.name, err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return agent.Result{}, fmt.Errorf("%s status %d: %s", t.name, res.StatusCode, string(body))
	}
	return agent.Result{Content: strings.TrimSpace(string(body))}, nil
}
