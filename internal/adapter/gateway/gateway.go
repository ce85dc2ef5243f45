// Package gateway adapts a memory provider reachable through an HTTP
// tools-invoke gateway. Every operation maps to one tool invocation
// authenticated with a bearer token.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/openclaw/membench/internal/adapter"
	"github.com/openclaw/membench/internal/models"
)

const defaultRequestTimeout = 120 * time.Second

func init() {
	adapter.Register("gateway", func() adapter.Adapter { return &Adapter{} })
}

// Adapter talks to a running gateway over HTTP.
type Adapter struct {
	baseURL string
	token   string
	agentID string
	client  *http.Client
}

// Name returns the adapter kind.
func (a *Adapter) Name() string { return "gateway" }

// Initialize resolves the gateway endpoint and credentials from the provider
// configuration map. The token is required.
func (a *Adapter) Initialize(_ context.Context, config map[string]any) error {
	url, _ := config["gateway_url"].(string)
	if url == "" {
		url = "http://127.0.0.1:18789"
	}
	for len(url) > 0 && url[len(url)-1] == '/' {
		url = url[:len(url)-1]
	}
	a.baseURL = url

	a.token, _ = config["gateway_token"].(string)
	if a.token == "" {
		return fmt.Errorf("gateway adapter: gateway_token is required")
	}

	a.agentID, _ = config["agent_id"].(string)
	if a.agentID == "" {
		a.agentID = "main"
	}

	timeout := defaultRequestTimeout
	if sec, ok := config["request_timeout_sec"].(float64); ok && sec > 0 {
		timeout = time.Duration(sec * float64(time.Second))
	}
	a.client = &http.Client{Timeout: timeout}

	return nil
}

// Ingest forwards the sessions to the gateway's memory_ingest tool.
func (a *Adapter) Ingest(ctx context.Context, sessions []models.Session, containerTag string) (map[string]any, error) {
	result, err := a.invokeTool(ctx, "memory_ingest", map[string]any{
		"container_tag": containerTag,
		"sessions":      sessions,
	})
	if err != nil {
		return nil, err
	}
	payload, _ := result.(map[string]any)
	if payload == nil {
		payload = map[string]any{}
	}
	payload["sessions"] = len(sessions)
	return payload, nil
}

// AwaitIndexing invokes memory_await_indexing, which returns once the
// ingested data is searchable.
func (a *Adapter) AwaitIndexing(ctx context.Context, ingestResult map[string]any, containerTag string) error {
	_, err := a.invokeTool(ctx, "memory_await_indexing", map[string]any{
		"container_tag": containerTag,
		"ingest_result": ingestResult,
	})
	return err
}

// Search invokes memory_search and decodes the returned hit list.
func (a *Adapter) Search(ctx context.Context, query, containerTag string, limit int) ([]models.SearchHit, error) {
	result, err := a.invokeTool(ctx, "memory_search", map[string]any{
		"container_tag": containerTag,
		"query":         query,
		"limit":         limit,
	})
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("re-encoding search result: %w", err)
	}
	var hits []models.SearchHit
	if err := json.Unmarshal(raw, &hits); err != nil {
		return nil, fmt.Errorf("parsing search result: %w", err)
	}
	return hits, nil
}

// Clear invokes memory_clear for the container tag.
func (a *Adapter) Clear(ctx context.Context, containerTag string) error {
	_, err := a.invokeTool(ctx, "memory_clear", map[string]any{
		"container_tag": containerTag,
	})
	return err
}

type invokeRequest struct {
	Tool       string         `json:"tool"`
	Args       map[string]any `json:"args"`
	SessionKey string         `json:"sessionKey"`
}

type invokeResponse struct {
	OK     bool   `json:"ok"`
	Result any    `json:"result"`
	Error  string `json:"error,omitempty"`
}

func (a *Adapter) invokeTool(ctx context.Context, tool string, args map[string]any) (any, error) {
	if a.client == nil {
		return nil, fmt.Errorf("gateway adapter: not initialized")
	}

	body, err := json.Marshal(invokeRequest{Tool: tool, Args: args, SessionKey: "membench"})
	if err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", tool, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/tools/invoke", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building %s request: %w", tool, err)
	}
	req.Header.Set("Authorization", "Bearer "+a.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Agent-ID", a.agentID)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("invoking %s: %w", tool, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", tool, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway error (%d) invoking %s: %s", resp.StatusCode, tool, truncate(data, 2000))
	}

	var out invokeResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parsing %s response: %w", tool, err)
	}
	if !out.OK {
		return nil, fmt.Errorf("gateway refused %s: %s", tool, out.Error)
	}
	return out.Result, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
