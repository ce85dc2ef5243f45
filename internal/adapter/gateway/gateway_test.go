package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/openclaw/membench/internal/models"
)

// fakeGateway records invocations and answers each tool from a canned table.
type fakeGateway struct {
	mu      sync.Mutex
	invoked []string
	results map[string]any
	token   string
}

func (g *fakeGateway) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tools/invoke" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+g.token {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "bad token"})
			return
		}
		if r.Header.Get("X-Agent-ID") == "" {
			t.Error("missing X-Agent-ID header")
		}

		var req struct {
			Tool string         `json:"tool"`
			Args map[string]any `json:"args"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding invoke request: %v", err)
		}

		g.mu.Lock()
		g.invoked = append(g.invoked, req.Tool)
		g.mu.Unlock()

		result, ok := g.results[req.Tool]
		if !ok {
			json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "unknown tool " + req.Tool})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": result})
	}
}

func newGatewayAdapter(t *testing.T, g *fakeGateway) (*Adapter, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(g.handler(t))
	t.Cleanup(srv.Close)

	a := &Adapter{}
	err := a.Initialize(context.Background(), map[string]any{
		"gateway_url":   srv.URL,
		"gateway_token": g.token,
	})
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return a, srv
}

func TestInitializeRequiresToken(t *testing.T) {
	a := &Adapter{}
	if err := a.Initialize(context.Background(), map[string]any{}); err == nil {
		t.Fatal("expected an error without a gateway_token")
	}
}

func TestToolRoundTrip(t *testing.T) {
	g := &fakeGateway{
		token: "t0k3n",
		results: map[string]any{
			"memory_ingest":         map[string]any{"stored": true},
			"memory_await_indexing": map[string]any{},
			"memory_search": []map[string]any{
				{"id": "h1", "content": "we adopted a cat", "score": 0.9, "metadata": map[string]string{"session_id": "s1"}},
			},
			"memory_clear": map[string]any{},
		},
	}
	a, _ := newGatewayAdapter(t, g)
	ctx := context.Background()
	tag := "run-1:q1"

	sessions := []models.Session{{SessionID: "s1", Messages: []models.SessionMessage{{Role: models.RoleUser, Content: "we adopted a cat"}}}}
	result, err := a.Ingest(ctx, sessions, tag)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if result["stored"] != true || result["sessions"] != 1 {
		t.Errorf("unexpected ingest result: %v", result)
	}

	if err := a.AwaitIndexing(ctx, result, tag); err != nil {
		t.Fatalf("AwaitIndexing: %v", err)
	}

	hits, err := a.Search(ctx, "cat", tag, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "h1" || hits[0].Metadata["session_id"] != "s1" {
		t.Fatalf("unexpected hits: %+v", hits)
	}

	if err := a.Clear(ctx, tag); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	want := []string{"memory_ingest", "memory_await_indexing", "memory_search", "memory_clear"}
	if len(g.invoked) != len(want) {
		t.Fatalf("invocations %v, want %v", g.invoked, want)
	}
	for i := range want {
		if g.invoked[i] != want[i] {
			t.Errorf("invocation %d: %s, want %s", i, g.invoked[i], want[i])
		}
	}
}

func TestToolRefusal(t *testing.T) {
	g := &fakeGateway{token: "t0k3n", results: map[string]any{}}
	a, _ := newGatewayAdapter(t, g)

	err := a.Clear(context.Background(), "run-1:q1")
	if err == nil {
		t.Fatal("expected an error for an unknown tool")
	}
	if !strings.Contains(err.Error(), "unknown tool") {
		t.Errorf("error should carry the gateway message: %v", err)
	}
}

func TestBadToken(t *testing.T) {
	g := &fakeGateway{token: "right"}
	srv := httptest.NewServer(g.handler(t))
	t.Cleanup(srv.Close)

	a := &Adapter{}
	if err := a.Initialize(context.Background(), map[string]any{
		"gateway_url":   srv.URL,
		"gateway_token": "wrong",
	}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if err := a.Clear(context.Background(), "run-1:q1"); err == nil {
		t.Fatal("expected an error for a rejected token")
	}
}

func TestUninitializedAdapter(t *testing.T) {
	a := &Adapter{}
	if _, err := a.Search(context.Background(), "q", "tag", 3); err == nil {
		t.Fatal("expected an error from an uninitialized adapter")
	}
}
