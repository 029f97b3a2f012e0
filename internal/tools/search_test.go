package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSearchToolFormatsResults(t *testing.T) {
	var gotQuery, gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotToken = r.Header.Get("X-Subscription-Token")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"web": {
				"results": [
					{"title": "Go", "url": "https://go.dev", "description": "The Go language"},
					{"title": "Go blog", "url": "https://go.dev/blog", "description": "News"}
				]
			}
		}`))
	}))
	defer srv.Close()

	tool := NewSearchTool(srv.URL, "secret", 2*time.Second)
	res, err := tool.Invoke(context.Background(), map[string]any{"query": "golang news"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotQuery != "golang news" {
		t.Fatalf("query = %q", gotQuery)
	}
	if gotToken != "secret" {
		t.Fatalf("token = %q", gotToken)
	}
	if !strings.Contains(res.Content, "1. Go") || !strings.Contains(res.Content, "https://go.dev/blog") {
		t.Fatalf("unexpected content: %q", res.Content)
	}
}

func TestSearchToolEmptyResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"web":{"results":[]}}`))
	}))
	defer srv.Close()

	tool := NewSearchTool(srv.URL, "", 2*time.Second)
	res, err := tool.Invoke(context.Background(), map[string]any{"query": "xyzzy"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(res.Content, "No results") {
		t.Fatalf("unexpected content: %q", res.Content)
	}
}

func TestSearchToolErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	tool := NewSearchTool(srv.URL, "", 2*time.Second)
	if _, err := tool.Invoke(context.Background(), map[string]any{"query": "anything"}); err == nil {
		t.Fatal("expected error for non-2xx status")
	}
}

func TestSearchToolRejectsEmptyQuery(t *testing.T) {
	tool := NewSearchTool("http://unused.invalid", "", time.Second)
	if _, err := tool.Invoke(context.Background(), map[string]any{"query": "   "}); err == nil {
		t.Fatal("expected error for blank query")
	}
}
