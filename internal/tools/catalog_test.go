package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/drewomix/Oasis/internal/agent"
)

func catalogBody(endpoint string) string {
	return `{
		"tools": [
			{
				"name": "home_lights",
				"description": "Control the lights",
				"parameters": {"type":"object","properties":{"state":{"type":"string"}},"required":["state"]},
				"endpoint": "` + endpoint + `"
			},
			{
				"name": "",
				"description": "broken, no name",
				"endpoint": "` + endpoint + `"
			}
		]
	}`
}

func TestCatalogFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("user_id"); got != "u1" {
			t.Errorf("user_id = %q", got)
		}
		w.Write([]byte(catalogBody("http://tools.invalid/lights")))
	}))
	defer srv.Close()

	catalog := NewCatalog(srv.URL, 2*time.Second)
	defs, err := catalog.Fetch(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("got %d definitions, want 2", len(defs))
	}
	if defs[0].Name != "home_lights" {
		t.Fatalf("name = %q", defs[0].Name)
	}
}

func TestCatalogFetchRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"tools":[]}`))
	}))
	defer srv.Close()

	catalog := NewCatalog(srv.URL, 2*time.Second)
	if _, err := catalog.Fetch(context.Background(), "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("server called %d times, want 2", got)
	}
}

func TestCatalogFetchDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "no such user", http.StatusNotFound)
	}))
	defer srv.Close()

	catalog := NewCatalog(srv.URL, 2*time.Second)
	if _, err := catalog.Fetch(context.Background(), "nobody"); err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("server called %d times, want 1", got)
	}
}

func TestLoadAsyncRegistersValidTools(t *testing.T) {
	toolSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var args map[string]any
		json.NewDecoder(r.Body).Decode(&args)
		if args["state"] != "on" {
			t.Errorf("args = %v", args)
		}
		w.Write([]byte("lights are on"))
	}))
	defer toolSrv.Close()

	catalogSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(catalogBody(toolSrv.URL)))
	}))
	defer catalogSrv.Close()

	reg := agent.NewRegistry()
	catalog := NewCatalog(catalogSrv.URL, 2*time.Second)
	catalog.LoadAsync(context.Background(), "u1", reg)

	deadline := time.Now().Add(2 * time.Second)
	for reg.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if reg.Len() != 1 {
		t.Fatalf("registry has %d tools, want 1 (nameless definition skipped)", reg.Len())
	}

	tool, ok := reg.Lookup("home_lights")
	if !ok {
		t.Fatal("home_lights not registered")
	}
	res, err := tool.Invoke(context.Background(), map[string]any{"state": "on"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Content != "lights are on" {
		t.Fatalf("content = %q", res.Content)
	}
	if res.Handoff {
		t.Fatal("remote tools never hand off")
	}
}

func TestLoadAsyncNoURLIsNoop(t *testing.T) {
	reg := agent.NewRegistry()
	NewCatalog("", time.Second).LoadAsync(context.Background(), "u1", reg)
	time.Sleep(20 * time.Millisecond)
	if reg.Len() != 0 {
		t.Fatalf("registry has %d tools, want 0", reg.Len())
	}
}
