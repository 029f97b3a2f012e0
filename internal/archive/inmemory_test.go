package archive

import (
	"context"
	"testing"
)

func TestInMemoryStoreRoundTrip(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	for _, q := range []string{"first", "second", "third"} {
		err := store.SaveExchange(ctx, Exchange{
			UserID:    "u1",
			SessionID: "s1",
			Query:     q,
			Answer:    "answer to " + q,
			Trigger:   "wake",
		})
		if err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	recent, err := store.RecentExchanges(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("got %d exchanges, want 2", len(recent))
	}
	if recent[0].Query != "second" || recent[1].Query != "third" {
		t.Fatalf("wrong window: %q, %q", recent[0].Query, recent[1].Query)
	}
	if recent[0].ID == "" || recent[0].CreatedAt.IsZero() {
		t.Fatal("expected generated id and timestamp")
	}
}

func TestInMemoryStoreIsolatesUsers(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	store.SaveExchange(ctx, Exchange{UserID: "u1", Query: "mine"})

	recent, err := store.RecentExchanges(ctx, "u2", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 0 {
		t.Fatalf("got %d exchanges for other user, want 0", len(recent))
	}
}

func TestFactoryDefaultsToInMemory(t *testing.T) {
	store, err := NewStore(context.Background(), "  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := store.(*InMemoryStore); !ok {
		t.Fatalf("expected *InMemoryStore, got %T", store)
	}
}
