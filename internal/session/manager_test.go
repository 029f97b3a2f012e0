package session

import (
	"context"
	"testing"
	"time"
)

func TestManagerCreateGetEnd(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.Create("u1", Settings{SpeakResponses: true})
	if s.ID == "" {
		t.Fatalf("session ID should not be empty")
	}

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.UserID != "u1" || !got.Settings.SpeakResponses || got.Status != StatusActive {
		t.Fatalf("unexpected session state: %+v", got)
	}

	ended, err := m.End(s.ID)
	if err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if ended.Status != StatusEnded {
		t.Fatalf("ended status = %q, want %q", ended.Status, StatusEnded)
	}
}

func TestManagerUpdateSettingsPartial(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.Create("u1", Settings{AlwaysListening: true})

	yes := true
	merged, err := m.UpdateSettings(s.ID, nil, &yes, nil)
	if err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}
	if !merged.AlwaysListening {
		t.Fatalf("AlwaysListening should survive a partial update")
	}
	if !merged.SpeakResponses {
		t.Fatalf("SpeakResponses should be updated to true")
	}
	if merged.HeadUpWake {
		t.Fatalf("HeadUpWake should remain false")
	}
}

func TestManagerEndHookRuns(t *testing.T) {
	m := NewManager(time.Minute)
	var endedID string
	m.SetEndHook(func(s *Session) { endedID = s.ID })

	s := m.Create("u1", Settings{})
	if _, err := m.End(s.ID); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if endedID != s.ID {
		t.Fatalf("end hook saw %q, want %q", endedID, s.ID)
	}
}

func TestManagerJanitorExpiresInactive(t *testing.T) {
	m := NewManager(30 * time.Millisecond)
	hookCh := make(chan string, 1)
	m.SetEndHook(func(s *Session) { hookCh <- s.ID })
	s := m.Create("u1", Settings{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartJanitor(ctx, 10*time.Millisecond)

	select {
	case id := <-hookCh:
		if id != s.ID {
			t.Fatalf("expired id = %q, want %q", id, s.ID)
		}
	case <-time.After(time.Second):
		t.Fatalf("janitor never expired the session")
	}

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != StatusEnded {
		t.Fatalf("Status = %q, want %q", got.Status, StatusEnded)
	}
}
