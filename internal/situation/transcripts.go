package situation

import (
	"context"
	"strings"
	"sync"
	"time"
)

// transcriptRetention bounds how much speech history is kept per session.
const transcriptRetention = 5 * time.Minute

type segment struct {
	text string
	at   time.Time
}

// TranscriptStore accumulates final transcript segments per session and
// serves trailing-window fetches for the wake controller and the gate.
type TranscriptStore struct {
	mu       sync.Mutex
	segments map[string][]segment
	nowFunc  func() time.Time
}

func NewTranscriptStore() *TranscriptStore {
	return &TranscriptStore{
		segments: make(map[string][]segment),
		nowFunc:  time.Now,
	}
}

func (s *TranscriptStore) Append(sessionID, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	now := s.nowFunc()
	s.mu.Lock()
	defer s.mu.Unlock()
	arr := append(s.segments[sessionID], segment{text: text, at: now})
	cutoff := now.Add(-transcriptRetention)
	for len(arr) > 0 && arr[0].at.Before(cutoff) {
		arr = arr[1:]
	}
	s.segments[sessionID] = arr
}

// Window returns the accumulated speech for the trailing duration, joined
// with single spaces. The duration is rounded up to whole seconds with a
// one second floor.
func (s *TranscriptStore) Window(_ context.Context, sessionID string, d time.Duration) (string, error) {
	if rem := d % time.Second; rem != 0 {
		d = d - rem + time.Second
	}
	if d < time.Second {
		d = time.Second
	}
	cutoff := s.nowFunc().Add(-d)

	s.mu.Lock()
	defer s.mu.Unlock()
	var parts []string
	for _, seg := range s.segments[sessionID] {
		if seg.at.Before(cutoff) {
			continue
		}
		parts = append(parts, seg.text)
	}
	return strings.Join(parts, " "), nil
}

// RecentSegments returns up to limit most recent segment texts, oldest first.
func (s *TranscriptStore) RecentSegments(sessionID string, limit int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	arr := s.segments[sessionID]
	if len(arr) == 0 {
		return nil
	}
	if limit <= 0 || limit > len(arr) {
		limit = len(arr)
	}
	out := make([]string, 0, limit)
	for _, seg := range arr[len(arr)-limit:] {
		out = append(out, seg.text)
	}
	return out
}

func (s *TranscriptStore) Drop(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.segments, sessionID)
}
