package assistant

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/drewomix/Oasis/internal/agent"
	"github.com/drewomix/Oasis/internal/archive"
	"github.com/drewomix/Oasis/internal/config"
	"github.com/drewomix/Oasis/internal/observability"
	"github.com/drewomix/Oasis/internal/protocol"
	"github.com/drewomix/Oasis/internal/session"
)

func testConfig() config.Config {
	return config.Config{
		WakeWords:            []string{"hey mira"},
		DebounceNonFinal:     80 * time.Millisecond,
		DebounceFinal:        40 * time.Millisecond,
		DebounceWakeWordOnly: 150 * time.Millisecond,
		HardCutoff:           2 * time.Second,
		ProcessingGrace:      10 * time.Millisecond,
		HeadUpWindow:         time.Second,
		PhotoTTL:             time.Minute,
		NotificationLimit:    3,
		GateContextLimit:     3,
		TurnBudget:           5,
		ToolTimeout:          time.Second,
	}
}

type connHarness struct {
	orch     *Orchestrator
	sessions *session.Manager
	store    *archive.InMemoryStore
	sess     *session.Session
	inbound  chan any
	cancel   context.CancelFunc

	mu       sync.Mutex
	outbound []any
	done     chan struct{}
}

func newConnHarness(t *testing.T, model agent.Model, settings session.Settings) *connHarness {
	t.Helper()
	return newConnHarnessWith(t, model, settings, testConfig())
}

func newConnHarnessWith(t *testing.T, model agent.Model, settings session.Settings, cfg config.Config) *connHarness {
	t.Helper()

	sessions := session.NewManager(time.Minute)
	store := archive.NewInMemoryStore()
	metrics := observability.NewMetrics(fmt.Sprintf("oasis_test_%d", time.Now().UnixNano()))
	orch := NewOrchestrator(cfg, sessions, model, store, metrics, observability.NewStageWindow(32))
	sessions.SetEndHook(orch.Teardown)

	sess := sessions.Create("user-1", settings)

	ctx, cancel := context.WithCancel(context.Background())
	inbound := make(chan any, 16)
	out := make(chan any, 64)

	h := &connHarness{
		orch:     orch,
		sessions: sessions,
		store:    store,
		sess:     sess,
		inbound:  inbound,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	t.Cleanup(cancel)

	go func() {
		orch.RunConnection(ctx, sess, inbound, out)
		close(h.done)
	}()
	go func() {
		for msg := range out {
			h.mu.Lock()
			h.outbound = append(h.outbound, msg)
			h.mu.Unlock()
		}
	}()
	return h
}

func (h *connHarness) sent() []any {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]any(nil), h.outbound...)
}

func (h *connHarness) waitForDisplayText(t *testing.T, timeout time.Duration) (protocol.DisplayText, bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		for _, msg := range h.sent() {
			if dt, ok := msg.(protocol.DisplayText); ok {
				return dt, true
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	return protocol.DisplayText{}, false
}

func (h *connHarness) fragment(text string, isFinal bool) {
	h.inbound <- protocol.TranscriptFragment{
		Type:      protocol.TypeTranscriptFragment,
		SessionID: h.sess.ID,
		Text:      text,
		IsFinal:   isFinal,
	}
}

func TestWakeQueryFlow(t *testing.T) {
	model := agent.NewMockModel(agent.ModelResponse{
		Text: agent.FinalAnswerMarker + " It is four.",
	})
	h := newConnHarness(t, model, session.Settings{})

	h.fragment("hey mira what is two plus two", true)

	answer, ok := h.waitForDisplayText(t, 2*time.Second)
	if !ok {
		t.Fatal("no display_text arrived")
	}
	if answer.Text != "It is four." {
		t.Fatalf("answer = %q", answer.Text)
	}

	var sawPhotoRequest, sawTranscript, sawSpeak bool
	for _, msg := range h.sent() {
		switch msg.(type) {
		case protocol.PhotoRequest:
			sawPhotoRequest = true
		case protocol.DisplayTranscript:
			sawTranscript = true
		case protocol.Speak:
			sawSpeak = true
		}
	}
	if !sawPhotoRequest {
		t.Fatal("expected a photo_request on listen start")
	}
	if !sawTranscript {
		t.Fatal("expected a live display_transcript")
	}
	if sawSpeak {
		t.Fatal("speak_responses is off, nothing should be spoken")
	}

	// Wake-word queries bypass the gate: exactly one model call.
	if got := model.Calls(); got != 1 {
		t.Fatalf("model called %d times, want 1", got)
	}

	// The archived query has the wake word stripped.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		recent, _ := h.store.RecentExchanges(context.Background(), "user-1", 1)
		if len(recent) == 1 {
			if recent[0].Query != "what is two plus two" {
				t.Fatalf("archived query = %q", recent[0].Query)
			}
			if recent[0].Trigger != "wake" {
				t.Fatalf("archived trigger = %q", recent[0].Trigger)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("exchange never archived")
}

func TestAmbientQuerySuppressed(t *testing.T) {
	model := agent.NewMockModel(agent.ModelResponse{
		Text: `{"shouldRespond": false, "trigger": "direct_request", "confidence": 0.9, "reason": "background chatter"}`,
	})
	h := newConnHarness(t, model, session.Settings{AlwaysListening: true})

	h.fragment("so anyway I told him about the meeting", true)

	time.Sleep(400 * time.Millisecond)
	if got := model.Calls(); got != 1 {
		t.Fatalf("model called %d times, want 1 (gate only)", got)
	}
	for _, msg := range h.sent() {
		if dt, ok := msg.(protocol.DisplayText); ok {
			t.Fatalf("suppressed query still displayed %q", dt.Text)
		}
	}
}

func TestAmbientQueryAnswered(t *testing.T) {
	model := agent.NewMockModel(
		agent.ModelResponse{Text: `{"shouldRespond": true, "trigger": "fact_check", "confidence": 0.8, "reason": "stated a checkable fact"}`},
		agent.ModelResponse{Text: agent.FinalAnswerMarker + " Actually, it opened in 1889."},
	)
	h := newConnHarness(t, model, session.Settings{AlwaysListening: true})

	h.fragment("the eiffel tower opened in 1920 right", true)

	answer, ok := h.waitForDisplayText(t, 2*time.Second)
	if !ok {
		t.Fatal("no display_text arrived")
	}
	if !strings.Contains(answer.Text, "1889") {
		t.Fatalf("answer = %q", answer.Text)
	}
	if got := model.Calls(); got != 2 {
		t.Fatalf("model called %d times, want 2 (gate + loop)", got)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		recent, _ := h.store.RecentExchanges(context.Background(), "user-1", 1)
		if len(recent) == 1 {
			if recent[0].Trigger != "ambient" {
				t.Fatalf("archived trigger = %q", recent[0].Trigger)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("exchange never archived")
}

func TestNotificationsReachPrompt(t *testing.T) {
	model := agent.NewMockModel(agent.ModelResponse{
		Text: agent.FinalAnswerMarker + " Your ride is here.",
	})
	h := newConnHarness(t, model, session.Settings{})

	h.inbound <- protocol.PhoneNotification{
		Type:      protocol.TypePhoneNotification,
		SessionID: h.sess.ID,
		App:       "rideshare",
		Title:     "Driver arriving",
		Text:      "White sedan, 2 minutes away",
	}
	h.fragment("hey mira what was that notification", true)

	if _, ok := h.waitForDisplayText(t, 2*time.Second); !ok {
		t.Fatal("no display_text arrived")
	}

	msgs := model.LastMessages()
	if len(msgs) == 0 {
		t.Fatal("model saw no messages")
	}
	if msgs[0].Role != agent.RoleSystem || !strings.Contains(msgs[0].Content, "Driver arriving") {
		t.Fatalf("system prompt missing notification: %q", msgs[0].Content)
	}
}

func TestSettingsUpdateEnablesSpeech(t *testing.T) {
	model := agent.NewMockModel(agent.ModelResponse{
		Text: agent.FinalAnswerMarker + " Hello there.",
	})
	h := newConnHarness(t, model, session.Settings{})

	speak := true
	h.inbound <- protocol.SettingsUpdate{
		Type:           protocol.TypeSettingsUpdate,
		SessionID:      h.sess.ID,
		SpeakResponses: &speak,
	}
	h.fragment("hey mira say hello", true)

	if _, ok := h.waitForDisplayText(t, 2*time.Second); !ok {
		t.Fatal("no display_text arrived")
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		for _, msg := range h.sent() {
			if sp, ok := msg.(protocol.Speak); ok {
				if sp.Text != "Hello there." {
					t.Fatalf("spoken text = %q", sp.Text)
				}
				return
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("expected a speak message")
}

func TestModelErrorShowsErrorMessage(t *testing.T) {
	model := agent.NewMockModel()
	model.FailWith(fmt.Errorf("provider down"))
	h := newConnHarness(t, model, session.Settings{})

	h.fragment("hey mira what time is it", true)

	answer, ok := h.waitForDisplayText(t, 2*time.Second)
	if !ok {
		t.Fatal("no display_text arrived")
	}
	if !strings.Contains(answer.Text, "error") {
		t.Fatalf("answer = %q, want the error notice", answer.Text)
	}

	recent, _ := h.store.RecentExchanges(context.Background(), "user-1", 1)
	if len(recent) != 0 {
		t.Fatal("failed queries must not be archived")
	}
}

func TestPhotoAttachedToQuery(t *testing.T) {
	model := agent.NewMockModel(agent.ModelResponse{
		Text: agent.FinalAnswerMarker + " That's a maple tree.",
	})
	h := newConnHarness(t, model, session.Settings{})

	h.inbound <- protocol.PhotoResult{
		Type:        protocol.TypePhotoResult,
		SessionID:   h.sess.ID,
		ImageBase64: "aGVsbG8=",
	}
	h.fragment("hey mira what kind of tree is that", true)

	if _, ok := h.waitForDisplayText(t, 2*time.Second); !ok {
		t.Fatal("no display_text arrived")
	}

	var userMsg *agent.Message
	for _, m := range model.LastMessages() {
		if m.Role == agent.RoleUser {
			m := m
			userMsg = &m
		}
	}
	if userMsg == nil {
		t.Fatal("no user message sent to model")
	}
	if userMsg.ImageBase64 != "aGVsbG8=" {
		t.Fatalf("user message image = %q", userMsg.ImageBase64)
	}
}

func TestArchivedHistoryReachesPrompt(t *testing.T) {
	model := agent.NewMockModel(agent.ModelResponse{
		Text: agent.FinalAnswerMarker + " You asked about the weather.",
	})
	h := newConnHarness(t, model, session.Settings{})

	err := h.store.SaveExchange(context.Background(), archive.Exchange{
		UserID:    "user-1",
		SessionID: "earlier-session",
		Query:     "will it rain tomorrow",
		Answer:    "Light rain is expected after noon.",
		Trigger:   "wake",
	})
	if err != nil {
		t.Fatalf("seed exchange: %v", err)
	}

	h.fragment("hey mira what did I ask you before", true)

	if _, ok := h.waitForDisplayText(t, 2*time.Second); !ok {
		t.Fatal("no display_text arrived")
	}

	msgs := model.LastMessages()
	if len(msgs) == 0 {
		t.Fatal("model saw no messages")
	}
	if msgs[0].Role != agent.RoleSystem ||
		!strings.Contains(msgs[0].Content, "will it rain tomorrow") ||
		!strings.Contains(msgs[0].Content, "Light rain is expected after noon.") {
		t.Fatalf("system prompt missing archived exchange: %q", msgs[0].Content)
	}
}

func TestListenStartRefreshesLocation(t *testing.T) {
	var geocodeCalls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/geo") {
			geocodeCalls.Add(1)
		}
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.GeocodeAPIURL = srv.URL + "/geo"
	cfg.TimezoneAPIURL = srv.URL + "/tz"

	model := agent.NewMockModel(agent.ModelResponse{
		Text: agent.FinalAnswerMarker + " You are outside.",
	})
	h := newConnHarnessWith(t, model, session.Settings{}, cfg)

	h.inbound <- protocol.LocationUpdate{
		Type:      protocol.TypeLocationUpdate,
		SessionID: h.sess.ID,
		Lat:       48.8584,
		Lng:       2.2945,
	}
	waitForCalls(t, &geocodeCalls, 1, "location update never resolved")

	h.fragment("hey mira where am I", true)
	waitForCalls(t, &geocodeCalls, 2, "listen start did not refresh the location")
}

func waitForCalls(t *testing.T, n *atomic.Int64, want int64, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if n.Load() >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestConnectionClosesCleanly(t *testing.T) {
	model := agent.NewMockModel()
	h := newConnHarness(t, model, session.Settings{})

	close(h.inbound)
	select {
	case <-h.done:
	case <-time.After(time.Second):
		t.Fatal("RunConnection did not return after inbound closed")
	}
}
