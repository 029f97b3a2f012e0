package wake

import (
	"context"
	"log"
	"sync"
	"time"
)

// TranscriptSource serves the accumulated speech for a trailing window.
type TranscriptSource interface {
	Window(ctx context.Context, sessionID string, d time.Duration) (string, error)
}

// SettingsSnapshot is read per fragment so preference changes apply live.
type SettingsSnapshot struct {
	AlwaysListening bool
	HeadUpWake      bool
}

// QueryFunc runs the downstream pipeline for one completed query. It blocks
// until the response has been dispatched (success or failure).
type QueryFunc func(ctx context.Context, query string, wakeTriggered bool)

// Hooks are the controller's outbound side effects. All are optional.
type Hooks struct {
	// OnListenStart fires on Idle -> Listening: cue playback plus
	// best-effort location/photo prefetch.
	OnListenStart func(wakeTriggered bool)
	// OnTranscript updates the live "what the user is saying" display.
	OnTranscript func(text string, isFinal bool)
	// OnListenEnd reports how long the listening window stayed open once
	// it closes at finalize, whatever the outcome.
	OnListenEnd func(listened time.Duration)
	// OnNoQuery shows the empty-query notice (wake-word mode only).
	OnNoQuery func()
	// OnTransportError shows a generic retry notice.
	OnTransportError func()
}

// Config fixes the controller's timing and trigger parameters.
type Config struct {
	SessionID            string
	WakeWords            []string
	DebounceNonFinal     time.Duration
	DebounceFinal        time.Duration
	DebounceWakeWordOnly time.Duration
	HardCutoff           time.Duration
	ProcessingGrace      time.Duration
	HeadUpWindow         time.Duration
}

// Controller is the per-session listening-window state machine. It decides
// when a stream of transcript fragments constitutes a complete query.
type Controller struct {
	cfg         Config
	transcripts TranscriptSource
	settings    func() SettingsSnapshot
	run         QueryFunc
	hooks       Hooks
	baseCtx     context.Context

	mu            sync.Mutex
	closed        bool
	isListening   bool
	isProcessing  bool
	wakeTriggered bool
	listenStart   time.Time
	debounce      *time.Timer
	hardCutoff    *time.Timer
	graceTimer    *time.Timer

	lastHeadPos  string
	lastHeadUpAt time.Time

	nowFunc func() time.Time
}

func NewController(ctx context.Context, cfg Config, transcripts TranscriptSource, settings func() SettingsSnapshot, run QueryFunc, hooks Hooks) *Controller {
	if settings == nil {
		settings = func() SettingsSnapshot { return SettingsSnapshot{} }
	}
	return &Controller{
		cfg:         cfg,
		transcripts: transcripts,
		settings:    settings,
		run:         run,
		hooks:       hooks,
		baseCtx:     ctx,
		nowFunc:     time.Now,
	}
}

// HandleFragment feeds one transcript chunk through the state machine.
// Fragments arriving while a query is in flight are dropped unconditionally.
func (c *Controller) HandleFragment(text string, isFinal bool) {
	cleaned := CleanText(text)
	snap := c.settings()

	c.mu.Lock()
	if c.closed || c.isProcessing {
		c.mu.Unlock()
		return
	}

	started := false
	if !c.isListening {
		switch {
		case snap.AlwaysListening && cleaned != "":
			c.startListeningLocked(false)
			started = true
		case !snap.AlwaysListening && ContainsWakeWord(cleaned, c.cfg.WakeWords) && c.headUpOKLocked(snap):
			c.startListeningLocked(true)
			started = true
		default:
			c.mu.Unlock()
			return
		}
	}

	wakeMode := c.wakeTriggered
	c.resetDebounceLocked(debounceFor(c.cfg, cleaned, isFinal, wakeMode))
	c.mu.Unlock()

	if started && c.hooks.OnListenStart != nil {
		c.hooks.OnListenStart(wakeMode)
	}
	if c.hooks.OnTranscript != nil {
		c.hooks.OnTranscript(text, isFinal)
	}
}

// HandleHeadPosition records head orientation transitions for head-up
// gating. It runs independently of the listening state machine.
func (c *Controller) HandleHeadPosition(position string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastHeadPos == "down" && position == "up" {
		c.lastHeadUpAt = c.nowFunc()
	}
	c.lastHeadPos = position
}

// Snapshot reports the listening flags for introspection and tests.
func (c *Controller) Snapshot() (isListening, isProcessing bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isListening, c.isProcessing
}

// Close cancels every outstanding timer. Safe to call more than once.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.stopTimersLocked()
	if c.graceTimer != nil {
		c.graceTimer.Stop()
		c.graceTimer = nil
	}
}

func (c *Controller) startListeningLocked(wakeTriggered bool) {
	c.isListening = true
	c.wakeTriggered = wakeTriggered
	c.listenStart = c.nowFunc()
	if c.hardCutoff != nil {
		c.hardCutoff.Stop()
	}
	c.hardCutoff = time.AfterFunc(c.cfg.HardCutoff, c.finalize)
}

func (c *Controller) resetDebounceLocked(d time.Duration) {
	if c.debounce != nil {
		c.debounce.Stop()
	}
	c.debounce = time.AfterFunc(d, c.finalize)
}

func (c *Controller) stopTimersLocked() {
	if c.debounce != nil {
		c.debounce.Stop()
		c.debounce = nil
	}
	if c.hardCutoff != nil {
		c.hardCutoff.Stop()
		c.hardCutoff = nil
	}
}

func (c *Controller) headUpOKLocked(snap SettingsSnapshot) bool {
	if !snap.HeadUpWake {
		return true
	}
	if c.lastHeadUpAt.IsZero() {
		return false
	}
	return c.nowFunc().Sub(c.lastHeadUpAt) <= c.cfg.HeadUpWindow
}

// finalize transitions Listening -> Processing; it fires on debounce expiry
// or hard cutoff, whichever comes first.
func (c *Controller) finalize() {
	c.mu.Lock()
	if c.closed || !c.isListening || c.isProcessing {
		c.mu.Unlock()
		return
	}
	c.isListening = false
	c.isProcessing = true
	c.stopTimersLocked()
	window := c.nowFunc().Sub(c.listenStart)
	wakeMode := c.wakeTriggered
	c.mu.Unlock()

	if c.hooks.OnListenEnd != nil {
		c.hooks.OnListenEnd(window)
	}

	raw, err := c.transcripts.Window(c.baseCtx, c.cfg.SessionID, window)
	if err != nil {
		log.Printf("session %s: transcript window fetch failed: %v", c.cfg.SessionID, err)
		if c.hooks.OnTransportError != nil {
			c.hooks.OnTransportError()
		}
		c.clearProcessing(false)
		return
	}

	query := CleanText(raw)
	if wakeMode {
		query = StripWakeWord(raw, c.cfg.WakeWords)
	}
	if query == "" {
		// Empty query skips the pipeline. The notice only shows in
		// wake-word mode; ambient silence stays silent.
		if wakeMode && c.hooks.OnNoQuery != nil {
			c.hooks.OnNoQuery()
		}
		c.clearProcessing(false)
		return
	}

	c.run(c.baseCtx, query, wakeMode)
	c.clearProcessing(true)
}

// clearProcessing returns the session to Idle. The grace delay avoids
// re-triggering on trailing audio of the same utterance.
func (c *Controller) clearProcessing(withGrace bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		c.isProcessing = false
		return
	}
	if !withGrace || c.cfg.ProcessingGrace <= 0 {
		c.isProcessing = false
		return
	}
	if c.graceTimer != nil {
		c.graceTimer.Stop()
	}
	c.graceTimer = time.AfterFunc(c.cfg.ProcessingGrace, func() {
		c.mu.Lock()
		c.isProcessing = false
		c.mu.Unlock()
	})
}

// debounceFor picks the debounce duration for a fragment: more speech may
// follow a non-final fragment; a bare wake word earns the longest wait; a
// final fragment with content is likely query-complete.
func debounceFor(cfg Config, cleaned string, isFinal, wakeMode bool) time.Duration {
	if !isFinal {
		return cfg.DebounceNonFinal
	}
	if wakeMode && EndsWithWakeWord(cleaned, cfg.WakeWords) {
		return cfg.DebounceWakeWordOnly
	}
	return cfg.DebounceFinal
}
