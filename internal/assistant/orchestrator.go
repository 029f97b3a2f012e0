package assistant

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/drewomix/Oasis/internal/agent"
	"github.com/drewomix/Oasis/internal/archive"
	"github.com/drewomix/Oasis/internal/config"
	"github.com/drewomix/Oasis/internal/dispatch"
	"github.com/drewomix/Oasis/internal/gate"
	"github.com/drewomix/Oasis/internal/observability"
	"github.com/drewomix/Oasis/internal/policy"
	"github.com/drewomix/Oasis/internal/protocol"
	"github.com/drewomix/Oasis/internal/session"
	"github.com/drewomix/Oasis/internal/situation"
	"github.com/drewomix/Oasis/internal/tools"
	"github.com/drewomix/Oasis/internal/wake"
)

const (
	archiveSaveTimeout     = 2 * time.Second
	historyFetchTimeout    = 1 * time.Second
	historyLimit           = 5
	locationResolveTimeout = 10 * time.Second
	noQueryMessage         = "No query detected"
	noQueryDisplayMs       = 3000
)

// Orchestrator owns the per-session assistant pipeline: wake-window state,
// ambient gating, context assembly, the tool loop, and response dispatch.
type Orchestrator struct {
	cfg      config.Config
	sessions *session.Manager
	model    agent.Model
	store    archive.Store
	metrics  *observability.Metrics
	stages   *observability.StageWindow

	transcripts   *situation.TranscriptStore
	locations     *situation.LocationStore
	notifications *situation.NotificationBuffer
	photos        *situation.PhotoCache
	assembler     *situation.Assembler
	resolver      situation.Resolver
	catalog       *tools.Catalog
	gate          *gate.Gate

	coordsMu sync.Mutex
	coords   map[string]coordinate
}

// coordinate is the last raw fix received from the device, kept so the
// listen-start refresh can re-resolve without waiting for the next update.
type coordinate struct {
	Lat, Lng float64
}

func NewOrchestrator(
	cfg config.Config,
	sessions *session.Manager,
	model agent.Model,
	store archive.Store,
	metrics *observability.Metrics,
	stages *observability.StageWindow,
) *Orchestrator {
	transcripts := situation.NewTranscriptStore()
	locations := situation.NewLocationStore()
	notifications := situation.NewNotificationBuffer()
	photos := situation.NewPhotoCache(cfg.PhotoTTL)

	return &Orchestrator{
		cfg:           cfg,
		sessions:      sessions,
		model:         model,
		store:         store,
		metrics:       metrics,
		stages:        stages,
		transcripts:   transcripts,
		locations:     locations,
		notifications: notifications,
		photos:        photos,
		assembler:     situation.NewAssembler(locations, notifications, photos, cfg.NotificationLimit),
		resolver:      situation.NewHTTPResolver(cfg.GeocodeAPIURL, cfg.TimezoneAPIURL, cfg.ToolTimeout),
		catalog:       tools.NewCatalog(cfg.ToolCatalogURL, cfg.ToolTimeout),
		gate:          gate.New(model),
		coords:        make(map[string]coordinate),
	}
}

// Teardown drops all stored state for a session. Registered as the session
// manager's end hook so explicit ends and janitor expiry behave identically.
func (o *Orchestrator) Teardown(s *session.Session) {
	o.transcripts.Drop(s.ID)
	o.locations.Drop(s.ID)
	o.photos.Drop(s.ID)
	o.coordsMu.Lock()
	delete(o.coords, s.ID)
	o.coordsMu.Unlock()
	o.notifications.Clear(s.UserID)
	o.metrics.SessionEvents.WithLabelValues("session_ended").Inc()
}

// RunConnection drives one websocket connection for its session. It returns
// when the inbound channel closes or the context is canceled; per-connection
// state (wake controller, response timers) is torn down on the way out.
func (o *Orchestrator) RunConnection(ctx context.Context, s *session.Session, inbound <-chan any, outbound chan<- any) error {
	device := &wsDevice{orch: o, sessionID: s.ID, outbound: outbound}

	registry := agent.NewRegistry()
	registry.Register(tools.NewTimerTool())
	registry.Register(tools.NewAppStartTool(device))
	registry.Register(tools.NewAppStopTool(device))
	if o.cfg.SearchAPIKey != "" {
		registry.Register(tools.NewSearchTool(o.cfg.SearchAPIURL, o.cfg.SearchAPIKey, o.cfg.ToolTimeout))
	}
	o.catalog.LoadAsync(ctx, s.UserID, registry)

	speakPref := func() bool {
		sess, err := o.sessions.Get(s.ID)
		if err != nil {
			return false
		}
		return sess.Settings.SpeakResponses
	}
	dispatcher := dispatch.New(device, true, speakPref)
	defer dispatcher.Close()

	conv := agent.NewConversation()
	loop := agent.NewLoop(o.model, o.cfg.TurnBudget)
	loop.OnToolInvoked(func(tool string, status agent.ResultStatus) {
		o.metrics.ToolInvocations.WithLabelValues(tool, string(status)).Inc()
	})

	settingsFn := func() wake.SettingsSnapshot {
		sess, err := o.sessions.Get(s.ID)
		if err != nil {
			return wake.SettingsSnapshot{}
		}
		return wake.SettingsSnapshot{
			AlwaysListening: sess.Settings.AlwaysListening,
			HeadUpWake:      sess.Settings.HeadUpWake,
		}
	}

	runQuery := func(qctx context.Context, query string, wakeTriggered bool) {
		o.runQuery(qctx, s, conv, loop, registry, dispatcher, query, wakeTriggered)
	}

	hooks := wake.Hooks{
		OnListenStart: func(wakeTriggered bool) {
			o.send(outbound, protocol.PhotoRequest{
				Type:      protocol.TypePhotoRequest,
				SessionID: s.ID,
				RequestID: uuid.NewString(),
			})
			o.refreshLocation(ctx, s.ID)
			if wakeTriggered {
				o.metrics.SessionEvents.WithLabelValues("wake_word").Inc()
			}
		},
		OnListenEnd: func(listened time.Duration) {
			o.stages.Observe(observability.StageListen, listened)
		},
		OnTranscript: func(text string, isFinal bool) {
			o.send(outbound, protocol.DisplayTranscript{
				Type:      protocol.TypeDisplayTranscript,
				SessionID: s.ID,
				Text:      text,
				IsFinal:   isFinal,
			})
		},
		OnNoQuery: func() {
			o.send(outbound, protocol.DisplayText{
				Type:       protocol.TypeDisplayText,
				SessionID:  s.ID,
				Text:       noQueryMessage,
				DurationMs: noQueryDisplayMs,
			})
		},
		OnTransportError: func() {
			o.send(outbound, protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				SessionID: s.ID,
				Code:      "transcript_unavailable",
				Retryable: true,
				Detail:    "could not fetch the transcript window",
			})
		},
	}

	controller := wake.NewController(ctx, wake.Config{
		SessionID:            s.ID,
		WakeWords:            o.cfg.WakeWords,
		DebounceNonFinal:     o.cfg.DebounceNonFinal,
		DebounceFinal:        o.cfg.DebounceFinal,
		DebounceWakeWordOnly: o.cfg.DebounceWakeWordOnly,
		HardCutoff:           o.cfg.HardCutoff,
		ProcessingGrace:      o.cfg.ProcessingGrace,
		HeadUpWindow:         o.cfg.HeadUpWindow,
	}, o.transcripts, settingsFn, runQuery, hooks)
	defer controller.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-inbound:
			if !ok {
				return nil
			}
			if t, known := protocol.MessageTypeOf(msg); known {
				o.metrics.WSMessages.WithLabelValues("inbound", string(t)).Inc()
			}
			o.handleMessage(ctx, s, controller, outbound, msg)
		}
	}
}

func (o *Orchestrator) handleMessage(ctx context.Context, s *session.Session, controller *wake.Controller, outbound chan<- any, msg any) {
	if err := o.sessions.Touch(s.ID); err != nil {
		log.Printf("session %s touch: %v", s.ID, err)
	}

	switch m := msg.(type) {
	case protocol.TranscriptFragment:
		if m.IsFinal {
			o.transcripts.Append(s.ID, m.Text)
		}
		controller.HandleFragment(m.Text, m.IsFinal)
	case protocol.HeadPosition:
		controller.HandleHeadPosition(m.Position)
	case protocol.LocationUpdate:
		o.coordsMu.Lock()
		o.coords[s.ID] = coordinate{Lat: m.Lat, Lng: m.Lng}
		o.coordsMu.Unlock()
		go o.resolveLocation(ctx, s.ID, m.Lat, m.Lng)
	case protocol.PhoneNotification:
		o.notifications.Append(s.UserID, situation.Notification{
			App:     m.App,
			Title:   m.Title,
			Text:    m.Text,
			Summary: m.Summary,
		})
	case protocol.NotificationsClear:
		o.notifications.Clear(s.UserID)
	case protocol.SettingsUpdate:
		if _, err := o.sessions.UpdateSettings(s.ID, m.AlwaysListening, m.SpeakResponses, m.HeadUpWake); err != nil {
			o.send(outbound, protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				SessionID: s.ID,
				Code:      "settings_update_failed",
				Detail:    err.Error(),
			})
		}
	case protocol.PhotoResult:
		o.photos.Put(s.ID, situation.Photo{ImageBase64: m.ImageBase64})
	default:
		log.Printf("session %s: unhandled message %T", s.ID, msg)
	}
}

// runQuery is the finalize-to-response pipeline: ambient gate (for
// non-wake queries), context assembly, the tool loop, and dispatch.
func (o *Orchestrator) runQuery(
	ctx context.Context,
	s *session.Session,
	conv *agent.Conversation,
	loop *agent.Loop,
	registry *agent.Registry,
	dispatcher *dispatch.Dispatcher,
	query string,
	wakeTriggered bool,
) {
	started := time.Now()
	trigger := "wake"
	if !wakeTriggered {
		trigger = "ambient"
	}

	if !wakeTriggered {
		gateStart := time.Now()
		decision := o.gate.Evaluate(ctx, query, o.transcripts.RecentSegments(s.ID, o.cfg.GateContextLimit))
		o.stages.Observe(observability.StageGate, time.Since(gateStart))

		verdict := "suppress"
		if decision.ShouldRespond {
			verdict = "respond"
		}
		o.metrics.GateDecisions.WithLabelValues(string(decision.Trigger), verdict).Inc()
		if decision.Trigger == gate.TriggerFallback {
			o.stages.ObserveIndicator("gate_fail_open")
		}
		if !decision.ShouldRespond {
			o.metrics.Queries.WithLabelValues(trigger, "suppressed").Inc()
			return
		}
	}

	bundle := o.assembler.Assemble(s.ID, s.UserID)
	conv.SetSystem(agent.SystemMessage(buildSystemPrompt(registry, bundle, o.recentHistory(ctx, s.UserID))))
	if bundle.Photo != nil {
		conv.Append(agent.UserImageMessage(query, bundle.Photo.ImageBase64))
	} else {
		conv.Append(agent.UserMessage(query))
	}

	loopStart := time.Now()
	outcome, err := loop.Run(ctx, conv, registry)
	o.stages.Observe(observability.StageLoop, time.Since(loopStart))
	if err != nil {
		log.Printf("session %s query failed: %v", s.ID, err)
		o.metrics.ModelErrors.Inc()
		o.metrics.Queries.WithLabelValues(trigger, "error").Inc()
		dispatcher.DispatchError()
		return
	}

	dispatchStart := time.Now()
	dispatcher.Dispatch(outcome)
	o.stages.Observe(observability.StageDispatch, time.Since(dispatchStart))
	o.stages.Observe(observability.StageTotal, time.Since(started))
	o.metrics.ObserveQueryLatency(time.Since(started))
	o.metrics.Queries.WithLabelValues(trigger, outcomeLabel(outcome)).Inc()

	o.saveExchangeBestEffort(s, query, outcome, trigger)
}

func outcomeLabel(out agent.Outcome) string {
	switch out.Kind {
	case agent.OutcomeAnswer:
		return "answer"
	case agent.OutcomeHandoff:
		return "handoff"
	default:
		return "no_answer"
	}
}

// recentHistory fetches the user's latest archived exchanges for the
// system prompt. Best-effort: a slow or failing store yields no history,
// never a failed query.
func (o *Orchestrator) recentHistory(ctx context.Context, userID string) []archive.Exchange {
	if o.store == nil {
		return nil
	}
	hctx, cancel := context.WithTimeout(ctx, historyFetchTimeout)
	defer cancel()
	history, err := o.store.RecentExchanges(hctx, userID, historyLimit)
	if err != nil {
		log.Printf("recent exchanges for user %s: %v", userID, err)
		return nil
	}
	return history
}

// saveExchangeBestEffort archives a finished query/answer pair with PII
// redaction. Failures are logged, never surfaced to the user.
func (o *Orchestrator) saveExchangeBestEffort(s *session.Session, query string, out agent.Outcome, trigger string) {
	if o.store == nil || out.Kind != agent.OutcomeAnswer {
		return
	}
	redactedQuery, changedQ := policy.RedactPII(query)
	redactedAnswer, changedA := policy.RedactPII(out.Text)

	go func() {
		saveCtx, cancel := context.WithTimeout(context.Background(), archiveSaveTimeout)
		defer cancel()
		err := o.store.SaveExchange(saveCtx, archive.Exchange{
			UserID:    s.UserID,
			SessionID: s.ID,
			Query:     redactedQuery,
			Answer:    redactedAnswer,
			Trigger:   trigger,
			Redacted:  changedQ || changedA,
		})
		if err != nil {
			log.Printf("archive save for session %s: %v", s.ID, err)
			o.metrics.SessionEvents.WithLabelValues("archive_save_failed").Inc()
		}
	}()
}

// refreshLocation re-resolves the session's last known coordinates so a
// query assembled moments later does not see a stale fix. Best-effort: no
// coordinates yet means no refresh.
func (o *Orchestrator) refreshLocation(ctx context.Context, sessionID string) {
	o.coordsMu.Lock()
	c, ok := o.coords[sessionID]
	o.coordsMu.Unlock()
	if !ok {
		return
	}
	go o.resolveLocation(ctx, sessionID, c.Lat, c.Lng)
}

// resolveLocation reverse-geocodes and timezone-resolves a coordinate
// update. The two lookups fail independently; whatever resolved is merged
// into the session's last known good location.
func (o *Orchestrator) resolveLocation(ctx context.Context, sessionID string, lat, lng float64) {
	rctx, cancel := context.WithTimeout(ctx, locationResolveTimeout)
	defer cancel()

	update := situation.NewLocation()
	if loc, err := o.resolver.ReverseGeocode(rctx, lat, lng); err != nil {
		log.Printf("session %s reverse geocode: %v", sessionID, err)
	} else {
		update = loc
	}
	if tz, err := o.resolver.ResolveTimezone(rctx, lat, lng); err != nil {
		log.Printf("session %s timezone resolve: %v", sessionID, err)
	} else {
		update.Timezone = tz
	}
	o.locations.Apply(sessionID, update)
}

// send is non-blocking: a slow or stalled device drops messages rather
// than stalling the pipeline.
func (o *Orchestrator) send(outbound chan<- any, msg any) {
	msgType, _ := protocol.MessageTypeOf(msg)
	select {
	case outbound <- msg:
		o.metrics.WSMessages.WithLabelValues("outbound", string(msgType)).Inc()
	default:
		o.metrics.SessionEvents.WithLabelValues("outbound_drop").Inc()
	}
}
