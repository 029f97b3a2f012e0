// Package dispatch renders tool-loop outcomes back to the device.
package dispatch

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/drewomix/Oasis/internal/agent"
)

const (
	noAnswerMessage = "Sorry, I couldn't find an answer to that."
	errorMessage    = "Sorry, there was an error processing your request."

	defaultDisplayMs = 8000
)

// Device is the render surface: fire-and-forget side effects toward the
// wearable. Speak may fail; failures are logged, never propagated.
type Device interface {
	ShowText(text string, durationMs int)
	Speak(text string) error
	PlayAudio(url string)
}

// Dispatcher renders one final response per query and owns the delayed
// timer-elapsed notifications.
type Dispatcher struct {
	device     Device
	hasDisplay bool
	speakPref  func() bool

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
}

func New(device Device, hasDisplay bool, speakPref func() bool) *Dispatcher {
	if speakPref == nil {
		speakPref = func() bool { return false }
	}
	return &Dispatcher{
		device:     device,
		hasDisplay: hasDisplay,
		speakPref:  speakPref,
		timers:     make(map[string]*time.Timer),
	}
}

// Dispatch renders a loop outcome. Handoffs render nothing: another
// component owns the session's display now.
func (d *Dispatcher) Dispatch(out agent.Outcome) {
	switch out.Kind {
	case agent.OutcomeHandoff:
		return
	case agent.OutcomeNone:
		d.render(noAnswerMessage)
		return
	}

	if ev, ok := ParseToolEvent(out.Text); ok {
		d.renderEvent(ev)
		return
	}
	d.render(out.Text)
}

// DispatchError surfaces a fatal query failure as a generic notice.
func (d *Dispatcher) DispatchError() {
	d.render(errorMessage)
}

func (d *Dispatcher) renderEvent(ev ToolEvent) {
	switch e := ev.(type) {
	case TimerSetEvent:
		d.render(fmt.Sprintf("Timer set for %d seconds", int(e.DurationSecs)))
		d.scheduleTimerElapsed(e)
	}
}

func (d *Dispatcher) scheduleTimerElapsed(e TimerSetEvent) {
	id := e.TimerID
	if id == "" {
		id = uuid.NewString()
	}
	dur := time.Duration(e.DurationSecs * float64(time.Second))

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if prev, ok := d.timers[id]; ok {
		prev.Stop()
	}
	d.timers[id] = time.AfterFunc(dur, func() {
		d.mu.Lock()
		delete(d.timers, id)
		closed := d.closed
		d.mu.Unlock()
		if closed {
			return
		}
		d.render(fmt.Sprintf("Timer finished (%d seconds)", int(e.DurationSecs)))
	})
}

func (d *Dispatcher) render(text string) {
	if text == "" {
		return
	}
	d.device.ShowText(text, defaultDisplayMs)
	if d.speakPref() || !d.hasDisplay {
		if err := d.device.Speak(text); err != nil {
			log.Printf("speech synthesis failed: %v", err)
		}
	}
}

// PendingTimers reports scheduled elapsed notifications.
func (d *Dispatcher) PendingTimers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.timers)
}

// Close cancels every scheduled timer notification; callbacks must never
// fire against a dead session.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	for id, t := range d.timers {
		t.Stop()
		delete(d.timers, id)
	}
}
