package dispatch

import (
	"encoding/json"
	"strings"
)

// ToolEvent is the closed union of structured events a tool can embed in
// its string output. Anything unrecognized falls through to plain text.
type ToolEvent interface {
	toolEvent()
}

// TimerSetEvent confirms a created timer.
type TimerSetEvent struct {
	DurationSecs float64
	TimerID      string
}

func (TimerSetEvent) toolEvent() {}

// ParseToolEvent attempts to decode a recognized event from raw tool
// output. ok is false for non-JSON, untagged, or unknown-tag content.
func ParseToolEvent(raw string) (ToolEvent, bool) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "{") {
		return nil, false
	}
	var probe struct {
		Event    string  `json:"event"`
		Duration float64 `json:"duration"`
		TimerID  string  `json:"timerId"`
	}
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return nil, false
	}
	switch probe.Event {
	case "timer_set":
		if probe.Duration <= 0 {
			return nil, false
		}
		return TimerSetEvent{DurationSecs: probe.Duration, TimerID: probe.TimerID}, true
	default:
		return nil, false
	}
}
