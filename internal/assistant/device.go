package assistant

import (
	"context"
	"fmt"

	"github.com/drewomix/Oasis/internal/protocol"
)

// wsDevice adapts the outbound websocket channel to the render surface the
// dispatcher and the app tools expect. Sends never block: display and
// audio cues are droppable, speech and app control report failure.
type wsDevice struct {
	orch      *Orchestrator
	sessionID string
	outbound  chan<- any
}

func (d *wsDevice) ShowText(text string, durationMs int) {
	d.orch.send(d.outbound, protocol.DisplayText{
		Type:       protocol.TypeDisplayText,
		SessionID:  d.sessionID,
		Text:       text,
		DurationMs: durationMs,
	})
}

func (d *wsDevice) Speak(text string) error {
	return d.sendOrFail(protocol.Speak{
		Type:      protocol.TypeSpeak,
		SessionID: d.sessionID,
		Text:      text,
	})
}

func (d *wsDevice) PlayAudio(url string) {
	d.orch.send(d.outbound, protocol.PlayAudio{
		Type:      protocol.TypePlayAudio,
		SessionID: d.sessionID,
		URL:       url,
	})
}

func (d *wsDevice) StartApp(_ context.Context, name string) error {
	return d.sendOrFail(protocol.AppControl{
		Type:      protocol.TypeAppStart,
		SessionID: d.sessionID,
		AppName:   name,
	})
}

func (d *wsDevice) StopApp(_ context.Context, name string) error {
	return d.sendOrFail(protocol.AppControl{
		Type:      protocol.TypeAppStop,
		SessionID: d.sessionID,
		AppName:   name,
	})
}

func (d *wsDevice) sendOrFail(msg any) error {
	msgType, _ := protocol.MessageTypeOf(msg)
	select {
	case d.outbound <- msg:
		d.orch.metrics.WSMessages.WithLabelValues("outbound", string(msgType)).Inc()
		return nil
	default:
		d.orch.metrics.SessionEvents.WithLabelValues("outbound_drop").Inc()
		return fmt.Errorf("outbound channel full, %s dropped", msgType)
	}
}
