// Package gate decides whether an always-listening assistant should respond
// to unprompted speech. It fails open: a gate that cannot decide must never
// silently drop a genuine request.
package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/drewomix/Oasis/internal/agent"
)

// Trigger categorizes why the gate decided to respond.
type Trigger string

const (
	TriggerDirectRequest  Trigger = "direct_request"
	TriggerFactCheck      Trigger = "fact_check"
	TriggerHelpfulContext Trigger = "helpful_context"
	TriggerSafety         Trigger = "safety"
	TriggerNotification   Trigger = "notification"
	TriggerFallback       Trigger = "fallback"
)

// Decision is the gate's structured verdict.
type Decision struct {
	ShouldRespond bool    `json:"shouldRespond"`
	Trigger       Trigger `json:"trigger"`
	Confidence    float64 `json:"confidence"`
	Reason        string  `json:"reason"`
}

// failOpen is returned whenever the classifier cannot produce a usable
// decision.
func failOpen() Decision {
	return Decision{ShouldRespond: true, Trigger: TriggerFallback, Confidence: 0}
}

const systemPrompt = `You are a relevance filter for an always-on wearable assistant.
Given ambient speech, decide whether the assistant should respond.
Ordinary background conversation should NOT get a response.
Respond with only a JSON object:
{"shouldRespond": bool, "trigger": "direct_request|fact_check|helpful_context|safety|notification|fallback", "confidence": 0.0-1.0, "reason": "short explanation"}`

// Gate asks a classifier model whether responding adds value.
type Gate struct {
	model agent.Model
}

func New(model agent.Model) *Gate {
	return &Gate{model: model}
}

// Evaluate classifies the latest utterance against its recent context.
// recentSegments is a bounded trailing window, oldest first.
func (g *Gate) Evaluate(ctx context.Context, utterance string, recentSegments []string) Decision {
	var sb strings.Builder
	if len(recentSegments) > 0 {
		sb.WriteString("Recent speech context:\n")
		for _, seg := range recentSegments {
			sb.WriteString("- ")
			sb.WriteString(seg)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "Latest utterance: %q\n\nShould the assistant respond?", utterance)

	msgs := []agent.Message{
		agent.SystemMessage(systemPrompt),
		agent.UserMessage(sb.String()),
	}
	resp, err := g.model.Invoke(ctx, msgs, nil)
	if err != nil {
		log.Printf("gate classifier error, failing open: %v", err)
		return failOpen()
	}

	decision, err := parseDecision(resp.Text)
	if err != nil {
		log.Printf("gate decision parse error, failing open: %v", err)
		return failOpen()
	}
	return decision
}

func parseDecision(raw string) (Decision, error) {
	raw = strings.TrimSpace(raw)
	// Models often wrap JSON in code fences or prose; extract the object.
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return Decision{}, fmt.Errorf("no JSON object in %q", raw)
	}

	var d Decision
	if err := json.Unmarshal([]byte(raw[start:end+1]), &d); err != nil {
		return Decision{}, fmt.Errorf("decode decision: %w", err)
	}
	switch d.Trigger {
	case TriggerDirectRequest, TriggerFactCheck, TriggerHelpfulContext, TriggerSafety, TriggerNotification, TriggerFallback:
	case "":
		d.Trigger = TriggerFallback
	default:
		d.Trigger = TriggerFallback
	}
	if d.Confidence < 0 {
		d.Confidence = 0
	}
	if d.Confidence > 1 {
		d.Confidence = 1
	}
	return d, nil
}
