package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
)

// FinalAnswerMarker is the literal terminal marker the model emits when it
// has a user-facing answer. Everything after the marker is the answer.
const FinalAnswerMarker = "Final Answer:"

// emptyToolResult replaces blank tool output so the model never reasons
// over an empty result.
const emptyToolResult = "Tool executed successfully but returned no information."

// TimerToolName is the designated timer-creation tool whose JSON result is
// itself the complete user-facing answer.
const TimerToolName = "set_timer"

// OutcomeKind classifies how the loop terminated.
type OutcomeKind int

const (
	// OutcomeNone means the turn budget ran out with no terminal answer.
	OutcomeNone OutcomeKind = iota
	// OutcomeAnswer carries final text, possibly tagged tool-event JSON.
	OutcomeAnswer
	// OutcomeHandoff means another component now owns the session output.
	OutcomeHandoff
)

// Outcome is the loop's terminal state.
type Outcome struct {
	Kind OutcomeKind
	Text string
}

// Loop drives the model across bounded turns, resolving tool calls between
// invocations.
type Loop struct {
	model      Model
	turnBudget int
	onTool     func(tool string, status ResultStatus)
}

func NewLoop(model Model, turnBudget int) *Loop {
	if turnBudget <= 0 {
		turnBudget = 5
	}
	return &Loop{model: model, turnBudget: turnBudget}
}

// OnToolInvoked registers an observer called once per resolved tool call.
func (l *Loop) OnToolInvoked(fn func(tool string, status ResultStatus)) {
	l.onTool = fn
}

func (l *Loop) observeTool(tool string, status ResultStatus) {
	if l.onTool != nil {
		l.onTool(tool, status)
	}
}

// Run executes up to the turn budget. Individual tool failures are absorbed
// as error tool results; only a failed model invocation returns an error.
func (l *Loop) Run(ctx context.Context, conv *Conversation, reg *Registry) (Outcome, error) {
	for turn := 0; turn < l.turnBudget; turn++ {
		resp, err := l.model.Invoke(ctx, conv.Messages(), reg.Schemas())
		if err != nil {
			return Outcome{}, fmt.Errorf("model invocation failed on turn %d: %w", turn+1, err)
		}
		conv.Append(AssistantMessage(resp.Text, resp.ToolCalls))

		if len(resp.ToolCalls) > 0 {
			outcome, terminal := l.resolveToolCalls(ctx, conv, reg, resp.ToolCalls)
			if terminal {
				return outcome, nil
			}
		}

		if idx := strings.Index(resp.Text, FinalAnswerMarker); idx >= 0 {
			answer := strings.TrimSpace(resp.Text[idx+len(FinalAnswerMarker):])
			return Outcome{Kind: OutcomeAnswer, Text: answer}, nil
		}
	}
	return Outcome{Kind: OutcomeNone}, nil
}

// resolveToolCalls produces exactly one tool result per call, in emission
// order. It reports a terminal outcome for handoffs and direct timer
// confirmations.
func (l *Loop) resolveToolCalls(ctx context.Context, conv *Conversation, reg *Registry, calls []ToolCall) (Outcome, bool) {
	for _, call := range calls {
		tool, ok := reg.Lookup(call.Name)
		if !ok {
			conv.Append(ToolResultMessage(call.ID, call.Name,
				fmt.Sprintf("Tool %q is not available.", call.Name), StatusError))
			l.observeTool(call.Name, StatusError)
			continue
		}

		if err := ValidateArgs(tool, call.Args); err != nil {
			conv.Append(ToolResultMessage(call.ID, call.Name, err.Error(), StatusError))
			l.observeTool(call.Name, StatusError)
			continue
		}

		res, err := invokeTool(ctx, tool, call.Args)
		if err != nil {
			conv.Append(ToolResultMessage(call.ID, call.Name,
				fmt.Sprintf("Tool %s failed: %v", call.Name, err), StatusError))
			l.observeTool(call.Name, StatusError)
			continue
		}
		l.observeTool(call.Name, StatusOK)

		if res.Handoff {
			conv.Append(ToolResultMessage(call.ID, call.Name, "Execution handed off.", StatusOK))
			return Outcome{Kind: OutcomeHandoff}, true
		}

		content := strings.TrimSpace(res.Content)
		if content == "" {
			content = emptyToolResult
		}
		conv.Append(ToolResultMessage(call.ID, call.Name, content, StatusOK))

		// Timer confirmations are themselves the complete user-facing
		// answer; no Final Answer marker is required.
		if call.Name == TimerToolName && isTimerSetEvent(content) {
			return Outcome{Kind: OutcomeAnswer, Text: content}, true
		}
	}
	return Outcome{}, false
}

// invokeTool shields the loop from panicking tools.
func invokeTool(ctx context.Context, tool Tool, args map[string]any) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("tool %s panicked: %v", tool.Name(), r)
			res = Result{}
			err = fmt.Errorf("tool panicked: %v", r)
		}
	}()
	return tool.Invoke(ctx, args)
}

func isTimerSetEvent(content string) bool {
	var payload struct {
		Event    string  `json:"event"`
		Duration float64 `json:"duration"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return false
	}
	return payload.Event == "timer_set" && payload.Duration > 0
}
