package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/drewomix/Oasis/internal/agent"
)

const timerSchema = `{
  "type": "object",
  "properties": {
    "duration": {
      "type": "integer",
      "minimum": 1,
      "description": "Timer duration in seconds"
    }
  },
  "required": ["duration"]
}`

// TimerTool creates a countdown timer. Its output is the structured
// timer_set event that the dispatcher renders and schedules.
type TimerTool struct{}

func NewTimerTool() *TimerTool { return &TimerTool{} }

func (t *TimerTool) Name() string { return agent.TimerToolName }

func (t *TimerTool) Description() string {
	return "Set a countdown timer. Use when the user asks for a timer, alarm, or reminder after a duration."
}

func (t *TimerTool) ParameterSchema() string { return timerSchema }

func (t *TimerTool) Invoke(ctx context.Context, args map[string]any) (agent.Result, error) {
	duration, ok := numberArg(args, "duration")
	if !ok || duration <= 0 {
		return agent.Result{}, fmt.Errorf("duration must be a positive number of seconds")
	}
	payload, err := json.Marshal(map[string]any{
		"event":    "timer_set",
		"duration": duration,
		"timerId":  uuid.NewString(),
	})
	if err != nil {
		return agent.Result{}, fmt.Errorf("encode timer event: %w", err)
	}
	return agent.Result{Content: string(payload)}, nil
}

// numberArg reads a numeric argument, tolerating the int/float ambiguity
// of decoded JSON.
func numberArg(args map[string]any, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
