package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/drewomix/Oasis/internal/agent"
)

const appSchema = `{
  "type": "object",
  "properties": {
    "app_name": {
      "type": "string",
      "minLength": 1,
      "description": "Name of the app to control"
    }
  },
  "required": ["app_name"]
}`

// Launcher controls companion apps on the connected device.
type Launcher interface {
	StartApp(ctx context.Context, name string) error
	StopApp(ctx context.Context, name string) error
}

// AppStartTool launches an app on the device. A successful start hands
// display control over to the app, so the result carries the handoff flag
// and the pipeline renders nothing afterwards.
type AppStartTool struct {
	launcher Launcher
}

func NewAppStartTool(launcher Launcher) *AppStartTool {
	return &AppStartTool{launcher: launcher}
}

func (t *AppStartTool) Name() string { return "start_app" }

func (t *AppStartTool) Description() string {
	return "Start an app on the user's device. The app takes over the display."
}

func (t *AppStartTool) ParameterSchema() string { return appSchema }

func (t *AppStartTool) Invoke(ctx context.Context, args map[string]any) (agent.Result, error) {
	name, err := appNameArg(args)
	if err != nil {
		return agent.Result{}, err
	}
	if err := t.launcher.StartApp(ctx, name); err != nil {
		return agent.Result{}, fmt.Errorf("start app %s: %w", name, err)
	}
	return agent.Result{Content: "Started " + name, Handoff: true}, nil
}

// AppStopTool stops a running app and returns control to the assistant.
type AppStopTool struct {
	launcher Launcher
}

func NewAppStopTool(launcher Launcher) *AppStopTool {
	return &AppStopTool{launcher: launcher}
}

func (t *AppStopTool) Name() string { return "stop_app" }

func (t *AppStopTool) Description() string {
	return "Stop a running app on the user's device."
}

func (t *AppStopTool) ParameterSchema() string { return appSchema }

func (t *AppStopTool) Invoke(ctx context.Context, args map[string]any) (agent.Result, error) {
	name, err := appNameArg(args)
	if err != nil {
		return agent.Result{}, err
	}
	if err := t.launcher.StopApp(ctx, name); err != nil {
		return agent.Result{}, fmt.Errorf("stop app %s: %w", name, err)
	}
	return agent.Result{Content: "Stopped " + name}, nil
}

func appNameArg(args map[string]any) (string, error) {
	name, _ := args["app_name"].(string)
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("app_name must be a non-empty string")
	}
	return name, nil
}
