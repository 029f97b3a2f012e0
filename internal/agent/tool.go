package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Result is what a tool invocation produces. Handoff means control of the
// session's output no longer belongs to this assistant (e.g. another app
// took over the display) and the loop must stop rendering.
type Result struct {
	Content string
	Handoff bool
}

// Tool is the uniform calling contract for every capability, built-in or
// fetched from a remote catalog.
type Tool interface {
	Name() string
	Description() string
	ParameterSchema() string
	Invoke(ctx context.Context, args map[string]any) (Result, error)
}

// Schema is the tool description handed to the model provider.
type Schema struct {
	Name            string
	Description     string
	ParameterSchema string
}

// ValidateArgs checks args against the tool's JSON parameter schema. Tools
// with an empty schema accept anything.
func ValidateArgs(t Tool, args map[string]any) error {
	schema := strings.TrimSpace(t.ParameterSchema())
	if schema == "" {
		return nil
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewGoLoader(args),
	)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("invalid arguments for %s: %s", t.Name(), strings.Join(msgs, "; "))
	}
	return nil
}

// Registry is a name-keyed tool store. Built-ins are registered at session
// setup; remote catalog tools are appended asynchronously afterwards.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Schemas returns tool descriptions sorted by name for stable prompts.
func (r *Registry) Schemas() []Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Schema, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, Schema{
			Name:            t.Name(),
			Description:     t.Description(),
			ParameterSchema: t.ParameterSchema(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// FuncTool adapts a plain function into a Tool.
type FuncTool struct {
	ToolName        string
	ToolDescription string
	SchemaJSON      string
	Fn              func(ctx context.Context, args map[string]any) (Result, error)
}

func (t *FuncTool) Name() string            { return t.ToolName }
func (t *FuncTool) Description() string     { return t.ToolDescription }
func (t *FuncTool) ParameterSchema() string { return t.SchemaJSON }

func (t *FuncTool) Invoke(ctx context.Context, args map[string]any) (Result, error) {
	return t.Fn(ctx, args)
}
