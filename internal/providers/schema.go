package providers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/drewomix/Oasis/internal/agent"
)

// toolParameters decodes a tool's parameter schema for a provider request.
// An empty schema means the tool takes no arguments; both APIs reject tool
// definitions without an input schema, so it becomes a bare object schema.
func toolParameters(schema agent.Schema) (map[string]any, error) {
	if strings.TrimSpace(schema.ParameterSchema) == "" {
		return map[string]any{"type": "object"}, nil
	}
	var params map[string]any
	if err := json.Unmarshal([]byte(schema.ParameterSchema), &params); err != nil {
		return nil, fmt.Errorf("invalid parameter schema for %s: %w", schema.Name, err)
	}
	return params, nil
}
