package providers

import (
	"context"
	"encoding/json"
	"fmt"

	anthropic "github.com/liushuangls/go-anthropic/v2"

	"github.com/drewomix/Oasis/internal/agent"
)

const anthropicMaxTokens = 2048

// AnthropicModel implements agent.Model against the Anthropic Messages API.
type AnthropicModel struct {
	client *anthropic.Client
	model  string
}

func NewAnthropicModel(apiKey, model string) *AnthropicModel {
	return &AnthropicModel{
		client: anthropic.NewClient(apiKey),
		model:  model,
	}
}

func (m *AnthropicModel) Invoke(ctx context.Context, messages []agent.Message, tools []agent.Schema) (agent.ModelResponse, error) {
	var system []anthropic.MessageSystemPart
	var msgs []anthropic.Message

	for _, msg := range messages {
		switch msg.Role {
		case agent.RoleSystem:
			system = append(system, anthropic.MessageSystemPart{
				Type: "text",
				Text: msg.Content,
			})
		case agent.RoleUser:
			content := []anthropic.MessageContent{anthropic.NewTextMessageContent(msg.Content)}
			if msg.ImageBase64 != "" {
				content = append(content, anthropic.NewImageMessageContent(
					anthropic.NewMessageContentSource(
						anthropic.MessagesContentSourceTypeBase64,
						"image/jpeg",
						msg.ImageBase64,
					),
				))
			}
			msgs = append(msgs, anthropic.Message{
				Role:    anthropic.RoleUser,
				Content: content,
			})
		case agent.RoleAssistant:
			var content []anthropic.MessageContent
			if msg.Content != "" {
				content = append(content, anthropic.NewTextMessageContent(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				argsJSON, _ := json.Marshal(tc.Args)
				content = append(content, anthropic.NewToolUseMessageContent(
					tc.ID, tc.Name, json.RawMessage(argsJSON),
				))
			}
			msgs = append(msgs, anthropic.Message{
				Role:    anthropic.RoleAssistant,
				Content: content,
			})
		case agent.RoleTool:
			// The API rejects empty tool result content.
			content := msg.Content
			if content == "" {
				content = "{}"
			}
			msgs = append(msgs, anthropic.Message{
				Role: anthropic.RoleUser,
				Content: []anthropic.MessageContent{
					anthropic.NewToolResultMessageContent(msg.ToolCallID, content, msg.Status == agent.StatusError),
				},
			})
		}
	}

	var toolDefs []anthropic.ToolDefinition
	for _, schema := range tools {
		params, err := toolParameters(schema)
		if err != nil {
			return agent.ModelResponse{}, err
		}
		toolDefs = append(toolDefs, anthropic.ToolDefinition{
			Name:        schema.Name,
			Description: schema.Description,
			InputSchema: params,
		})
	}

	req := anthropic.MessagesRequest{
		Model:     anthropic.Model(m.model),
		Messages:  msgs,
		MaxTokens: anthropicMaxTokens,
	}
	if len(system) > 0 {
		req.MultiSystem = system
	}
	if len(toolDefs) > 0 {
		req.Tools = toolDefs
	}

	resp, err := m.client.CreateMessages(ctx, req)
	if err != nil {
		return agent.ModelResponse{}, fmt.Errorf("anthropic: %w", err)
	}

	var out agent.ModelResponse
	for _, block := range resp.Content {
		switch block.Type {
		case anthropic.MessagesContentTypeText:
			if block.Text != nil {
				out.Text += *block.Text
			}
		case anthropic.MessagesContentTypeToolUse:
			if block.MessageContentToolUse == nil || block.ID == "" || block.Name == "" {
				continue
			}
			args := make(map[string]any)
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &args); err != nil {
					args = make(map[string]any)
				}
			}
			out.ToolCalls = append(out.ToolCalls, agent.ToolCall{
				ID:   block.ID,
				Name: block.Name,
				Args: args,
			})
		}
	}
	return out, nil
}
