package agent

import (
	"fmt"
	"testing"
)

func TestConversationSystemFirst(t *testing.T) {
	conv := NewConversation()
	conv.SetSystem(SystemMessage("be helpful"))
	conv.Append(UserMessage("hi"))

	msgs := conv.Messages()
	if len(msgs) != 2 || msgs[0].Role != RoleSystem || msgs[1].Role != RoleUser {
		t.Fatalf("unexpected message order: %+v", msgs)
	}
}

func TestConversationTrimsOldestFirst(t *testing.T) {
	conv := NewConversation()
	conv.SetSystem(SystemMessage("sys"))
	for i := 0; i < defaultConversationCap+10; i++ {
		conv.Append(UserMessage(fmt.Sprintf("m%d", i)))
	}

	msgs := conv.Messages()
	if msgs[0].Role != RoleSystem {
		t.Fatalf("system prompt must survive trimming")
	}
	if conv.Len() != defaultConversationCap {
		t.Fatalf("Len() = %d, want %d", conv.Len(), defaultConversationCap)
	}
	if msgs[1].Content != "m10" {
		t.Fatalf("oldest surviving message = %q, want m10", msgs[1].Content)
	}
}

func TestConversationTrimDropsOrphanToolResults(t *testing.T) {
	conv := NewConversation()
	// Fill right up to capacity with a tool result at the trim boundary.
	conv.Append(AssistantMessage("", []ToolCall{{ID: "c1", Name: "x"}}))
	conv.Append(ToolResultMessage("c1", "x", "r", StatusOK))
	for i := 0; i < defaultConversationCap-1; i++ {
		conv.Append(UserMessage(fmt.Sprintf("m%d", i)))
	}

	msgs := conv.Messages()
	if msgs[0].Role == RoleTool {
		t.Fatalf("trimming must not leave an orphaned tool result at the head")
	}
}

func TestRegistrySchemasSorted(t *testing.T) {
	reg := NewRegistry()
	reg.Register(echoTool("zeta"))
	reg.Register(echoTool("alpha"))

	schemas := reg.Schemas()
	if len(schemas) != 2 || schemas[0].Name != "alpha" || schemas[1].Name != "zeta" {
		t.Fatalf("Schemas() = %+v, want sorted by name", schemas)
	}
}
