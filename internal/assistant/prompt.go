package assistant

import (
	"fmt"
	"strings"

	"github.com/drewomix/Oasis/internal/agent"
	"github.com/drewomix/Oasis/internal/archive"
	"github.com/drewomix/Oasis/internal/situation"
)

const personaPrompt = `You are Mira, a voice assistant running on a pair of smart glasses.
The user speaks to you; your reply is shown on a small display and may be
spoken aloud. Be concise and direct: one or two short sentences whenever
possible. Never use markdown, bullet points, or emoji.

Use the available tools when the question needs live information or a
device action. When you have the complete answer for the user, reply with
a line starting with "` + agent.FinalAnswerMarker + `" followed by the answer text.`

// buildSystemPrompt composes the persona, the tool inventory, earlier
// archived exchanges, and the situational context sections into one
// system message.
func buildSystemPrompt(registry *agent.Registry, bundle situation.Bundle, history []archive.Exchange) string {
	var sb strings.Builder
	sb.WriteString(personaPrompt)

	schemas := registry.Schemas()
	if len(schemas) > 0 {
		sb.WriteString("\n\nAvailable tools:\n")
		for _, s := range schemas {
			fmt.Fprintf(&sb, "- %s: %s\n", s.Name, s.Description)
		}
	}

	if len(history) > 0 {
		sb.WriteString("\nEarlier exchanges with this user, oldest first:\n")
		for _, ex := range history {
			fmt.Fprintf(&sb, "- User: %s\n  You: %s\n", ex.Query, ex.Answer)
		}
	}

	if sections := bundle.PromptSections(); sections != "" {
		sb.WriteString("\n")
		sb.WriteString(sections)
	}
	return sb.String()
}
