package agent

import "sync"

// defaultConversationCap bounds per-session conversational memory. The
// system prompt survives trimming; older turns are dropped oldest-first.
const defaultConversationCap = 40

// Conversation is a session's append-only message log. It persists across
// queries within the session and is rebuilt only when the system prompt
// changes (new situational context).
type Conversation struct {
	mu       sync.Mutex
	system   Message
	messages []Message
	capacity int
}

func NewConversation() *Conversation {
	return &Conversation{capacity: defaultConversationCap}
}

// SetSystem replaces the system prompt without touching prior turns.
func (c *Conversation) SetSystem(m Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.system = m
}

func (c *Conversation) Append(msgs ...Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msgs...)
	if len(c.messages) > c.capacity {
		c.messages = c.messages[len(c.messages)-c.capacity:]
		// Never leave an orphaned tool result at the head; providers reject
		// tool messages without their originating assistant call.
		for len(c.messages) > 0 && c.messages[0].Role == RoleTool {
			c.messages = c.messages[1:]
		}
	}
}

// Messages returns the system prompt followed by the logged turns.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, 0, len(c.messages)+1)
	if c.system.Role != "" {
		out = append(out, c.system)
	}
	out = append(out, c.messages...)
	return out
}

func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}
