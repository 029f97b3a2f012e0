package situation

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Notification is one phone notification buffered for a user.
type Notification struct {
	App        string
	Title      string
	Text       string
	Summary    string
	ReceivedAt time.Time
}

// NotificationBuffer keeps notifications per user. Appends are unbounded;
// reads truncate to the N most recent; entries are only dropped by Clear.
type NotificationBuffer struct {
	mu      sync.RWMutex
	byUser  map[string][]Notification
	nowFunc func() time.Time
}

func NewNotificationBuffer() *NotificationBuffer {
	return &NotificationBuffer{
		byUser:  make(map[string][]Notification),
		nowFunc: time.Now,
	}
}

func (b *NotificationBuffer) Append(userID string, n Notification) {
	if n.ReceivedAt.IsZero() {
		n.ReceivedAt = b.nowFunc().UTC()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byUser[userID] = append(b.byUser[userID], n)
}

// Recent returns up to limit most recent notifications, oldest first.
func (b *NotificationBuffer) Recent(userID string, limit int) []Notification {
	b.mu.RLock()
	defer b.mu.RUnlock()
	arr := b.byUser[userID]
	if len(arr) == 0 {
		return nil
	}
	if limit <= 0 || limit > len(arr) {
		limit = len(arr)
	}
	out := make([]Notification, limit)
	copy(out, arr[len(arr)-limit:])
	return out
}

func (b *NotificationBuffer) Clear(userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.byUser, userID)
}

// FormatLine renders one notification for the prompt, degrading through
// summary, title+text, title, text, then an index placeholder.
func FormatLine(n Notification, index int) string {
	switch {
	case strings.TrimSpace(n.Summary) != "":
		return strings.TrimSpace(n.Summary)
	case strings.TrimSpace(n.Title) != "" && strings.TrimSpace(n.Text) != "":
		return strings.TrimSpace(n.Title) + ": " + strings.TrimSpace(n.Text)
	case strings.TrimSpace(n.Title) != "":
		return strings.TrimSpace(n.Title)
	case strings.TrimSpace(n.Text) != "":
		return strings.TrimSpace(n.Text)
	default:
		return fmt.Sprintf("notification %d", index+1)
	}
}
