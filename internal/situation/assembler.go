package situation

import (
	"strings"
	"time"
)

// Bundle is the situational context gathered at the moment a query becomes
// ready for processing.
type Bundle struct {
	LocationProse     string
	NotificationLines []string
	Photo             *Photo
}

// Assembler snapshots location, buffered notifications, and any pending
// photo into a single input bundle for the tool-calling loop.
type Assembler struct {
	locations         *LocationStore
	notifications     *NotificationBuffer
	photos            *PhotoCache
	notificationLimit int
	nowFunc           func() time.Time
}

func NewAssembler(locations *LocationStore, notifications *NotificationBuffer, photos *PhotoCache, notificationLimit int) *Assembler {
	if notificationLimit <= 0 {
		notificationLimit = 5
	}
	return &Assembler{
		locations:         locations,
		notifications:     notifications,
		photos:            photos,
		notificationLimit: notificationLimit,
		nowFunc:           time.Now,
	}
}

func (a *Assembler) Assemble(sessionID, userID string) Bundle {
	b := Bundle{
		LocationProse: a.locations.Get(sessionID).Prose(a.nowFunc()),
	}
	for i, n := range a.notifications.Recent(userID, a.notificationLimit) {
		b.NotificationLines = append(b.NotificationLines, FormatLine(n, i))
	}
	if p, ok := a.photos.Take(sessionID); ok {
		b.Photo = &p
	}
	return b
}

// PromptSections renders the bundle's textual sections for the system
// prompt. Empty sections are omitted entirely.
func (b Bundle) PromptSections() string {
	var sb strings.Builder
	if b.LocationProse != "" {
		sb.WriteString(b.LocationProse)
		sb.WriteString("\n")
	}
	if len(b.NotificationLines) > 0 {
		sb.WriteString("Recent phone notifications:\n")
		for _, line := range b.NotificationLines {
			sb.WriteString("- ")
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
