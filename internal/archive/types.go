package archive

import (
	"context"
	"time"
)

// Exchange stores one completed query/answer pair.
type Exchange struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	Query     string    `json:"query"`
	Answer    string    `json:"answer"`
	Trigger   string    `json:"trigger"`
	Redacted  bool      `json:"redacted"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists finished exchanges. Saves are best-effort: the query
// pipeline never blocks on archival.
type Store interface {
	SaveExchange(ctx context.Context, ex Exchange) error
	RecentExchanges(ctx context.Context, userID string, limit int) ([]Exchange, error)
	Close() error
}
