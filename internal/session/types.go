package session

import "time"

// Settings are the live-updatable per-session preferences.
type Settings struct {
	AlwaysListening bool `json:"always_listening"`
	SpeakResponses  bool `json:"speak_responses"`
	HeadUpWake      bool `json:"head_up_wake"`
}

// CreateRequest defines payload for creating a new session.
type CreateRequest struct {
	UserID          string `json:"user_id"`
	AlwaysListening bool   `json:"always_listening"`
	SpeakResponses  bool   `json:"speak_responses"`
	HeadUpWake      bool   `json:"head_up_wake"`
}

// CreateResponse returns created session metadata.
type CreateResponse struct {
	SessionID       string    `json:"session_id"`
	UserID          string    `json:"user_id"`
	Status          Status    `json:"status"`
	Settings        Settings  `json:"settings"`
	StartedAt       time.Time `json:"started_at"`
	LastActivityAt  time.Time `json:"last_activity_at"`
	InactivityTTLMS int64     `json:"inactivity_ttl_ms"`
}
