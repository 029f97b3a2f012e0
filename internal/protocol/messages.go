package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeTranscriptFragment MessageType = "transcript_fragment"
	TypeHeadPosition       MessageType = "head_position"
	TypeLocationUpdate     MessageType = "location_update"
	TypePhoneNotification  MessageType = "phone_notification"
	TypeNotificationsClear MessageType = "notifications_clear"
	TypeSettingsUpdate     MessageType = "settings_update"
	TypePhotoResult        MessageType = "photo_result"

	TypeDisplayText       MessageType = "display_text"
	TypeDisplayTranscript MessageType = "display_transcript"
	TypeSpeak             MessageType = "speak"
	TypePlayAudio         MessageType = "play_audio"
	TypePhotoRequest      MessageType = "photo_request"
	TypeAppStart          MessageType = "app_start"
	TypeAppStop           MessageType = "app_stop"
	TypeErrorEvent        MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// TranscriptFragment is one chunk of streaming speech transcription.
type TranscriptFragment struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Text      string      `json:"text"`
	IsFinal   bool        `json:"is_final"`
	TSMs      int64       `json:"ts_ms"`
}

// HeadPosition reports wearer head orientation; Position is "up" or "down".
type HeadPosition struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Position  string      `json:"position"`
}

type LocationUpdate struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Lat       float64     `json:"lat"`
	Lng       float64     `json:"lng"`
}

// PhoneNotification mirrors a notification surfaced on the paired phone.
// Fields beyond the envelope are optional; display formatting degrades
// through summary, title+text, title, text.
type PhoneNotification struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	App       string      `json:"app,omitempty"`
	Title     string      `json:"title,omitempty"`
	Text      string      `json:"text,omitempty"`
	Summary   string      `json:"summary,omitempty"`
}

type NotificationsClear struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
}

// SettingsUpdate carries live-updatable session preferences. Pointer fields
// distinguish "not present" from "explicitly false".
type SettingsUpdate struct {
	Type            MessageType `json:"type"`
	SessionID       string      `json:"session_id"`
	AlwaysListening *bool       `json:"always_listening,omitempty"`
	SpeakResponses  *bool       `json:"speak_responses,omitempty"`
	HeadUpWake      *bool       `json:"head_up_wake,omitempty"`
}

type PhotoResult struct {
	Type        MessageType `json:"type"`
	SessionID   string      `json:"session_id"`
	ImageBase64 string      `json:"image_base64"`
	TSMs        int64       `json:"ts_ms"`
}

type DisplayText struct {
	Type       MessageType `json:"type"`
	SessionID  string      `json:"session_id"`
	Text       string      `json:"text"`
	DurationMs int         `json:"duration_ms,omitempty"`
}

// DisplayTranscript streams the live "what the user is saying" view.
type DisplayTranscript struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Text      string      `json:"text"`
	IsFinal   bool        `json:"is_final"`
}

type Speak struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Text      string      `json:"text"`
}

type PlayAudio struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	URL       string      `json:"url"`
}

type PhotoRequest struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	RequestID string      `json:"request_id"`
}

// AppControl instructs the device to start or stop a companion app. Type
// is app_start or app_stop.
type AppControl struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	AppName   string      `json:"app_name"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

// ParseClientMessage decodes one inbound device payload into its typed form.
func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeTranscriptFragment:
		var msg TranscriptFragment
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" {
			return nil, errors.New("invalid transcript_fragment")
		}
		return msg, nil
	case TypeHeadPosition:
		msg, err := parseHeadPosition(raw)
		if err != nil {
			return nil, err
		}
		return msg, nil
	case TypeLocationUpdate:
		var msg LocationUpdate
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" {
			return nil, errors.New("invalid location_update")
		}
		return msg, nil
	case TypePhoneNotification:
		var msg PhoneNotification
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" {
			return nil, errors.New("invalid phone_notification")
		}
		return msg, nil
	case TypeNotificationsClear:
		var msg NotificationsClear
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" {
			return nil, errors.New("invalid notifications_clear")
		}
		return msg, nil
	case TypeSettingsUpdate:
		var msg SettingsUpdate
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" {
			return nil, errors.New("invalid settings_update")
		}
		return msg, nil
	case TypePhotoResult:
		var msg PhotoResult
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" || msg.ImageBase64 == "" {
			return nil, errors.New("invalid photo_result")
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}

// parseHeadPosition accepts both {"position":"up"} and a bare "up" in the
// position field, which some firmware versions send.
func parseHeadPosition(raw []byte) (HeadPosition, error) {
	var msg HeadPosition
	if err := json.Unmarshal(raw, &msg); err == nil && msg.Position != "" {
		if msg.SessionID == "" {
			return HeadPosition{}, errors.New("invalid head_position")
		}
		return msg, nil
	}

	var loose struct {
		Type      MessageType     `json:"type"`
		SessionID string          `json:"session_id"`
		Position  json.RawMessage `json:"position"`
	}
	if err := json.Unmarshal(raw, &loose); err != nil {
		return HeadPosition{}, err
	}
	if loose.SessionID == "" {
		return HeadPosition{}, errors.New("invalid head_position")
	}
	var nested struct {
		Position string `json:"position"`
	}
	if err := json.Unmarshal(loose.Position, &nested); err == nil && nested.Position != "" {
		return HeadPosition{Type: TypeHeadPosition, SessionID: loose.SessionID, Position: nested.Position}, nil
	}
	return HeadPosition{}, errors.New("invalid head_position")
}

// MessageTypeOf extracts the envelope type from a typed outbound/inbound value.
func MessageTypeOf(msg any) (MessageType, bool) {
	switch m := msg.(type) {
	case TranscriptFragment:
		return m.Type, true
	case HeadPosition:
		return m.Type, true
	case LocationUpdate:
		return m.Type, true
	case PhoneNotification:
		return m.Type, true
	case NotificationsClear:
		return m.Type, true
	case SettingsUpdate:
		return m.Type, true
	case PhotoResult:
		return m.Type, true
	case DisplayText:
		return m.Type, true
	case DisplayTranscript:
		return m.Type, true
	case Speak:
		return m.Type, true
	case PlayAudio:
		return m.Type, true
	case PhotoRequest:
		return m.Type, true
	case AppControl:
		return m.Type, true
	case ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}
