package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/antoniostano/railbot/internal/session"
)

// MessageType identifies websocket payload variants on the session feed.
type MessageType string

const (
	TypeSessionsSnapshot MessageType = "sessions_snapshot"
	TypeClientControl    MessageType = "client_control"
	TypeErrorEvent       MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// SessionView is the public shape of a live session.
type SessionView struct {
	ID           string    `json:"session_id"`
	ChannelID    string    `json:"channel_id"`
	Game         string    `json:"game"`
	HostID       string    `json:"host_id"`
	Participants []string  `json:"participants"`
	Capacity     int       `json:"capacity"`
	OpenSlots    int       `json:"open_slots"`
	Full         bool      `json:"full"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func NewSessionView(s *session.Session) SessionView {
	return SessionView{
		ID:           s.ID,
		ChannelID:    s.ChannelID,
		Game:         s.Game,
		HostID:       s.HostID,
		Participants: s.Participants,
		Capacity:     s.Capacity,
		OpenSlots:    s.OpenSlots(),
		Full:         s.Full(),
		ExpiresAt:    s.ExpiresAt,
	}
}

type SessionsSnapshot struct {
	Type     MessageType   `json:"type"`
	TSMs     int64         `json:"ts_ms"`
	Sessions []SessionView `json:"sessions"`
}

func NewSessionsSnapshot(sessions []*session.Session, at time.Time) SessionsSnapshot {
	views := make([]SessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, NewSessionView(s))
	}
	return SessionsSnapshot{Type: TypeSessionsSnapshot, TSMs: at.UnixMilli(), Sessions: views}
}

// ClientControl lets a feed client ask for an immediate snapshot.
type ClientControl struct {
	Type   MessageType `json:"type"`
	Action string      `json:"action"`
}

type ErrorEvent struct {
	Type   MessageType `json:"type"`
	Code   string      `json:"code"`
	Detail string      `json:"detail"`
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeClientControl:
		var msg ClientControl
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		switch msg.Action {
		case "refresh", "ping":
		default:
			return nil, fmt.Errorf("invalid client_control action %q", msg.Action)
		}
		return msg, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, env.Type)
	}
}
