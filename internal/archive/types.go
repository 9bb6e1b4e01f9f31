package archive

import (
	"context"
	"time"

	"github.com/antoniostano/railbot/internal/session"
)

// Record is an expired LFG session kept for history. Live sessions are
// never restored from it.
type Record struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id"`
	ChannelID    string    `json:"channel_id"`
	Game         string    `json:"game"`
	HostID       string    `json:"host_id"`
	Participants []string  `json:"participants"`
	Capacity     int       `json:"capacity"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiredAt    time.Time `json:"expired_at"`
}

// FromSession builds the history record for an expired session.
func FromSession(s *session.Session, expiredAt time.Time) Record {
	return Record{
		SessionID:    s.ID,
		ChannelID:    s.ChannelID,
		Game:         s.Game,
		HostID:       s.HostID,
		Participants: append([]string(nil), s.Participants...),
		Capacity:     s.Capacity,
		CreatedAt:    s.CreatedAt,
		ExpiredAt:    expiredAt,
	}
}

// Store persists and retrieves expired sessions.
type Store interface {
	SaveExpired(ctx context.Context, record Record) error
	Recent(ctx context.Context, limit int) ([]Record, error)
	Mode() string
	Close() error
}
