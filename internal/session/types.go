package session

import "time"

// Session is the join state of one LFG post, keyed by the posted message ID.
type Session struct {
	ID           string    `json:"session_id"`
	ChannelID    string    `json:"channel_id"`
	Game         string    `json:"game"`
	HostID       string    `json:"host_id"`
	HostName     string    `json:"host_name"`
	Participants []string  `json:"participants"`
	Capacity     int       `json:"capacity"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Full reports whether no seats are left.
func (s *Session) Full() bool {
	return len(s.Participants) >= s.Capacity
}

// OpenSlots is the number of seats still available.
func (s *Session) OpenSlots() int {
	if n := s.Capacity - len(s.Participants); n > 0 {
		return n
	}
	return 0
}

// Has reports whether userID already holds a seat.
func (s *Session) Has(userID string) bool {
	for _, id := range s.Participants {
		if id == userID {
			return true
		}
	}
	return false
}

// CreateParams carries everything needed to register a freshly posted session.
type CreateParams struct {
	ID        string
	ChannelID string
	Game      string
	HostID    string
	HostName  string
	Capacity  int
}

// JoinOutcome says how a join attempt ended.
type JoinOutcome string

const (
	JoinAdded         JoinOutcome = "added"
	JoinAlreadyMember JoinOutcome = "already_member"
	JoinFull          JoinOutcome = "full"
)

// JoinResult is the outcome of a join together with the session as it looks afterwards.
type JoinResult struct {
	Outcome JoinOutcome
	Session *Session
}

// LeaveOutcome says how a leave attempt ended.
type LeaveOutcome string

const (
	LeaveRemoved   LeaveOutcome = "removed"
	LeaveNotMember LeaveOutcome = "not_member"
	LeaveHost      LeaveOutcome = "host"
)

// LeaveResult is the outcome of a leave together with the session as it looks afterwards.
type LeaveResult struct {
	Outcome LeaveOutcome
	Session *Session
}
