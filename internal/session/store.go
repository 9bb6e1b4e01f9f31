package session

import (
	"errors"
	"sort"
	"sync"
	"time"
)

var (
	ErrNotFound        = errors.New("session not found")
	ErrDuplicateID     = errors.New("session already exists")
	ErrInvalidCapacity = errors.New("session capacity must be positive")
	ErrMissingID       = errors.New("session id is required")
)

// Store holds live sessions in process memory. Every check-then-mutate
// sequence runs under the store lock, callers only ever see copies.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
	onExpire func(*Session)
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source. Intended for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) SetExpireHook(hook func(*Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onExpire = hook
}

func (s *Store) TTL() time.Duration {
	return s.ttl
}

func (s *Store) Create(p CreateParams) (*Session, error) {
	if p.ID == "" {
		return nil, ErrMissingID
	}
	if p.Capacity < 1 {
		return nil, ErrInvalidCapacity
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[p.ID]; exists {
		return nil, ErrDuplicateID
	}
	now := s.now()
	sess := &Session{
		ID:           p.ID,
		ChannelID:    p.ChannelID,
		Game:         p.Game,
		HostID:       p.HostID,
		HostName:     p.HostName,
		Participants: []string{p.HostID},
		Capacity:     p.Capacity,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.ttl),
	}
	s.sessions[sess.ID] = sess
	return clone(sess), nil
}

func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(sess), nil
}

// Delete removes id if present and reports whether anything was removed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(id)
}

func (s *Store) deleteLocked(id string) bool {
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// List returns a snapshot of every live session, oldest first.
func (s *Store) List() []*Session {
	s.mu.RLock()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, clone(sess))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *Store) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Join seats userID in session id unless they already hold a seat or the
// session is full.
func (s *Store) Join(id, userID string) (JoinResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return JoinResult{}, ErrNotFound
	}
	switch {
	case sess.Has(userID):
		return JoinResult{Outcome: JoinAlreadyMember, Session: clone(sess)}, nil
	case sess.Full():
		return JoinResult{Outcome: JoinFull, Session: clone(sess)}, nil
	}
	sess.Participants = append(sess.Participants, userID)
	return JoinResult{Outcome: JoinAdded, Session: clone(sess)}, nil
}

// Leave frees the seat held by userID. The host keeps their seat for the
// lifetime of the session.
func (s *Store) Leave(id, userID string) (LeaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return LeaveResult{}, ErrNotFound
	}
	if userID == sess.HostID {
		return LeaveResult{Outcome: LeaveHost, Session: clone(sess)}, nil
	}
	for i, p := range sess.Participants {
		if p != userID {
			continue
		}
		sess.Participants = append(sess.Participants[:i:i], sess.Participants[i+1:]...)
		return LeaveResult{Outcome: LeaveRemoved, Session: clone(sess)}, nil
	}
	return LeaveResult{Outcome: LeaveNotMember, Session: clone(sess)}, nil
}

func clone(s *Session) *Session {
	c := *s
	c.Participants = append([]string(nil), s.Participants...)
	return &c
}
