package session

import (
	"context"
	"time"
)

// DefaultSweepInterval is how often expired sessions are pruned. A session
// can stay joinable for up to one interval past its expiry.
const DefaultSweepInterval = 5 * time.Minute

// StartSweeper prunes expired sessions every interval until ctx is done.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
}

// Sweep removes every session whose expiry is strictly before now and
// returns the removed sessions. The expire hook runs after the lock is
// released.
func (s *Store) Sweep() []*Session {
	s.mu.Lock()
	now := s.now()
	var expired []*Session
	for _, sess := range s.sessions {
		if sess.ExpiresAt.Before(now) {
			expired = append(expired, clone(sess))
		}
	}
	for _, sess := range expired {
		s.deleteLocked(sess.ID)
	}
	hook := s.onExpire
	s.mu.Unlock()

	if hook != nil {
		for _, sess := range expired {
			hook(sess)
		}
	}
	return expired
}
