package commands

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// CooldownError rejects a command issued before its window elapsed.
type CooldownError struct {
	Command    string
	RetryAfter time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s on cooldown, retry in %s", e.Command, e.RetryAfter)
}

// Seconds is the remaining wait rounded to whole seconds.
func (e *CooldownError) Seconds() int {
	return int(math.Round(e.RetryAfter.Seconds()))
}

// cooldowns allows one use per window for each (command, user) bucket.
type cooldowns struct {
	mu        sync.Mutex
	last      map[string]time.Time
	maxWindow time.Duration
	now       func() time.Time
}

func newCooldowns(now func() time.Time) *cooldowns {
	return &cooldowns{last: make(map[string]time.Time), now: now}
}

func bucket(command, userID string) string {
	return command + "\x00" + userID
}

// take consumes the bucket or reports how long is left.
func (c *cooldowns) take(command, userID string, window time.Duration) (time.Duration, bool) {
	if window <= 0 {
		return 0, true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	key := bucket(command, userID)
	if at, ok := c.last[key]; ok {
		if remaining := at.Add(window).Sub(now); remaining > 0 {
			return remaining, false
		}
	}
	c.last[key] = now
	if window > c.maxWindow {
		c.maxWindow = window
	}
	c.prune(now)
	return 0, true
}

func (c *cooldowns) refund(command, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.last, bucket(command, userID))
}

// prune drops buckets older than the longest window once the map is large.
func (c *cooldowns) prune(now time.Time) {
	if len(c.last) < 1024 {
		return
	}
	for key, at := range c.last {
		if now.Sub(at) > c.maxWindow {
			delete(c.last, key)
		}
	}
}
