package commands

import (
	"testing"
	"time"
)

func TestCooldownsWindowPerUserAndCommand(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	c := newCooldowns(func() time.Time { return now })

	if _, ok := c.take("lfg", "u1", 5*time.Minute); !ok {
		t.Fatalf("first take should succeed")
	}
	now = now.Add(time.Minute)
	wait, ok := c.take("lfg", "u1", 5*time.Minute)
	if ok {
		t.Fatalf("second take inside window should fail")
	}
	if wait != 4*time.Minute {
		t.Fatalf("wait = %v, want 4m", wait)
	}
	if _, ok := c.take("lfg", "u2", 5*time.Minute); !ok {
		t.Fatalf("other user should not share the bucket")
	}
	if _, ok := c.take("railsteam", "u1", 30*time.Second); !ok {
		t.Fatalf("other command should not share the bucket")
	}

	now = now.Add(4 * time.Minute)
	if _, ok := c.take("lfg", "u1", 5*time.Minute); !ok {
		t.Fatalf("take after window should succeed")
	}
}

func TestCooldownsRefund(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	c := newCooldowns(func() time.Time { return now })

	c.take("lfg", "u1", time.Minute)
	c.refund("lfg", "u1")
	if _, ok := c.take("lfg", "u1", time.Minute); !ok {
		t.Fatalf("take after refund should succeed")
	}
}

func TestCooldownErrorSecondsRounds(t *testing.T) {
	e := &CooldownError{Command: "lfg", RetryAfter: 29600 * time.Millisecond}
	if got := e.Seconds(); got != 30 {
		t.Fatalf("Seconds() = %d, want 30", got)
	}
}
