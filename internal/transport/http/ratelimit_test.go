package http

import (
	"testing"
	"time"
)

func TestRateLimiterWindow(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	rl := newRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return clock }

	if !rl.allow() || !rl.allow() {
		t.Fatalf("expected first two frames to pass")
	}
	if rl.allow() {
		t.Fatalf("expected third frame in the window to be limited")
	}

	clock = clock.Add(time.Minute)
	if !rl.allow() {
		t.Fatalf("expected a new window to reset the counter")
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	var nilLimiter *rateLimiter
	if !nilLimiter.allow() {
		t.Fatalf("nil limiter must allow")
	}

	rl := newRateLimiter(0, time.Minute)
	for range 100 {
		if !rl.allow() {
			t.Fatalf("zero limit must allow")
		}
	}
}
