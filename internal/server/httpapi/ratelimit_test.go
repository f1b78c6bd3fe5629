package httpapi

import (
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestIPLimiter_Allow(t *testing.T) {
	// 2 events per second with burst 2
	ml := newIPLimiter(rate.Limit(2), 2, time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	ml.now = func() time.Time { return now }

	if !ml.allow("a") {
		t.Fatal("first allow should pass")
	}
	if !ml.allow("a") {
		t.Fatal("second allow should pass")
	}
	if ml.allow("a") {
		t.Fatal("third allow should be rate limited")
	}
	if !ml.allow("b") {
		t.Fatal("other keys have their own bucket")
	}

	now = now.Add(time.Second)
	if !ml.allow("a") {
		t.Fatal("bucket should refill over time")
	}
}

func TestIPLimiter_EvictsIdleBuckets(t *testing.T) {
	ml := newIPLimiter(rate.Limit(1), 1, time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	ml.now = func() time.Time { return now }

	ml.allow("a")
	ml.allow("b")
	if got := ml.size(); got != 2 {
		t.Fatalf("expected 2 buckets, got %d", got)
	}

	now = now.Add(2 * time.Minute)
	ml.allow("c")
	if got := ml.size(); got != 1 {
		t.Fatalf("idle buckets should be evicted, got %d", got)
	}
}
