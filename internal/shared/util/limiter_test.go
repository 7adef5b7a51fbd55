package util

import (
	"testing"
	"time"
)

func TestLimiterBurstThenRefill(t *testing.T) {
	// 10 tokens per second, burst of 2.
	l := NewLimiter(10, 2)

	if !l.Allow(1) || !l.Allow(1) {
		t.Error("burst capacity should admit the first two requests")
	}
	if l.Allow(1) {
		t.Error("third request should be rejected with the burst spent")
	}

	time.Sleep(150 * time.Millisecond)
	if !l.Allow(1) {
		t.Error("expected a token after the refill interval")
	}
}

func TestLimiterRegistryPerKeyBuckets(t *testing.T) {
	reg := NewLimiterRegistry(100, 10, 100*time.Millisecond)

	l1 := reg.Get("1.1.1.1")
	l2 := reg.Get("2.2.2.2")
	if l1 == l2 {
		t.Error("distinct clients must get distinct buckets")
	}
	if reg.Get("1.1.1.1") != l1 {
		t.Error("same client must keep its bucket")
	}

	// Past the TTL the entry is swept and the client starts fresh.
	time.Sleep(250 * time.Millisecond)
	if reg.Get("1.1.1.1") == l1 {
		t.Error("idle bucket should have been evicted")
	}
}
