package syncchan

import (
	"math/rand"
	"testing"
	"time"
)

func TestNextBackoffDelayDeterministicNoJitter(t *testing.T) {
	cfg := BackoffConfig{
		InitialDelay: 250 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     5 * time.Second,
	}
	if got := NextBackoffDelay(cfg, 1, nil); got != 250*time.Millisecond {
		t.Fatalf("attempt1 got=%v", got)
	}
	if got := NextBackoffDelay(cfg, 2, nil); got != 500*time.Millisecond {
		t.Fatalf("attempt2 got=%v", got)
	}
	if got := NextBackoffDelay(cfg, 3, nil); got != time.Second {
		t.Fatalf("attempt3 got=%v", got)
	}
	if got := NextBackoffDelay(cfg, 6, nil); got != 5*time.Second {
		t.Fatalf("attempt6 got=%v", got)
	}
}

func TestNextBackoffDelayJitterBounds(t *testing.T) {
	cfg := BackoffConfig{InitialDelay: time.Second, Multiplier: 2, Jitter: true}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		got := NextBackoffDelay(cfg, 1, rng)
		if got < 500*time.Millisecond || got >= 1500*time.Millisecond {
			t.Fatalf("jittered delay out of range: %v", got)
		}
	}
}

func TestBackoffIsBounded(t *testing.T) {
	b := NewBackoff(BackoffConfig{InitialDelay: time.Millisecond, Multiplier: 2, MaxAttempts: 2}, nil)
	if _, ok := b.Next(); !ok {
		t.Fatal("attempt 1 should be allowed")
	}
	if d, ok := b.Next(); !ok || d != 2*time.Millisecond {
		t.Fatalf("attempt 2 = %v,%v", d, ok)
	}
	if _, ok := b.Next(); ok {
		t.Fatal("attempt 3 should be refused")
	}
	b.Reset()
	if b.Attempts() != 0 {
		t.Fatal("reset should clear attempts")
	}
	if _, ok := b.Next(); !ok {
		t.Fatal("attempt after reset should be allowed")
	}
}

func TestBackoffWithoutRandStillJitters(t *testing.T) {
	cfg := BackoffConfig{InitialDelay: time.Second, Multiplier: 1, Jitter: true, MaxAttempts: 100}
	b := NewBackoff(cfg, nil)
	seen := make(map[time.Duration]bool)
	for i := 0; i < 20; i++ {
		d, ok := b.Next()
		if !ok {
			t.Fatalf("attempt %d refused", i+1)
		}
		if d < 500*time.Millisecond || d >= 1500*time.Millisecond {
			t.Fatalf("jittered delay out of range: %v", d)
		}
		seen[d] = true
	}
	if len(seen) < 2 {
		t.Fatal("delays should vary when jitter is on")
	}
}
