package syncchan

import (
	"math"
	"math/rand"
	"time"
)

// BackoffConfig defines reconnect backoff behavior.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
	// MaxAttempts bounds consecutive reconnects; zero disables reconnecting
	MaxAttempts int
}

// NextBackoffDelay returns the retry delay for attempt N (1-based).
func NextBackoffDelay(cfg BackoffConfig, attempt int, rng *rand.Rand) time.Duration {
	if cfg.InitialDelay <= 0 {
		return 0
	}
	delay := float64(cfg.InitialDelay)
	if attempt > 1 {
		mult := cfg.Multiplier
		if mult < 1.0 {
			mult = 1.0
		}
		delay *= math.Pow(mult, float64(attempt-1))
	}
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	if cfg.Jitter {
		f := 0.5
		if rng != nil {
			f = 0.5 + rng.Float64()
		}
		delay = delay * f
	}
	return time.Duration(delay)
}

// Backoff counts consecutive failed connections
type Backoff struct {
	cfg      BackoffConfig
	rng      *rand.Rand
	attempts int
}

// NewBackoff tracks attempts against cfg. A nil rng uses a time-seeded source.
func NewBackoff(cfg BackoffConfig, rng *rand.Rand) *Backoff {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Backoff{cfg: cfg, rng: rng}
}

// Next returns the delay before the next attempt, or false once the
// attempt budget is spent.
func (b *Backoff) Next() (time.Duration, bool) {
	if b.attempts >= b.cfg.MaxAttempts {
		return 0, false
	}
	b.attempts++
	return NextBackoffDelay(b.cfg, b.attempts, b.rng), true
}

// Reset is called once a connection opens
func (b *Backoff) Reset() {
	b.attempts = 0
}

// Attempts is the number of delays handed out since the last Reset
func (b *Backoff) Attempts() int {
	return b.attempts
}
