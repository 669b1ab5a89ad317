// Package ratelimit throttles HTTP callers by client address.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter decides whether a caller identified by key may proceed.
type Limiter interface {
	Allow(key string) bool
	Reset(key string)
	Stop()
}

// Config bounds each key to Requests per Window.
type Config struct {
	Enabled  bool          `yaml:"enabled"`
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// DefaultConfig returns the general API limit.
func DefaultConfig() Config {
	return Config{
		Enabled:  true,
		Requests: 100,
		Window:   time.Minute,
	}
}

// LoginConfig returns the limit applied to credential checks.
func LoginConfig() Config {
	return Config{
		Enabled:  true,
		Requests: 5,
		Window:   time.Minute,
	}
}

// bucket holds the tokens left for one key. Tokens refill continuously at
// Requests/Window per second up to Requests.
type bucket struct {
	tokens float64
	seen   time.Time
}

type tokenBucketLimiter struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket

	sweep    *time.Ticker
	done     chan struct{}
	stopOnce sync.Once
}

// NewMemoryLimiter returns a process-local token bucket limiter. Call Stop
// to end its background sweep.
func NewMemoryLimiter(cfg Config) Limiter {
	l := &tokenBucketLimiter{
		cfg:     cfg,
		now:     time.Now,
		buckets: make(map[string]*bucket),
		done:    make(chan struct{}),
	}
	if cfg.Window > 0 {
		l.sweep = time.NewTicker(cfg.Window * 2)
		go l.sweepLoop()
	}
	return l
}

func (l *tokenBucketLimiter) Allow(key string) bool {
	if !l.cfg.Enabled || l.cfg.Requests <= 0 || l.cfg.Window <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	capacity := float64(l.cfg.Requests)

	b, ok := l.buckets[key]
	if !ok {
		l.buckets[key] = &bucket{tokens: capacity - 1, seen: now}
		return true
	}

	rate := capacity / l.cfg.Window.Seconds()
	b.tokens = min(capacity, b.tokens+now.Sub(b.seen).Seconds()*rate)
	b.seen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (l *tokenBucketLimiter) Reset(key string) {
	l.mu.Lock()
	delete(l.buckets, key)
	l.mu.Unlock()
}

func (l *tokenBucketLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

func (l *tokenBucketLimiter) sweepLoop() {
	defer l.sweep.Stop()
	for {
		select {
		case <-l.sweep.C:
			l.dropIdle()
		case <-l.done:
			return
		}
	}
}

// dropIdle forgets keys idle long enough to have refilled completely.
func (l *tokenBucketLimiter) dropIdle() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-2 * l.cfg.Window)
	for key, b := range l.buckets {
		if b.seen.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

func (l *tokenBucketLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
