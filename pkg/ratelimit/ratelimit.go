package ratelimit

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Limiter is a token bucket rate limiter tracked per client key. Feature
// extraction is CPU-heavy, so the API front end uses this to keep one noisy
// client from starving the rest.
type Limiter struct {
	rate       float64 // tokens per second
	burst      int
	clients    map[string]*bucket
	mu         sync.Mutex
	logger     *logrus.Logger
	cleanupTTL time.Duration
}

type bucket struct {
	tokens     float64
	lastUpdate time.Time
}

// NewLimiter creates a limiter allowing rate requests per second with the
// given burst capacity per client.
func NewLimiter(rate float64, burst int, logger *logrus.Logger) *Limiter {
	l := &Limiter{
		rate:       rate,
		burst:      burst,
		clients:    make(map[string]*bucket),
		logger:     logger,
		cleanupTTL: 10 * time.Minute,
	}

	go l.cleanup()

	return l
}

// Allow reports whether a request from the given key may proceed, consuming
// one token when it does.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()

	b, exists := l.clients[key]
	if !exists {
		b = &bucket{tokens: float64(l.burst), lastUpdate: now}
		l.clients[key] = b
	}

	elapsed := now.Sub(b.lastUpdate).Seconds()
	b.tokens += elapsed * l.rate
	if b.tokens > float64(l.burst) {
		b.tokens = float64(l.burst)
	}
	b.lastUpdate = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Tokens returns the current token count for a key, for monitoring.
func (l *Limiter) Tokens(key string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, exists := l.clients[key]
	if !exists {
		return float64(l.burst)
	}

	tokens := b.tokens + time.Since(b.lastUpdate).Seconds()*l.rate
	if tokens > float64(l.burst) {
		tokens = float64(l.burst)
	}
	return tokens
}

// ClientCount returns the number of tracked clients.
func (l *Limiter) ClientCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// cleanup drops buckets that have refilled and gone idle, bounding memory
// for long-running servers.
func (l *Limiter) cleanup() {
	ticker := time.NewTicker(l.cleanupTTL / 2)
	defer ticker.Stop()

	for range ticker.C {
		l.mu.Lock()
		now := time.Now()
		for key, b := range l.clients {
			if now.Sub(b.lastUpdate) > l.cleanupTTL {
				delete(l.clients, key)
			}
		}
		l.mu.Unlock()
	}
}
