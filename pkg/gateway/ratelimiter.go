package gateway

import (
	"sync"
	"time"
)

const rateLimitWindow = time.Minute

// RateLimiter enforces a per-address sliding-window request limit.
type RateLimiter struct {
	limits         map[string][]int64
	maxPerMinute   int
	mu             sync.Mutex
	stopCleanup    chan struct{}
	cleanupStarted sync.Once
}

// NewRateLimiter creates a rate limiter allowing maxPerMinute requests per
// remote address.
func NewRateLimiter(maxPerMinute int) *RateLimiter {
	return &RateLimiter{
		limits:       make(map[string][]int64),
		maxPerMinute: maxPerMinute,
		stopCleanup:  make(chan struct{}),
	}
}

// Allow reports whether a request from addr is within the limit and, when
// it is, records it.
func (rl *RateLimiter) Allow(addr string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now().UnixMilli()
	cutoff := now - rateLimitWindow.Milliseconds()

	recent := rl.limits[addr][:0]
	for _, t := range rl.limits[addr] {
		if t > cutoff {
			recent = append(recent, t)
		}
	}
	if len(recent) >= rl.maxPerMinute {
		rl.limits[addr] = recent
		return false
	}
	rl.limits[addr] = append(recent, now)
	return true
}

// RetryAfter returns the seconds until the oldest recorded request leaves
// the window.
func (rl *RateLimiter) RetryAfter(addr string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	times := rl.limits[addr]
	if len(times) == 0 {
		return 0
	}
	remaining := rateLimitWindow.Milliseconds() - (time.Now().UnixMilli() - times[0])
	if remaining < 0 {
		return 0
	}
	return int((remaining + 999) / 1000)
}

// StartCleanup begins periodic eviction of idle addresses.
func (rl *RateLimiter) StartCleanup(interval time.Duration) {
	rl.cleanupStarted.Do(func() {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					rl.cleanup()
				case <-rl.stopCleanup:
					return
				}
			}
		}()
	})
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().UnixMilli() - rateLimitWindow.Milliseconds()
	for addr, times := range rl.limits {
		recent := times[:0]
		for _, t := range times {
			if t > cutoff {
				recent = append(recent, t)
			}
		}
		if len(recent) == 0 {
			delete(rl.limits, addr)
		} else {
			rl.limits[addr] = recent
		}
	}
}

// Stop halts the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	close(rl.stopCleanup)
}
