package utils

import (
	"sync"
	"time"
)

// RateLimiter controls how often a user may run a command
type RateLimiter struct {
	limits map[string]*userLimit
	limit  int
	window time.Duration
	now    func() time.Time
	mu     sync.Mutex
}

// userLimit tracks rate limiting for a specific user
type userLimit struct {
	lastAccess time.Time
	count      int
}

// NewRateLimiter creates a limiter allowing limit calls per window.
// A limit of zero or less disables limiting.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limits: make(map[string]*userLimit),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// SetLimit changes the number of calls allowed per window.
func (rl *RateLimiter) SetLimit(limit int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.limit = limit
}

// Allow checks if a user is allowed to execute a command
// Returns true if allowed, false if rate limited
func (rl *RateLimiter) Allow(userID, command string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.limit <= 0 {
		return true
	}

	key := userID + ":" + command
	now := rl.now()

	limit, exists := rl.limits[key]
	if !exists {
		rl.limits[key] = &userLimit{
			lastAccess: now,
			count:      1,
		}
		return true
	}

	// Reset the counter once the window has passed
	if now.Sub(limit.lastAccess) >= rl.window {
		limit.lastAccess = now
		limit.count = 1
		return true
	}

	if limit.count >= rl.limit {
		return false
	}

	limit.count++
	return true
}

// GetRetryAfter returns the time in seconds until the user can try again
func (rl *RateLimiter) GetRetryAfter(userID, command string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	key := userID + ":" + command
	limit, exists := rl.limits[key]
	if !exists {
		return 0
	}

	elapsed := rl.now().Sub(limit.lastAccess)
	if elapsed >= rl.window {
		return 0
	}

	return int((rl.window - elapsed).Seconds())
}

// Prune drops entries whose window has expired.
func (rl *RateLimiter) Prune() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, limit := range rl.limits {
		if now.Sub(limit.lastAccess) >= rl.window {
			delete(rl.limits, key)
		}
	}
}
