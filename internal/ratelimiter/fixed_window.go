package ratelimiter

import (
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

// FixedWindowRateLimiter allows limit requests per client in each window.
type FixedWindowRateLimiter struct {
	sync.Mutex
	clients map[string]*window
	limit   int
	window  time.Duration
	now     func() time.Time
}

func NewFixedWindowLimiter(limit int, frame time.Duration) *FixedWindowRateLimiter {
	return &FixedWindowRateLimiter{
		clients: make(map[string]*window),
		limit:   limit,
		window:  frame,
		now:     time.Now,
	}
}

// Allow counts one request for ip and, when it is over the limit, returns how
// long until the window resets.
func (rateLimit *FixedWindowRateLimiter) Allow(ip string) (bool, time.Duration) {
	rateLimit.Lock()
	defer rateLimit.Unlock()

	now := rateLimit.now()
	client, exist := rateLimit.clients[ip]
	if !exist || !now.Before(client.resetAt) {
		rateLimit.sweep(now)
		rateLimit.clients[ip] = &window{count: 1, resetAt: now.Add(rateLimit.window)}
		return true, 0
	}

	if client.count < rateLimit.limit {
		client.count++
		return true, 0
	}

	return false, client.resetAt.Sub(now)
}

// sweep drops expired windows. Callers hold the lock.
func (rateLimit *FixedWindowRateLimiter) sweep(now time.Time) {
	for ip, client := range rateLimit.clients {
		if !now.Before(client.resetAt) {
			delete(rateLimit.clients, ip)
		}
	}
}
