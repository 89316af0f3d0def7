package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter holds one token bucket per client address.
type IPRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	rps      rate.Limit
	burst    int
	idleTTL  time.Duration
	now      func() time.Time
	onDrop   func()
}

// NewIPRateLimiter creates a limiter allowing rps requests per second with
// the given burst per client. onDrop, if set, is called for every rejected
// request.
func NewIPRateLimiter(rps float64, burst int, onDrop func()) *IPRateLimiter {
	return &IPRateLimiter{
		limiters: make(map[string]*clientLimiter),
		rps:      rate.Limit(rps),
		burst:    burst,
		idleTTL:  10 * time.Minute,
		now:      time.Now,
		onDrop:   onDrop,
	}
}

// Allow reports whether a request from key may proceed.
func (i *IPRateLimiter) Allow(key string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	entry, ok := i.limiters[key]
	if !ok {
		entry = &clientLimiter{limiter: rate.NewLimiter(i.rps, i.burst)}
		i.limiters[key] = entry
	}
	entry.lastSeen = i.now()
	return entry.limiter.Allow()
}

// Run evicts idle clients until ctx is done.
func (i *IPRateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(i.idleTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			i.evictIdle()
		case <-ctx.Done():
			return
		}
	}
}

func (i *IPRateLimiter) evictIdle() {
	i.mu.Lock()
	defer i.mu.Unlock()

	cutoff := i.now().Add(-i.idleTTL)
	for key, entry := range i.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(i.limiters, key)
		}
	}
}

// RateLimit middleware limits requests per client address
func RateLimit(limiter *IPRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(clientIP(r)) {
				if limiter.onDrop != nil {
					limiter.onDrop()
				}
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
