package middleware

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// clientLimiters hands out one token bucket per client IP.
type clientLimiters struct {
	mu      sync.RWMutex
	buckets map[string]*rate.Limiter
	perIP   rate.Limit
	burst   int
	maxIdle int
}

func newClientLimiters(rps float64, burst int) *clientLimiters {
	return &clientLimiters{
		buckets: make(map[string]*rate.Limiter),
		perIP:   rate.Limit(rps),
		burst:   burst,
		maxIdle: 10000,
	}
}

func (cl *clientLimiters) get(ip string) *rate.Limiter {
	cl.mu.RLock()
	bucket, ok := cl.buckets[ip]
	cl.mu.RUnlock()
	if ok {
		return bucket
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()
	if bucket, ok = cl.buckets[ip]; ok {
		return bucket
	}
	bucket = rate.NewLimiter(cl.perIP, cl.burst)
	cl.buckets[ip] = bucket
	return bucket
}

// prune drops the whole bucket map once it grows past maxIdle entries.
// Clients simply start from a full bucket again.
func (cl *clientLimiters) prune() {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if len(cl.buckets) > cl.maxIdle {
		cl.buckets = make(map[string]*rate.Limiter)
	}
}

// RateLimit returns middleware enforcing a per-IP request budget. Rejected
// requests get a 429 with a Retry-After hint.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	limiters := newClientLimiters(rps, burst)

	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			limiters.prune()
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// RealIP middleware runs earlier, so X-Real-IP is trustworthy here.
			ip := r.Header.Get("X-Real-IP")
			if ip == "" {
				ip = r.RemoteAddr
			}

			if !limiters.get(ip).Allow() {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
