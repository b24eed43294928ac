package server

import (
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Progressive ban durations for clients that keep exceeding the limit.
var banDurations = []time.Duration{
	10 * time.Minute,
	1 * time.Hour,
	24 * time.Hour,
}

const permabanDuration = 100 * 365 * 24 * time.Hour

var errRateLimited = errors.New("rate limited")

// RateLimiter is a per-client sliding window limit on transaction
// submission. A client that goes over the limit is banned, for longer on
// each violation.
type RateLimiter struct {
	Window      time.Duration
	MaxRequests int
	Now         func() time.Time

	mu        sync.Mutex
	requests  map[string][]time.Time
	banned    map[string]time.Time
	banCounts map[string]int
}

func NewRateLimiter(window time.Duration, maxRequests int) *RateLimiter {
	return &RateLimiter{
		Window:      window,
		MaxRequests: maxRequests,
		Now:         time.Now,
		requests:    make(map[string][]time.Time),
		banned:      make(map[string]time.Time),
		banCounts:   make(map[string]int),
	}
}

// Allow records a request from client and reports whether it may proceed.
func (l *RateLimiter) Allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.Now()
	if until, ok := l.banned[client]; ok {
		if now.Before(until) {
			return false
		}
		delete(l.banned, client)
	}

	recent := l.requests[client][:0]
	for _, t := range l.requests[client] {
		if now.Sub(t) < l.Window {
			recent = append(recent, t)
		}
	}
	recent = append(recent, now)
	l.requests[client] = recent
	if len(recent) <= l.MaxRequests {
		return true
	}

	l.banCounts[client]++
	dur := permabanDuration
	if n := l.banCounts[client]; n <= len(banDurations) {
		dur = banDurations[n-1]
	}
	l.banned[client] = now.Add(dur)
	delete(l.requests, client)
	return false
}

// Banned reports whether client is currently banned.
func (l *RateLimiter) Banned(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	until, ok := l.banned[client]
	return ok && l.Now().Before(until)
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	if s.cfg.RateLimit == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientIP(r)
		if !s.cfg.RateLimit.Allow(client) {
			s.log.Warn("request rate limited", zap.String("client", client), zap.String("path", r.URL.Path))
			writeError(w, http.StatusTooManyRequests, errRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
