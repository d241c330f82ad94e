// Package ratelimit applies a per-IP token bucket to the public
// download surface, grounded on the teacher's
// internal/network/bandwidth.go use of golang.org/x/time/rate for
// traffic shaping — generalized here from one global limiter to one
// limiter per client address.
package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/apestel/hardwire/internal/hwerr"
	"golang.org/x/time/rate"
)

// entry pairs a limiter with the last time it was touched, so idle
// entries can be evicted and the map does not grow unbounded.
type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter hands out one token-bucket limiter per client IP.
type Limiter struct {
	mu           sync.Mutex
	entries      map[string]*entry
	ratePerMin   int
	evictAfter   time.Duration
	lastEviction time.Time
}

// New constructs a Limiter allowing ratePerMinute requests/min/IP,
// with burst equal to the per-minute rate (one minute of headroom).
func New(ratePerMinute int) *Limiter {
	return &Limiter{
		entries:    make(map[string]*entry),
		ratePerMin: ratePerMinute,
		evictAfter: 10 * time.Minute,
	}
}

func (l *Limiter) limiterFor(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastEviction) > l.evictAfter {
		for key, e := range l.entries {
			if now.Sub(e.lastSeen) > l.evictAfter {
				delete(l.entries, key)
			}
		}
		l.lastEviction = now
	}

	e, ok := l.entries[ip]
	if !ok {
		perSecond := rate.Limit(float64(l.ratePerMin) / 60.0)
		e = &entry{limiter: rate.NewLimiter(perSecond, l.ratePerMin)}
		l.entries[ip] = e
	}
	e.lastSeen = now
	return e.limiter
}

// Allow reports whether ip may proceed under its current bucket.
func (l *Limiter) Allow(ip string) bool {
	return l.limiterFor(ip).Allow()
}

// Middleware enforces the limiter keyed by RemoteAddr (with
// X-Forwarded-For honored, matching the download handler's IP
// extraction), rejecting with 429 on exhaustion.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !l.Allow(ip) {
			hwerr.WriteJSON(w, hwerr.New(hwerr.KindRateLimited, "too many requests"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host := r.RemoteAddr
	for i := len(host) - 1; i >= 0; i-- {
		if host[i] == ':' {
			return host[:i]
		}
	}
	return host
}
