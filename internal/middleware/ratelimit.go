package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/juju/clock"
	"golang.org/x/time/rate"

	"github.com/sakif/duotrak/internal/auth"
)

// idleLimiterTTL is how long an unused per-key limiter is kept.
const idleLimiterTTL = 10 * time.Minute

// RateLimiter hands every caller its own token bucket. Callers are keyed by
// authenticated subject, or by client IP for anonymous requests.
type RateLimiter struct {
	limit rate.Limit
	burst int
	clock clock.Clock

	mu        sync.Mutex
	limiters  map[string]*keyedLimiter
	lastSweep time.Time
}

type keyedLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows perMinute requests per caller per minute, with
// bursts of up to perMinute. A nil clock means the wall clock.
func NewRateLimiter(perMinute int, clk clock.Clock) *RateLimiter {
	if clk == nil {
		clk = clock.WallClock
	}
	return &RateLimiter{
		limit:    rate.Limit(float64(perMinute) / time.Minute.Seconds()),
		burst:    perMinute,
		clock:    clk,
		limiters: make(map[string]*keyedLimiter),
	}
}

// Allow reports whether key may make a request now.
func (l *RateLimiter) Allow(key string) bool {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > idleLimiterTTL {
		for k, kl := range l.limiters {
			if now.Sub(kl.lastSeen) > idleLimiterTTL {
				delete(l.limiters, k)
			}
		}
		l.lastSweep = now
	}

	kl, ok := l.limiters[key]
	if !ok {
		kl = &keyedLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = kl
	}
	kl.lastSeen = now
	return kl.limiter.AllowN(now, 1)
}

// Middleware rejects callers over their budget with 429.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(callerKey(r)) {
			retryAfter := time.Duration(float64(time.Second) / float64(l.limit))
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds()+0.5)))
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate_limited","message":"too many requests, slow down"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func callerKey(r *http.Request) string {
	if id, ok := auth.IdentityFromContext(r.Context()); ok {
		return "sub:" + id.Subject
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
