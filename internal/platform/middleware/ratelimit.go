package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Limiter is a sliding-window rate limiter keyed by client IP. Timestamps
// inside the window are counted, so there is no boundary burst at window
// edges. State is in-process; each replica enforces its own budget.
type Limiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	buckets map[string]*slidingWindow
}

type slidingWindow struct {
	timestamps []time.Time
}

// NewLimiter builds a limiter allowing limit requests per window per client.
func NewLimiter(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*slidingWindow),
	}
}

// Allow records a request for key and reports whether it fits the window,
// along with the remaining budget and the time the oldest slot frees up.
func (l *Limiter) Allow(key string, now time.Time) (allowed bool, remaining int, resetAt time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	sw := l.buckets[key]
	if sw == nil {
		sw = &slidingWindow{}
		l.buckets[key] = sw
	}
	sw.cleanup(now.Add(-l.window))

	if len(sw.timestamps) >= l.limit {
		return false, 0, sw.timestamps[0].Add(l.window)
	}

	sw.timestamps = append(sw.timestamps, now)
	return true, l.limit - len(sw.timestamps), sw.timestamps[0].Add(l.window)
}

func (sw *slidingWindow) cleanup(cutoff time.Time) {
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if sw.timestamps[i].After(cutoff) {
			break
		}
	}
	sw.timestamps = sw.timestamps[i:]
}

// RateLimit rejects requests over the per-client budget with 429 and the
// usual X-RateLimit headers. A nil limiter disables the check.
func RateLimit(limiter *Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			now := time.Now()
			allowed, remaining, resetAt := limiter.Allow(clientIP(r), now)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
			if !allowed {
				logger.WarnContext(r.Context(), "rate limit exceeded",
					"path", r.URL.Path,
					"request_id", GetRequestID(r.Context()),
				)
				retryAfter := int(resetAt.Sub(now).Seconds()) + 1
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate_limited"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
