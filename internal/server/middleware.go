package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

const (
	rateLimitCleanupInterval = 5 * time.Minute
	rateLimitEntryTTL        = 10 * time.Minute
)

// requestLogger logs every request at debug level.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.WithField("method", r.Method).
			WithField("path", r.URL.Path).
			WithField("status", ww.Status()).
			WithField("remote", r.RemoteAddr).
			WithField("duration", time.Since(start)).
			Debug("Request handled")
	})
}

// clientLimits hands out one token bucket per client address and forgets
// clients that stay quiet for longer than idle.
type clientLimits struct {
	perMinute int
	idle      time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	*rate.Limiter
	seen time.Time
}

func newClientLimits(perMinute int, idle time.Duration) *clientLimits {
	return &clientLimits{
		perMinute: perMinute,
		idle:      idle,
		buckets:   map[string]*bucket{},
	}
}

// allow takes a token from the client's bucket, creating it on first use.
func (c *clientLimits) allow(client string, now time.Time) bool {
	c.mu.Lock()
	b, ok := c.buckets[client]
	if !ok {
		b = &bucket{Limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(c.perMinute)), c.perMinute)}
		c.buckets[client] = b
	}
	b.seen = now
	c.mu.Unlock()

	return b.AllowN(now, 1)
}

// forget drops buckets not used since now-idle and returns how many went.
func (c *clientLimits) forget(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for client, b := range c.buckets {
		if now.Sub(b.seen) > c.idle {
			delete(c.buckets, client)
			n++
		}
	}
	return n
}

// rateLimitMiddleware limits each client to requestsPerMinute. Idle buckets
// are swept until the server closes.
func (s *Server) rateLimitMiddleware(requestsPerMinute int) func(http.Handler) http.Handler {
	limits := newClientLimits(requestsPerMinute, rateLimitEntryTTL)

	go func() {
		ticker := time.NewTicker(rateLimitCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				return
			case now := <-ticker.C:
				if n := limits.forget(now); n > 0 {
					s.log.WithField("clients", n).Debug("Dropped idle rate limit buckets")
				}
			}
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limits.allow(clientAddr(r), time.Now()) {
				w.Header().Set("Retry-After", "60")
				writeJSON(w, http.StatusTooManyRequests, errorResponse{"rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientAddr identifies the caller by the first X-Forwarded-For hop when a
// proxy sets one, and by the connection's host otherwise.
func clientAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
