package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// slidingWindow counts requests per client address over a rolling interval.
// State is in-process only, so a multi-instance deployment limits per
// instance; that is enough for the credential endpoints this guards.
type slidingWindow struct {
	mu     sync.Mutex
	seen   map[string][]time.Time
	limit  int
	window time.Duration
}

func newSlidingWindow(limit int, window time.Duration) *slidingWindow {
	return &slidingWindow{
		seen:   make(map[string][]time.Time),
		limit:  limit,
		window: window,
	}
}

func (w *slidingWindow) allow(ip string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-w.window)

	kept := w.seen[ip][:0]
	for _, at := range w.seen[ip] {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	if len(kept) >= w.limit {
		w.seen[ip] = kept
		return false
	}
	w.seen[ip] = append(kept, now)
	return true
}

// authLimiter throttles signup and login against credential stuffing. The
// chat endpoints stay unthrottled: every request there is already scoped by
// the JWT participant checks.
var authLimiter = newSlidingWindow(10, time.Minute)

func RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authLimiter.allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many attempts, try again later"})
			c.Abort()
			return
		}
		c.Next()
	}
}
