package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/hazelquimpo21/thecleverkit-sub001/internal/api/response"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/cache"
)

const (
	defaultRequestsPerMinute = 60
	rateWindow               = time.Minute
)

// RateLimit caps requests per user in minute-aligned windows. Counters live
// in the shared cache so every server instance sees the same totals.
type RateLimit struct {
	cache cache.Cache
	limit int
	now   func() time.Time
}

func NewRateLimit(c cache.Cache, requestsPerMin int) *RateLimit {
	if requestsPerMin <= 0 {
		requestsPerMin = defaultRequestsPerMinute
	}
	return &RateLimit{cache: c, limit: requestsPerMin, now: time.Now}
}

func (rl *RateLimit) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := GetSession(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		window := rl.now().UTC().Truncate(rateWindow)
		reset := window.Add(rateWindow)

		// The extra second keeps the counter alive past the window edge on skewed clocks.
		count, err := rl.cache.IncrWithExpiry(r.Context(),
			cache.RateLimitKey(session.UserID, window), rateWindow+time.Second)
		if err != nil {
			// fail open
			next.ServeHTTP(w, r)
			return
		}

		remaining := max(rl.limit-int(count), 0)
		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

		if count > int64(rl.limit) {
			retry := int(reset.Sub(rl.now()).Seconds()) + 1
			h.Set("Retry-After", strconv.Itoa(retry))
			response.Error(w, http.StatusTooManyRequests,
				"RATE_LIMIT_EXCEEDED", "Too many requests", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
