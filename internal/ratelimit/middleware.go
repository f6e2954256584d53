package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/noah-isme/kasir-bff/internal/common"
)

// Config derives the limit key and thresholds for one guarded route.
type Config struct {
	Key    func(*http.Request) string
	Window time.Duration
	Max    int
}

// LoginKey keys login attempts by client address. One shop terminal hammered
// by a script gets cut off without locking out the other registers.
func LoginKey(r *http.Request) string {
	return "login:" + common.ClientIP(r)
}

// Handler enforces the limit before delegating to the next handler.
type Handler struct {
	Limiter Limiter
	Config  Config
	OnError func(error)
}

// Middleware rejects over-limit requests with 429 and the usual rate limit
// headers. Limiter errors fail open.
func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Config.Key == nil {
			next.ServeHTTP(w, r)
			return
		}
		allowed, remaining, resetAt, err := h.Limiter.Allow(r.Context(), h.Config.Key(r), h.Config.Window, h.Config.Max)
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		limit := h.Config.Max
		if limit < 0 {
			limit = 0
		}
		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.Itoa(limit))
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			retryAfter := int(time.Until(resetAt).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			headers.Set("Retry-After", strconv.Itoa(retryAfter))
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many login attempts", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
