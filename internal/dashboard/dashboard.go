package dashboard

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/kasir-bff/internal/upstream"
)

const cacheKey = "dashboard:summary"

// Handler serves the dashboard summary through a short-lived Redis cache.
// The summary aggregates every transaction of the day upstream, which is the
// most expensive read the BFF fronts; a 30 second cache keeps the landing
// page snappy without showing stale money figures for long.
type Handler struct {
	Upstream *upstream.Client
	R        *redis.Client
	TTL      time.Duration
	Logger   zerolog.Logger
}

func (h *Handler) ttl() time.Duration {
	if h.TTL <= 0 {
		return 30 * time.Second
	}
	return h.TTL
}

// Get relays the dashboard summary, preferring the cache. When the upstream
// is unreachable the last cached summary is served instead of a 502; a
// slightly old dashboard beats a dead one.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if body, ok := h.cached(ctx); ok {
		writeJSON(w, http.StatusOK, body)
		return
	}

	resp, err := h.Upstream.Do(ctx, http.MethodGet, "/dashboard", nil, nil)
	if err != nil {
		if body, ok := h.staleFallback(ctx); ok {
			writeJSON(w, http.StatusOK, body)
			return
		}
		upstream.WriteUnreachable(w)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		upstream.WriteUnreachable(w)
		return
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		h.store(ctx, body)
	}
	writeJSON(w, resp.StatusCode, body)
}

func (h *Handler) cached(ctx context.Context) ([]byte, bool) {
	if h.R == nil {
		return nil, false
	}
	body, err := h.R.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			h.Logger.Warn().Err(err).Msg("dashboard cache read")
		}
		return nil, false
	}
	return body, true
}

// staleFallback reads the stale copy kept alongside the cache entry with a
// longer expiry, used only when the upstream is down.
func (h *Handler) staleFallback(ctx context.Context) ([]byte, bool) {
	if h.R == nil {
		return nil, false
	}
	body, err := h.R.Get(ctx, cacheKey+":stale").Bytes()
	if err != nil {
		return nil, false
	}
	return body, true
}

func (h *Handler) store(ctx context.Context, body []byte) {
	if h.R == nil {
		return
	}
	if err := h.R.Set(ctx, cacheKey, body, h.ttl()).Err(); err != nil {
		h.Logger.Warn().Err(err).Msg("dashboard cache write")
	}
	if err := h.R.Set(ctx, cacheKey+":stale", body, time.Hour).Err(); err != nil {
		h.Logger.Warn().Err(err).Msg("dashboard stale cache write")
	}
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
