package common

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestIdem(t *testing.T) Idem {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return Idem{R: client, TTL: time.Minute}
}

func keyedRequest(key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/transactions", nil)
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req
}

func TestIdemSecondAttemptAfterSuccessIsReplay(t *testing.T) {
	idem := newTestIdem(t)
	calls := 0
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		JSONData(w, http.StatusCreated, map[string]any{"id": 42})
	}))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, keyedRequest("sale-1"))
	require.Equal(t, http.StatusCreated, first.Code)

	second := httptest.NewRecorder()
	h.ServeHTTP(second, keyedRequest("sale-1"))
	require.Equal(t, http.StatusConflict, second.Code)
	require.Contains(t, second.Body.String(), "IDEMPOTENT_REPLAY")
	require.Equal(t, 1, calls)
}

func TestIdemFailedAttemptReleasesKey(t *testing.T) {
	idem := newTestIdem(t)
	calls := 0
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			JSONError(w, http.StatusBadGateway, "UPSTREAM_UNREACHABLE", "API server unreachable", nil)
			return
		}
		JSONData(w, http.StatusOK, map[string]any{"id": 7})
	}))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, keyedRequest("sale-2"))
	require.Equal(t, http.StatusBadGateway, first.Code)

	retry := httptest.NewRecorder()
	h.ServeHTTP(retry, keyedRequest("sale-2"))
	require.Equal(t, http.StatusOK, retry.Code)
	require.Equal(t, 2, calls)
}

func TestIdemUpstreamRejectionReleasesKey(t *testing.T) {
	idem := newTestIdem(t)
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "stock exhausted", nil)
	}))

	for attempt := 0; attempt < 2; attempt++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, keyedRequest("sale-3"))
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	}
}

func TestIdemNoHeaderPassesThrough(t *testing.T) {
	idem := newTestIdem(t)
	calls := 0
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	for attempt := 0; attempt < 2; attempt++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, keyedRequest(""))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	require.Equal(t, 2, calls)
}

func TestIdemDistinctKeysDoNotCollide(t *testing.T) {
	idem := newTestIdem(t)
	calls := 0
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		JSONData(w, http.StatusOK, nil)
	}))

	for _, key := range []string{"sale-a", "sale-b"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, keyedRequest(key))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	require.Equal(t, 2, calls)
}
