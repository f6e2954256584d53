package dashboard

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kasir-bff/internal/upstream"
)

func newTestHandler(t *testing.T, upstreamURL string) (*Handler, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	up := upstream.New(upstreamURL, time.Second)
	up.HTTP.MaxAttempts = 1
	return &Handler{Upstream: up, R: client, TTL: 30 * time.Second}, mr
}

func TestGetCachesUpstreamResponse(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"data":{"total_income":125000}}`))
	}))
	defer srv.Close()

	h, _ := newTestHandler(t, srv.URL)

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.Get(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "125000")
	}
	require.Equal(t, int32(1), calls.Load())
}

func TestGetRefetchesAfterExpiry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	h, mr := newTestHandler(t, srv.URL)

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	require.Equal(t, int32(1), calls.Load())

	mr.FastForward(time.Minute)

	rec = httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	require.Equal(t, int32(2), calls.Load())
}

func TestGetServesStaleWhenUpstreamDown(t *testing.T) {
	h, mr := newTestHandler(t, "http://127.0.0.1:1")
	require.NoError(t, mr.Set("dashboard:summary:stale", `{"data":{"total_income":99}}`))

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"total_income":99`)
}

func TestGetUnreachableWithoutCache(t *testing.T) {
	h, _ := newTestHandler(t, "http://127.0.0.1:1")

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Contains(t, rec.Body.String(), "API server unreachable")
}

func TestGetDoesNotCacheUpstreamErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":"FORBIDDEN","message":"admin only"}}`))
	}))
	defer srv.Close()

	h, _ := newTestHandler(t, srv.URL)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.Get(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
		require.Equal(t, http.StatusForbidden, rec.Code)
	}
	require.Equal(t, int32(2), calls.Load())
}
