package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newCounted(t *testing.T, h Handler) http.Handler {
	t.Helper()
	return h.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestHandlerMiddlewareEnforcesLimit(t *testing.T) {
	store, err := NewStore(nil, "")
	require.NoError(t, err)
	lim, err := New("1-M", store)
	require.NoError(t, err)

	counted := newCounted(t, Handler{Limiter: lim, Key: func(*http.Request) string { return "static" }})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/quotations/preview", nil)
	rr1 := httptest.NewRecorder()
	counted.ServeHTTP(rr1, req.Clone(req.Context()))
	require.Equal(t, http.StatusOK, rr1.Code)
	require.Equal(t, "0", rr1.Header().Get("X-RateLimit-Remaining"))

	rr2 := httptest.NewRecorder()
	counted.ServeHTTP(rr2, req.Clone(req.Context()))
	require.Equal(t, http.StatusTooManyRequests, rr2.Code)
	require.Equal(t, "1", rr2.Header().Get("X-RateLimit-Limit"))
	require.NotEmpty(t, rr2.Header().Get("Retry-After"))
	require.True(t, strings.Contains(rr2.Body.String(), "RATE_LIMITED"))
}

func TestHandlerMiddlewareKeysByClientIP(t *testing.T) {
	store, err := NewStore(nil, "test")
	require.NoError(t, err)
	lim, err := New("1-H", store)
	require.NoError(t, err)
	counted := newCounted(t, Handler{Limiter: lim})

	for _, ip := range []string{"198.51.100.1", "198.51.100.2"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/quotations", nil)
		req.Header.Set("X-Forwarded-For", ip)
		rr := httptest.NewRecorder()
		counted.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code, ip)
	}
}

func TestRedisStoreSharesCounters(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store, err := NewStore(client, "")
	require.NoError(t, err)
	lim, err := New("2-M", store)
	require.NoError(t, err)
	counted := newCounted(t, Handler{Limiter: lim, Key: func(*http.Request) string { return "shared" }})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		counted.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/quotations", nil))
		codes = append(codes, rr.Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestHandlerMiddlewareOnError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	store, err := NewStore(client, "")
	require.NoError(t, err)
	lim, err := New("5-M", store)
	require.NoError(t, err)
	mr.Close()

	called := false
	counted := newCounted(t, Handler{
		Limiter: lim,
		Key:     func(*http.Request) string { return "err" },
		OnError: func(error) { called = true },
	})

	rr := httptest.NewRecorder()
	counted.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/quotations", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, called)
}

func TestNewRejectsMalformedRate(t *testing.T) {
	store, err := NewStore(nil, "")
	require.NoError(t, err)
	_, err = New("lots", store)
	require.Error(t, err)
}
