package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllowRespectsPerIPBudget(t *testing.T) {
	l := New(2)

	require.True(t, l.Allow("1.2.3.4"))
	require.True(t, l.Allow("1.2.3.4"))
	require.False(t, l.Allow("1.2.3.4"))
}

func TestAllowIsolatesByIP(t *testing.T) {
	l := New(1)

	require.True(t, l.Allow("1.2.3.4"))
	require.True(t, l.Allow("5.6.7.8"))
}

func TestMiddlewareReturns429OnExhaustion(t *testing.T) {
	l := New(1)
	handler := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	srv := httptest.NewServer(handler)
	defer srv.Close()

	resp1, err := http.Get(srv.URL)
	require.NoError(t, err)
	resp1.Body.Close()
	require.Equal(t, http.StatusOK, resp1.StatusCode)

	resp2, err := http.Get(srv.URL)
	require.NoError(t, err)
	resp2.Body.Close()
	require.Equal(t, http.StatusTooManyRequests, resp2.StatusCode)
}
