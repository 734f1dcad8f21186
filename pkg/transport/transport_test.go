package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastOptions(retries int) Options {
	opts := DefaultOptions()
	opts.Retries = retries
	opts.BackoffFactor = 0.001
	opts.Timeout = 2 * time.Second
	return opts
}

func TestClient_GetRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"instanceId":"i-0123456789abcdef0"}`))
	}))
	defer srv.Close()

	resp, err := New(fastOptions(5)).Get(context.Background(), srv.URL+"/latest/dynamic/instance-identity/document")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"instanceId":"i-0123456789abcdef0"}`, resp.Body)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_GetExhaustsRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusGatewayTimeout)
	}))
	defer srv.Close()

	_, err := New(fastOptions(2)).Get(context.Background(), srv.URL)
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrConnection)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_GetDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	resp, err := New(fastOptions(5)).Get(context.Background(), srv.URL+"/latest/user-data")
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_GetConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(fastOptions(1)).Get(context.Background(), url)
	require.Error(t, err)

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, url, connErr.URL)
	assert.ErrorIs(t, err, ErrConnection)
}

func TestBackoff(t *testing.T) {
	b := backoff(0.3, time.Second)

	assert.InDelta(t, float64(300*time.Millisecond), float64(b(0, 0, 0, nil)), float64(time.Microsecond))
	assert.InDelta(t, float64(600*time.Millisecond), float64(b(0, 0, 1, nil)), float64(time.Microsecond))
	assert.Equal(t, time.Second, b(0, 0, 2, nil))
}
