package upstream_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kaglioster-hub/vrabo/infrastructure/circuitbreaker"
	"github.com/Kaglioster-hub/vrabo/infrastructure/logger"
	"github.com/Kaglioster-hub/vrabo/infrastructure/retry"
	"github.com/Kaglioster-hub/vrabo/internal/upstream"
)

func newClient(breakerFailures int) *upstream.Client {
	return upstream.New(http.DefaultClient, upstream.Config{
		Retry:          retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 2},
		AttemptTimeout: 200 * time.Millisecond,
		Breaker:        circuitbreaker.Config{FailureThreshold: breakerFailures, Timeout: time.Minute},
	}, logger.NewNop())
}

func TestGetJSON_SucceedsAfterTransient5xx(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)

	var out struct{ OK bool }
	err := newClient(5).GetJSON(context.Background(), "test", srv.URL, &out)

	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetJSON_GivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	err := newClient(5).GetJSON(context.Background(), "test", srv.URL, &struct{}{})

	var uErr *upstream.Error
	require.ErrorAs(t, err, &uErr)
	assert.Equal(t, upstream.KindUpstream5xx, uErr.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, uErr.Status)
	assert.ErrorIs(t, err, retry.ErrMaxAttemptsExceeded)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetJSON_ClientErrorIsNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	err := newClient(5).GetJSON(context.Background(), "test", srv.URL, &struct{}{})

	var uErr *upstream.Error
	require.ErrorAs(t, err, &uErr)
	assert.Equal(t, upstream.KindHTTPStatus, uErr.Kind)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetJSON_RateLimitedIsRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	err := newClient(5).GetJSON(context.Background(), "test", srv.URL, &struct{}{})

	var uErr *upstream.Error
	require.ErrorAs(t, err, &uErr)
	assert.Equal(t, upstream.KindRateLimit, uErr.Kind)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetJSON_DecodeError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	t.Cleanup(srv.Close)

	err := newClient(5).GetJSON(context.Background(), "test", srv.URL, &struct{}{})

	var uErr *upstream.Error
	require.ErrorAs(t, err, &uErr)
	assert.Equal(t, upstream.KindDecode, uErr.Kind)
}

func TestGetJSON_AttemptTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	c := upstream.New(http.DefaultClient, upstream.Config{
		Retry:          retry.Config{MaxAttempts: 1},
		AttemptTimeout: 20 * time.Millisecond,
	}, logger.NewNop())

	err := c.GetJSON(context.Background(), "slow", srv.URL, &struct{}{})

	var uErr *upstream.Error
	require.ErrorAs(t, err, &uErr)
	assert.Equal(t, upstream.KindTimeout, uErr.Kind)
}

func TestGetJSON_OpenBreakerShortCircuits(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	c := newClient(1)
	_ = c.GetJSON(context.Background(), "flaky", srv.URL, &struct{}{})
	require.Equal(t, circuitbreaker.StateOpen, c.BreakerState("flaky"))
	before := calls.Load()

	err := c.GetJSON(context.Background(), "flaky", srv.URL, &struct{}{})

	var uErr *upstream.Error
	require.ErrorAs(t, err, &uErr)
	assert.Equal(t, upstream.KindCircuitOpen, uErr.Kind)
	assert.Equal(t, before, calls.Load())
	assert.Equal(t, circuitbreaker.StateClosed, c.BreakerState("other"), "breakers are per upstream")
}

func TestError_RetryableKinds(t *testing.T) {
	t.Parallel()

	assert.True(t, (&upstream.Error{Kind: upstream.KindTimeout}).Retryable())
	assert.False(t, (&upstream.Error{Kind: upstream.KindDecode}).Retryable())
	assert.Contains(t, (&upstream.Error{Kind: upstream.KindHTTPStatus, Upstream: "x", Status: 404, Err: errors.New("HTTP 404")}).Error(), "status 404")
}
