package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, opts ...Option) (*Client, *[]time.Duration) {
	t.Helper()
	c := NewClient(zap.NewNop(), opts...)
	delays := &[]time.Duration{}
	c.sleep = func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
	return c, delays
}

func TestDoRetriesUpToMaxAttempts(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	policy := RetryPolicy{
		MaxRetries:        3,
		InitialDelay:      time.Second,
		MaxDelay:          30 * time.Second,
		BackoffFactor:     2,
		RetryableStatuses: []int{503},
	}
	c, delays := newTestClient(t, WithRetryPolicy(policy))

	_, err := c.Do(context.Background(), srv.URL, nil)
	require.Error(t, err)
	assert.EqualValues(t, 3, atomic.LoadInt32(&attempts))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *delays)

	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, 503, reqErr.Status)
}

func TestDoIssuesOneAttemptWithZeroedPolicy(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, delays := newTestClient(t, WithRetryPolicy(RetryPolicy{}))

	_, err := c.Do(context.Background(), srv.URL, nil)
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&attempts))
	assert.Empty(t, *delays)

	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, http.StatusServiceUnavailable, reqErr.Status)
}

func TestDoSucceedsAfterTransientFailure(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c, delays := newTestClient(t)

	resp, err := c.Do(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.EqualValues(t, 3, atomic.LoadInt32(&attempts))
	assert.Len(t, *delays, 2)
}

func TestDoNonRetryableStatusFailsImmediately(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("bad token address"))
	}))
	defer srv.Close()

	c, delays := newTestClient(t)

	_, err := c.Do(context.Background(), srv.URL, nil)
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&attempts))
	assert.Empty(t, *delays)

	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, 400, reqErr.Status)
	assert.Equal(t, "bad token address", reqErr.Body)
}

func TestRetryPolicyDelayClampsAtMaxDelay(t *testing.T) {
	policy := RetryPolicy{
		InitialDelay:  time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2,
	}

	assert.Equal(t, time.Second, policy.Delay(1))
	assert.Equal(t, 2*time.Second, policy.Delay(2))
	assert.Equal(t, 16*time.Second, policy.Delay(5))
	assert.Equal(t, 30*time.Second, policy.Delay(6))
	assert.Equal(t, 30*time.Second, policy.Delay(20))
}

func TestJSONDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "value", r.URL.Query().Get("param"))
		_, _ = w.Write([]byte(`{"name":"wif","price":1.25}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t)

	type tokenPrice struct {
		Name  string  `json:"name"`
		Price float64 `json:"price"`
	}

	out, err := JSON[tokenPrice](context.Background(), c, srv.URL, &RequestOptions{
		Query: url.Values{"param": []string{"value"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "wif", out.Name)
	assert.Equal(t, 1.25, out.Price)
}

func TestJSONRPC(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"value":42}}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t)

	var out struct {
		Value int `json:"value"`
	}
	err := c.JSONRPC(context.Background(), srv.URL, "getBalance", []string{"addr"}, &out)
	require.NoError(t, err)
	assert.Equal(t, 42, out.Value)
}

func TestJSONRPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32600,"message":"invalid request"}}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t)

	err := c.JSONRPC(context.Background(), srv.URL, "getBalance", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid request")
}

func TestGraphQL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"holders":3}}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t)

	var out struct {
		Holders int `json:"holders"`
	}
	err := c.GraphQL(context.Background(), srv.URL, "{ holders }", nil, &out)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Holders)
}

func TestCacheKeySortsQuery(t *testing.T) {
	a := CacheKey("https://api.example.com/price", url.Values{"b": []string{"2"}, "a": []string{"1"}})
	b := CacheKey("https://api.example.com/price", url.Values{"a": []string{"1"}, "b": []string{"2"}})
	assert.Equal(t, a, b)
}
