package fetch

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

func fastClient(opts ...Option) *Client {
	base := []Option{
		WithBackoff(time.Millisecond),
		WithRate(10000),
		WithTimeout(time.Second),
	}
	return NewClient(append(base, opts...)...)
}

func TestGet(t *testing.T) {
	ctx := context.Background()

	t.Run("returns body on success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Contains(t, r.Header.Get("User-Agent"), "NewsLookout")
			w.Write([]byte("<html>ok</html>"))
		}))
		defer srv.Close()

		body, err := fastClient().Get(ctx, srv.URL)
		require.NoError(t, err)
		assert.Equal(t, "<html>ok</html>", string(body))
	})

	t.Run("retries transient server errors", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte("recovered"))
		}))
		defer srv.Close()

		body, err := fastClient(WithAttempts(3)).Get(ctx, srv.URL)
		require.NoError(t, err)
		assert.Equal(t, "recovered", string(body))
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("gives up after configured attempts", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := fastClient(WithAttempts(2)).Get(ctx, srv.URL)
		assert.Error(t, err)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		_, err := fastClient(WithAttempts(3)).Get(ctx, srv.URL)
		assert.Error(t, err)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("cancellation stops retries", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := fastClient().Get(cancelled, srv.URL)
		assert.Error(t, err)
	})
}
