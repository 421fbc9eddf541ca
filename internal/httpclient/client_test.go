package httpclient

import (
	"context"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srthknk/biomuseum/internal/errors"
)

func TestNew(t *testing.T) {
	t.Run("nil config uses production defaults", func(t *testing.T) {
		client := New(nil)
		t.Cleanup(client.Close)

		assert.Equal(t, DefaultTimeout, client.defaultTimeout)
		assert.Equal(t, defaultUserAgent, client.userAgent)
		assert.NotNil(t, client.executor, "default config retries")
		assert.NotNil(t, client.breaker, "default config has a breaker")
	})

	t.Run("zero values use defaults without policies", func(t *testing.T) {
		client := newTestClientWithConfig(t, &Config{})

		assert.Equal(t, DefaultTimeout, client.defaultTimeout)
		assert.Equal(t, defaultUserAgent, client.userAgent)
		assert.Nil(t, client.executor)
		assert.False(t, client.BreakerOpen())
	})
}

func TestDo_UserAgent(t *testing.T) {
	tests := []struct {
		name      string
		clientUA  string
		requestUA string
		want      string
	}{
		{name: "client agent injected", clientUA: "BioMuseum-Test/2.0", want: "BioMuseum-Test/2.0"},
		{name: "request agent kept", clientUA: "BioMuseum-Test/2.0", requestUA: "Caller/1.0", want: "Caller/1.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var received string
			server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				received = r.Header.Get("User-Agent")
			})
			client := newTestClientWithConfig(t, &Config{UserAgent: tt.clientUA})

			req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, server.URL, http.NoBody)
			require.NoError(t, err)
			if tt.requestUA != "" {
				req.Header.Set("User-Agent", tt.requestUA)
			}

			resp, err := client.Do(t.Context(), req)
			require.NoError(t, err)
			closeResponseBody(t, resp)

			assert.Equal(t, tt.want, received)
		})
	}
}

func TestDo_Timeouts(t *testing.T) {
	tests := []struct {
		name           string
		serverDelay    time.Duration
		defaultTimeout time.Duration
		ctxTimeout     time.Duration
		wantErr        error
	}{
		{name: "context deadline", serverDelay: 500 * time.Millisecond, ctxTimeout: 50 * time.Millisecond, wantErr: context.DeadlineExceeded},
		{name: "default timeout without deadline", serverDelay: 200 * time.Millisecond, defaultTimeout: 50 * time.Millisecond, wantErr: context.DeadlineExceeded},
		{name: "context deadline overrides default", serverDelay: 20 * time.Millisecond, defaultTimeout: 10 * time.Millisecond, ctxTimeout: 500 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-time.After(tt.serverDelay):
				case <-r.Context().Done():
				}
			})
			client := newTestClientWithConfig(t, &Config{DefaultTimeout: tt.defaultTimeout})

			ctx := t.Context()
			if tt.ctxTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, tt.ctxTimeout)
				defer cancel()
			}

			resp, err := client.Get(ctx, server.URL)
			defer closeResponseBody(t, resp)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
		})
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	var attempts atomic.Int32
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
	})
	client := newTestClient(t)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	resp, err := client.Get(ctx, server.URL)
	defer closeResponseBody(t, resp)

	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, attempts.Load(), "cancelled requests are not retried")
}

func TestDo_RetriesReplayBody(t *testing.T) {
	var attempts atomic.Int32
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"organism":"Panthera tigris"}`, string(body), "body must be replayed on every attempt")
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"confidence":90}`))
	})

	client := newTestClientWithConfig(t, &Config{
		Retry: &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
	})

	req, err := NewPostRequest(t.Context(), server.URL, "", map[string]string{"organism": "Panthera tigris"})
	require.NoError(t, err)

	resp, err := client.Do(t.Context(), req)
	require.NoError(t, err, "expected success after retries")
	defer closeResponseBody(t, resp)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"confidence":90}`, string(body))
	assert.Equal(t, int32(3), attempts.Load(), "expected 1 attempt plus 2 retries")
}

func TestDo_RetryOutcomes(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		cfg          Config
		wantErr      bool
		wantAttempts int32
	}{
		{
			name:         "rate limited until exhausted",
			status:       http.StatusTooManyRequests,
			cfg:          Config{Retry: &RetryConfig{MaxRetries: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}},
			wantErr:      true,
			wantAttempts: 2,
		},
		{
			name:         "not found is final",
			status:       http.StatusNotFound,
			cfg:          Config{Retry: &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}},
			wantAttempts: 1,
		},
		{
			name:         "server error passes through without policy",
			status:       http.StatusBadGateway,
			cfg:          Config{},
			wantAttempts: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts atomic.Int32
			server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				attempts.Add(1)
				w.WriteHeader(tt.status)
			})
			client := newTestClientWithConfig(t, &tt.cfg)

			resp, err := client.Get(t.Context(), server.URL)
			defer closeResponseBody(t, resp)

			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, resp)
				assert.True(t, errors.IsCategory(err, errors.CategoryRetry))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.status, resp.StatusCode)
			}
			assert.Equal(t, tt.wantAttempts, attempts.Load())
		})
	}
}

func TestDo_CircuitBreakerOpens(t *testing.T) {
	var attempts atomic.Int32
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	client := newTestClientWithConfig(t, &Config{
		CircuitBreaker: &BreakerConfig{FailureThreshold: 2, Window: 2, Delay: time.Minute},
	})

	for range 2 {
		resp, err := client.Get(t.Context(), server.URL)
		closeResponseBody(t, resp)
		require.Error(t, err, "5xx surfaces as an error once the breaker records it")
	}

	assert.True(t, client.BreakerOpen(), "expected breaker to be open")

	resp, err := client.Get(t.Context(), server.URL)
	defer closeResponseBody(t, resp)

	require.Error(t, err)
	assert.True(t, IsCircuitOpen(err), "expected circuit open error, got %v", err)
	assert.Equal(t, int32(2), attempts.Load(), "open breaker must not reach the server")
}

func TestDo_BodyReadableAfterDefaultTimeoutArmed(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		time.Sleep(30 * time.Millisecond)
		_, _ = w.Write([]byte("late body"))
	})

	client := newTestClientWithConfig(t, &Config{DefaultTimeout: time.Second})

	resp, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	defer closeResponseBody(t, resp)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "body read must not be cut off by the request timeout")
	assert.Equal(t, "late body", string(body))
}

func TestNewPostRequest(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        any
		wantCT      string
		wantBody    string
	}{
		{name: "nil body", wantBody: ""},
		{name: "string body keeps content type", contentType: "text/plain", body: "hello", wantCT: "text/plain", wantBody: "hello"},
		{name: "bytes body", body: []byte("raw"), wantBody: "raw"},
		{name: "struct marshaled as json", body: struct {
			Name string `json:"name"`
		}{"tiger"}, wantCT: "application/json", wantBody: `{"name":"tiger"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := NewPostRequest(t.Context(), "http://example.test/classify", tt.contentType, tt.body)
			require.NoError(t, err)

			assert.Equal(t, http.MethodPost, req.Method)
			assert.Equal(t, tt.wantCT, req.Header.Get("Content-Type"))

			body, err := io.ReadAll(req.Body)
			require.NoError(t, err)
			assert.Equal(t, tt.wantBody, string(body))
		})
	}
}

func TestDo_NilRequest(t *testing.T) {
	client := newTestClient(t)

	resp, err := client.Do(t.Context(), nil)
	require.Error(t, err)
	assert.Nil(t, resp)
}
