package imageprovider

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/jarcoal/httpmock"

	"github.com/srthknk/biomuseum/internal/httpclient"
	"github.com/srthknk/biomuseum/internal/logger"
)

// newMockOptions returns provider options whose client talks to a private
// mock transport, so tests can run in parallel.
func newMockOptions(t *testing.T, apiKey string) (*Options, *httpmock.MockTransport) {
	t.Helper()

	mt := httpmock.NewMockTransport()
	client := httpclient.New(&httpclient.Config{})
	client.HTTPClient().Transport = mt
	t.Cleanup(client.Close)

	return &Options{
		Client: client,
		APIKey: apiKey,
		Logger: logger.Discard(),
	}, mt
}

// requestRecorder captures requests passed to a responder.
type requestRecorder struct {
	mu       sync.Mutex
	requests []*http.Request
}

func (r *requestRecorder) responder(status int, body string) httpmock.Responder {
	return func(req *http.Request) (*http.Response, error) {
		r.mu.Lock()
		r.requests = append(r.requests, req)
		r.mu.Unlock()
		return httpmock.NewStringResponse(status, body), nil
	}
}

func (r *requestRecorder) all() []*http.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*http.Request(nil), r.requests...)
}

// stubProvider returns canned URLs and counts calls.
type stubProvider struct {
	name  Source
	urls  []string
	mu    sync.Mutex
	calls int
}

func (s *stubProvider) Name() Source { return s.name }

func (s *stubProvider) Fetch(_ context.Context, _ Query, maxResults int) []string {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if maxResults < len(s.urls) {
		return append([]string(nil), s.urls[:maxResults]...)
	}
	return append([]string(nil), s.urls...)
}

func (s *stubProvider) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
