package validator

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"github.com/srthknk/biomuseum/internal/httpclient"
)

var (
	pngData  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")
	jpegData = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00\xff\xd9")
)

// newMockClient returns a client without retries talking to a private mock transport.
func newMockClient(t *testing.T) (*httpclient.Client, *httpmock.MockTransport) {
	t.Helper()

	mt := httpmock.NewMockTransport()
	client := httpclient.New(&httpclient.Config{})
	client.HTTPClient().Transport = mt
	t.Cleanup(client.Close)
	return client, mt
}

// imageResponder serves data with the given Content-Type.
func imageResponder(contentType string, data []byte) httpmock.Responder {
	return func(*http.Request) (*http.Response, error) {
		resp := httpmock.NewBytesResponse(http.StatusOK, data)
		if contentType != "" {
			resp.Header.Set("Content-Type", contentType)
		}
		return resp, nil
	}
}

// fakeClassifier returns a canned answer and records what it was asked.
type fakeClassifier struct {
	answer string
	err    error

	mu      sync.Mutex
	images  []Image
	prompts []string
}

func (f *fakeClassifier) Backend() string { return "fake" }

func (f *fakeClassifier) Classify(_ context.Context, img Image, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images = append(f.images, img)
	f.prompts = append(f.prompts, prompt)
	return f.answer, f.err
}

func (f *fakeClassifier) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.images)
}

// countingValidator returns a fixed outcome and counts calls.
type countingValidator struct {
	outcome Outcome
	calls   atomic.Int32
	block   chan struct{}
}

func (c *countingValidator) Validate(context.Context, string, string, string) Outcome {
	c.calls.Add(1)
	if c.block != nil {
		<-c.block
	}
	return c.outcome
}

// memoryStore is an in-memory Store that can be made to fail.
type memoryStore struct {
	mu      sync.Mutex
	data    map[string]Outcome
	failGet bool
	failSet bool
	sets    int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string]Outcome)}
}

func (s *memoryStore) Get(_ context.Context, key string) (Outcome, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet {
		return Outcome{}, false, errStoreDown
	}
	out, ok := s.data[key]
	return out, ok, nil
}

func (s *memoryStore) Set(_ context.Context, key string, out Outcome, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets++
	if s.failSet {
		return errStoreDown
	}
	s.data[key] = out
	return nil
}

func (s *memoryStore) setCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets
}

var errStoreDown = errors.New("store down")

func (s *memoryStore) Close() error { return nil }

// gatedValidator blocks until released or until its context ends.
type gatedValidator struct {
	release   chan struct{}
	calls     atomic.Int32
	sawCancel atomic.Bool
}

func newGatedValidator() *gatedValidator {
	return &gatedValidator{release: make(chan struct{})}
}

func (g *gatedValidator) Validate(ctx context.Context, _, _, _ string) Outcome {
	g.calls.Add(1)
	select {
	case <-g.release:
		return accepted
	case <-ctx.Done():
		g.sawCancel.Store(true)
		return Outcome{Reason: ReasonDownloadFailed, Characteristics: []string{}, Transient: true}
	}
}

// receive waits for one outcome or fails the test.
func receive(t *testing.T, ch <-chan Outcome) Outcome {
	t.Helper()
	select {
	case out := <-ch:
		return out
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for validation outcome")
		return Outcome{}
	}
}
