package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srthknk/biomuseum/internal/buildinfo"
	"github.com/srthknk/biomuseum/internal/conf"
	"github.com/srthknk/biomuseum/internal/errors"
	"github.com/srthknk/biomuseum/internal/imageprovider"
	"github.com/srthknk/biomuseum/internal/logger"
	"github.com/srthknk/biomuseum/internal/observability"
	"github.com/srthknk/biomuseum/internal/pipeline"
	"github.com/srthknk/biomuseum/internal/validator"
)

// fakeSearcher records requests and replies with a canned response.
type fakeSearcher struct {
	resp pipeline.Response
	err  error

	mu       sync.Mutex
	requests []pipeline.Request
}

func (f *fakeSearcher) Search(_ context.Context, req pipeline.Request) (pipeline.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.resp, f.err
}

func newTestServer(t *testing.T, searcher Searcher, opts ...ServerOption) *Server {
	t.Helper()
	opts = append([]ServerOption{WithLogger(logger.Discard())}, opts...)
	s, err := New(DefaultConfig(), searcher, opts...)
	require.NoError(t, err)
	return s
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeSearcher{}, WithBuildInfo(&buildinfo.Context{Version: "1.2.3", BuildDate: "2026-10-01"}))
	rec := doRequest(s, http.MethodGet, HealthPath, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "1.2.3", body["version"])
	assert.Equal(t, "2026-10-01", body["build_date"])

	ts, ok := body["timestamp"].(string)
	require.True(t, ok)
	_, err := time.Parse(time.RFC3339, ts)
	assert.NoError(t, err)

	resources, ok := body["resources"].(map[string]any)
	require.True(t, ok, "health reports resource usage")
	assert.Greater(t, resources["goroutines"], float64(0))
	assert.Contains(t, resources, "process_resident_mb")
}

func TestVerifiedImages(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{resp: pipeline.Response{
		Success:        true,
		TotalRequested: 1,
		ImagesFound:    1,
		Images: []pipeline.ImageResult{{
			URL: "https://u/1.jpg", Source: imageprovider.SourceUnsplash, Confidence: 91,
			ValidationReason: "orange coat with stripes", Characteristics: []string{"stripes"},
		}},
		SourcesUsed: []imageprovider.Source{imageprovider.SourceUnsplash},
		Message:     "Found 1 validated images from unsplash",
	}}
	s := newTestServer(t, searcher)

	for _, path := range []string{VerifiedImagesPath, AdminVerifiedImagesPath} {
		rec := doRequest(s, http.MethodPost, path,
			`{"organism_name":"Bengal Tiger","scientific_name":"Panthera tigris tigris","count":1}`)
		require.Equal(t, http.StatusOK, rec.Code, path)

		var resp pipeline.Response
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, searcher.resp, resp)
	}

	require.Len(t, searcher.requests, 2)
	assert.Equal(t, pipeline.Request{OrganismName: "Bengal Tiger", ScientificName: "Panthera tigris tigris", Count: 1}, searcher.requests[0])
}

func TestVerifiedImages_Errors(t *testing.T) {
	t.Parallel()

	invalid := errors.New(pipeline.ErrInvalidQuery).Category(errors.CategoryValidation).Build()

	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
	}{
		{"malformed json", `{"organism_name":`, nil, http.StatusBadRequest},
		{"invalid query", `{"organism_name":"  "}`, invalid, http.StatusBadRequest},
		{"unexpected failure", `{"organism_name":"Tiger"}`, errors.NewStd("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := newTestServer(t, &fakeSearcher{err: tt.err})
			rec := doRequest(s, http.MethodPost, VerifiedImagesPath, tt.body)
			require.Equal(t, tt.wantCode, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.NotEmpty(t, resp.Error)
			assert.Len(t, resp.CorrelationID, 8)
		})
	}
}

func TestVerifiedImages_BodyLimit(t *testing.T) {
	t.Parallel()

	config := DefaultConfig()
	config.BodyLimit = "1K"
	s, err := New(config, &fakeSearcher{}, WithLogger(logger.Discard()))
	require.NoError(t, err)

	body := `{"organism_name":"` + strings.Repeat("a", 2048) + `"}`
	rec := doRequest(s, http.MethodPost, VerifiedImagesPath, body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	m, err := observability.NewMetrics()
	require.NoError(t, err)
	s := newTestServer(t, &fakeSearcher{resp: pipeline.Response{Success: true}}, WithMetrics(m))

	rec := doRequest(s, http.MethodPost, VerifiedImagesPath, `{"organism_name":"Tiger"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(s, http.MethodPost, VerifiedImagesPath, `{"organism_name":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(s, http.MethodGet, DefaultMetricsPath, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")

	count, err := testutil.GatherAndCount(m.Registry(), "http_request_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMetricsEndpoint_Disabled(t *testing.T) {
	t.Parallel()

	config := DefaultConfig()
	config.MetricsEnabled = false
	m, err := observability.NewMetrics()
	require.NoError(t, err)

	s, err := New(config, &fakeSearcher{}, WithLogger(logger.Discard()), WithMetrics(m))
	require.NoError(t, err)
	rec := doRequest(s, http.MethodGet, DefaultMetricsPath, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()

	config := DefaultConfig()
	config.Listen = "8080"
	_, err := New(config, &fakeSearcher{})
	require.Error(t, err)

	_, err = New(DefaultConfig(), nil)
	require.Error(t, err)
}

func TestConfigFromSettings(t *testing.T) {
	t.Parallel()

	config := ConfigFromSettings(&conf.Settings{
		Server: conf.ServerSettings{
			Listen:       "0.0.0.0:9000",
			BodyLimit:    "16K",
			WriteTimeout: time.Minute,
		},
		Metrics: conf.MetricsSettings{Enabled: true, Path: "/prom"},
	})

	assert.Equal(t, "0.0.0.0:9000", config.Listen)
	assert.Equal(t, "16K", config.BodyLimit)
	assert.Equal(t, time.Minute, config.WriteTimeout)
	assert.Equal(t, DefaultReadTimeout, config.ReadTimeout)
	assert.Equal(t, []string{"*"}, config.AllowedOrigins)
	assert.Equal(t, "/prom", config.MetricsPath)
	assert.True(t, config.MetricsEnabled)
}

// alwaysValid accepts every image with a fixed confidence.
type alwaysValid int

func (a alwaysValid) Validate(context.Context, string, string, string) validator.Outcome {
	return validator.Outcome{IsValid: true, Confidence: int(a), Reason: "match", Characteristics: []string{}}
}

type staticProvider []string

func (staticProvider) Name() imageprovider.Source { return imageprovider.SourceWikimedia }

func (p staticProvider) Fetch(context.Context, imageprovider.Query, int) []string {
	return append([]string(nil), p...)
}

func TestVerifiedImages_WithOrchestrator(t *testing.T) {
	t.Parallel()

	o, err := pipeline.New(&pipeline.Options{
		Providers: []imageprovider.Provider{staticProvider{"https://w/1.jpg", "https://w/2.jpg"}},
		Validator: alwaysValid(88),
		Logger:    logger.Discard(),
	})
	require.NoError(t, err)
	s := newTestServer(t, o)

	rec := doRequest(s, http.MethodPost, VerifiedImagesPath, `{"organism_name":"Fly Agaric","count":2}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp pipeline.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.ImagesFound)
	assert.Equal(t, []imageprovider.Source{imageprovider.SourceWikimedia}, resp.SourcesUsed)

	rec = doRequest(s, http.MethodPost, VerifiedImagesPath, `{"organism_name":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSecurityHeadersAndCORS(t *testing.T) {
	s := newTestServer(t, &fakeSearcher{})

	req := httptest.NewRequest(http.MethodOptions, VerifiedImagesPath, http.NoBody)
	req.Header.Set(echo.HeaderOrigin, "https://museum.example")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowMethods), http.MethodPost)

	rec = doRequest(s, http.MethodGet, HealthPath, "")
	assert.Equal(t, "DENY", rec.Header().Get(echo.HeaderXFrameOptions))
	assert.Equal(t, "nosniff", rec.Header().Get(echo.HeaderXContentTypeOptions))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentSecurityPolicy), "default-src 'none'")
}
