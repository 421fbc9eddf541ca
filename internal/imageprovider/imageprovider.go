// imageprovider.go: Package imageprovider finds candidate organism photographs
// on external image search services.
package imageprovider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/srthknk/biomuseum/internal/errors"
	"github.com/srthknk/biomuseum/internal/httpclient"
	"github.com/srthknk/biomuseum/internal/logger"
	"github.com/srthknk/biomuseum/internal/observability/metrics"
)

// Source identifies the provider a candidate came from.
type Source string

const (
	SourceUnsplash  Source = "unsplash"
	SourcePexels    Source = "pexels"
	SourceWikimedia Source = "wikimedia"
	SourceBrave     Source = "brave"
	SourceBing      Source = "bing"
)

const (
	componentName = "imageprovider"

	// maxResponseBytes bounds a single search API response.
	maxResponseBytes = 4 << 20
)

// ErrMissingCredentials is returned when a provider has no usable API key.
// It stops the phrasing loop since no other phrasing can succeed.
var ErrMissingCredentials = errors.NewStd("provider credentials missing or rejected")

// Query is what a provider searches for.
type Query struct {
	OrganismName   string
	ScientificName string
}

// Provider returns candidate image URLs for a query. Fetch never fails:
// network errors, quota exhaustion and missing credentials yield an empty
// slice. The result holds at most maxResults URLs without duplicates.
type Provider interface {
	Name() Source
	Fetch(ctx context.Context, q Query, maxResults int) []string
}

// Phrasings returns the search phrases tried in order: the exact organism
// name, the scientific name, then the first word of a multi-word name.
// Case-insensitive duplicates are dropped.
func Phrasings(q Query) []string {
	name := strings.Join(strings.Fields(q.OrganismName), " ")
	scientific := strings.Join(strings.Fields(q.ScientificName), " ")

	candidates := []string{name, scientific}
	if words := strings.Fields(name); len(words) > 1 {
		candidates = append(candidates, words[0])
	}

	phrases := make([]string, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if c == "" {
			continue
		}
		key := strings.ToLower(c)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		phrases = append(phrases, c)
	}
	return phrases
}

// searchFunc runs one phrasing against a provider API.
type searchFunc func(ctx context.Context, phrase string, limit int) ([]string, error)

// collect walks the phrasings until maxResults unique URLs are gathered.
func collect(ctx context.Context, log logger.Logger, q Query, maxResults int, search searchFunc) []string {
	if maxResults <= 0 {
		return nil
	}

	urls := make([]string, 0, maxResults)
	seen := make(map[string]struct{}, maxResults)

	for _, phrase := range Phrasings(q) {
		if len(urls) >= maxResults || ctx.Err() != nil {
			break
		}

		found, err := search(ctx, phrase, maxResults)
		if err != nil {
			if errors.Is(err, ErrMissingCredentials) {
				log.Warn("provider credentials rejected, skipping remaining phrasings",
					logger.String("phrase", phrase), logger.Error(err))
				break
			}
			log.Warn("search failed, trying next phrasing",
				logger.String("phrase", phrase), logger.Error(err))
			continue
		}

		for _, u := range found {
			u = strings.TrimSpace(u)
			if u == "" {
				continue
			}
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			urls = append(urls, u)
			if len(urls) == maxResults {
				break
			}
		}
	}

	return urls
}

// Options carries the dependencies shared by the HTTP providers.
type Options struct {
	Client    *httpclient.Client
	Endpoint  string
	APIKey    string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 disables limiting
	Burst     int
	Metrics   *metrics.ImageProviderMetrics
	Logger    logger.Logger
}

// httpProvider holds what every HTTP search provider needs.
type httpProvider struct {
	name     Source
	client   *httpclient.Client
	endpoint string
	apiKey   string
	timeout  time.Duration
	limiter  *rate.Limiter
	metrics  *metrics.ImageProviderMetrics
	log      logger.Logger
}

func newHTTPProvider(name Source, defaultEndpoint string, opts *Options) httpProvider {
	p := httpProvider{
		name:     name,
		client:   opts.Client,
		endpoint: strings.TrimRight(opts.Endpoint, "/"),
		apiKey:   strings.TrimSpace(opts.APIKey),
		timeout:  opts.Timeout,
		metrics:  opts.Metrics,
		log:      opts.Logger,
	}
	if p.endpoint == "" {
		p.endpoint = defaultEndpoint
	}
	if p.client == nil {
		p.client = httpclient.New(nil)
	}
	if p.timeout <= 0 {
		p.timeout = 10 * time.Second
	}
	if p.log == nil {
		p.log = logger.Global().Module(componentName)
	}
	p.log = p.log.With(logger.String("provider", string(name)))
	if opts.RateLimit > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), max(opts.Burst, 1))
	}
	return p
}

func (p *httpProvider) Name() Source { return p.name }

// hasCredentials reports whether a keyed provider may issue requests.
func (p *httpProvider) hasCredentials() bool {
	if p.apiKey != "" {
		return true
	}
	p.log.Debug("no API key configured, provider disabled for this request")
	p.metrics.RecordFailure(string(p.name), "credentials")
	return false
}

// getJSON performs a rate limited GET and returns the response body.
func (p *httpProvider) getJSON(ctx context.Context, endpoint string, params url.Values, headers map[string]string) ([]byte, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			p.metrics.RecordFailure(string(p.name), "rate_limit")
			return nil, errors.New(err).
				Component(componentName).
				Category(errors.CategoryLimit).
				Context("provider", string(p.name)).
				Context("operation", "rate_limiter_wait").
				Build()
		}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	fullURL := endpoint
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := p.client.Do(ctx, req)
	p.metrics.RecordRequest(string(p.name), time.Since(start).Seconds())
	if err != nil {
		p.metrics.RecordFailure(string(p.name), "network")
		return nil, errors.New(err).
			Component(componentName).
			Category(errors.CategoryNetwork).
			Context("provider", string(p.name)).
			Context("operation", "search").
			Build()
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		p.metrics.RecordFailure(string(p.name), "credentials")
		return nil, fmt.Errorf("%s answered %d: %w", p.name, resp.StatusCode, ErrMissingCredentials)
	case resp.StatusCode != http.StatusOK:
		p.metrics.RecordFailure(string(p.name), "status")
		return nil, errors.Newf("%s answered HTTP %d", p.name, resp.StatusCode).
			Component(componentName).
			Category(errors.CategoryImageProvider).
			Context("provider", string(p.name)).
			Context("status_code", resp.StatusCode).
			Build()
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		p.metrics.RecordFailure(string(p.name), "network")
		return nil, fmt.Errorf("failed to read %s response: %w", p.name, err)
	}
	return body, nil
}

// decodeFailure records and wraps a response that did not have the expected shape.
func (p *httpProvider) decodeFailure(err error) error {
	p.metrics.RecordFailure(string(p.name), "decode")
	return errors.New(err).
		Component(componentName).
		Category(errors.CategoryFileParsing).
		Context("provider", string(p.name)).
		Context("operation", "decode_response").
		Build()
}

// fetch runs collect with the provider's search and records the candidates.
func (p *httpProvider) fetch(ctx context.Context, q Query, maxResults int, search searchFunc) []string {
	urls := collect(ctx, p.log.WithContext(ctx), q, maxResults, search)
	p.metrics.RecordCandidates(string(p.name), len(urls))
	p.log.WithContext(ctx).Debug("provider search finished",
		logger.String("organism", q.OrganismName),
		logger.Int("requested", maxResults),
		logger.Int("found", len(urls)))
	return urls
}

// setQuery overrides params on rawURL and keeps its other parameters. An
// empty or unparsable URL yields "".
func setQuery(rawURL string, params map[string]string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
