package validator

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/k3a/html2text"

	"github.com/srthknk/biomuseum/internal/conf"
	"github.com/srthknk/biomuseum/internal/errors"
	"github.com/srthknk/biomuseum/internal/httpclient"
)

const (
	maxAnswerBytes = 1 << 20
	maxSnippetLen  = 200
)

// Classifier asks a vision model about an image and returns its raw text answer.
type Classifier interface {
	Backend() string
	Classify(ctx context.Context, img Image, prompt string) (string, error)
}

// NewClassifier returns the backend selected in settings, or nil when the
// backend is "none" or has no API key.
func NewClassifier(settings *conf.ValidatorSettings, client *httpclient.Client) Classifier {
	cs := settings.Classifier()
	if cs == nil || strings.TrimSpace(cs.APIKey) == "" {
		return nil
	}

	api := newVisionAPI(settings.Backend, cs, client, settings.ClassifierTimeout)
	switch settings.Backend {
	case conf.BackendGemini:
		return &GeminiClassifier{visionAPI: api}
	case conf.BackendOpenAI:
		return &OpenAIClassifier{visionAPI: api}
	case conf.BackendAnthropic:
		return &AnthropicClassifier{visionAPI: api}
	default:
		return nil
	}
}

// visionAPI holds what every classifier backend needs.
type visionAPI struct {
	backend  string
	endpoint string
	model    string
	apiKey   string
	timeout  time.Duration
	client   *httpclient.Client
}

func newVisionAPI(backend string, cs *conf.ClassifierSettings, client *httpclient.Client, timeout time.Duration) visionAPI {
	if client == nil {
		client = httpclient.New(nil)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return visionAPI{
		backend:  backend,
		endpoint: strings.TrimRight(cs.Endpoint, "/"),
		model:    cs.Model,
		apiKey:   strings.TrimSpace(cs.APIKey),
		timeout:  timeout,
		client:   client,
	}
}

func (a *visionAPI) Backend() string { return a.backend }

// postJSON sends payload and returns the response body of a 2xx answer.
func (a *visionAPI) postJSON(ctx context.Context, url string, headers map[string]string, payload any) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req, err := httpclient.NewPostRequest(ctx, url, "application/json", payload)
	if err != nil {
		return nil, a.unavailable(err, "build_request")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := a.client.Do(ctx, req)
	if err != nil {
		return nil, a.unavailable(err, "request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAnswerBytes))
	if err != nil {
		return nil, a.unavailable(err, "read_response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.New(fmt.Errorf("%w: %s answered HTTP %d", ErrClassifierUnavailable, a.backend, resp.StatusCode)).
			Component(componentName).
			Category(errors.CategoryClassifier).
			Context("backend", a.backend).
			Context("status_code", resp.StatusCode).
			Context("response", responseSnippet(body)).
			Build()
	}
	return body, nil
}

// responseSnippet renders an error body as short plain text. Gateways often
// answer with HTML error pages.
func responseSnippet(body []byte) string {
	text := string(body)
	if strings.Contains(strings.ToLower(text), "<html") || strings.Contains(text, "</") {
		text = html2text.HTML2Text(text)
	}
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > maxSnippetLen {
		text = text[:maxSnippetLen] + "..."
	}
	return text
}

func (a *visionAPI) unavailable(err error, operation string) error {
	return errors.New(fmt.Errorf("%w: %w", ErrClassifierUnavailable, err)).
		Component(componentName).
		Category(errors.CategoryClassifier).
		Context("backend", a.backend).
		Context("operation", operation).
		Build()
}

// emptyAnswer reports a response that carried no text.
func (a *visionAPI) emptyAnswer() error {
	return fmt.Errorf("%w: %s returned no text", ErrClassifierUnavailable, a.backend)
}

func encodeImage(img Image) string {
	return base64.StdEncoding.EncodeToString(img.Data)
}
