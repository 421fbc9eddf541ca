package validator

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srthknk/biomuseum/internal/logger"
	"github.com/srthknk/biomuseum/internal/observability/metrics"
)

const tigerImage = "https://images.example.org/tiger.jpg"

func newTestValidator(t *testing.T, classifier Classifier, policy UnavailablePolicy) (*Validator, *httpmock.MockTransport, *metrics.ValidatorMetrics) {
	t.Helper()

	m, err := metrics.NewValidatorMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	client, mt := newMockClient(t)
	v := New(&Options{
		Classifier: classifier,
		Client:     client,
		Policy:     policy,
		Metrics:    m,
		Logger:     logger.Discard(),
	})
	return v, mt, m
}

func TestValidate_Classified(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{answer: "```json\n{\"is_organism\": true, \"confidence\": 92.6, \"reason\": \"orange coat with black stripes\", \"characteristics_found\": [\"stripes\", \"orange fur\"]}\n```"}
	v, mt, m := newTestValidator(t, classifier, DefaultUnavailablePolicy())
	mt.RegisterResponder(http.MethodGet, tigerImage, imageResponder("image/png; charset=binary", pngData))

	got := v.Validate(t.Context(), tigerImage, "Bengal Tiger", "Panthera tigris tigris")

	assert.Equal(t, Outcome{
		IsValid:         true,
		Confidence:      93,
		Reason:          "orange coat with black stripes",
		Characteristics: []string{"stripes", "orange fur"},
	}, got)

	require.Equal(t, 1, classifier.calls())
	assert.Equal(t, "image/png", classifier.images[0].MIMEType)
	assert.Equal(t, pngData, classifier.images[0].Data)
	assert.Contains(t, classifier.prompts[0], "Bengal Tiger")
	assert.Contains(t, classifier.prompts[0], "Scientific name: Panthera tigris tigris")
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.Outcomes.WithLabelValues(metrics.OutcomeClassified)), 0)
}

func TestValidate_DownloadFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		responder httpmock.Responder
	}{
		{"not found", httpmock.NewStringResponder(http.StatusNotFound, "gone")},
		{"transport error", httpmock.NewErrorResponder(fmt.Errorf("connection reset"))},
		{"empty body", imageResponder("image/jpeg", nil)},
		{"not an image", imageResponder("application/pdf", []byte("%PDF-1.4"))},
		{"html without preview", imageResponder("text/html", []byte("<html><head><title>x</title></head></html>"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			classifier := &fakeClassifier{answer: `{"is_organism": true, "confidence": 99}`}
			v, mt, m := newTestValidator(t, classifier, DefaultUnavailablePolicy())
			mt.RegisterResponder(http.MethodGet, tigerImage, tt.responder)

			got := v.Validate(t.Context(), tigerImage, "Bengal Tiger", "")

			assert.False(t, got.IsValid)
			assert.Zero(t, got.Confidence)
			assert.Equal(t, ReasonDownloadFailed, got.Reason)
			assert.True(t, got.Transient)
			assert.Zero(t, classifier.calls(), "classifier is not consulted without an image")
			assert.InDelta(t, 1.0, testutil.ToFloat64(m.Outcomes.WithLabelValues(metrics.OutcomeDownload)), 0)
		})
	}
}

func TestValidate_Unconfigured(t *testing.T) {
	t.Parallel()

	t.Run("optimistic", func(t *testing.T) {
		t.Parallel()
		v, mt, m := newTestValidator(t, nil, DefaultUnavailablePolicy())

		got := v.Validate(t.Context(), tigerImage, "Bengal Tiger", "")

		assert.True(t, got.IsValid)
		assert.Equal(t, 75, got.Confidence)
		assert.Equal(t, ReasonUnavailable, got.Reason)
		assert.True(t, got.Transient)
		assert.Zero(t, mt.GetTotalCallCount(), "nothing is downloaded without a classifier")
		assert.InDelta(t, 1.0, testutil.ToFloat64(m.Outcomes.WithLabelValues(metrics.OutcomeUnconfigured)), 0)
	})

	t.Run("pessimistic", func(t *testing.T) {
		t.Parallel()
		v, _, _ := newTestValidator(t, nil, UnavailablePolicy{Optimistic: false, UnconfiguredConfidence: 75, UnreachableConfidence: 70})

		got := v.Validate(t.Context(), tigerImage, "Bengal Tiger", "")

		assert.False(t, got.IsValid)
		assert.Zero(t, got.Confidence)
		assert.Equal(t, ReasonUnavailable, got.Reason)
	})
}

func TestValidate_ClassifierUnreachable(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{err: fmt.Errorf("%w: HTTP 503", ErrClassifierUnavailable)}
	v, mt, m := newTestValidator(t, classifier, DefaultUnavailablePolicy())
	mt.RegisterResponder(http.MethodGet, tigerImage, imageResponder("image/jpeg", jpegData))

	got := v.Validate(t.Context(), tigerImage, "Bengal Tiger", "")

	assert.True(t, got.IsValid)
	assert.Equal(t, 70, got.Confidence)
	assert.Equal(t, ReasonUnavailable, got.Reason)
	assert.True(t, got.Transient)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.Outcomes.WithLabelValues(metrics.OutcomeUnreachable)), 0)
}

func TestValidate_UnparsableAnswer(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{answer: "I think this is probably a tiger."}
	v, mt, m := newTestValidator(t, classifier, DefaultUnavailablePolicy())
	mt.RegisterResponder(http.MethodGet, tigerImage, imageResponder("image/jpeg", jpegData))

	got := v.Validate(t.Context(), tigerImage, "Bengal Tiger", "")

	assert.False(t, got.IsValid)
	assert.Equal(t, ParseFailureConfidence, got.Confidence)
	assert.Equal(t, ReasonParseFailed, got.Reason)
	assert.False(t, got.Transient)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.Outcomes.WithLabelValues(metrics.OutcomeUnparsable)), 0)
}

func TestUnavailablePolicy_ClampsConfidence(t *testing.T) {
	t.Parallel()

	p := UnavailablePolicy{Optimistic: true, UnconfiguredConfidence: 140, UnreachableConfidence: -3}
	assert.Equal(t, 100, p.Unconfigured().Confidence)
	assert.Equal(t, 0, p.Unreachable().Confidence)
}
