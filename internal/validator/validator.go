// validator.go: Package validator scores candidate images against a target
// organism with a vision classifier and memoizes the verdicts.
package validator

import (
	"context"
	"time"

	"github.com/srthknk/biomuseum/internal/errors"
	"github.com/srthknk/biomuseum/internal/httpclient"
	"github.com/srthknk/biomuseum/internal/logger"
	"github.com/srthknk/biomuseum/internal/observability/metrics"
)

const componentName = "validator"

// Reasons reported for outcomes the classifier did not produce itself.
const (
	ReasonDownloadFailed = "download failed"
	ReasonUnavailable    = "validation unavailable"
	ReasonParseFailed    = "validation response parsing failed"
	ReasonUndetermined   = "unable to determine"
	ReasonCancelled      = "validation cancelled"
)

const (
	// ParseFailureConfidence is the neutral score for an unreadable answer.
	ParseFailureConfidence = 50

	// DefaultAnswerConfidence is used when a readable answer omits the score.
	DefaultAnswerConfidence = 50

	defaultDownloadTimeout = 10 * time.Second
	defaultMaxImageBytes   = 10 << 20
)

// Sentinel errors for the failures Validate turns into outcomes.
var (
	ErrDownloadFailed        = errors.NewStd("image download failed")
	ErrClassifierUnavailable = errors.NewStd("classifier unavailable")
	ErrUnparsableAnswer      = errors.NewStd("classifier answer not parsable")
)

// Outcome is the verdict for one (image, organism) pair.
type Outcome struct {
	IsValid         bool     `json:"is_valid"`
	Confidence      int      `json:"confidence"`
	Reason          string   `json:"reason"`
	Characteristics []string `json:"characteristics"`
	ServedFromCache bool     `json:"served_from_cache"`

	// Transient is set when the verdict reflects a failure that may not
	// recur, such as a download error or an unreachable classifier.
	Transient bool `json:"-"`
}

// ImageValidator scores one image against a target organism. Validate never
// fails; every error becomes an Outcome.
type ImageValidator interface {
	Validate(ctx context.Context, imageURL, organismName, scientificName string) Outcome
}

// UnavailablePolicy decides the outcome when the classifier cannot be used.
type UnavailablePolicy struct {
	// Optimistic accepts images without a verdict instead of rejecting them.
	Optimistic             bool
	UnconfiguredConfidence int
	UnreachableConfidence  int
}

// DefaultUnavailablePolicy favors availability over precision.
func DefaultUnavailablePolicy() UnavailablePolicy {
	return UnavailablePolicy{
		Optimistic:             true,
		UnconfiguredConfidence: 75,
		UnreachableConfidence:  70,
	}
}

// Unconfigured is the outcome when no classifier is set up.
func (p UnavailablePolicy) Unconfigured() Outcome {
	return p.outcome(p.UnconfiguredConfidence)
}

// Unreachable is the outcome when the classifier could not answer.
func (p UnavailablePolicy) Unreachable() Outcome {
	return p.outcome(p.UnreachableConfidence)
}

func (p UnavailablePolicy) outcome(confidence int) Outcome {
	if !p.Optimistic {
		return Outcome{Reason: ReasonUnavailable, Characteristics: []string{}, Transient: true}
	}
	return Outcome{
		IsValid:         true,
		Confidence:      clampConfidence(float64(confidence)),
		Reason:          ReasonUnavailable,
		Characteristics: []string{},
		Transient:       true,
	}
}

// Options configures a Validator.
type Options struct {
	// Classifier judges images. Nil means no classifier is configured.
	Classifier      Classifier
	Client          *httpclient.Client
	DownloadTimeout time.Duration
	MaxImageBytes   int64
	Policy          UnavailablePolicy
	Metrics         *metrics.ValidatorMetrics
	Logger          logger.Logger
}

// Validator downloads candidate images and asks a classifier about them.
type Validator struct {
	classifier      Classifier
	client          *httpclient.Client
	downloadTimeout time.Duration
	maxImageBytes   int64
	policy          UnavailablePolicy
	metrics         *metrics.ValidatorMetrics
	log             logger.Logger
}

// New creates a Validator.
func New(opts *Options) *Validator {
	v := &Validator{
		classifier:      opts.Classifier,
		client:          opts.Client,
		downloadTimeout: opts.DownloadTimeout,
		maxImageBytes:   opts.MaxImageBytes,
		policy:          opts.Policy,
		metrics:         opts.Metrics,
		log:             opts.Logger,
	}
	if v.client == nil {
		v.client = httpclient.New(nil)
	}
	if v.downloadTimeout <= 0 {
		v.downloadTimeout = defaultDownloadTimeout
	}
	if v.maxImageBytes <= 0 {
		v.maxImageBytes = defaultMaxImageBytes
	}
	if v.log == nil {
		v.log = logger.Global().Module(componentName)
	}
	return v
}

// Validate scores imageURL against the organism. An unconfigured classifier
// short-circuits before the image is downloaded.
func (v *Validator) Validate(ctx context.Context, imageURL, organismName, scientificName string) Outcome {
	log := v.log.WithContext(ctx).With(logger.String("url", imageURL), logger.String("organism", organismName))

	if v.classifier == nil {
		v.metrics.RecordOutcome(metrics.OutcomeUnconfigured)
		log.Debug("no classifier configured, applying unavailable policy")
		return v.policy.Unconfigured()
	}

	start := time.Now()
	img, err := v.download(ctx, imageURL)
	v.metrics.ObserveDownload(time.Since(start).Seconds())
	if err != nil {
		v.metrics.RecordOutcome(metrics.OutcomeDownload)
		log.Warn("image download failed", logger.Error(err))
		return Outcome{Reason: ReasonDownloadFailed, Characteristics: []string{}, Transient: true}
	}

	backend := v.classifier.Backend()
	start = time.Now()
	answer, err := v.classifier.Classify(ctx, img, BuildPrompt(organismName, scientificName))
	if err != nil {
		v.metrics.ObserveClassifier(backend, metrics.StatusError, time.Since(start).Seconds())
		v.metrics.RecordOutcome(metrics.OutcomeUnreachable)
		log.Warn("classifier unreachable, applying unavailable policy",
			logger.String("backend", backend), logger.Error(err))
		return v.policy.Unreachable()
	}
	v.metrics.ObserveClassifier(backend, metrics.StatusSuccess, time.Since(start).Seconds())

	out, err := ParseAnswer(answer)
	if err != nil {
		v.metrics.RecordOutcome(metrics.OutcomeUnparsable)
		log.Warn("classifier answer could not be parsed",
			logger.String("backend", backend),
			logger.String("answer", truncate(answer, 200)),
			logger.Error(err))
		return Outcome{Confidence: ParseFailureConfidence, Reason: ReasonParseFailed, Characteristics: []string{}}
	}

	v.metrics.RecordOutcome(metrics.OutcomeClassified)
	log.Debug("image classified",
		logger.Bool("is_valid", out.IsValid),
		logger.Int("confidence", out.Confidence))
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
