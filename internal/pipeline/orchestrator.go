package pipeline

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/srthknk/biomuseum/internal/errors"
	"github.com/srthknk/biomuseum/internal/imageprovider"
	"github.com/srthknk/biomuseum/internal/logger"
	"github.com/srthknk/biomuseum/internal/observability/metrics"
	"github.com/srthknk/biomuseum/internal/validator"
)

// Options configures an Orchestrator.
type Options struct {
	// Providers are queried in priority order.
	Providers []imageprovider.Provider
	Validator validator.ImageValidator
	Fallback  FallbackGenerator

	// Concurrency bounds parallel validations within one batch.
	Concurrency  int
	DefaultCount int
	MaxCount     int

	Metrics *metrics.PipelineMetrics
	Logger  logger.Logger
}

// Orchestrator queries providers, validates their candidates and ranks the
// accepted ones. It is safe for concurrent use.
type Orchestrator struct {
	providers    []imageprovider.Provider
	validator    validator.ImageValidator
	fallback     FallbackGenerator
	concurrency  int
	defaultCount int
	maxCount     int
	metrics      *metrics.PipelineMetrics
	log          logger.Logger
}

// New creates an Orchestrator. A nil Fallback uses the built-in images.
func New(opts *Options) (*Orchestrator, error) {
	if opts == nil || opts.Validator == nil {
		return nil, errors.Newf("pipeline requires an image validator").
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Build()
	}

	o := &Orchestrator{
		providers:    slices.Clone(opts.Providers),
		validator:    opts.Validator,
		fallback:     opts.Fallback,
		concurrency:  opts.Concurrency,
		defaultCount: opts.DefaultCount,
		maxCount:     opts.MaxCount,
		metrics:      opts.Metrics,
		log:          opts.Logger,
	}
	if o.fallback == nil {
		o.fallback = NewStaticFallback(nil)
	}
	if o.concurrency <= 0 {
		o.concurrency = defaultConcurrency
	}
	if o.defaultCount <= 0 {
		o.defaultCount = DefaultCount
	}
	if o.maxCount <= 0 {
		o.maxCount = DefaultMaxCount
	}
	if o.log == nil {
		o.log = logger.Global().Module(componentName)
	}
	return o, nil
}

// NewQuery builds a SearchQuery using the orchestrator's count limits.
func (o *Orchestrator) NewQuery(organismName, scientificName string, count int) (SearchQuery, error) {
	if count <= 0 {
		count = o.defaultCount
	}
	return newSearchQuery(organismName, scientificName, count, o.maxCount)
}

type candidate struct {
	url    string
	source imageprovider.Source
}

// Run produces up to q.DesiredCount() validated images ranked by confidence.
// Providers are consulted in order and later ones are skipped once enough
// images were accepted. When nothing is accepted the result carries the
// fallback images instead. Run only fails for an invalid query or a
// cancelled context.
func (o *Orchestrator) Run(ctx context.Context, q SearchQuery) (*PipelineResult, error) {
	if q.organismName == "" {
		return nil, errors.New(ErrInvalidQuery).
			Component(componentName).
			Category(errors.CategoryValidation).
			Build()
	}

	start := time.Now()
	runID := uuid.NewString()[:runIDLength]
	ctx = logger.WithTraceID(ctx, runID)
	log := o.log.WithContext(ctx).With(logger.String("organism", q.organismName))

	desired := min(q.desiredCount, o.maxCount)
	log.Info("image search started",
		logger.String("scientific_name", q.scientificName),
		logger.Int("desired", desired),
		logger.Int("providers", len(o.providers)))

	pq := imageprovider.Query{OrganismName: q.organismName, ScientificName: q.scientificName}
	seen := make(map[string]struct{})
	var accepted []RankedCandidate

	for _, provider := range o.providers {
		if len(accepted) >= desired {
			break
		}
		if err := ctx.Err(); err != nil {
			o.metrics.RecordRun(metrics.ResultFailed, time.Since(start).Seconds())
			return nil, cancelled(err, runID)
		}

		want := max(desired*ResultMultiplier-len(accepted), desired)
		urls := provider.Fetch(ctx, pq, want)

		batch := make([]candidate, 0, len(urls))
		for _, u := range urls {
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			batch = append(batch, candidate{url: u, source: provider.Name()})
		}
		log.Debug("provider returned candidates",
			logger.String("provider", string(provider.Name())),
			logger.Int("candidates", len(urls)),
			logger.Int("new", len(batch)))

		var err error
		accepted, err = o.validateBatch(ctx, q, batch, accepted, desired)
		if err != nil {
			o.metrics.RecordRun(metrics.ResultFailed, time.Since(start).Seconds())
			return nil, cancelled(err, runID)
		}
	}

	result := &PipelineResult{
		Success:        true,
		RequestedCount: desired,
		RunID:          runID,
	}

	if len(accepted) == 0 {
		result.Images = o.placeholders(q.organismName, desired)
		result.Fallback = true
		result.Message = fmt.Sprintf("No validated images found for %s; returning %d placeholder images",
			q.organismName, len(result.Images))
		o.metrics.RecordRun(metrics.ResultFallback, time.Since(start).Seconds())
		log.Warn("no images accepted, using fallback", logger.Int("placeholders", len(result.Images)))
		return result, nil
	}

	rank(accepted)
	if len(accepted) > desired {
		accepted = accepted[:desired]
	}
	result.Images = accepted
	result.FoundCount = len(accepted)
	result.SourcesUsed = o.sourcesOf(accepted)

	names := make([]string, len(result.SourcesUsed))
	for i, s := range result.SourcesUsed {
		names[i] = string(s)
	}
	result.Message = fmt.Sprintf("Found %d validated images from %s", result.FoundCount, strings.Join(names, ", "))

	o.metrics.RecordRun(metrics.ResultAccepted, time.Since(start).Seconds())
	log.Info("image search completed",
		logger.Int("found", result.FoundCount),
		logger.Strings("sources", names),
		logger.Duration("duration", time.Since(start)))
	return result, nil
}

// validateBatch validates candidates in order, at most concurrency at a time,
// and stops once accepted reaches desired.
func (o *Orchestrator) validateBatch(ctx context.Context, q SearchQuery, batch []candidate, accepted []RankedCandidate, desired int) ([]RankedCandidate, error) {
	for len(batch) > 0 && len(accepted) < desired {
		if err := ctx.Err(); err != nil {
			return accepted, err
		}

		n := min(o.concurrency, desired-len(accepted), len(batch))
		chunk := batch[:n]
		batch = batch[n:]

		outcomes := make([]validator.Outcome, n)
		g, gctx := errgroup.WithContext(ctx)
		for i, c := range chunk {
			g.Go(func() error {
				outcomes[i] = o.validator.Validate(gctx, c.url, q.organismName, q.scientificName)
				return nil
			})
		}
		_ = g.Wait()

		for i, c := range chunk {
			out := outcomes[i]
			ok := out.Confidence >= AcceptanceThreshold
			o.metrics.RecordCandidate(string(c.source), ok)
			if !ok {
				continue
			}
			accepted = append(accepted, RankedCandidate{
				URL:             c.url,
				Source:          c.source,
				Confidence:      out.Confidence,
				IsValid:         out.IsValid,
				Reason:          out.Reason,
				Characteristics: out.Characteristics,
				ServedFromCache: out.ServedFromCache,
			})
		}
	}
	return accepted, nil
}

// rank orders by descending confidence, keeping discovery order on ties.
func rank(images []RankedCandidate) {
	slices.SortStableFunc(images, func(a, b RankedCandidate) int {
		return b.Confidence - a.Confidence
	})
}

// sourcesOf lists the sources present in images following provider order.
func (o *Orchestrator) sourcesOf(images []RankedCandidate) []imageprovider.Source {
	present := make(map[imageprovider.Source]bool, len(images))
	for _, img := range images {
		present[img.Source] = true
	}
	sources := make([]imageprovider.Source, 0, len(present))
	for _, p := range o.providers {
		if name := p.Name(); present[name] && !slices.Contains(sources, name) {
			sources = append(sources, name)
		}
	}
	return sources
}

func (o *Orchestrator) placeholders(organismName string, desired int) []RankedCandidate {
	urls := o.fallback.Generate(organismName)
	if len(urls) == 0 {
		urls = NewStaticFallback(nil).Generate(organismName)
	}
	if len(urls) > desired {
		urls = urls[:desired]
	}
	images := make([]RankedCandidate, len(urls))
	for i, u := range urls {
		images[i] = RankedCandidate{
			URL:             u,
			Source:          PlaceholderSource,
			Reason:          PlaceholderReason,
			Characteristics: []string{},
		}
	}
	return images
}

func cancelled(err error, runID string) error {
	return errors.New(err).
		Component(componentName).
		Category(errors.CategoryCancellation).
		Context("run_id", runID).
		Build()
}
