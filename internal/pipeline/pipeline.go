// pipeline.go: Package pipeline assembles ranked, validated organism images
// from a cascade of image providers.
package pipeline

import (
	"strings"

	"github.com/srthknk/biomuseum/internal/errors"
	"github.com/srthknk/biomuseum/internal/imageprovider"
)

const (
	// AcceptanceThreshold is the minimum confidence for a candidate to be kept.
	AcceptanceThreshold = 70

	// ResultMultiplier scales how many candidates are requested per accepted slot.
	ResultMultiplier = 2

	// DefaultCount is the number of images requested when none is given.
	DefaultCount = 6

	// DefaultMaxCount caps the requested number of images.
	DefaultMaxCount = 20

	// PlaceholderSource marks fallback images.
	PlaceholderSource imageprovider.Source = "placeholder"

	// PlaceholderReason is the validation reason of fallback images.
	PlaceholderReason = "fallback image, no validated results found"

	componentName      = "pipeline"
	defaultConcurrency = 4
	runIDLength        = 8
)

// ErrInvalidQuery is returned for a query without an organism name.
var ErrInvalidQuery = errors.NewStd("organism_name is required")

// SearchQuery is an immutable request for images of one organism.
type SearchQuery struct {
	organismName   string
	scientificName string
	desiredCount   int
}

// NewSearchQuery validates and normalizes a query. A non-positive count
// becomes DefaultCount and counts above DefaultMaxCount are clamped.
func NewSearchQuery(organismName, scientificName string, count int) (SearchQuery, error) {
	return newSearchQuery(organismName, scientificName, count, DefaultMaxCount)
}

func newSearchQuery(organismName, scientificName string, count, maxCount int) (SearchQuery, error) {
	name := strings.Join(strings.Fields(organismName), " ")
	if name == "" {
		return SearchQuery{}, errors.New(ErrInvalidQuery).
			Component(componentName).
			Category(errors.CategoryValidation).
			Build()
	}
	if count <= 0 {
		count = DefaultCount
	}
	if maxCount > 0 && count > maxCount {
		count = maxCount
	}
	return SearchQuery{
		organismName:   name,
		scientificName: strings.Join(strings.Fields(scientificName), " "),
		desiredCount:   count,
	}, nil
}

func (q SearchQuery) OrganismName() string   { return q.organismName }
func (q SearchQuery) ScientificName() string { return q.scientificName }
func (q SearchQuery) DesiredCount() int      { return q.desiredCount }

// RankedCandidate is an accepted image with its verdict.
type RankedCandidate struct {
	URL             string
	Source          imageprovider.Source
	Confidence      int
	IsValid         bool
	Reason          string
	Characteristics []string
	ServedFromCache bool
}

// PipelineResult is the outcome of one Run.
type PipelineResult struct {
	Success        bool
	RequestedCount int
	// FoundCount counts validated images; placeholders are not included.
	FoundCount  int
	Images      []RankedCandidate
	SourcesUsed []imageprovider.Source
	Message     string
	RunID       string
	Fallback    bool
}
