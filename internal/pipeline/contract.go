package pipeline

import (
	"context"

	"github.com/srthknk/biomuseum/internal/imageprovider"
)

// Request is the JSON body of an image search.
type Request struct {
	OrganismName   string `json:"organism_name"`
	ScientificName string `json:"scientific_name,omitempty"`
	Count          int    `json:"count,omitempty"`
}

// ImageResult is one image in a Response.
type ImageResult struct {
	URL              string               `json:"url"`
	Source           imageprovider.Source `json:"source"`
	Confidence       int                  `json:"confidence"`
	ValidationReason string               `json:"validation_reason"`
	Characteristics  []string             `json:"characteristics"`
}

// Response is the JSON answer to a Request.
type Response struct {
	Success        bool                   `json:"success"`
	TotalRequested int                    `json:"total_requested"`
	ImagesFound    int                    `json:"images_found"`
	Images         []ImageResult          `json:"images"`
	SourcesUsed    []imageprovider.Source `json:"sources_used"`
	Message        string                 `json:"message"`
	Error          string                 `json:"error,omitempty"`
	RunID          string                 `json:"run_id,omitempty"`
}

// Search runs a request end to end. An invalid request is reported through
// the returned error; any other failure yields an unsuccessful Response that
// still carries the fallback images.
func (o *Orchestrator) Search(ctx context.Context, req Request) (Response, error) {
	q, err := o.NewQuery(req.OrganismName, req.ScientificName, req.Count)
	if err != nil {
		return Response{}, err
	}

	result, err := o.Run(ctx, q)
	if err != nil {
		placeholders := o.placeholders(q.organismName, q.desiredCount)
		return Response{
			Success:        false,
			TotalRequested: q.desiredCount,
			Images:         toImageResults(placeholders),
			SourcesUsed:    []imageprovider.Source{},
			Message:        "Image search failed; returning placeholder images",
			Error:          err.Error(),
		}, nil
	}
	return NewResponse(result), nil
}

// NewResponse converts a PipelineResult to its wire form.
func NewResponse(r *PipelineResult) Response {
	sources := r.SourcesUsed
	if sources == nil {
		sources = []imageprovider.Source{}
	}
	return Response{
		Success:        r.Success,
		TotalRequested: r.RequestedCount,
		ImagesFound:    r.FoundCount,
		Images:         toImageResults(r.Images),
		SourcesUsed:    sources,
		Message:        r.Message,
		RunID:          r.RunID,
	}
}

func toImageResults(images []RankedCandidate) []ImageResult {
	out := make([]ImageResult, len(images))
	for i, img := range images {
		chars := img.Characteristics
		if chars == nil {
			chars = []string{}
		}
		out[i] = ImageResult{
			URL:              img.URL,
			Source:           img.Source,
			Confidence:       img.Confidence,
			ValidationReason: img.Reason,
			Characteristics:  chars,
		}
	}
	return out
}
