package pipeline

import (
	"slices"
	"strings"

	"github.com/srthknk/biomuseum/internal/conf"
)

// FallbackGenerator supplies placeholder images when nothing was accepted.
// Generate must never return an empty slice.
type FallbackGenerator interface {
	Generate(organismName string) []string
}

// StaticFallback returns a fixed image set regardless of the organism.
type StaticFallback struct {
	urls []string
}

// NewStaticFallback uses urls, or the built-in nature images when urls is empty.
func NewStaticFallback(urls []string) *StaticFallback {
	clean := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			clean = append(clean, u)
		}
	}
	if len(clean) == 0 {
		clean = slices.Clone(conf.DefaultFallbackImages)
	}
	return &StaticFallback{urls: clean}
}

func (f *StaticFallback) Generate(string) []string {
	return slices.Clone(f.urls)
}
