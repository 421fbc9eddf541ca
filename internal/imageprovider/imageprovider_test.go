package imageprovider

import (
	"context"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srthknk/biomuseum/internal/logger"
)

func TestPhrasings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{
			name:  "common, scientific and first word",
			query: Query{OrganismName: "Bengal Tiger", ScientificName: "Panthera tigris tigris"},
			want:  []string{"Bengal Tiger", "Panthera tigris tigris", "Bengal"},
		},
		{
			name:  "single word without scientific name",
			query: Query{OrganismName: "Lion"},
			want:  []string{"Lion"},
		},
		{
			name:  "whitespace collapsed and duplicates dropped",
			query: Query{OrganismName: "  Red   Fox ", ScientificName: "red fox"},
			want:  []string{"Red Fox", "Red"},
		},
		{
			name:  "empty query",
			query: Query{},
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Phrasings(tt.query))
		})
	}
}

func TestCollect(t *testing.T) {
	t.Parallel()

	q := Query{OrganismName: "Bengal Tiger", ScientificName: "Panthera tigris tigris"}

	t.Run("tries every phrasing while short of results", func(t *testing.T) {
		t.Parallel()
		var phrases []string
		got := collect(t.Context(), logger.Discard(), q, 3, func(_ context.Context, phrase string, _ int) ([]string, error) {
			phrases = append(phrases, phrase)
			return []string{"https://a/1", "https://a/2"}, nil
		})
		assert.Equal(t, []string{"https://a/1", "https://a/2"}, got)
		assert.Equal(t, []string{"Bengal Tiger", "Panthera tigris tigris", "Bengal"}, phrases)
	})

	t.Run("truncates to max results", func(t *testing.T) {
		t.Parallel()
		calls := 0
		got := collect(t.Context(), logger.Discard(), q, 2, func(_ context.Context, _ string, _ int) ([]string, error) {
			calls++
			return []string{"https://a/1", " ", "https://a/1", "https://a/2", "https://a/3"}, nil
		})
		assert.Equal(t, []string{"https://a/1", "https://a/2"}, got)
		assert.Equal(t, 1, calls)
	})

	t.Run("search errors move to the next phrasing", func(t *testing.T) {
		t.Parallel()
		got := collect(t.Context(), logger.Discard(), q, 5, func(_ context.Context, phrase string, _ int) ([]string, error) {
			if phrase == "Bengal Tiger" {
				return nil, fmt.Errorf("boom")
			}
			return []string{"https://b/" + phrase}, nil
		})
		assert.Equal(t, []string{"https://b/Panthera tigris tigris", "https://b/Bengal"}, got)
	})

	t.Run("missing credentials end the search", func(t *testing.T) {
		t.Parallel()
		calls := 0
		got := collect(t.Context(), logger.Discard(), q, 5, func(_ context.Context, _ string, _ int) ([]string, error) {
			calls++
			return nil, fmt.Errorf("unsplash answered 401: %w", ErrMissingCredentials)
		})
		assert.Empty(t, got)
		assert.Equal(t, 1, calls)
	})

	t.Run("non-positive max results", func(t *testing.T) {
		t.Parallel()
		got := collect(t.Context(), logger.Discard(), q, 0, func(_ context.Context, _ string, _ int) ([]string, error) {
			t.Fatal("search must not be called")
			return nil, nil
		})
		assert.Nil(t, got)
	})

	t.Run("canceled context", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		got := collect(ctx, logger.Discard(), q, 5, func(_ context.Context, _ string, _ int) ([]string, error) {
			return []string{"https://a/1"}, nil
		})
		assert.Empty(t, got)
	})
}

func TestSetQuery(t *testing.T) {
	t.Parallel()

	sizing := map[string]string{"w": "800", "q": "90"}
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no query", "https://x/p.jpg", "https://x/p.jpg?q=90&w=800"},
		{"other params kept", "https://x/p.jpg?ixid=1", "https://x/p.jpg?ixid=1&q=90&w=800"},
		{
			"existing sizing replaced",
			"https://images.unsplash.com/photo-1?crop=entropy&fm=jpg&q=80&w=1080",
			"https://images.unsplash.com/photo-1?crop=entropy&fm=jpg&q=90&w=800",
		},
		{"empty", "", ""},
		{"unparsable", "https://x/%zz", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := setQuery(tt.in, sizing)
			assert.Equal(t, tt.want, got)
			if got != "" {
				u, err := url.Parse(got)
				require.NoError(t, err)
				assert.Equal(t, []string{"800"}, u.Query()["w"], "exactly one width parameter")
				assert.Equal(t, []string{"90"}, u.Query()["q"], "exactly one quality parameter")
			}
		})
	}
}
