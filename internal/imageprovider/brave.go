package imageprovider

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
)

const (
	braveDefaultEndpoint = "https://api.search.brave.com"
	braveMaxCount        = 100
)

type braveResponse struct {
	Results []struct {
		Properties struct {
			URL string `json:"url"`
		} `json:"properties"`
	} `json:"results"`
}

// BraveProvider searches the Brave image search API.
type BraveProvider struct {
	httpProvider
}

// NewBraveProvider creates a Brave Search provider.
func NewBraveProvider(opts *Options) *BraveProvider {
	return &BraveProvider{httpProvider: newHTTPProvider(SourceBrave, braveDefaultEndpoint, opts)}
}

func (p *BraveProvider) Fetch(ctx context.Context, q Query, maxResults int) []string {
	if !p.hasCredentials() {
		return nil
	}
	return p.fetch(ctx, q, maxResults, p.search)
}

func (p *BraveProvider) search(ctx context.Context, phrase string, limit int) ([]string, error) {
	params := url.Values{
		"q":          {phrase},
		"count":      {strconv.Itoa(min(limit, braveMaxCount))},
		"safesearch": {"strict"},
	}
	body, err := p.getJSON(ctx, p.endpoint+"/res/v1/images/search", params, map[string]string{
		"X-Subscription-Token": p.apiKey,
	})
	if err != nil {
		return nil, err
	}

	var resp braveResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, p.decodeFailure(err)
	}

	urls := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.Properties.URL != "" {
			urls = append(urls, r.Properties.URL)
		}
	}
	return urls, nil
}
