package imageprovider

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
)

const (
	pexelsDefaultEndpoint = "https://api.pexels.com"
	pexelsMaxPerPage      = 80
)

type pexelsResponse struct {
	Photos []struct {
		Src struct {
			Large string `json:"large"`
		} `json:"src"`
	} `json:"photos"`
}

// PexelsProvider searches the Pexels photo API.
type PexelsProvider struct {
	httpProvider
}

// NewPexelsProvider creates a Pexels provider.
func NewPexelsProvider(opts *Options) *PexelsProvider {
	return &PexelsProvider{httpProvider: newHTTPProvider(SourcePexels, pexelsDefaultEndpoint, opts)}
}

func (p *PexelsProvider) Fetch(ctx context.Context, q Query, maxResults int) []string {
	if !p.hasCredentials() {
		return nil
	}
	return p.fetch(ctx, q, maxResults, p.search)
}

func (p *PexelsProvider) search(ctx context.Context, phrase string, limit int) ([]string, error) {
	params := url.Values{
		"query":    {phrase},
		"per_page": {strconv.Itoa(min(limit, pexelsMaxPerPage))},
	}
	// Pexels takes the bare key, no scheme.
	body, err := p.getJSON(ctx, p.endpoint+"/v1/search", params, map[string]string{
		"Authorization": p.apiKey,
	})
	if err != nil {
		return nil, err
	}

	var resp pexelsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, p.decodeFailure(err)
	}

	urls := make([]string, 0, len(resp.Photos))
	for _, photo := range resp.Photos {
		if photo.Src.Large != "" {
			urls = append(urls, photo.Src.Large)
		}
	}
	return urls, nil
}
