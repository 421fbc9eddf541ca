package imageprovider

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
)

const (
	unsplashDefaultEndpoint = "https://api.unsplash.com"
	unsplashMaxPerPage      = 30
)

// unsplashSizing requests an 800px wide, high quality rendition. It replaces
// the w and q parameters Unsplash already puts on its URLs.
var unsplashSizing = map[string]string{"w": "800", "q": "90"}

type unsplashResponse struct {
	Results []struct {
		URLs struct {
			Regular string `json:"regular"`
		} `json:"urls"`
	} `json:"results"`
}

// UnsplashProvider searches the Unsplash photo API.
type UnsplashProvider struct {
	httpProvider
}

// NewUnsplashProvider creates an Unsplash provider authenticating with an access key.
func NewUnsplashProvider(opts *Options) *UnsplashProvider {
	return &UnsplashProvider{httpProvider: newHTTPProvider(SourceUnsplash, unsplashDefaultEndpoint, opts)}
}

// Fetch returns landscape photo URLs sized for display.
func (p *UnsplashProvider) Fetch(ctx context.Context, q Query, maxResults int) []string {
	if !p.hasCredentials() {
		return nil
	}
	return p.fetch(ctx, q, maxResults, p.search)
}

func (p *UnsplashProvider) search(ctx context.Context, phrase string, limit int) ([]string, error) {
	params := url.Values{
		"query":       {phrase},
		"per_page":    {strconv.Itoa(min(limit, unsplashMaxPerPage))},
		"orientation": {"landscape"},
	}
	body, err := p.getJSON(ctx, p.endpoint+"/search/photos", params, map[string]string{
		"Authorization":  "Client-ID " + p.apiKey,
		"Accept-Version": "v1",
	})
	if err != nil {
		return nil, err
	}

	var resp unsplashResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, p.decodeFailure(err)
	}

	urls := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		if sized := setQuery(r.URLs.Regular, unsplashSizing); sized != "" {
			urls = append(urls, sized)
		}
	}
	return urls, nil
}
