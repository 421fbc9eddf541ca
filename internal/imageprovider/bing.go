package imageprovider

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
)

const (
	bingDefaultEndpoint = "https://api.bing.microsoft.com"
	bingMaxCount        = 150
)

type bingResponse struct {
	Value []struct {
		ContentURL string `json:"contentUrl"`
	} `json:"value"`
}

// BingProvider searches the Bing image search API.
type BingProvider struct {
	httpProvider
}

// NewBingProvider creates a Bing image search provider.
func NewBingProvider(opts *Options) *BingProvider {
	return &BingProvider{httpProvider: newHTTPProvider(SourceBing, bingDefaultEndpoint, opts)}
}

func (p *BingProvider) Fetch(ctx context.Context, q Query, maxResults int) []string {
	if !p.hasCredentials() {
		return nil
	}
	return p.fetch(ctx, q, maxResults, p.search)
}

func (p *BingProvider) search(ctx context.Context, phrase string, limit int) ([]string, error) {
	params := url.Values{
		"q":          {phrase},
		"count":      {strconv.Itoa(min(limit, bingMaxCount))},
		"imageType":  {"Photo"},
		"aspect":     {"Square"},
		"safeSearch": {"Strict"},
	}
	body, err := p.getJSON(ctx, p.endpoint+"/v7.0/images/search", params, map[string]string{
		"Ocp-Apim-Subscription-Key": p.apiKey,
	})
	if err != nil {
		return nil, err
	}

	var resp bingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, p.decodeFailure(err)
	}

	urls := make([]string, 0, len(resp.Value))
	for _, v := range resp.Value {
		if v.ContentURL != "" {
			urls = append(urls, v.ContentURL)
		}
	}
	return urls, nil
}
