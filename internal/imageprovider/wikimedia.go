// wikimedia.go: searches Wikimedia Commons file pages for organism photographs.
package imageprovider

import (
	"cmp"
	"context"
	"net/url"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"github.com/antonholmquist/jason"
)

const (
	wikimediaDefaultEndpoint = "https://commons.wikimedia.org/w/api.php"
	wikimediaMaxResults      = 50
	wikimediaThumbWidth      = "800"

	// https://foundation.wikimedia.org/wiki/Policy:Wikimedia_Foundation_User-Agent_Policy
	userAgentName    = "BioMuseum"
	userAgentVersion = "1.0"
	userAgentLibrary = "Go-HTTP-Client"
	defaultContact   = "https://github.com/srthknk/biomuseum"
)

// buildUserAgent constructs a user-agent string that complies with Wikimedia's robot policy.
// Format: <client name>/<version> (<contact information>) <library/framework name>/<version>
func buildUserAgent(contact string) string {
	if contact == "" {
		contact = defaultContact
	}
	return userAgentName + "/" + userAgentVersion + " (" + contact + ") " + userAgentLibrary + "/" + runtime.Version()
}

// WikimediaProvider searches Commons. It needs no credentials.
type WikimediaProvider struct {
	httpProvider
	userAgent string
}

// NewWikimediaProvider creates a Commons provider identifying itself with contact.
func NewWikimediaProvider(opts *Options, contact string) *WikimediaProvider {
	return &WikimediaProvider{
		httpProvider: newHTTPProvider(SourceWikimedia, wikimediaDefaultEndpoint, opts),
		userAgent:    buildUserAgent(contact),
	}
}

func (p *WikimediaProvider) Fetch(ctx context.Context, q Query, maxResults int) []string {
	return p.fetch(ctx, q, maxResults, p.search)
}

type wikimediaHit struct {
	index int64
	url   string
}

func (p *WikimediaProvider) search(ctx context.Context, phrase string, limit int) ([]string, error) {
	params := url.Values{
		"action":        {"query"},
		"format":        {"json"},
		"formatversion": {"2"},
		"generator":     {"search"},
		"gsrsearch":     {phrase},
		"gsrnamespace":  {"6"}, // File:
		"gsrlimit":      {strconv.Itoa(min(limit, wikimediaMaxResults))},
		"prop":          {"imageinfo"},
		"iiprop":        {"url|mime"},
		"iiurlwidth":    {wikimediaThumbWidth},
	}
	body, err := p.getJSON(ctx, p.endpoint, params, map[string]string{
		"User-Agent": p.userAgent,
	})
	if err != nil {
		return nil, err
	}

	root, err := jason.NewObjectFromBytes(body)
	if err != nil {
		return nil, p.decodeFailure(err)
	}

	if apiErr, err := root.GetObject("error"); err == nil {
		code, _ := apiErr.GetString("code")
		info, _ := apiErr.GetString("info")
		return nil, p.decodeFailure(&wikimediaAPIError{code: code, info: info})
	}

	pages, err := root.GetObjectArray("query", "pages")
	if err != nil {
		// No "query" key means the search matched nothing.
		return nil, nil
	}

	hits := make([]wikimediaHit, 0, len(pages))
	for _, page := range pages {
		infos, err := page.GetObjectArray("imageinfo")
		if err != nil || len(infos) == 0 {
			continue
		}
		info := infos[0]

		mime, _ := info.GetString("mime")
		if !isRasterImage(mime) {
			continue
		}

		link, _ := info.GetString("thumburl")
		if link == "" {
			link, _ = info.GetString("url")
		}
		if link == "" {
			continue
		}

		index, err := page.GetInt64("index")
		if err != nil {
			index = int64(len(hits)) + 1<<32 // unranked pages keep response order, after ranked ones
		}
		hits = append(hits, wikimediaHit{index: index, url: link})
	}

	slices.SortStableFunc(hits, func(a, b wikimediaHit) int { return cmp.Compare(a.index, b.index) })

	urls := make([]string, len(hits))
	for i, h := range hits {
		urls[i] = h.url
	}
	return urls, nil
}

// isRasterImage filters out SVG drawings, audio, video and PDFs that share the File: namespace.
func isRasterImage(mime string) bool {
	switch strings.ToLower(mime) {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	}
	return false
}

type wikimediaAPIError struct {
	code string
	info string
}

func (e *wikimediaAPIError) Error() string {
	return "wikimedia api error " + e.code + ": " + e.info
}
