package validator

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gabriel-vasile/mimetype"

	"github.com/srthknk/biomuseum/internal/errors"
)

// Image is a downloaded candidate ready for the classifier.
type Image struct {
	Data     []byte
	MIMEType string
}

// previewSelectors locate the preview image of an HTML landing page, best first.
var previewSelectors = []string{
	`meta[property="og:image"]`,
	`meta[name="og:image"]`,
	`meta[property="og:image:url"]`,
	`meta[name="twitter:image"]`,
	`meta[property="twitter:image"]`,
}

// download fetches imageURL. An HTML page is followed once through its
// preview image meta tag.
func (v *Validator) download(ctx context.Context, imageURL string) (Image, error) {
	ctx, cancel := context.WithTimeout(ctx, v.downloadTimeout)
	defer cancel()

	data, mediaType, err := v.fetch(ctx, imageURL)
	if err != nil {
		return Image{}, err
	}

	if isHTML(mediaType) {
		preview, err := previewImage(imageURL, data)
		if err != nil {
			return Image{}, downloadError(imageURL, err)
		}
		data, mediaType, err = v.fetch(ctx, preview)
		if err != nil {
			return Image{}, err
		}
	}

	if !strings.HasPrefix(mediaType, "image/") {
		return Image{}, downloadError(imageURL, fmt.Errorf("content type %q is not an image", mediaType))
	}

	return Image{Data: data, MIMEType: imageMIME(mediaType)}, nil
}

// fetch returns the body and its media type.
func (v *Validator) fetch(ctx context.Context, rawURL string) (data []byte, mediaType string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, "", downloadError(rawURL, err)
	}
	req.Header.Set("Accept", "image/avif,image/webp,image/*,text/html;q=0.5,*/*;q=0.1")

	resp, err := v.client.Do(ctx, req)
	if err != nil {
		return nil, "", downloadError(rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", downloadError(rawURL, fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	data, err = io.ReadAll(io.LimitReader(resp.Body, v.maxImageBytes+1))
	if err != nil {
		return nil, "", downloadError(rawURL, err)
	}
	switch {
	case len(data) == 0:
		return nil, "", downloadError(rawURL, fmt.Errorf("empty body"))
	case int64(len(data)) > v.maxImageBytes:
		return nil, "", downloadError(rawURL, fmt.Errorf("body exceeds %d bytes", v.maxImageBytes))
	}

	return data, mediaTypeOf(resp.Header.Get("Content-Type"), data), nil
}

// mediaTypeOf trusts a specific Content-Type and sniffs the body otherwise.
func mediaTypeOf(contentType string, data []byte) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err == nil && mediaType != "" && mediaType != "application/octet-stream" && mediaType != "binary/octet-stream" {
		return strings.ToLower(mediaType)
	}
	sniffed, _, _ := strings.Cut(mimetype.Detect(data).String(), ";")
	return strings.ToLower(strings.TrimSpace(sniffed))
}

func isHTML(mediaType string) bool {
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// imageMIME maps an image media type onto the set classifiers accept.
func imageMIME(mediaType string) string {
	switch {
	case strings.Contains(mediaType, "png"):
		return "image/png"
	case strings.Contains(mediaType, "gif"):
		return "image/gif"
	case strings.Contains(mediaType, "webp"):
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// previewImage returns the absolute preview image URL declared by an HTML page.
func previewImage(pageURL string, page []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	for _, sel := range previewSelectors {
		content, ok := doc.Find(sel).First().Attr("content")
		content = strings.TrimSpace(content)
		if !ok || content == "" {
			continue
		}
		base, err := url.Parse(pageURL)
		if err != nil {
			return "", err
		}
		ref, err := url.Parse(content)
		if err != nil {
			continue
		}
		return base.ResolveReference(ref).String(), nil
	}
	return "", fmt.Errorf("html page has no preview image")
}

func downloadError(rawURL string, err error) error {
	return errors.New(fmt.Errorf("%w: %w", ErrDownloadFailed, err)).
		Component(componentName).
		Category(errors.CategoryImageFetch).
		Context("url", rawURL).
		Build()
}
