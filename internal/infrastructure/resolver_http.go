package infrastructure

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/yourusername/sonic-extract-go/internal/domain"
	"go.uber.org/zap"
)

// HTTPResolver resolves direct media URLs by probing the source with a
// HEAD request. It fills in title, size and source format from the URL
// path and response headers.
type HTTPResolver struct {
	config *domain.ResolverConfig
	client *http.Client
	logger *zap.Logger
}

// NewHTTPResolver creates a resolver using the configured timeout and
// user agent
func NewHTTPResolver(config *domain.ResolverConfig, logger *zap.Logger) *HTTPResolver {
	return &HTTPResolver{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger,
	}
}

// Resolve probes the media reference and returns its metadata
func (r *HTTPResolver) Resolve(ctx context.Context, reference string) (*domain.MediaMetadata, error) {
	parsed, err := url.Parse(reference)
	if err != nil {
		return nil, fmt.Errorf("invalid media URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("media URL has no host: %s", reference)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, reference, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", r.config.UserAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to probe source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("source returned status %d", resp.StatusCode)
	}

	meta := &domain.MediaMetadata{
		Title:        titleFromURL(parsed),
		SizeBytes:    resp.ContentLength,
		SourceFormat: formatFromResponse(parsed, resp),
	}
	if meta.SizeBytes < 0 {
		meta.SizeBytes = 0
	}

	r.logger.Debug("Media reference resolved",
		zap.String("reference", reference),
		zap.String("title", meta.Title),
		zap.Int64("size", meta.SizeBytes),
		zap.String("format", meta.SourceFormat))

	return meta, nil
}

// titleFromURL derives a human-readable title from the URL path,
// falling back to the host when the path is bare
func titleFromURL(u *url.URL) string {
	base := path.Base(u.Path)
	if base == "/" || base == "." || base == "" {
		return u.Host
	}
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	if decoded, err := url.PathUnescape(base); err == nil {
		base = decoded
	}
	return base
}

// formatFromResponse picks the source format from the URL extension,
// falling back to the Content-Type header
func formatFromResponse(u *url.URL, resp *http.Response) string {
	if ext := strings.TrimPrefix(path.Ext(u.Path), "."); ext != "" {
		return strings.ToLower(ext)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mediaType, _, err := mime.ParseMediaType(ct); err == nil {
			if idx := strings.IndexByte(mediaType, '/'); idx >= 0 && idx < len(mediaType)-1 {
				return mediaType[idx+1:]
			}
		}
	}
	return ""
}
