// Package lastfm builds Last.fm 2.0 web service URLs and opens their XML
// responses as streams for the similar and filter stages.
package lastfm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "http://ws.audioscrobbler.com/2.0/"
	defaultTimeout = 10 * time.Second

	// SimilarLimit is the number of similar artists requested per lookup.
	SimilarLimit = 500

	// maxBodyBytes caps how much of a single response is streamed to a parser.
	maxBodyBytes = 4 << 20
)

// Config holds the settings needed to talk to the Last.fm web service.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration

	// RequestsPerSecond caps outbound requests across all callers of the
	// Client. Zero or less means unlimited.
	RequestsPerSecond float64
}

// Client opens streaming XML documents from the Last.fm 2.0 API. It is safe
// for concurrent use.
type Client struct {
	client  *http.Client
	limiter *rate.Limiter
	apiKey  string
	baseURL string
	logger  *slog.Logger
}

// New creates a Client. An empty BaseURL or zero Timeout fall back to the
// public endpoint and a 10 second per-request timeout.
func New(cfg Config, logger *slog.Logger) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(1, int(cfg.RequestsPerSecond)))
	}
	return &Client{
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(base, "/") + "/",
		logger:  logger.With(slog.String("component", "lastfm")),
	}
}

// SimilarURL returns the artist.getsimilar request URL for artist.
func (c *Client) SimilarURL(artist string) string {
	return c.baseURL + "?method=artist.getsimilar&api_key=" + url.QueryEscape(c.apiKey) +
		fmt.Sprintf("&limit=%d", SimilarLimit) + "&artist=" + Escape(artist)
}

// InfoURL returns the artist.getinfo request URL for artist.
func (c *Client) InfoURL(artist string) string {
	return c.baseURL + "?method=artist.getinfo&api_key=" + url.QueryEscape(c.apiKey) +
		"&artist=" + Escape(artist)
}

// OpenSimilar opens the similar-artists document for artist.
func (c *Client) OpenSimilar(ctx context.Context, artist string) (io.ReadCloser, error) {
	return c.Open(ctx, c.SimilarURL(artist))
}

// OpenInfo opens the artist-info document for artist.
func (c *Client) OpenInfo(ctx context.Context, artist string) (io.ReadCloser, error) {
	return c.Open(ctx, c.InfoURL(artist))
}

// Open issues a GET for rawURL and returns the response body for streaming.
// The caller must close it. Client errors (4xx) still return the body because
// the API describes its failures inside the document; only transport errors
// and server errors are reported as ErrUnavailable.
func (c *Client) Open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &ErrBadURL{URL: Redact(rawURL), Cause: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &ErrBadURL{URL: Redact(rawURL), Cause: fmt.Errorf("unsupported scheme %q", u.Scheme)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &ErrBadURL{URL: Redact(rawURL), Cause: err}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &ErrUnavailable{Cause: fmt.Errorf("rate limiter: %w", err)}
	}

	req.Header.Set("User-Agent", "RecFinder/1.0")
	req.Header.Set("Accept", "application/xml, text/xml")

	c.logger.Debug("requesting", slog.String("url", Redact(rawURL)))

	resp, err := c.client.Do(req) //nolint:gosec // URL built from configured base + escaped params
	if err != nil {
		return nil, &ErrUnavailable{Cause: err}
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		resp.Body.Close() //nolint:errcheck
		return nil, &ErrUnavailable{Cause: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	return &body{Reader: io.LimitReader(resp.Body, maxBodyBytes), closer: resp.Body}, nil
}

type body struct {
	io.Reader
	closer io.Closer
}

func (b *body) Close() error { return b.closer.Close() }

// Escape encodes an artist name for the query string. Spaces become '+' and
// '&' becomes "%26", along with the rest of the reserved set.
func Escape(artist string) string {
	return url.QueryEscape(artist)
}

// PageURL returns the artist's page on last.fm.
func PageURL(artist string) string {
	return "https://www.last.fm/music/" + Escape(artist)
}

// Redact replaces the api_key value in a URL so it can be logged.
func Redact(rawURL string) string {
	i := strings.Index(rawURL, "api_key=")
	if i < 0 {
		return rawURL
	}
	start := i + len("api_key=")
	end := strings.IndexByte(rawURL[start:], '&')
	if end < 0 {
		return rawURL[:start] + "REDACTED"
	}
	return rawURL[:start] + "REDACTED" + rawURL[start+end:]
}
