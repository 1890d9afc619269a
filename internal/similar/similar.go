// Package similar looks up the artists Last.fm considers similar to a seed
// artist, streaming the artist.getsimilar response through a Parser.
package similar

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/sydlexius/recfinder/internal/lastfm"
	"github.com/sydlexius/recfinder/internal/metrics"
	"github.com/sydlexius/recfinder/internal/xmlstream"
)

// Failure reasons reported to the caller.
const (
	ReasonURL     = "Error creating URL"
	ReasonParser  = "Error creating parser"
	ReasonDecode  = "Error parsing response"
	ReasonUnknown = "Unknown error"
)

// Failure is returned when the similarity lookup cannot produce a list. Reason
// is the message shown to the user; Err holds the underlying cause, if any.
type Failure struct {
	Reason string
	Err    error
}

func (f *Failure) Error() string { return f.Reason }

func (f *Failure) Unwrap() error { return f.Err }

// Source opens artist.getsimilar documents.
type Source interface {
	OpenSimilar(ctx context.Context, artist string) (io.ReadCloser, error)
}

// Fetcher retrieves similar-artist lists.
type Fetcher struct {
	source  Source
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewFetcher creates a Fetcher. m may be nil.
func NewFetcher(source Source, m *metrics.Metrics, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		source:  source,
		metrics: m,
		logger:  logger.With(slog.String("component", "similar")),
	}
}

// Fetch returns the artists similar to artist, most similar first. An artist
// with no similar artists yields an empty list and a nil error. Any failure
// is a *Failure and no partial list is returned.
func (f *Fetcher) Fetch(ctx context.Context, artist string) ([]string, error) {
	start := time.Now()

	rc, err := f.source.OpenSimilar(ctx, artist)
	if err != nil {
		var bad *lastfm.ErrBadURL
		if errors.As(err, &bad) {
			return nil, &Failure{Reason: ReasonURL, Err: err}
		}
		f.logger.Warn("similar lookup unavailable", slog.String("artist", artist), slog.String("error", err.Error()))
		return nil, &Failure{Reason: ReasonParser, Err: err}
	}
	defer rc.Close() //nolint:errcheck

	p := NewParser()
	halted, err := xmlstream.Drive(ctx, rc, p)
	f.metrics.Document(metrics.KindSimilar, metrics.Outcome(halted, err), time.Since(start))
	if err != nil {
		f.logger.Warn("similar response unreadable", slog.String("artist", artist), slog.String("error", err.Error()))
		return nil, &Failure{Reason: ReasonDecode, Err: err}
	}

	artists, err := p.Result()
	if err != nil {
		f.logger.Info("similar lookup failed", slog.String("artist", artist), slog.String("reason", err.Error()))
		return nil, err
	}

	f.logger.Debug("similar lookup complete",
		slog.String("artist", artist),
		slog.Int("count", len(artists)),
		slog.Duration("duration", time.Since(start)),
	)
	return artists, nil
}
