// Package filter narrows a ranked list of candidate artists down to those
// matching a Mode, fetching one artist.getinfo document per candidate.
package filter

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sydlexius/recfinder/internal/lastfm"
	"github.com/sydlexius/recfinder/internal/metrics"
	"github.com/sydlexius/recfinder/internal/xmlstream"
)

// DefaultQuota is the number of matches after which a run stops.
const DefaultQuota = 10

// MatchRecord is a candidate that satisfied the mode. Attribute is the
// listener count (threshold) or the matched tag (tags).
type MatchRecord struct {
	Artist    string `json:"artist"`
	Attribute string `json:"attribute"`
	URL       string `json:"url"`
}

// Source opens artist.getinfo documents.
type Source interface {
	OpenInfo(ctx context.Context, artist string) (io.ReadCloser, error)
}

// Options tunes a Filter. Zero values select the defaults.
type Options struct {
	Quota   int
	Workers int
}

// Filter evaluates candidates against a Mode.
type Filter struct {
	source  Source
	quota   int
	workers int
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a Filter. m may be nil.
func New(source Source, opts Options, m *metrics.Metrics, logger *slog.Logger) *Filter {
	if opts.Quota <= 0 {
		opts.Quota = DefaultQuota
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Filter{
		source:  source,
		quota:   opts.Quota,
		workers: opts.Workers,
		metrics: m,
		logger:  logger.With(slog.String("component", "filter")),
	}
}

// Filter returns the candidates that satisfy mode, in candidate order, up to
// the quota. A candidate whose document cannot be fetched or read is skipped.
// The only error returned is the context's.
func (f *Filter) Filter(ctx context.Context, candidates []string, mode Mode) ([]MatchRecord, error) {
	matches := make([]MatchRecord, 0, min(f.quota, len(candidates)))
	if len(candidates) == 0 {
		return matches, nil
	}

	if f.workers == 1 {
		for _, artist := range candidates {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if rec, ok := f.evaluate(ctx, artist, mode); ok {
				matches = append(matches, rec)
				if len(matches) >= f.quota {
					break
				}
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f.logRun(candidates, mode, matches)
		return matches, nil
	}

	// Candidates run in windows of up to f.workers, never wider than the
	// matches still needed. Each window's results are merged in index order,
	// so the outcome and the set of fetched candidates equal a sequential run.
	for start := 0; start < len(candidates) && len(matches) < f.quota; {
		width := min(f.workers, f.quota-len(matches))
		window := candidates[start:min(start+width, len(candidates))]
		start += len(window)
		results := make([]*MatchRecord, len(window))

		var g errgroup.Group
		g.SetLimit(f.workers)
		for i, artist := range window {
			g.Go(func() error {
				if rec, ok := f.evaluate(ctx, artist, mode); ok {
					results[i] = &rec
				}
				return nil
			})
		}
		_ = g.Wait()

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, rec := range results {
			if rec != nil && len(matches) < f.quota {
				matches = append(matches, *rec)
			}
		}
	}

	f.logRun(candidates, mode, matches)
	return matches, nil
}

// evaluate fetches and parses one candidate's info document.
func (f *Filter) evaluate(ctx context.Context, artist string, mode Mode) (MatchRecord, bool) {
	start := time.Now()

	rc, err := f.source.OpenInfo(ctx, artist)
	if err != nil {
		f.skip(ctx, artist, "fetch", err)
		return MatchRecord{}, false
	}
	defer rc.Close() //nolint:errcheck

	m := newMatcher(mode)
	halted, err := xmlstream.Drive(ctx, rc, m)
	f.metrics.Document(metrics.KindInfo, metrics.Outcome(halted, err), time.Since(start))
	if err != nil {
		f.skip(ctx, artist, "parse", err)
		return MatchRecord{}, false
	}

	value, ok := m.Match()
	if !ok {
		return MatchRecord{}, false
	}
	f.metrics.Match(string(mode.Kind()))
	return MatchRecord{
		Artist:    artist,
		Attribute: value,
		URL:       lastfm.PageURL(artist),
	}, true
}

func (f *Filter) skip(ctx context.Context, artist, stage string, err error) {
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return
	}
	f.metrics.Skipped()
	f.logger.Debug("skipping candidate",
		slog.String("artist", artist),
		slog.String("stage", stage),
		slog.String("error", err.Error()),
	)
}

func (f *Filter) logRun(candidates []string, mode Mode, matches []MatchRecord) {
	f.logger.Debug("filter run complete",
		slog.String("mode", mode.String()),
		slog.Int("candidates", len(candidates)),
		slog.Int("matches", len(matches)),
	)
}
