// Package recommend runs the similarity lookup and candidate filter as one
// pipeline and shapes the outcome into the rows shown to a user.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sydlexius/recfinder/internal/filter"
	"github.com/sydlexius/recfinder/internal/similar"
)

// Sentinel rows shown in place of results.
const (
	ErrorHeading   = "An error occurred:"
	NoArtistsFound = "No artists found!"
)

// SimilarFetcher looks up similar artists for a seed.
type SimilarFetcher interface {
	Fetch(ctx context.Context, artist string) ([]string, error)
}

// CandidateFilter narrows candidates to those matching a mode.
type CandidateFilter interface {
	Filter(ctx context.Context, candidates []string, mode filter.Mode) ([]filter.MatchRecord, error)
}

// Result is the outcome of one recommendation run.
type Result struct {
	Artist     string               `json:"artist"`
	Mode       string               `json:"mode"`
	Candidates int                  `json:"candidates"`
	Matches    []filter.MatchRecord `json:"matches"`
	Error      string               `json:"error,omitempty"`

	label string
}

// Rows is the two-column view of a Result. Both slices always have the same
// length.
type Rows struct {
	Artists    []string `json:"artists"`
	Attributes []string `json:"attributes"`
}

// Label returns the heading for the attribute column.
func (r *Result) Label() string {
	if r.label == "" {
		return "Listeners"
	}
	return r.label
}

// Rows converts the result into display rows. A failed lookup becomes the
// two-row error sentinel; an empty result becomes a single "no artists" row.
func (r *Result) Rows() Rows {
	if r.Error != "" {
		return Rows{
			Artists:    []string{ErrorHeading, r.Error},
			Attributes: []string{"", ""},
		}
	}
	if len(r.Matches) == 0 {
		return Rows{
			Artists:    []string{NoArtistsFound},
			Attributes: []string{""},
		}
	}
	rows := Rows{
		Artists:    make([]string, 0, len(r.Matches)),
		Attributes: make([]string, 0, len(r.Matches)),
	}
	for _, m := range r.Matches {
		rows.Artists = append(rows.Artists, m.Artist)
		rows.Attributes = append(rows.Attributes, m.Attribute)
	}
	return rows
}

// Service wires the two pipeline stages together.
type Service struct {
	similar SimilarFetcher
	filter  CandidateFilter
	logger  *slog.Logger
}

// NewService creates a Service.
func NewService(s SimilarFetcher, f CandidateFilter, logger *slog.Logger) *Service {
	return &Service{
		similar: s,
		filter:  f,
		logger:  logger.With(slog.String("component", "recommend")),
	}
}

// Similar returns the similar artists for seed without filtering.
func (s *Service) Similar(ctx context.Context, seed string) ([]string, error) {
	return s.similar.Fetch(ctx, seed)
}

// Recommend finds artists similar to seed that satisfy mode. When the
// similarity lookup fails the returned Result carries the failure message in
// Error, the error is returned alongside it, and no candidate is filtered.
func (s *Service) Recommend(ctx context.Context, seed string, mode filter.Mode) (*Result, error) {
	if err := mode.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	res := &Result{
		Artist:  seed,
		Mode:    mode.String(),
		Matches: []filter.MatchRecord{},
		label:   mode.AttributeLabel(),
	}

	candidates, err := s.similar.Fetch(ctx, seed)
	if err != nil {
		var failure *similar.Failure
		if errors.As(err, &failure) {
			res.Error = failure.Reason
		} else {
			res.Error = err.Error()
		}
		return res, err
	}
	res.Candidates = len(candidates)

	matches, err := s.filter.Filter(ctx, candidates, mode)
	if err != nil {
		return nil, fmt.Errorf("filtering candidates: %w", err)
	}
	res.Matches = matches

	s.logger.Info("recommendation complete",
		slog.String("artist", seed),
		slog.String("mode", res.Mode),
		slog.Int("candidates", res.Candidates),
		slog.Int("matches", len(matches)),
		slog.Duration("duration", time.Since(start)),
	)
	return res, nil
}
