package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sydlexius/recfinder/internal/api/middleware"
	"github.com/sydlexius/recfinder/internal/filter"
	"github.com/sydlexius/recfinder/internal/recommend"
	"github.com/sydlexius/recfinder/internal/similar"
	"github.com/sydlexius/recfinder/internal/version"
)

type similarResponse struct {
	Artist  string   `json:"artist"`
	Similar []string `json:"similar"`
}

type recommendationResponse struct {
	Artist     string               `json:"artist"`
	Mode       string               `json:"mode"`
	Label      string               `json:"label"`
	Candidates int                  `json:"candidates"`
	Matches    []filter.MatchRecord `json:"matches"`
	Rows       recommend.Rows       `json:"rows"`
	Error      string               `json:"error,omitempty"`
}

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
		"commit":  version.Commit,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (r *Router) handleSimilar(w http.ResponseWriter, req *http.Request) {
	artist := strings.TrimSpace(req.URL.Query().Get("artist"))
	if artist == "" {
		writeError(w, http.StatusBadRequest, "artist is required")
		return
	}

	names, err := r.service.Similar(req.Context(), artist)
	if err != nil {
		r.writeLookupError(w, req, artist, err)
		return
	}
	writeJSON(w, http.StatusOK, similarResponse{Artist: artist, Similar: names})
}

func (r *Router) handleRecommendations(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	artist := strings.TrimSpace(q.Get("artist"))
	if artist == "" {
		writeError(w, http.StatusBadRequest, "artist is required")
		return
	}
	mode, err := parseMode(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := r.service.Recommend(req.Context(), artist, mode)
	if res == nil {
		r.writeLookupError(w, req, artist, err)
		return
	}

	status := http.StatusOK
	if err != nil {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, recommendationResponse{
		Artist:     res.Artist,
		Mode:       res.Mode,
		Label:      res.Label(),
		Candidates: res.Candidates,
		Matches:    res.Matches,
		Rows:       res.Rows(),
		Error:      res.Error,
	})
}

// writeLookupError maps pipeline errors to responses. A similarity failure
// is the upstream's fault; anything else is ours.
func (r *Router) writeLookupError(w http.ResponseWriter, req *http.Request, artist string, err error) {
	var failure *similar.Failure
	if errors.As(err, &failure) {
		writeError(w, http.StatusBadGateway, failure.Reason)
		return
	}
	if req.Context().Err() != nil {
		return
	}
	r.logger.Error("lookup failed",
		slog.String("request_id", middleware.RequestIDFromContext(req.Context())),
		slog.String("artist", artist),
		slog.String("error", err.Error()),
	)
	writeError(w, http.StatusInternalServerError, "internal error")
}

// parseMode reads exactly one of listeners=N or one or more tag=T.
func parseMode(q url.Values) (filter.Mode, error) {
	listeners := strings.TrimSpace(q.Get("listeners"))
	tags := q["tag"]

	switch {
	case listeners != "" && len(tags) > 0:
		return filter.Mode{}, errors.New("use either listeners or tag, not both")
	case listeners != "":
		n, err := strconv.Atoi(listeners)
		if err != nil || n <= 0 {
			return filter.Mode{}, errors.New("listeners must be a positive integer")
		}
		return filter.Threshold(n), nil
	case len(tags) > 0:
		mode := filter.TagSet(tags...)
		if err := mode.Validate(); err != nil {
			return filter.Mode{}, err
		}
		return mode, nil
	default:
		return filter.Mode{}, errors.New("listeners or tag is required")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encode error", http.StatusInternalServerError)
	}
}
