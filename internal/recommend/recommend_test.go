package recommend

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sydlexius/recfinder/internal/filter"
	"github.com/sydlexius/recfinder/internal/lastfm"
	"github.com/sydlexius/recfinder/internal/similar"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubSimilar struct {
	artists []string
	err     error
}

func (s stubSimilar) Fetch(context.Context, string) ([]string, error) {
	return s.artists, s.err
}

type stubFilter struct {
	calls   int
	matches []filter.MatchRecord
	err     error
}

func (f *stubFilter) Filter(_ context.Context, _ []string, _ filter.Mode) ([]filter.MatchRecord, error) {
	f.calls++
	return f.matches, f.err
}

func TestRecommend_SimilarFailureSkipsFilter(t *testing.T) {
	sf := &stubFilter{}
	svc := NewService(stubSimilar{err: &similar.Failure{Reason: "invalid artist"}}, sf, testLogger())

	res, err := svc.Recommend(context.Background(), "zzqx", filter.Threshold(1000))
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 0, sf.calls)
	assert.Equal(t, "invalid artist", res.Error)
	assert.Equal(t, Rows{
		Artists:    []string{"An error occurred:", "invalid artist"},
		Attributes: []string{"", ""},
	}, res.Rows())
}

func TestRecommend_NoMatchesRow(t *testing.T) {
	sf := &stubFilter{matches: []filter.MatchRecord{}}
	svc := NewService(stubSimilar{artists: []string{"a", "b"}}, sf, testLogger())

	res, err := svc.Recommend(context.Background(), "seed", filter.TagSet("rock"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Candidates)
	assert.Equal(t, "Tag", res.Label())
	assert.Equal(t, Rows{Artists: []string{"No artists found!"}, Attributes: []string{""}}, res.Rows())
}

func TestRecommend_MatchesBecomeRows(t *testing.T) {
	sf := &stubFilter{matches: []filter.MatchRecord{
		{Artist: "one", Attribute: "500"},
		{Artist: "two", Attribute: "20"},
	}}
	svc := NewService(stubSimilar{artists: []string{"one", "x", "two"}}, sf, testLogger())

	res, err := svc.Recommend(context.Background(), "seed", filter.Threshold(1000))
	require.NoError(t, err)
	assert.Equal(t, "Listeners", res.Label())
	rows := res.Rows()
	assert.Equal(t, []string{"one", "two"}, rows.Artists)
	assert.Equal(t, []string{"500", "20"}, rows.Attributes)
}

func TestRecommend_FilterErrorIsReturned(t *testing.T) {
	sf := &stubFilter{err: context.Canceled}
	svc := NewService(stubSimilar{artists: []string{"a"}}, sf, testLogger())

	res, err := svc.Recommend(context.Background(), "seed", filter.Threshold(10))
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecommend_InvalidMode(t *testing.T) {
	sf := &stubFilter{}
	svc := NewService(stubSimilar{}, sf, testLogger())

	_, err := svc.Recommend(context.Background(), "seed", filter.Threshold(0))
	require.Error(t, err)
	assert.Equal(t, 0, sf.calls)
}

func TestRecommend_NonFailureErrorStillFillsMessage(t *testing.T) {
	svc := NewService(stubSimilar{err: errors.New("plain")}, &stubFilter{}, testLogger())

	res, err := svc.Recommend(context.Background(), "seed", filter.Threshold(10))
	require.Error(t, err)
	assert.Equal(t, "plain", res.Error)
}

// TestPipeline_EmptySimilarListMakesNoInfoCalls runs both real stages against
// a test server and checks that no artist.getinfo request is issued when the
// seed has no similar artists.
func TestPipeline_EmptySimilarListMakesNoInfoCalls(t *testing.T) {
	var infoCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("method") {
		case "artist.getsimilar":
			w.Write([]byte(`<lfm status="ok"><similarartists artist="x"></similarartists></lfm>`)) //nolint:errcheck
		case "artist.getinfo":
			infoCalls.Add(1)
			w.Write([]byte(`<lfm status="ok"></lfm>`)) //nolint:errcheck
		}
	}))
	defer srv.Close()

	client := lastfm.New(lastfm.Config{APIKey: "k", BaseURL: srv.URL}, testLogger())
	svc := NewService(
		similar.NewFetcher(client, nil, testLogger()),
		filter.New(client, filter.Options{}, nil, testLogger()),
		testLogger(),
	)

	res, err := svc.Recommend(context.Background(), "x", filter.Threshold(1000))
	require.NoError(t, err)
	assert.Empty(t, res.Matches)
	assert.Equal(t, int32(0), infoCalls.Load())
}

func TestPipeline_APIFailureEndToEnd(t *testing.T) {
	var infoCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("method") {
		case "artist.getsimilar":
			w.Write([]byte("<lfm status=\"failed\">\n<error code=\"6\">invalid artist</error>\n</lfm>")) //nolint:errcheck
		case "artist.getinfo":
			infoCalls.Add(1)
		}
	}))
	defer srv.Close()

	client := lastfm.New(lastfm.Config{APIKey: "k", BaseURL: srv.URL}, testLogger())
	svc := NewService(
		similar.NewFetcher(client, nil, testLogger()),
		filter.New(client, filter.Options{}, nil, testLogger()),
		testLogger(),
	)

	res, err := svc.Recommend(context.Background(), "zzqx", filter.TagSet("rock"))
	var failure *similar.Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "invalid artist", res.Error)
	assert.Equal(t, []string{ErrorHeading, "invalid artist"}, res.Rows().Artists)
	assert.Equal(t, int32(0), infoCalls.Load())
}
