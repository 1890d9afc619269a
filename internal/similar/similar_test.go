package similar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sydlexius/recfinder/internal/lastfm"
	"github.com/sydlexius/recfinder/internal/metrics"
	"github.com/sydlexius/recfinder/internal/xmlstream"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("loading fixture %s: %v", name, err)
	}
	return data
}

// newTestServer serves the getsimilar fixture named by the artist parameter.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("method") != "artist.getsimilar" || q.Get("limit") != "500" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/xml")
		switch q.Get("artist") {
		case "Cher":
			w.Write(loadFixture(t, "similar_cher.xml")) //nolint:errcheck
		case "Nobody Listens To Us":
			w.Write(loadFixture(t, "similar_empty.xml")) //nolint:errcheck
		case "broken":
			w.Write([]byte(`<lfm status="ok"><similarartists><artist><name>Half`)) //nolint:errcheck
		case "down":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.Write(loadFixture(t, "similar_failed.xml")) //nolint:errcheck
		}
	}))
}

func newFetcher(t *testing.T, baseURL string) *Fetcher {
	t.Helper()
	client := lastfm.New(lastfm.Config{APIKey: "test-key", BaseURL: baseURL}, testLogger())
	return NewFetcher(client, nil, testLogger())
}

func TestFetch_Success(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	artists, err := newFetcher(t, srv.URL).Fetch(context.Background(), "Cher")
	require.NoError(t, err)
	assert.Equal(t, []string{"Sonny & Cher", "Guns N' Roses", "Madonna"}, artists)
}

func TestFetch_APIFailure(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	artists, err := newFetcher(t, srv.URL).Fetch(context.Background(), "zzqx not an artist")
	assert.Nil(t, artists)

	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "invalid artist", failure.Reason)
	assert.Equal(t, "invalid artist", err.Error())
}

func TestFetch_NoSimilarArtists(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	artists, err := newFetcher(t, srv.URL).Fetch(context.Background(), "Nobody Listens To Us")
	require.NoError(t, err)
	assert.NotNil(t, artists)
	assert.Empty(t, artists)
}

func TestFetch_Unavailable(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	_, err := newFetcher(t, srv.URL).Fetch(context.Background(), "down")
	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, ReasonParser, failure.Reason)

	var unavailable *lastfm.ErrUnavailable
	assert.ErrorAs(t, err, &unavailable)
}

func TestFetch_BadURL(t *testing.T) {
	_, err := newFetcher(t, "://nowhere").Fetch(context.Background(), "Cher")
	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, ReasonURL, failure.Reason)
}

func TestFetch_TruncatedDocument(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	artists, err := newFetcher(t, srv.URL).Fetch(context.Background(), "broken")
	assert.Nil(t, artists)
	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, ReasonDecode, failure.Reason)
}

func TestFetch_RecordsMetrics(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	m := metrics.New()
	client := lastfm.New(lastfm.Config{APIKey: "k", BaseURL: srv.URL}, testLogger())
	f := NewFetcher(client, m, testLogger())

	_, err := f.Fetch(context.Background(), "Cher")
	require.NoError(t, err)

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	var found bool
	for _, mf := range families {
		if mf.GetName() == "recfinder_documents_total" {
			found = true
		}
	}
	assert.True(t, found, "expected documents counter to be exported")
}

type fakeSource struct {
	err error
}

func (s fakeSource) OpenSimilar(context.Context, string) (io.ReadCloser, error) {
	return nil, s.err
}

func TestFetch_SourceErrorsMapToReasons(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"bad url", &lastfm.ErrBadURL{URL: "x", Cause: errors.New("parse")}, ReasonURL},
		{"unavailable", &lastfm.ErrUnavailable{Cause: errors.New("refused")}, ReasonParser},
		{"other", errors.New("surprise"), ReasonParser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFetcher(fakeSource{err: tt.err}, nil, testLogger())
			_, err := f.Fetch(context.Background(), "Cher")
			var failure *Failure
			require.ErrorAs(t, err, &failure)
			assert.Equal(t, tt.want, failure.Reason)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestParser_SplitNameFragments(t *testing.T) {
	p := NewParser()
	halted, err := xmlstream.Replay([]xmlstream.Event{
		xmlstream.Start("lfm", "status", "ok"),
		xmlstream.Text("\n"),
		xmlstream.Start("similarartists", "artist", "Cher"),
		xmlstream.Start("artist"),
		xmlstream.Start("name"),
		xmlstream.Text("Guns N"),
		xmlstream.Text("'"),
		xmlstream.Text(" Roses"),
		xmlstream.Text("\n"),
		xmlstream.Start("mbid"),
		xmlstream.Text("eeb1195b"),
		xmlstream.Start("match"),
		xmlstream.Text("0."),
		xmlstream.Text("81"),
		xmlstream.Start("artist"),
		xmlstream.Start("name"),
		xmlstream.Text("Madonna"),
		xmlstream.Start("match"),
		xmlstream.Text("0.64"),
		xmlstream.End(),
	}, p)
	require.NoError(t, err)
	assert.False(t, halted)

	artists, err := p.Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"Guns N' Roses", "Madonna"}, artists)
}

func TestParser_FailureWaitsForMessage(t *testing.T) {
	p := NewParser()
	halted, err := xmlstream.Replay([]xmlstream.Event{
		xmlstream.Start("lfm", "status", "failed"),
		xmlstream.Text("\n"),
		xmlstream.Start("error", "code", "6"),
		xmlstream.Text("invalid "),
		xmlstream.Text("artist"),
		xmlstream.Start("trailer"),
		xmlstream.Text("never read"),
		xmlstream.End(),
	}, p)
	require.NoError(t, err)
	assert.True(t, halted, "parser should halt once the error message is complete")

	_, err = p.Result()
	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "invalid artist", failure.Reason)
}

func TestParser_FailureWithoutMessage(t *testing.T) {
	p := NewParser()
	_, err := xmlstream.Replay([]xmlstream.Event{
		xmlstream.Start("lfm", "status", "failed"),
		xmlstream.End(),
	}, p)
	require.NoError(t, err)

	_, err = p.Result()
	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, ReasonUnknown, failure.Reason)
}

func TestParser_CapsAtLimit(t *testing.T) {
	events := []xmlstream.Event{xmlstream.Start("lfm", "status", "ok")}
	for i := range lastfm.SimilarLimit + 25 {
		events = append(events,
			xmlstream.Start("artist"),
			xmlstream.Start("name"),
			xmlstream.Text(fmt.Sprintf("artist %d", i)),
			xmlstream.Start("match"),
			xmlstream.Text("0.5"),
		)
	}
	events = append(events, xmlstream.End())

	p := NewParser()
	halted, err := xmlstream.Replay(events, p)
	require.NoError(t, err)
	assert.True(t, halted)

	artists, err := p.Result()
	require.NoError(t, err)
	assert.Len(t, artists, lastfm.SimilarLimit)
	assert.Equal(t, "artist 0", artists[0])
	assert.Equal(t, fmt.Sprintf("artist %d", lastfm.SimilarLimit-1), artists[len(artists)-1])
}

func TestParser_ReplayIsIdempotent(t *testing.T) {
	events := []xmlstream.Event{
		xmlstream.Start("lfm", "status", "ok"),
		xmlstream.Start("name"),
		xmlstream.Text("A"),
		xmlstream.Start("match"),
		xmlstream.Text("1"),
		xmlstream.Start("name"),
		xmlstream.Text("B"),
		xmlstream.Start("match"),
		xmlstream.Text("0.9"),
		xmlstream.Start("name"),
		xmlstream.Text("A"),
		xmlstream.Start("match"),
		xmlstream.Text("0.8"),
		xmlstream.End(),
	}

	var runs [][]string
	for range 3 {
		p := NewParser()
		_, err := xmlstream.Replay(events, p)
		require.NoError(t, err)
		artists, err := p.Result()
		require.NoError(t, err)
		runs = append(runs, artists)
	}
	assert.Equal(t, []string{"A", "B", "A"}, runs[0], "duplicates are preserved in order")
	assert.Equal(t, runs[0], runs[1])
	assert.Equal(t, runs[0], runs[2])
}
