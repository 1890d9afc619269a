package similar

import (
	"strings"

	"github.com/sydlexius/recfinder/internal/lastfm"
	"github.com/sydlexius/recfinder/internal/xmlstream"
)

// Parser is the state machine that consumes an artist.getsimilar document.
// A Parser is single-use; create a new one per document.
//
// Each similar artist arrives as a <name> element followed by a <match>
// element. The name may be split over several character data events, so it
// is buffered until the first text of the following <match>.
type Parser struct {
	max        int
	currentTag string
	name       strings.Builder
	artists    []string

	failed  bool
	message strings.Builder
}

// NewParser returns a Parser that accepts up to lastfm.SimilarLimit names.
func NewParser() *Parser {
	return &Parser{max: lastfm.SimilarLimit, artists: []string{}}
}

// Handle implements xmlstream.Matcher.
func (p *Parser) Handle(ev xmlstream.Event) error {
	switch ev.Kind {
	case xmlstream.StartElement:
		// The error text is complete once anything else starts.
		if p.currentTag == "error" && p.message.Len() > 0 {
			return xmlstream.Halt
		}
		if ev.Name == "lfm" && ev.Attrs["status"] == "failed" {
			p.failed = true
		}
		p.currentTag = ev.Name

	case xmlstream.CharacterData:
		// Pretty-printed responses deliver a lone newline that belongs to no
		// element.
		if ev.Text == "\n" {
			return nil
		}
		switch p.currentTag {
		case "name":
			p.name.WriteString(ev.Text)
		case "match":
			if p.name.Len() == 0 {
				return nil
			}
			p.artists = append(p.artists, p.name.String())
			p.name.Reset()
			if len(p.artists) >= p.max {
				return xmlstream.Halt
			}
		case "error":
			p.message.WriteString(ev.Text)
		}
	}
	return nil
}

// Result returns the similar artists in response order, or a *Failure when
// the document reported status="failed".
func (p *Parser) Result() ([]string, error) {
	if p.failed {
		msg := strings.TrimSpace(p.message.String())
		if msg == "" {
			msg = ReasonUnknown
		}
		return nil, &Failure{Reason: msg}
	}
	return p.artists, nil
}
