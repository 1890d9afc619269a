package filter

import (
	"strconv"
	"strings"

	"github.com/sydlexius/recfinder/internal/xmlstream"
)

// infoMatcher is a per-document state machine over an artist.getinfo
// response. After the document is driven, Match reports the attribute value
// that satisfied the mode, if any.
type infoMatcher interface {
	xmlstream.Matcher
	Match() (string, bool)
}

func newMatcher(mode Mode) infoMatcher {
	if mode.Kind() == KindTags {
		return &tagMatcher{mode: mode}
	}
	return &thresholdMatcher{limit: mode.Limit()}
}

// failedStatus reports whether ev is a root element announcing an API error.
func failedStatus(ev xmlstream.Event) bool {
	return ev.Name == "lfm" && ev.Attrs["status"] == "failed"
}

// thresholdMatcher reads the first <listeners> value and stops. The value is
// evaluated when the next element starts, so split text is read whole.
type thresholdMatcher struct {
	limit      int
	currentTag string
	listeners  strings.Builder
	seen       bool

	value   string
	matched bool
}

func (m *thresholdMatcher) Handle(ev xmlstream.Event) error {
	switch ev.Kind {
	case xmlstream.StartElement:
		if failedStatus(ev) {
			return xmlstream.Halt
		}
		if m.seen {
			m.evaluate()
			return xmlstream.Halt
		}
		m.currentTag = ev.Name
	case xmlstream.CharacterData:
		if ev.Text == "\n" {
			return nil
		}
		if m.currentTag == "listeners" {
			m.listeners.WriteString(ev.Text)
			m.seen = true
		}
	case xmlstream.EndOfDocument:
		if m.seen {
			m.evaluate()
		}
	}
	return nil
}

// evaluate applies the ceiling. A count that does not parse never matches.
// The reported value is the parsed count, not the raw text.
func (m *thresholdMatcher) evaluate() {
	n, err := strconv.Atoi(strings.TrimSpace(m.listeners.String()))
	if err != nil {
		return
	}
	if n <= m.limit {
		m.value = strconv.Itoa(n)
		m.matched = true
	}
}

func (m *thresholdMatcher) Match() (string, bool) {
	return m.value, m.matched
}

// tagMatcher looks for the first tag in the <tags> section that belongs to
// the mode's set. <name> elements before <tags> are the artist's own name
// and similar artists, and are ignored.
type tagMatcher struct {
	mode        Mode
	currentTag  string
	reachedTags bool
	inTagName   bool
	name        strings.Builder

	value   string
	matched bool
}

func (m *tagMatcher) Handle(ev xmlstream.Event) error {
	switch ev.Kind {
	case xmlstream.StartElement:
		if failedStatus(ev) {
			return xmlstream.Halt
		}
		if m.check() {
			return xmlstream.Halt
		}
		if ev.Name == "tags" {
			m.reachedTags = true
		}
		m.currentTag = ev.Name
		m.inTagName = m.reachedTags && ev.Name == "name"
	case xmlstream.CharacterData:
		if ev.Text == "\n" {
			return nil
		}
		if m.inTagName {
			m.name.WriteString(ev.Text)
		}
	case xmlstream.EndOfDocument:
		m.check()
	}
	return nil
}

// check tests the buffered tag name, if any, and clears it.
func (m *tagMatcher) check() bool {
	if !m.inTagName || m.name.Len() == 0 {
		return false
	}
	tag := strings.TrimSpace(m.name.String())
	m.name.Reset()
	m.inTagName = false
	if m.mode.Has(tag) {
		m.value = tag
		m.matched = true
		return true
	}
	return false
}

func (m *tagMatcher) Match() (string, bool) {
	return m.value, m.matched
}
