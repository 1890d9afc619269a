// Package xmlstream turns an XML document into a flat stream of events that a
// small state machine can consume one at a time, stopping as soon as it has
// what it needs.
package xmlstream

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// Kind identifies the type of an Event.
type Kind int

// Event kinds delivered to a Matcher.
const (
	StartElement Kind = iota + 1
	CharacterData
	EndOfDocument
)

func (k Kind) String() string {
	switch k {
	case StartElement:
		return "start"
	case CharacterData:
		return "chardata"
	case EndOfDocument:
		return "eod"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is a single tokenizer event. Name and Attrs are set for
// StartElement, Text for CharacterData.
type Event struct {
	Kind  Kind
	Name  string
	Attrs map[string]string
	Text  string
}

// Start builds a StartElement event. Attributes are given as key/value pairs.
func Start(name string, kv ...string) Event {
	ev := Event{Kind: StartElement, Name: name}
	if len(kv) > 0 {
		ev.Attrs = make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			ev.Attrs[kv[i]] = kv[i+1]
		}
	}
	return ev
}

// Text builds a CharacterData event.
func Text(s string) Event {
	return Event{Kind: CharacterData, Text: s}
}

// End builds an EndOfDocument event.
func End() Event {
	return Event{Kind: EndOfDocument}
}

// Halt is returned by a Matcher to stop consuming events. It is not a
// failure: drivers report it as halted with a nil error.
var Halt = errors.New("xmlstream: halt") //nolint:staticcheck // ST1012: named like filepath.SkipAll

// Matcher consumes events in document order. Character data for one text
// node may be split across several consecutive CharacterData events.
type Matcher interface {
	Handle(ev Event) error
}

// MatcherFunc adapts a function to the Matcher interface.
type MatcherFunc func(ev Event) error

// Handle calls f(ev).
func (f MatcherFunc) Handle(ev Event) error { return f(ev) }

// Drive tokenizes r and feeds the events to m until the document ends, m
// returns Halt, m returns an error, or ctx is canceled.
//
// Character data is only delivered while inside the most recently opened
// element; text that follows an end tag (indentation between siblings) is
// dropped, as are comments, processing instructions and directives.
// EndOfDocument is delivered once, and only when the document was consumed
// without a halt.
func Drive(ctx context.Context, r io.Reader, m Matcher) (halted bool, err error) {
	decoder := xml.NewDecoder(r)
	decoder.Strict = false
	decoder.CharsetReader = passthroughCharset

	open := false
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return false, fmt.Errorf("decoding xml: %w", err)
		}

		var ev Event
		switch t := tok.(type) {
		case xml.StartElement:
			open = true
			ev = Start(t.Name.Local)
			if len(t.Attr) > 0 {
				ev.Attrs = make(map[string]string, len(t.Attr))
				for _, a := range t.Attr {
					ev.Attrs[a.Name.Local] = a.Value
				}
			}
		case xml.EndElement:
			open = false
			continue
		case xml.CharData:
			if !open || len(t) == 0 {
				continue
			}
			ev = Text(string(t))
		default:
			continue
		}

		if halted, err := deliver(m, ev); halted || err != nil {
			return halted, err
		}
	}

	return deliver(m, End())
}

// Replay feeds a prepared event sequence to m. It stops early on Halt or
// error, in the same way as Drive.
func Replay(events []Event, m Matcher) (halted bool, err error) {
	for _, ev := range events {
		if halted, err := deliver(m, ev); halted || err != nil {
			return halted, err
		}
	}
	return false, nil
}

func deliver(m Matcher, ev Event) (bool, error) {
	err := m.Handle(ev)
	if errors.Is(err, Halt) {
		return true, nil
	}
	return false, err
}

// passthroughCharset accepts any declared charset. Last.fm always serves
// UTF-8, but some responses declare it in a form encoding/xml rejects.
func passthroughCharset(_ string, input io.Reader) (io.Reader, error) {
	return input, nil
}
