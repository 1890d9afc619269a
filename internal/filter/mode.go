package filter

import (
	"fmt"
	"strings"
)

// Kind names a filter mode.
type Kind string

// Filter mode kinds.
const (
	KindThreshold Kind = "threshold"
	KindTags      Kind = "tags"
)

// Mode is the predicate a candidate must satisfy. It is either a listener
// ceiling (Threshold) or a tag set (TagSet); build it with one of those.
type Mode struct {
	kind  Kind
	limit int
	tags  []string
	set   map[string]struct{}
}

// Threshold accepts artists whose listener count is at most limit.
func Threshold(limit int) Mode {
	return Mode{kind: KindThreshold, limit: limit}
}

// TagSet accepts artists tagged with any of tags. Empty and duplicate tags
// are dropped.
func TagSet(tags ...string) Mode {
	m := Mode{kind: KindTags, set: make(map[string]struct{}, len(tags))}
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := m.set[t]; ok {
			continue
		}
		m.set[t] = struct{}{}
		m.tags = append(m.tags, t)
	}
	return m
}

// Kind returns the mode kind.
func (m Mode) Kind() Kind { return m.kind }

// Limit returns the listener ceiling for a Threshold mode.
func (m Mode) Limit() int { return m.limit }

// Tags returns the tag set for a TagSet mode, in the order given.
func (m Mode) Tags() []string { return m.tags }

// Has reports whether tag is in the set.
func (m Mode) Has(tag string) bool {
	_, ok := m.set[tag]
	return ok
}

// AttributeLabel is the column heading for the matched attribute.
func (m Mode) AttributeLabel() string {
	if m.kind == KindTags {
		return "Tag"
	}
	return "Listeners"
}

// Validate reports whether the mode can be run.
func (m Mode) Validate() error {
	switch m.kind {
	case KindThreshold:
		if m.limit <= 0 {
			return fmt.Errorf("listener limit must be greater than zero, got %d", m.limit)
		}
	case KindTags:
		if len(m.tags) == 0 {
			return fmt.Errorf("at least one tag is required")
		}
	default:
		return fmt.Errorf("unknown filter mode %q", m.kind)
	}
	return nil
}

func (m Mode) String() string {
	if m.kind == KindTags {
		return fmt.Sprintf("tags(%s)", strings.Join(m.tags, ","))
	}
	return fmt.Sprintf("threshold(%d)", m.limit)
}
