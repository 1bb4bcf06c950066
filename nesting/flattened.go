package nesting

import (
	"strconv"
	"strings"

	"github.com/arloliu/geostream/event"
)

// DefaultSeparator joins flattened field names.
const DefaultSeparator = "."

// Flattened writes every leaf as one field whose name joins the path segments
// and the repetition index of every group, e.g. "foto.2.bemerkung".
//
// It keeps its own suffix counter per group. The counter follows the levels
// announced by the source and additionally advances when the same grouped path
// repeats without a level change, so repeated values without multiplicity
// indices still get distinct names.
type Flattened struct {
	separator string
	counters  map[string]int
	seen      map[string]int
	lastName  string
	sb        strings.Builder
}

var _ Strategy = (*Flattened)(nil)

// NewFlattened creates a flattening strategy. An empty separator selects DefaultSeparator.
func NewFlattened(separator string) *Flattened {
	if separator == "" {
		separator = DefaultSeparator
	}

	return &Flattened{
		separator: separator,
		counters:  make(map[string]int),
		seen:      make(map[string]int),
	}
}

func (*Flattened) OpenArray(Target, event.Segment)         {}
func (*Flattened) OpenObject(Target, event.Segment, bool) {}
func (*Flattened) OpenValue(Target, event.Segment)         {}
func (*Flattened) CloseObject(Target)                      {}
func (*Flattened) CloseArray(Target)                       {}

// Resolve writes the flattened field name of step.Path.
func (f *Flattened) Resolve(t Target, step Step) {
	if len(step.Path) == 0 {
		clear(f.counters)
		clear(f.seen)
		f.lastName = ""

		return
	}

	repeated := step.DivergeAt >= len(step.Path)-1 && step.MultiplicityDivergeAt == -1 && f.lastName != ""
	lastGroup := -1
	for i, seg := range step.Path {
		if seg.IsGrouped() {
			lastGroup = i
		}
	}

	for i, seg := range step.Path {
		if !seg.IsGrouped() {
			continue
		}

		level := max(step.Levels[seg.Group], 1)
		prev, ok := f.seen[seg.Group]
		switch {
		case !ok || prev != level:
			f.counters[seg.Group] = level
			f.seen[seg.Group] = level
		case repeated && i == lastGroup && f.name(step.Path) == f.lastName:
			f.counters[seg.Group]++
		}
	}

	for g := range f.counters {
		if !hasGroup(step.Path, g) {
			delete(f.counters, g)
			delete(f.seen, g)
		}
	}

	f.lastName = f.name(step.Path)
	t.WriteFieldName(f.lastName)
}

// name renders the path with the current counters.
func (f *Flattened) name(path event.Path) string {
	f.sb.Reset()
	for i, seg := range path {
		if i > 0 {
			f.sb.WriteString(f.separator)
		}
		f.sb.WriteString(seg.Name)
		if seg.IsGrouped() {
			f.sb.WriteString(f.separator)
			f.sb.WriteString(strconv.Itoa(max(f.counters[seg.Group], 1)))
		}
	}

	return f.sb.String()
}

func (f *Flattened) Reset() {
	clear(f.counters)
	clear(f.seen)
	f.lastName = ""
}

func hasGroup(path event.Path, group string) bool {
	for _, seg := range path {
		if seg.Group == group {
			return true
		}
	}

	return false
}
