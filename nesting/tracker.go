// Package nesting maps a sequence of property paths to the minimal set of
// container open and close actions on an output target.
//
// Property paths arrive one value at a time, e.g.
//
//	foto[foto].bemerkung  @[1]
//	foto[foto].hauptfoto  @[1]
//	foto[foto].bemerkung  @[2]
//	kennung
//
// The Tracker compares each path with the previous one, closes what is no
// longer shared, opens what is new and lets a Strategy decide how containers
// are represented: as real JSON nesting (Nested) or as flattened field names
// with repetition suffixes (Flattened).
package nesting

import "github.com/arloliu/geostream/event"

// Target receives the structural writes of a Strategy. sink.Sink implements it.
type Target interface {
	WriteStartObject()
	WriteEndObject()
	WriteStartArray()
	WriteEndArray()
	WriteFieldName(name string)
}

// Step describes one resolved Track call.
type Step struct {
	// Path is the new path.
	Path event.Path
	// DivergeAt is the first segment that was closed and reopened.
	DivergeAt int
	// MultiplicityDivergeAt is the first segment whose group level changed, or -1.
	MultiplicityDivergeAt int
	// Levels holds the current repetition index per group key. It must not be modified.
	Levels map[string]int
}

// Strategy performs the writes decided by the Tracker.
type Strategy interface {
	// OpenArray opens the array of a grouped segment.
	OpenArray(t Target, seg event.Segment)
	// OpenObject opens an intermediate object. element is true for objects
	// opened as elements of a group array, false for named nested objects.
	OpenObject(t Target, seg event.Segment, element bool)
	// OpenValue announces the leaf field a scalar value is written to.
	OpenValue(t Target, seg event.Segment)
	CloseObject(t Target)
	CloseArray(t Target)
	// Resolve is called once at the end of every Track call that changed state.
	Resolve(t Target, step Step)
	// Reset drops per-feature state.
	Reset()
}

// Tracker holds the last path and group levels of one feature.
//
// Tracker is NOT thread-safe and belongs to one encoding session.
type Tracker struct {
	strategy Strategy
	lastPath event.Path
	levels   map[string]int
}

// NewTracker creates a tracker writing through the given strategy.
func NewTracker(strategy Strategy) *Tracker {
	return &Tracker{
		strategy: strategy,
		levels:   make(map[string]int),
	}
}

// Strategy returns the strategy the tracker writes through.
func (t *Tracker) Strategy() Strategy {
	return t.strategy
}

// Track transforms the structure written to dst from the last path to path.
//
// multiplicities holds the 1-based repetition index for every grouped segment
// of path, in order. Missing indices default to 1.
//
// After Track returns, a scalar value for the leaf of path may be written to dst.
// A blank path with no last path writes nothing.
func (t *Tracker) Track(dst Target, path event.Path, multiplicities []int) {
	if path.IsBlank() && len(t.lastPath) == 0 {
		return
	}

	pathDivergeAt := path.DivergeAt(t.lastPath)

	multDivergeAt := -1
	group := 0
	for i, seg := range path {
		if !seg.IsGrouped() {
			continue
		}

		level := levelAt(multiplicities, group)
		group++

		prev, ok := t.levels[seg.Group]
		if !ok {
			t.levels[seg.Group] = level
			continue
		}
		if prev != level {
			t.levels[seg.Group] = level
			if multDivergeAt == -1 {
				multDivergeAt = i
			}
		}
	}

	divergeAt := pathDivergeAt
	if multDivergeAt != -1 && multDivergeAt < divergeAt {
		divergeAt = multDivergeAt
	}

	// A repeated identical scalar path reopens its field.
	if divergeAt == len(path) && len(path) == len(t.lastPath) && len(path) > 0 && !path.Last().IsGrouped() {
		divergeAt--
	}

	inArray := false
	if divergeAt == multDivergeAt && divergeAt < len(t.lastPath) && t.lastPath[divergeAt] == path[divergeAt] {
		inArray = t.levels[path[divergeAt].Group] > 1
	}

	t.closeTo(dst, divergeAt, inArray)
	t.openFrom(dst, path, divergeAt, inArray)

	t.strategy.Resolve(dst, Step{
		Path:                  path,
		DivergeAt:             divergeAt,
		MultiplicityDivergeAt: multDivergeAt,
		Levels:                t.levels,
	})

	t.lastPath = append(t.lastPath[:0], path...)
	t.forgetGroups(path)
}

// Repeats reports whether path names the same leaf as the last tracked path:
// equal segments, equal multiplicity indices and an ungrouped leaf. Tracking
// such a path writes the leaf a second time.
func (t *Tracker) Repeats(path event.Path, multiplicities []int) bool {
	if len(path) == 0 || len(path) != len(t.lastPath) || path.Last().IsGrouped() {
		return false
	}
	if path.DivergeAt(t.lastPath) != len(path) {
		return false
	}

	group := 0
	for _, seg := range path {
		if !seg.IsGrouped() {
			continue
		}
		if t.levels[seg.Group] != levelAt(multiplicities, group) {
			return false
		}
		group++
	}

	return true
}

// levelAt returns the 1-based index of the group-th grouped segment.
func levelAt(multiplicities []int, group int) int {
	if group < len(multiplicities) && multiplicities[group] > 0 {
		return multiplicities[group]
	}

	return 1
}

func (t *Tracker) closeTo(dst Target, divergeAt int, inArray bool) {
	last := t.lastPath
	for j := len(last) - 1; j >= divergeAt; j-- {
		seg := last[j]
		if j < len(last)-1 {
			t.strategy.CloseObject(dst)
		}
		if seg.IsGrouped() && !(j == divergeAt && inArray) {
			t.strategy.CloseArray(dst)
		}
	}
}

func (t *Tracker) openFrom(dst Target, path event.Path, divergeAt int, inArray bool) {
	for j := divergeAt; j < len(path); j++ {
		seg := path[j]
		stay := j == divergeAt && inArray

		if seg.IsGrouped() && !stay {
			t.strategy.OpenArray(dst, seg)
		}

		switch {
		case j < len(path)-1:
			t.strategy.OpenObject(dst, seg, seg.IsGrouped())
		case !seg.IsGrouped() && !stay:
			t.strategy.OpenValue(dst, seg)
		}
	}
}

// forgetGroups drops levels of groups that left the path so that a group
// entered again starts from its first element.
func (t *Tracker) forgetGroups(path event.Path) {
	for g := range t.levels {
		found := false
		for _, seg := range path {
			if seg.Group == g {
				found = true
				break
			}
		}
		if !found {
			delete(t.levels, g)
		}
	}
}

// Close closes every container opened for the last path.
func (t *Tracker) Close(dst Target) {
	t.Track(dst, nil, nil)
}

// Depth returns the number of segments of the last tracked path.
func (t *Tracker) Depth() int {
	return len(t.lastPath)
}

// Reset forgets the last path and all group levels without writing anything.
func (t *Tracker) Reset() {
	t.lastPath = t.lastPath[:0]
	clear(t.levels)
	t.strategy.Reset()
}
