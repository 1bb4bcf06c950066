package event

import "strings"

// Segment is one element of a property path.
//
// Group is the key of the multiplicity group the segment belongs to, empty when
// the segment does not repeat.
type Segment struct {
	Name  string
	Group string
}

// IsGrouped reports whether the segment belongs to a multiplicity group.
func (s Segment) IsGrouped() bool {
	return s.Group != ""
}

func (s Segment) String() string {
	if s.Group == "" {
		return s.Name
	}

	return s.Name + "[" + s.Group + "]"
}

// Path is an ordered list of segments from the feature root down to a property.
type Path []Segment

// ParsePath parses the dotted path notation, where a segment may carry its
// multiplicity group key in brackets:
//
//	"foto[foto].bemerkung" -> [{foto foto} {bemerkung}]
//	"kennung"              -> [{kennung}]
//
// An empty string yields an empty path.
func ParsePath(s string) Path {
	if s == "" {
		return nil
	}

	var path Path
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
		case '.':
			if depth == 0 {
				path = append(path, parseSegment(s[start:i]))
				start = i + 1
			}
		}
	}

	return append(path, parseSegment(s[start:]))
}

func parseSegment(s string) Segment {
	open := strings.IndexByte(s, '[')
	if open < 0 || !strings.HasSuffix(s, "]") {
		return Segment{Name: s}
	}

	return Segment{Name: s[:open], Group: s[open+1 : len(s)-1]}
}

func (p Path) String() string {
	var sb strings.Builder
	for i, seg := range p {
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(seg.String())
	}

	return sb.String()
}

// Last returns the last segment, or the zero segment for an empty path.
func (p Path) Last() Segment {
	if len(p) == 0 {
		return Segment{}
	}

	return p[len(p)-1]
}

// IsBlank reports whether no segment of p has a name or a group. An empty path
// is blank.
func (p Path) IsBlank() bool {
	for _, seg := range p {
		if seg != (Segment{}) {
			return false
		}
	}

	return true
}

// Groups returns the multiplicity group keys of the path in order.
func (p Path) Groups() []string {
	var groups []string
	for _, seg := range p {
		if seg.IsGrouped() {
			groups = append(groups, seg.Group)
		}
	}

	return groups
}

// DivergeAt returns the index of the first segment at which p and other differ.
// If one path is a prefix of the other, the length of the shorter path is returned.
func (p Path) DivergeAt(other Path) int {
	n := min(len(p), len(other))
	for i := 0; i < n; i++ {
		if p[i] != other[i] {
			return i
		}
	}

	return n
}

// Child returns a new path with seg appended; p is not modified.
func (p Path) Child(seg Segment) Path {
	child := make(Path, len(p), len(p)+1)
	copy(child, p)

	return append(child, seg)
}
