package mvt

import (
	"slices"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// endpointTolerance is the search radius around a line end in tile units.
// Coordinates are rounded to whole units before merging, so ends either match
// exactly or are at least one unit apart.
const endpointTolerance = 0.25

// mergeGroup collects the geometries of one group until the tile ends.
type mergeGroup struct {
	kind       geometryKind
	properties geojson.Properties
	geometries []orb.Geometry
	features   int
}

// merger holds the deferred groups of one tile in first-seen order.
type merger struct {
	groups map[uint64]*mergeGroup
	order  []uint64
}

func newMerger() *merger {
	return &merger{groups: make(map[uint64]*mergeGroup)}
}

func (m *merger) add(key uint64, kind geometryKind, props geojson.Properties, g orb.Geometry) {
	grp, ok := m.groups[key]
	if !ok {
		grp = &mergeGroup{kind: kind, properties: props}
		m.groups[key] = grp
		m.order = append(m.order, key)
	}
	grp.geometries = append(grp.geometries, g)
	grp.features++
}

// drain builds one feature per group and empties the merger.
func (m *merger) drain() []*geojson.Feature {
	features := make([]*geojson.Feature, 0, len(m.order))
	for _, key := range m.order {
		grp := m.groups[key]
		g := grp.merged()
		if g == nil {
			continue
		}
		f := geojson.NewFeature(g)
		f.Properties = grp.properties
		features = append(features, f)
	}

	clear(m.groups)
	m.order = m.order[:0]

	return features
}

func (grp *mergeGroup) merged() orb.Geometry {
	switch grp.kind {
	case kindPoint:
		var mp orb.MultiPoint
		for _, g := range grp.geometries {
			switch g := g.(type) {
			case orb.Point:
				mp = append(mp, g)
			case orb.MultiPoint:
				mp = append(mp, g...)
			}
		}
		return collapse(mp)
	case kindLine:
		var lines []orb.LineString
		for _, g := range grp.geometries {
			switch g := g.(type) {
			case orb.LineString:
				lines = append(lines, g)
			case orb.MultiLineString:
				lines = append(lines, g...)
			}
		}
		return collapse(joinLines(lines))
	default:
		var mp orb.MultiPolygon
		for _, g := range grp.geometries {
			switch g := g.(type) {
			case orb.Polygon:
				mp = append(mp, g)
			case orb.MultiPolygon:
				mp = append(mp, g...)
			}
		}
		return collapse(mp)
	}
}

// collapse returns the single member of a one-element multi geometry.
func collapse(g orb.Geometry) orb.Geometry {
	switch g := g.(type) {
	case orb.MultiPoint:
		if len(g) == 0 {
			return nil
		}
		if len(g) == 1 {
			return g[0]
		}
	case orb.MultiLineString:
		if len(g) == 0 {
			return nil
		}
		if len(g) == 1 {
			return g[0]
		}
	case orb.MultiPolygon:
		if len(g) == 0 {
			return nil
		}
		if len(g) == 1 {
			return g[0]
		}
	}

	return g
}

// endpoint is one end of a line in the endpoint index.
type endpoint struct {
	line  int
	start bool
	point orb.Point
}

// Bounds implements rtreego.Spatial interface.
func (e *endpoint) Bounds() rtreego.Rect {
	point := rtreego.Point{e.point[0] - endpointTolerance, e.point[1] - endpointTolerance}
	lengths := []float64{2 * endpointTolerance, 2 * endpointTolerance}
	rect, _ := rtreego.NewRect(point, lengths)

	return rect
}

// joinLines joins lines that share end points into longer lines. A line is
// extended at its end first, then at its start; among several candidates the
// line that came first wins, so the result does not depend on index order.
func joinLines(lines []orb.LineString) orb.MultiLineString {
	tree := rtreego.NewTree(2, 25, 50)
	ends := make([][2]*endpoint, len(lines))
	for i, l := range lines {
		if len(l) < 2 {
			continue
		}
		ends[i] = [2]*endpoint{
			{line: i, start: true, point: l[0]},
			{line: i, start: false, point: l[len(l)-1]},
		}
		tree.Insert(ends[i][0])
		tree.Insert(ends[i][1])
	}

	remove := func(i int) {
		tree.Delete(ends[i][0])
		tree.Delete(ends[i][1])
	}

	find := func(p orb.Point) *endpoint {
		var best *endpoint
		for _, s := range tree.SearchIntersect((&endpoint{point: p}).Bounds()) {
			e := s.(*endpoint)
			if e.point != p {
				continue
			}
			if best == nil || e.line < best.line || (e.line == best.line && e.start) {
				best = e
			}
		}

		return best
	}

	var out orb.MultiLineString
	for i, l := range lines {
		if len(l) < 2 || ends[i][0] == nil {
			continue
		}
		remove(i)
		ends[i][0] = nil

		cur := slices.Clone(l)
		for {
			e := find(cur[len(cur)-1])
			if e == nil {
				break
			}
			next := take(lines, ends, e, remove)
			if !e.start {
				slices.Reverse(next)
			}
			cur = append(cur, next[1:]...)
		}
		for {
			e := find(cur[0])
			if e == nil {
				break
			}
			prev := take(lines, ends, e, remove)
			if e.start {
				slices.Reverse(prev)
			}
			cur = append(prev[:len(prev)-1], cur...)
		}

		out = append(out, cur)
	}

	return out
}

// take removes the line of e from the index and returns a copy of it.
func take(lines []orb.LineString, ends [][2]*endpoint, e *endpoint, remove func(int)) orb.LineString {
	remove(e.line)
	ends[e.line][0] = nil

	return slices.Clone(lines[e.line])
}
