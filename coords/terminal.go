package coords

import (
	"github.com/paulmach/orb"

	"github.com/arloliu/geostream/format"
	"github.com/arloliu/geostream/sink"
)

// JSONTerminal writes positions as GeoJSON number arrays.
type JSONTerminal struct {
	Sink sink.Sink
}

var _ Terminal = (*JSONTerminal)(nil)

func (t *JSONTerminal) StartArray() { t.Sink.WriteStartArray() }
func (t *JSONTerminal) EndArray()   { t.Sink.WriteEndArray() }

func (t *JSONTerminal) Position(tuple []float64) {
	t.Sink.WriteStartArray()
	for _, v := range tuple {
		t.Sink.WriteFloat(v)
	}
	t.Sink.WriteEndArray()
}

// GeometryBuilder accumulates positions into an orb geometry. Only the first
// two axes are kept.
//
// Nesting levels map to the declared type: for Polygon the arrays at level 1
// are rings, for MultiPolygon level 1 are polygons and level 2 rings, for
// MultiLineString level 1 are lines.
type GeometryBuilder struct {
	geometryType format.GeometryType
	level        int

	points  []orb.Point
	current []orb.Point
	lines   []orb.LineString
	rings   []orb.Ring
	polys   []orb.Polygon
}

var _ Terminal = (*GeometryBuilder)(nil)

// Reset prepares the builder for a geometry of the given type.
func (b *GeometryBuilder) Reset(geometryType format.GeometryType) {
	b.geometryType = geometryType
	b.level = 0
	b.points = nil
	b.current = nil
	b.lines = nil
	b.rings = nil
	b.polys = nil
}

func (b *GeometryBuilder) StartArray() {
	b.level++
	if b.level == b.geometryType.NestingDepth() {
		b.current = nil
	}
}

func (b *GeometryBuilder) EndArray() {
	depth := b.geometryType.NestingDepth()
	switch {
	case b.level == depth:
		b.commitList()
	case b.geometryType == format.GeometryMultiPolygon && b.level == 1:
		b.commitPolygon()
	}
	b.level--
}

func (b *GeometryBuilder) Position(tuple []float64) {
	pt := orb.Point{tuple[0], tuple[1]}
	if b.geometryType.NestingDepth() <= 0 {
		b.points = append(b.points, pt)
		return
	}
	b.current = append(b.current, pt)
}

func (b *GeometryBuilder) commitList() {
	switch b.geometryType {
	case format.GeometryMultiLineString:
		b.lines = append(b.lines, orb.LineString(b.current))
	case format.GeometryPolygon, format.GeometryMultiPolygon:
		b.rings = append(b.rings, orb.Ring(b.current))
	}
	b.current = nil
}

func (b *GeometryBuilder) commitPolygon() {
	if len(b.rings) > 0 {
		b.polys = append(b.polys, orb.Polygon(b.rings))
	}
	b.rings = nil
}

// Geometry returns the accumulated geometry, or nil when no position arrived.
func (b *GeometryBuilder) Geometry() orb.Geometry {
	switch b.geometryType {
	case format.GeometryPoint:
		if len(b.points) == 0 {
			return nil
		}
		return b.points[0]
	case format.GeometryMultiPoint:
		if len(b.points) == 0 {
			return nil
		}
		return orb.MultiPoint(b.points)
	case format.GeometryLineString:
		if len(b.points) == 0 {
			return nil
		}
		return orb.LineString(b.points)
	case format.GeometryMultiLineString:
		if len(b.lines) == 0 {
			return nil
		}
		return orb.MultiLineString(b.lines)
	case format.GeometryPolygon:
		if len(b.rings) == 0 {
			return nil
		}
		return orb.Polygon(b.rings)
	case format.GeometryMultiPolygon:
		if len(b.polys) == 0 {
			return nil
		}
		return orb.MultiPolygon(b.polys)
	default:
		return nil
	}
}
