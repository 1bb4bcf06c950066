package mvt

import (
	"fmt"
	"slices"

	"github.com/paulmach/orb"

	"github.com/arloliu/geostream/errs"
)

// repair normalizes a geometry in tile units for encoding: consecutive
// duplicate points are removed, rings are closed, rings with less than four
// points or without area are dropped, exterior rings get a positive and holes
// a negative surveyor's area (y axis pointing down). Parts that cannot be
// repaired are dropped; if nothing remains errs.ErrInvalidGeometry is returned.
func repair(g orb.Geometry) (orb.Geometry, error) {
	switch g := g.(type) {
	case orb.Point:
		return g, nil
	case orb.MultiPoint:
		return repairMultiPoint(g)
	case orb.LineString:
		ls := dedupe(g)
		if len(ls) < 2 {
			return nil, fmt.Errorf("%w: line with %d distinct points", errs.ErrInvalidGeometry, len(ls))
		}
		return ls, nil
	case orb.MultiLineString:
		return repairMultiLineString(g)
	case orb.Polygon:
		return repairPolygon(g)
	case orb.MultiPolygon:
		return repairMultiPolygon(g)
	case nil:
		return nil, fmt.Errorf("%w: empty geometry", errs.ErrInvalidGeometry)
	default:
		return nil, fmt.Errorf("%w: %s", errs.ErrUnsupportedGeometry, g.GeoJSONType())
	}
}

func repairMultiPoint(mp orb.MultiPoint) (orb.Geometry, error) {
	seen := make(map[orb.Point]struct{}, len(mp))
	out := mp[:0]
	for _, p := range mp {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}

	switch len(out) {
	case 0:
		return nil, fmt.Errorf("%w: empty multipoint", errs.ErrInvalidGeometry)
	case 1:
		return out[0], nil
	default:
		return out, nil
	}
}

func repairMultiLineString(mls orb.MultiLineString) (orb.Geometry, error) {
	out := mls[:0]
	for _, ls := range mls {
		ls = dedupe(ls)
		if len(ls) >= 2 {
			out = append(out, ls)
		}
	}

	switch len(out) {
	case 0:
		return nil, fmt.Errorf("%w: no line with two distinct points", errs.ErrInvalidGeometry)
	case 1:
		return out[0], nil
	default:
		return out, nil
	}
}

func repairPolygon(p orb.Polygon) (orb.Geometry, error) {
	if len(p) == 0 {
		return nil, fmt.Errorf("%w: polygon without rings", errs.ErrInvalidGeometry)
	}

	shell := repairRing(p[0], true)
	if shell == nil {
		return nil, fmt.Errorf("%w: degenerate exterior ring", errs.ErrInvalidGeometry)
	}

	out := orb.Polygon{shell}
	for _, hole := range p[1:] {
		if r := repairRing(hole, false); r != nil {
			out = append(out, r)
		}
	}

	return out, nil
}

func repairMultiPolygon(mp orb.MultiPolygon) (orb.Geometry, error) {
	var out orb.MultiPolygon
	for _, p := range mp {
		g, err := repairPolygon(p)
		if err != nil {
			continue
		}
		out = append(out, g.(orb.Polygon))
	}

	switch len(out) {
	case 0:
		return nil, fmt.Errorf("%w: no valid polygon", errs.ErrInvalidGeometry)
	case 1:
		return out[0], nil
	default:
		return out, nil
	}
}

// repairRing returns the closed and oriented ring, or nil when it has no area.
func repairRing(r orb.Ring, exterior bool) orb.Ring {
	pts := dedupe(orb.LineString(r))
	if len(pts) > 1 && pts[0] == pts[len(pts)-1] {
		pts = pts[:len(pts)-1]
	}
	if len(pts) < 3 {
		return nil
	}

	ring := make(orb.Ring, 0, len(pts)+1)
	ring = append(ring, pts...)
	ring = append(ring, pts[0])

	area := surveyorArea(ring)
	if area == 0 {
		return nil
	}
	if (exterior && area < 0) || (!exterior && area > 0) {
		slices.Reverse(ring)
	}

	return ring
}

// dedupe removes consecutive duplicate points in place.
func dedupe(ls orb.LineString) orb.LineString {
	if len(ls) < 2 {
		return ls
	}

	out := ls[:1]
	for _, p := range ls[1:] {
		if p != out[len(out)-1] {
			out = append(out, p)
		}
	}

	return out
}

// surveyorArea returns the signed area of a closed ring.
func surveyorArea(r orb.Ring) float64 {
	var sum float64
	for i := 0; i < len(r)-1; i++ {
		sum += r[i][0]*r[i+1][1] - r[i+1][0]*r[i][1]
	}

	return sum / 2
}

// isEmpty reports whether clipping left nothing of g.
func isEmpty(g orb.Geometry) bool {
	switch g := g.(type) {
	case nil:
		return true
	case orb.MultiPoint:
		return len(g) == 0
	case orb.LineString:
		return len(g) == 0
	case orb.MultiLineString:
		return len(g) == 0
	case orb.Ring:
		return len(g) == 0
	case orb.Polygon:
		return len(g) == 0 || len(g[0]) == 0
	case orb.MultiPolygon:
		return len(g) == 0
	default:
		return false
	}
}
