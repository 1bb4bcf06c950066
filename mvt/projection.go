package mvt

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/project"

	"github.com/arloliu/geostream/errs"
)

// MaxZoom is the highest zoom level accepted for tiles.
const MaxZoom = 24

// ValidateTile checks that the tile coordinates exist at the tile's zoom level.
func ValidateTile(t maptile.Tile) error {
	if t.Z > MaxZoom {
		return fmt.Errorf("%w: zoom %d above %d", errs.ErrInvalidTile, t.Z, MaxZoom)
	}
	n := uint32(1) << t.Z
	if t.X >= n || t.Y >= n {
		return fmt.Errorf("%w: %d/%d/%d outside the zoom level", errs.ErrInvalidTile, t.Z, t.X, t.Y)
	}

	return nil
}

// tileProjection maps Web Mercator meters to tile units: the tile's north west
// corner is the origin and y grows downwards.
type tileProjection struct {
	minX, maxY     float64
	scaleX, scaleY float64
	unitsPerMeter  float64
}

func newTileProjection(t maptile.Tile, extent uint32) tileProjection {
	b := t.Bound()
	lo := project.WGS84.ToMercator(b.Min)
	hi := project.WGS84.ToMercator(b.Max)

	w := hi[0] - lo[0]
	h := hi[1] - lo[1]

	return tileProjection{
		minX:          lo[0],
		maxY:          hi[1],
		scaleX:        float64(extent) / w,
		scaleY:        float64(extent) / h,
		unitsPerMeter: float64(extent) / w,
	}
}

// toTile converts one point and rounds it to whole tile units.
func (p tileProjection) toTile(pt orb.Point) orb.Point {
	x := math.Round((pt[0] - p.minX) * p.scaleX)
	y := math.Round((p.maxY - pt[1]) * p.scaleY)

	// no negative zero
	if x == 0 {
		x = 0
	}
	if y == 0 {
		y = 0
	}

	return orb.Point{x, y}
}

// apply converts g in place.
func (p tileProjection) apply(g orb.Geometry) orb.Geometry {
	return project.Geometry(g, p.toTile)
}

// meters converts a length in tile units to Web Mercator meters.
func (p tileProjection) meters(units float64) float64 {
	return units / p.unitsPerMeter
}

// snap rounds the clip intersections of g to whole tile units in place.
func snap(g orb.Geometry) orb.Geometry {
	return project.Geometry(g, func(pt orb.Point) orb.Point {
		return orb.Point{math.Round(pt[0]), math.Round(pt[1])}
	})
}
