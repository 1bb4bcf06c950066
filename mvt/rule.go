package mvt

import (
	"fmt"
	"strconv"

	"github.com/paulmach/orb"

	"github.com/arloliu/geostream/errs"
	"github.com/arloliu/geostream/internal/hash"
)

// MergeRule combines the features of a zoom range that share the values of
// the GroupBy attributes into one feature per geometry kind. Merged features
// keep only the GroupBy attributes and have no id.
type MergeRule struct {
	MinZoom int      `yaml:"minZoom"`
	MaxZoom int      `yaml:"maxZoom"`
	GroupBy []string `yaml:"groupBy"`
}

func (r MergeRule) validate() error {
	if r.MinZoom < 0 || r.MaxZoom < r.MinZoom || r.MaxZoom > MaxZoom {
		return fmt.Errorf("%w: merge rule zoom range %d-%d", errs.ErrInvalidOption, r.MinZoom, r.MaxZoom)
	}

	return nil
}

// Applies reports whether the rule covers zoom level z.
func (r MergeRule) Applies(z int) bool {
	return z >= r.MinZoom && z <= r.MaxZoom
}

type geometryKind uint8

const (
	kindPoint geometryKind = iota + 1
	kindLine
	kindPolygon
)

func (k geometryKind) String() string {
	switch k {
	case kindPoint:
		return "point"
	case kindLine:
		return "line"
	default:
		return "polygon"
	}
}

func kindOf(g orb.Geometry) geometryKind {
	switch g.(type) {
	case orb.Point, orb.MultiPoint:
		return kindPoint
	case orb.LineString, orb.MultiLineString:
		return kindLine
	default:
		return kindPolygon
	}
}

// groupKey hashes the geometry kind and the group-by values of attrs.
func (r MergeRule) groupKey(kind geometryKind, attrs *attributes) uint64 {
	parts := make([]string, 0, len(r.GroupBy)+1)
	parts = append(parts, strconv.Itoa(int(kind)))
	for _, name := range r.GroupBy {
		v, ok := attrs.get(name)
		if !ok {
			parts = append(parts, "\x00")
			continue
		}
		parts = append(parts, fmt.Sprint(v))
	}

	return hash.Key(parts...)
}
