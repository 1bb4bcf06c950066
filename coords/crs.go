package coords

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"github.com/arloliu/geostream/errs"
)

// CRS identifies a coordinate reference system known to the pipeline.
type CRS string

const (
	// CRS84 is WGS 84 in longitude/latitude order, the GeoJSON default.
	CRS84 CRS = "CRS84"
	// EPSG4326 is WGS 84 in latitude/longitude order.
	EPSG4326 CRS = "EPSG:4326"
	// EPSG3857 is Web Mercator, the vector tile CRS.
	EPSG3857 CRS = "EPSG:3857"
)

// ParseCRS accepts short codes ("CRS84", "EPSG:3857"), OGC URIs
// ("http://www.opengis.net/def/crs/EPSG/0/3857") and URNs
// ("urn:ogc:def:crs:EPSG::3857").
func ParseCRS(s string) (CRS, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	switch {
	case v == "" || strings.HasSuffix(v, "CRS84"):
		return CRS84, nil
	case strings.HasSuffix(v, "4326"):
		return EPSG4326, nil
	case strings.HasSuffix(v, "3857"), strings.HasSuffix(v, "900913"):
		return EPSG3857, nil
	default:
		return "", fmt.Errorf("%w: %q", errs.ErrUnsupportedCRS, s)
	}
}

// URI returns the OGC http URI of the CRS.
func (c CRS) URI() string {
	switch c {
	case EPSG4326:
		return "http://www.opengis.net/def/crs/EPSG/0/4326"
	case EPSG3857:
		return "http://www.opengis.net/def/crs/EPSG/0/3857"
	default:
		return "http://www.opengis.net/def/crs/OGC/1.3/CRS84"
	}
}

// URN returns the URN form used in GeoJSON "crs" members.
func (c CRS) URN() string {
	switch c {
	case EPSG4326:
		return "urn:ogc:def:crs:EPSG::4326"
	case EPSG3857:
		return "urn:ogc:def:crs:EPSG::3857"
	default:
		return "urn:ogc:def:crs:OGC:1.3:CRS84"
	}
}

// LatLon reports whether the first axis of the CRS is the latitude.
func (c CRS) LatLon() bool {
	return c == EPSG4326
}

func (c CRS) geographic() bool {
	return c == CRS84 || c == EPSG4326
}

// Transformer converts a batch of coordinates in place. coords holds tuples of
// dim values back to back; only the first two values of a tuple are changed.
type Transformer interface {
	Transform(coords []float64, dim int) error
}

type projection struct {
	fn      orb.Projection
	swapIn  bool
	swapOut bool
}

func (p projection) Transform(coords []float64, dim int) error {
	for i := 0; i+1 < len(coords); i += dim {
		x, y := coords[i], coords[i+1]
		if p.swapIn {
			x, y = y, x
		}
		if p.fn != nil {
			pt := p.fn(orb.Point{x, y})
			x, y = pt[0], pt[1]
		}
		if p.swapOut {
			x, y = y, x
		}
		coords[i], coords[i+1] = x, y
	}

	return nil
}

// NewTransformer returns the transformer from one CRS to another, or nil when
// both are the same.
func NewTransformer(from, to CRS) (Transformer, error) {
	if from == to {
		return nil, nil
	}

	p := projection{swapIn: from.LatLon(), swapOut: to.LatLon()}
	switch {
	case from.geographic() && to.geographic():
	case from.geographic() && to == EPSG3857:
		p.fn = project.WGS84.ToMercator
	case from == EPSG3857 && to.geographic():
		p.fn = project.Mercator.ToWGS84
	default:
		return nil, fmt.Errorf("%w: %s to %s", errs.ErrUnsupportedCRS, from, to)
	}

	return p, nil
}
