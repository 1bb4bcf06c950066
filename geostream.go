// Package geostream encodes streamed geographic features as GeoJSON documents
// and Mapbox vector tiles.
//
// Features arrive as a sequence of events (package event): document start,
// feature start, property values, geometry coordinates, feature end and
// document end. Encoders are event handlers, so a source pushes each event
// once and never materializes a whole feature collection.
//
// # Core Features
//
//   - GeoJSON output with nested or flattened properties, links and paging metadata
//   - Coordinate reprojection, simplification and rounding per position chunk
//   - Vector tiles with clipping, geometry repair and per-zoom feature merging
//   - Optional compression (gzip, zstd, s2, lz4) and MBTiles storage
//
// # Basic Usage
//
// Re-encoding a GeoJSON document in Web Mercator:
//
//	err := geostream.EncodeGeoJSON(in, out, nil,
//	    geojson.WithCRS(coords.CRS84, coords.EPSG3857),
//	    geojson.WithPrecision(2),
//	)
//
// Encoding one vector tile:
//
//	data, err := geostream.EncodeTile(in, maptile.New(8, 5, 4), nil,
//	    mvt.WithLayerName("roads"),
//	    mvt.WithMergeRules(mvt.MergeRule{MinZoom: 0, MaxZoom: 10, GroupBy: []string{"class"}}),
//	)
//
// # Package Structure
//
// This package provides convenient top-level wrappers around the source,
// geojson and mvt packages. For custom event sources or writer stages use
// those packages directly.
package geostream

import (
	"io"

	"github.com/paulmach/orb/maptile"

	"github.com/arloliu/geostream/geojson"
	"github.com/arloliu/geostream/mvt"
	"github.com/arloliu/geostream/source"
)

// NewGeoJSON creates a GeoJSON encoder writing to w.
//
// The encoder is an event.Handler; feed it from any event source. By default it
// writes a FeatureCollection in CRS84 with numberReturned and timeStamp members.
//
// Parameters:
//   - w: destination of the document
//   - opts: geojson encoder options
//
// Returns:
//   - *geojson.Encoder: the encoder, ready for OnStart
//   - error: errs.ErrInvalidOption for invalid options
//
// Example:
//
//	enc, err := geostream.NewGeoJSON(os.Stdout, geojson.WithFlatten("."))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer enc.Close()
func NewGeoJSON(w io.Writer, opts ...geojson.Option) (*geojson.Encoder, error) {
	return geojson.NewEncoder(w, opts...)
}

// NewTile creates a vector tile encoder for one tile.
//
// Parameters:
//   - t: the XYZ tile to encode
//   - opts: mvt encoder options
//
// Returns:
//   - *mvt.Encoder: the encoder, ready for OnStart
//   - error: errs.ErrInvalidTile for tiles outside their zoom level, errs.ErrInvalidOption for invalid options
func NewTile(t maptile.Tile, opts ...mvt.Option) (*mvt.Encoder, error) {
	return mvt.NewEncoder(t, opts...)
}

// EncodeGeoJSON reads a GeoJSON document from r and writes it re-encoded to w.
//
// srcOpts configure how r is read and may be nil.
func EncodeGeoJSON(r io.Reader, w io.Writer, srcOpts []source.Option, opts ...geojson.Option) error {
	enc, err := geojson.NewEncoder(w, opts...)
	if err != nil {
		return err
	}
	defer enc.Close()

	return source.Decode(r, enc, srcOpts...)
}

// EncodeTile reads a GeoJSON document from r and returns the encoded tile t.
//
// A tile without features returns no data and no error.
func EncodeTile(r io.Reader, t maptile.Tile, srcOpts []source.Option, opts ...mvt.Option) ([]byte, error) {
	enc, err := mvt.NewEncoder(t, opts...)
	if err != nil {
		return nil, err
	}
	defer enc.Close()

	if err := source.Decode(r, enc, srcOpts...); err != nil {
		return nil, err
	}

	return enc.Bytes()
}

// FeatureID converts a feature id to the unsigned id of a vector tile feature.
//
// Non-negative integers are kept, anything else is hashed with xxHash64, so
// the same id always maps to the same tile feature id.
func FeatureID(id string) uint64 {
	return mvt.FeatureID(id)
}
