// Package errs defines the sentinel errors shared by the geostream packages.
//
// Errors returned by encoders, sinks and pipelines wrap one of these values with
// additional context, so callers should match them with errors.Is:
//
//	if errors.Is(err, errs.ErrMalformedCoordinate) {
//	    // the feature was rejected, the stream may continue
//	}
package errs

import "errors"

// Event protocol errors.
var (
	// ErrProtocol is returned when the event source violates the event protocol,
	// e.g. an End without matching Start or a nested FeatureStart.
	ErrProtocol = errors.New("event protocol violation")
	// ErrGeometryClosed is returned when a second geometry starts after the
	// feature's geometry has already been written.
	ErrGeometryClosed = errors.New("geometry already closed for feature")
	// ErrDocumentClosed is returned when events arrive after the document end.
	ErrDocumentClosed = errors.New("document already closed")
)

// Sink and buffering errors.
var (
	// ErrNotBuffering is returned by FlushBuffer when no buffer was started.
	ErrNotBuffering = errors.New("buffer flushed while not buffering")
	// ErrUnbalancedToken is returned when an end token does not match the open container.
	ErrUnbalancedToken = errors.New("unbalanced token")
	// ErrMissingFieldName is returned when a value is written into an object without a field name.
	ErrMissingFieldName = errors.New("value written without field name")
	// ErrNoSavepoint is returned when a rollback is requested without an active savepoint.
	ErrNoSavepoint = errors.New("no active savepoint")
)

// Coordinate pipeline errors.
var (
	// ErrMalformedCoordinate is returned when coordinate text cannot be parsed.
	ErrMalformedCoordinate = errors.New("malformed coordinate")
	// ErrUnsupportedCRS is returned when no transformation exists between two CRS.
	ErrUnsupportedCRS = errors.New("unsupported crs")
	// ErrInvalidDimension is returned for coordinate dimensions other than 2 or 3.
	ErrInvalidDimension = errors.New("invalid coordinate dimension")
)

// Input errors.
var (
	// ErrInvalidInput is returned when a source document is not valid GeoJSON.
	ErrInvalidInput = errors.New("invalid geojson input")
)

// Configuration errors.
var (
	// ErrInvalidOption is returned when an encoder option carries an invalid value.
	ErrInvalidOption = errors.New("invalid option")
	// ErrInvalidTile is returned for tile coordinates outside the zoom level range.
	ErrInvalidTile = errors.New("invalid tile")
)

// Tile encoding errors.
var (
	// ErrTileClosed is returned when events arrive after the tile was finished.
	ErrTileClosed = errors.New("tile already finished")
	// ErrInvalidGeometry is returned when a geometry cannot be repaired.
	ErrInvalidGeometry = errors.New("invalid geometry")
	// ErrUnsupportedGeometry is returned for geometry types that cannot be encoded.
	ErrUnsupportedGeometry = errors.New("unsupported geometry type")
)

// Storage errors.
var (
	// ErrTileNotFound is returned when a tile store has no data for a tile.
	ErrTileNotFound = errors.New("tile not found")
	// ErrStoreClosed is returned when a closed tile store is used.
	ErrStoreClosed = errors.New("tile store closed")
)
