// Package format defines the enumerations shared by the event model, the encoders
// and the codecs: geometry types, property value types and output compression.
package format

import "strings"

type (
	GeometryType    uint8
	ValueType       uint8
	CompressionType uint8
)

const (
	GeometryNone               GeometryType = 0x0 // GeometryNone marks a feature type without geometry.
	GeometryPoint              GeometryType = 0x1 // GeometryPoint is a single position.
	GeometryMultiPoint         GeometryType = 0x2 // GeometryMultiPoint is a list of positions.
	GeometryLineString         GeometryType = 0x3 // GeometryLineString is a list of positions.
	GeometryMultiLineString    GeometryType = 0x4 // GeometryMultiLineString is a list of lines.
	GeometryPolygon            GeometryType = 0x5 // GeometryPolygon is a shell followed by holes.
	GeometryMultiPolygon       GeometryType = 0x6 // GeometryMultiPolygon is a list of polygons.
	GeometryGeometryCollection GeometryType = 0x7 // GeometryGeometryCollection is a heterogeneous collection.
	GeometryAny                GeometryType = 0x8 // GeometryAny is a geometry of unknown type.

	ValueString   ValueType = 0x1 // ValueString is written as a JSON string.
	ValueInteger  ValueType = 0x2 // ValueInteger is written as a JSON number.
	ValueFloat    ValueType = 0x3 // ValueFloat is written as a JSON number.
	ValueBoolean  ValueType = 0x4 // ValueBoolean is written as a JSON boolean.
	ValueDatetime ValueType = 0x5 // ValueDatetime is written as a JSON string.

	CompressionNone CompressionType = 0x1 // CompressionNone represents no compression.
	CompressionZstd CompressionType = 0x2 // CompressionZstd represents Zstandard compression.
	CompressionS2   CompressionType = 0x3 // CompressionS2 represents S2 compression.
	CompressionLZ4  CompressionType = 0x4 // CompressionLZ4 represents LZ4 compression.
	CompressionGzip CompressionType = 0x5 // CompressionGzip represents gzip compression.
)

// String returns the GeoJSON type name of the geometry type.
func (g GeometryType) String() string {
	switch g {
	case GeometryPoint:
		return "Point"
	case GeometryMultiPoint:
		return "MultiPoint"
	case GeometryLineString:
		return "LineString"
	case GeometryMultiLineString:
		return "MultiLineString"
	case GeometryPolygon:
		return "Polygon"
	case GeometryMultiPolygon:
		return "MultiPolygon"
	case GeometryGeometryCollection:
		return "GeometryCollection"
	case GeometryAny:
		return "Any"
	default:
		return "None"
	}
}

// NestingDepth returns the number of array levels between the "coordinates"
// array and the position tuples, e.g. 0 for LineString and 2 for MultiPolygon.
//
// A Point has no surrounding coordinates array, it returns -1.
func (g GeometryType) NestingDepth() int {
	switch g {
	case GeometryPoint:
		return -1
	case GeometryMultiPoint, GeometryLineString:
		return 0
	case GeometryMultiLineString, GeometryPolygon:
		return 1
	case GeometryMultiPolygon:
		return 2
	default:
		return 0
	}
}

// HasRings reports whether the innermost coordinate lists are polygon rings.
func (g GeometryType) HasRings() bool {
	return g == GeometryPolygon || g == GeometryMultiPolygon
}

// IsEncodable reports whether a geometry of this type can be written to an output encoding.
func (g GeometryType) IsEncodable() bool {
	return g >= GeometryPoint && g <= GeometryMultiPolygon
}

// ParseGeometryType parses a GeoJSON geometry type name, case-insensitively.
// Underscore separated names such as MULTI_POLYGON are accepted as well.
func ParseGeometryType(s string) GeometryType {
	switch strings.ToLower(strings.ReplaceAll(s, "_", "")) {
	case "point":
		return GeometryPoint
	case "multipoint":
		return GeometryMultiPoint
	case "linestring":
		return GeometryLineString
	case "multilinestring":
		return GeometryMultiLineString
	case "polygon":
		return GeometryPolygon
	case "multipolygon":
		return GeometryMultiPolygon
	case "geometrycollection":
		return GeometryGeometryCollection
	case "any", "geometry":
		return GeometryAny
	default:
		return GeometryNone
	}
}

func (v ValueType) String() string {
	switch v {
	case ValueString:
		return "String"
	case ValueInteger:
		return "Integer"
	case ValueFloat:
		return "Float"
	case ValueBoolean:
		return "Boolean"
	case ValueDatetime:
		return "Datetime"
	default:
		return "Unknown"
	}
}

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	case CompressionGzip:
		return "Gzip"
	default:
		return "Unknown"
	}
}

// ParseCompressionType parses a compression name as written by String, case-insensitively.
// An empty name selects CompressionNone.
func ParseCompressionType(s string) (CompressionType, bool) {
	switch strings.ToLower(s) {
	case "", "none":
		return CompressionNone, true
	case "zstd":
		return CompressionZstd, true
	case "s2":
		return CompressionS2, true
	case "lz4":
		return CompressionLZ4, true
	case "gzip":
		return CompressionGzip, true
	default:
		return 0, false
	}
}
