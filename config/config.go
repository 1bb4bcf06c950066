// Package config loads encoding profiles from YAML files.
//
// A profile bundles the settings of one feature collection: how the GeoJSON
// source is read, how GeoJSON output is written, how vector tiles are built and
// how the command line tool logs. Each section converts itself into the
// functional options of the package it configures.
//
//	collection: bauwerke
//	geojson:
//	  targetCrs: EPSG:3857
//	  precision: 2
//	tile:
//	  layer: bauwerke
//	  compression: gzip
//	  mergeRules:
//	    - {minZoom: 0, maxZoom: 10, groupBy: [art]}
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/arloliu/geostream/coords"
	"github.com/arloliu/geostream/errs"
	"github.com/arloliu/geostream/format"
	"github.com/arloliu/geostream/geojson"
	"github.com/arloliu/geostream/mvt"
	"github.com/arloliu/geostream/source"
)

// Profile is the root of a profile file.
type Profile struct {
	// Collection is the collection id used in log entries.
	Collection string  `yaml:"collection"`
	Source     Source  `yaml:"source"`
	GeoJSON    GeoJSON `yaml:"geojson"`
	Tile       Tile    `yaml:"tile"`
	Log        Log     `yaml:"log"`
}

// Source configures the GeoJSON reader.
type Source struct {
	Dimension    int    `yaml:"dimension"`
	GeometryName string `yaml:"geometryName"`
	IDProperty   string `yaml:"idProperty"`
}

// Paging is the page window of a collection response.
type Paging struct {
	Offset int64 `yaml:"offset"`
	Limit  int64 `yaml:"limit"`
}

// GeoJSON configures the GeoJSON encoder.
type GeoJSON struct {
	SourceCRS      string         `yaml:"sourceCrs"`
	TargetCRS      string         `yaml:"targetCrs"`
	SwapAxes       bool           `yaml:"swapAxes"`
	Precision      *int           `yaml:"precision"`
	Simplification float64        `yaml:"simplification"`
	Flatten        string         `yaml:"flatten"`
	Metadata       *bool          `yaml:"metadata"`
	SingleFeature  bool           `yaml:"singleFeature"`
	IDInProperties bool           `yaml:"idInProperties"`
	Links          []geojson.Link `yaml:"links"`
	FeatureLinks   []geojson.Link `yaml:"featureLinks"`
	FeatureURI     string         `yaml:"featureUri"`
	CanonicalURI   string         `yaml:"canonicalUri"`
	Paging         *Paging        `yaml:"paging"`
	Compression    string         `yaml:"compression"`
}

// Tile configures the vector tile encoder.
type Tile struct {
	Layer          string          `yaml:"layer"`
	SourceCRS      string          `yaml:"sourceCrs"`
	Extent         uint32          `yaml:"extent"`
	Buffer         *float64        `yaml:"buffer"`
	MinArea        *float64        `yaml:"minArea"`
	MinLength      *float64        `yaml:"minLength"`
	Simplification float64         `yaml:"simplification"`
	IgnoreInvalid  bool            `yaml:"ignoreInvalid"`
	Separator      *string         `yaml:"separator"`
	Compression    string          `yaml:"compression"`
	MergeRules     []mvt.MergeRule `yaml:"mergeRules"`
}

// Log configures the logger of the command line tool.
type Log struct {
	// Level is a logrus level name, "info" when empty.
	Level string `yaml:"level"`
	// Format is "text" or "json", "text" when empty.
	Format string `yaml:"format"`
}

// Load reads and parses the profile file at path.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load profile %s: %w", path, err)
	}

	return p, nil
}

// Parse parses a YAML profile. Unknown keys are rejected so that typos do
// not silently fall back to defaults. An empty document yields the zero profile.
func Parse(data []byte) (*Profile, error) {
	p := &Profile{}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", errs.ErrInvalidOption, err)
	}

	return p, nil
}

// SourceOptions returns the options of the GeoJSON reader.
func (p *Profile) SourceOptions() []source.Option {
	var opts []source.Option
	if p.Source.Dimension != 0 {
		opts = append(opts, source.WithDimension(p.Source.Dimension))
	}
	if p.Source.GeometryName != "" {
		opts = append(opts, source.WithGeometryName(p.Source.GeometryName))
	}
	if p.Source.IDProperty != "" {
		opts = append(opts, source.WithIDProperty(p.Source.IDProperty))
	}

	return opts
}

// GeoJSONOptions returns the options of the GeoJSON encoder.
//
// Parameters:
//   - logger: logger for skipped features; nil keeps the encoder default
//
// Returns:
//   - []geojson.Option: options for geojson.NewEncoder
//   - error: errs.ErrUnsupportedCRS for unknown CRS names
func (p *Profile) GeoJSONOptions(logger logrus.FieldLogger) ([]geojson.Option, error) {
	g := p.GeoJSON
	opts := []geojson.Option{geojson.WithCollectionID(p.Collection)}
	if logger != nil {
		opts = append(opts, geojson.WithLogger(logger))
	}

	if g.SourceCRS != "" || g.TargetCRS != "" {
		from, err := coords.ParseCRS(g.SourceCRS)
		if err != nil {
			return nil, err
		}
		to, err := coords.ParseCRS(g.TargetCRS)
		if err != nil {
			return nil, err
		}
		opts = append(opts, geojson.WithCRS(from, to))
	}
	if g.SwapAxes {
		opts = append(opts, geojson.WithSwapAxes())
	}
	if g.Precision != nil {
		opts = append(opts, geojson.WithPrecision(*g.Precision))
	}
	if g.Simplification > 0 {
		opts = append(opts, geojson.WithSimplification(g.Simplification))
	}
	if g.Flatten != "" {
		opts = append(opts, geojson.WithFlatten(g.Flatten))
	}
	if g.Metadata != nil {
		opts = append(opts, geojson.WithMetadata(*g.Metadata))
	}
	if g.SingleFeature {
		opts = append(opts, geojson.WithSingleFeature())
	}
	if g.IDInProperties {
		opts = append(opts, geojson.WithIDInProperties())
	}
	if len(g.Links) > 0 {
		opts = append(opts, geojson.WithLinks(g.Links...))
	}
	if len(g.FeatureLinks) > 0 {
		opts = append(opts, geojson.WithFeatureLinks(g.FeatureLinks...))
	}
	if g.FeatureURI != "" {
		opts = append(opts, geojson.WithFeatureURITemplate(g.FeatureURI))
	}
	if g.CanonicalURI != "" {
		opts = append(opts, geojson.WithCanonicalURITemplate(g.CanonicalURI))
	}
	if g.Paging != nil {
		opts = append(opts, geojson.WithPaging(g.Paging.Offset, g.Paging.Limit))
	}

	return opts, nil
}

// GeoJSONCompression returns the compression applied to GeoJSON output.
func (p *Profile) GeoJSONCompression() (format.CompressionType, error) {
	return parseCompression(p.GeoJSON.Compression)
}

// TileOptions returns the options of the vector tile encoder.
func (p *Profile) TileOptions(logger logrus.FieldLogger) ([]mvt.Option, error) {
	t := p.Tile
	opts := []mvt.Option{mvt.WithCollectionID(p.Collection)}
	if logger != nil {
		opts = append(opts, mvt.WithLogger(logger))
	}

	if t.Layer != "" {
		opts = append(opts, mvt.WithLayerName(t.Layer))
	}
	if t.SourceCRS != "" {
		crs, err := coords.ParseCRS(t.SourceCRS)
		if err != nil {
			return nil, err
		}
		opts = append(opts, mvt.WithSourceCRS(crs))
	}
	if t.Extent != 0 {
		opts = append(opts, mvt.WithExtent(t.Extent))
	}
	if t.Buffer != nil {
		opts = append(opts, mvt.WithBuffer(*t.Buffer))
	}
	if t.MinArea != nil {
		opts = append(opts, mvt.WithMinArea(*t.MinArea))
	}
	if t.MinLength != nil {
		opts = append(opts, mvt.WithMinLength(*t.MinLength))
	}
	if t.Simplification > 0 {
		opts = append(opts, mvt.WithSimplification(t.Simplification))
	}
	if t.IgnoreInvalid {
		opts = append(opts, mvt.WithIgnoreInvalid(true))
	}
	if t.Separator != nil {
		opts = append(opts, mvt.WithSeparator(*t.Separator))
	}
	if len(t.MergeRules) > 0 {
		opts = append(opts, mvt.WithMergeRules(t.MergeRules...))
	}

	compression, err := parseCompression(t.Compression)
	if err != nil {
		return nil, err
	}
	opts = append(opts, mvt.WithCompression(compression))

	return opts, nil
}

// NewLogger returns a logrus logger writing to w with the configured level and format.
func (l Log) NewLogger(w io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(w)

	level := logrus.InfoLevel
	if l.Level != "" {
		var err error
		if level, err = logrus.ParseLevel(l.Level); err != nil {
			return nil, fmt.Errorf("%w: %w", errs.ErrInvalidOption, err)
		}
	}
	logger.SetLevel(level)

	switch l.Format {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("%w: log format %q", errs.ErrInvalidOption, l.Format)
	}

	return logger, nil
}

func parseCompression(name string) (format.CompressionType, error) {
	ct, ok := format.ParseCompressionType(name)
	if !ok {
		return 0, fmt.Errorf("%w: compression %q", errs.ErrInvalidOption, name)
	}

	return ct, nil
}
