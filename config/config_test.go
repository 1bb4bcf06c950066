package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb/maptile"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/geostream/errs"
	"github.com/arloliu/geostream/event"
	"github.com/arloliu/geostream/format"
	"github.com/arloliu/geostream/geojson"
	"github.com/arloliu/geostream/mvt"
	"github.com/arloliu/geostream/source"
)

const profileYAML = `
collection: bauwerke
source:
  idProperty: gml_id
geojson:
  targetCrs: EPSG:3857
  precision: 0
  metadata: false
  flatten: "."
  links:
    - {href: "https://example.org/items?page=2", rel: next}
  paging: {offset: 0, limit: 10}
tile:
  layer: bauwerke
  buffer: 0
  minLength: 0
  compression: gzip
  mergeRules:
    - {minZoom: 0, maxZoom: 10, groupBy: [art]}
log:
  level: debug
  format: json
`

func TestParse(t *testing.T) {
	p, err := Parse([]byte(profileYAML))
	require.NoError(t, err)

	require.Equal(t, "bauwerke", p.Collection)
	require.Equal(t, "gml_id", p.Source.IDProperty)
	require.Equal(t, "EPSG:3857", p.GeoJSON.TargetCRS)
	require.NotNil(t, p.GeoJSON.Precision)
	require.Equal(t, 0, *p.GeoJSON.Precision)
	require.Equal(t, []geojson.Link{{Href: "https://example.org/items?page=2", Rel: "next"}}, p.GeoJSON.Links)
	require.Equal(t, &Paging{Limit: 10}, p.GeoJSON.Paging)
	require.Equal(t, []mvt.MergeRule{{MinZoom: 0, MaxZoom: 10, GroupBy: []string{"art"}}}, p.Tile.MergeRules)
	require.NotNil(t, p.Tile.Buffer)
	require.Nil(t, p.Tile.MinArea)

	compression, err := p.GeoJSONCompression()
	require.NoError(t, err)
	require.Equal(t, format.CompressionNone, compression)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("collection: a\nunknown: 1\n"))
	require.ErrorIs(t, err, errs.ErrInvalidOption)

	_, err = Parse([]byte("tile: [1, 2]"))
	require.ErrorIs(t, err, errs.ErrInvalidOption)

	p, err := Parse(nil)
	require.NoError(t, err)
	require.Equal(t, &Profile{}, p)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(profileYAML), 0o600))

	p, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "bauwerke", p.Tile.Layer)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestProfile_GeoJSONOptions(t *testing.T) {
	p, err := Parse([]byte(profileYAML))
	require.NoError(t, err)

	opts, err := p.GeoJSONOptions(nil)
	require.NoError(t, err)

	events := event.NewBuilder().Start().
		FeatureStart().
		Value(event.Property("a[a].b", format.ValueString).WithMultiplicities(1), "x").
		Geometry(event.Geometry("geom", format.GeometryPoint, 2), nil, "0 0").
		FeatureEnd().
		End().Events()

	var out bytes.Buffer
	enc, err := geojson.NewEncoder(&out, opts...)
	require.NoError(t, err)
	defer enc.Close()

	require.NoError(t, event.Replay(enc, events))
	got := out.String()
	require.Contains(t, got, `"type":"Point"`)
	require.Contains(t, got, `"a.1.b":"x"`)
	require.Contains(t, got, `"crs"`)
	require.NotContains(t, got, `"timeStamp"`)

	p.GeoJSON.SourceCRS = "EPSG:25832"
	_, err = p.GeoJSONOptions(nil)
	require.ErrorIs(t, err, errs.ErrUnsupportedCRS)
}

func TestProfile_TileOptions(t *testing.T) {
	p, err := Parse([]byte(profileYAML))
	require.NoError(t, err)

	opts, err := p.TileOptions(logrus.New())
	require.NoError(t, err)

	enc, err := mvt.NewEncoder(maptile.New(0, 0, 0), opts...)
	require.NoError(t, err)
	defer enc.Close()

	p.Tile.Compression = "brotli"
	_, err = p.TileOptions(nil)
	require.ErrorIs(t, err, errs.ErrInvalidOption)

	p.Tile.Compression = ""
	p.Tile.MergeRules = []mvt.MergeRule{{MinZoom: 5, MaxZoom: 2}}
	opts, err = p.TileOptions(nil)
	require.NoError(t, err)
	_, err = mvt.NewEncoder(maptile.New(0, 0, 0), opts...)
	require.ErrorIs(t, err, errs.ErrInvalidOption)
}

func TestProfile_SourceOptions(t *testing.T) {
	p := &Profile{Source: Source{Dimension: 3, GeometryName: "geom", IDProperty: "gml_id"}}
	require.Len(t, p.SourceOptions(), 3)

	_, err := source.NewDecoder(strings.NewReader("{}"), p.SourceOptions()...)
	require.NoError(t, err)

	p.Source.Dimension = 5
	_, err = source.NewDecoder(strings.NewReader("{}"), p.SourceOptions()...)
	require.ErrorIs(t, err, errs.ErrInvalidOption)
}

func TestLog_NewLogger(t *testing.T) {
	var out bytes.Buffer
	logger, err := Log{Level: "debug", Format: "json"}.NewLogger(&out)
	require.NoError(t, err)
	require.Equal(t, logrus.DebugLevel, logger.GetLevel())

	logger.WithField("tile", "0/0/0").Debug("dropping feature")
	require.Contains(t, out.String(), `"tile":"0/0/0"`)

	logger, err = Log{}.NewLogger(&out)
	require.NoError(t, err)
	require.Equal(t, logrus.InfoLevel, logger.GetLevel())

	_, err = Log{Level: "loud"}.NewLogger(&out)
	require.ErrorIs(t, err, errs.ErrInvalidOption)
	_, err = Log{Format: "xml"}.NewLogger(&out)
	require.ErrorIs(t, err, errs.ErrInvalidOption)
}
