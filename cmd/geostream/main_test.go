package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/maptile"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/geostream/errs"
	"github.com/arloliu/geostream/store"
)

const input = `{"type":"FeatureCollection","features":[` +
	`{"type":"Feature","id":1,"geometry":{"type":"Point","coordinates":[10,50]},"properties":{"art":"bruecke"}},` +
	`{"type":"Feature","id":2,"geometry":{"type":"Point","coordinates":[11,51]},"properties":{"art":"tunnel"}}]}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestRun_Usage(t *testing.T) {
	var stdout, stderr bytes.Buffer

	require.ErrorIs(t, run(nil, nil, &stdout, &stderr), errUsage)
	require.Contains(t, stderr.String(), "usage: geostream")

	require.NoError(t, run([]string{"help"}, nil, &stdout, &stderr))
	require.Contains(t, stdout.String(), "commands:")

	require.ErrorContains(t, run([]string{"render"}, nil, &stdout, &stderr), `unknown command "render"`)
}

func TestRun_GeoJSON(t *testing.T) {
	var stdout, stderr bytes.Buffer

	args := []string{"geojson", "-flatten", ".", "-log-format", "json"}
	require.NoError(t, run(args, strings.NewReader(input), &stdout, &stderr))
	require.True(t, strings.HasPrefix(stdout.String(), `{"type":"FeatureCollection","features":[{"type":"Feature","id":1,`), stdout.String())
	require.Contains(t, stdout.String(), `"numberReturned":2`)
	require.Contains(t, stderr.String(), `"msg":"document written"`)
	require.Contains(t, stderr.String(), `"returned":2`)
}

func TestRun_GeoJSONProfile(t *testing.T) {
	profile := writeFile(t, "profile.yaml", "collection: bauwerke\ngeojson:\n  metadata: false\n  compression: gzip\n")
	in := writeFile(t, "in.json", input)
	out := filepath.Join(t.TempDir(), "out.json.gz")

	var stdout, stderr bytes.Buffer
	args := []string{"geojson", "-profile", profile, "-in", in, "-out", out}
	require.NoError(t, run(args, nil, &stdout, &stderr))
	require.Empty(t, stdout.String())
	require.Contains(t, stderr.String(), "collection=bauwerke")

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	var doc bytes.Buffer
	_, err = doc.ReadFrom(zr)
	require.NoError(t, err)
	require.Equal(t, input, doc.String())
}

func TestRun_GeoJSONErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer

	err := run([]string{"geojson", "-crs", "EPSG:25832"}, strings.NewReader(input), &stdout, &stderr)
	require.ErrorIs(t, err, errs.ErrUnsupportedCRS)

	err = run([]string{"geojson"}, strings.NewReader(`{"features":[1]}`), &stdout, &stderr)
	require.ErrorIs(t, err, errs.ErrInvalidInput)

	err = run([]string{"geojson", "-log-level", "loud"}, strings.NewReader(input), &stdout, &stderr)
	require.ErrorIs(t, err, errs.ErrInvalidOption)

	err = run([]string{"geojson", "-profile", filepath.Join(t.TempDir(), "missing.yaml")}, nil, &stdout, &stderr)
	require.Error(t, err)
}

func TestRun_Tile(t *testing.T) {
	var stdout, stderr bytes.Buffer

	args := []string{"tile", "-tile", "0/0/0", "-layer", "bauwerke"}
	require.NoError(t, run(args, strings.NewReader(input), &stdout, &stderr))

	layers, err := mvt.Unmarshal(stdout.Bytes())
	require.NoError(t, err)
	require.Len(t, layers, 1)
	require.Equal(t, "bauwerke", layers[0].Name)
	require.Len(t, layers[0].Features, 2)
	require.Contains(t, stderr.String(), "emitted=2")

	err = run([]string{"tile", "-tile", "1/2/0"}, strings.NewReader(input), &stdout, &stderr)
	require.ErrorIs(t, err, errs.ErrInvalidTile)
	err = run([]string{"tile", "-tile", "0/0"}, strings.NewReader(input), &stdout, &stderr)
	require.ErrorContains(t, err, "want z/x/y")
}

func TestRun_TileMBTiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiles.mbtiles")

	var stdout, stderr bytes.Buffer
	args := []string{"tile", "-tile", "0/0/0", "-mbtiles", path, "-compress", "gzip"}
	require.NoError(t, run(args, strings.NewReader(input), &stdout, &stderr))
	require.Empty(t, stdout.String())

	db, err := store.Open(context.Background(), path, nil)
	require.NoError(t, err)
	defer db.Close()

	data, err := db.ReadTile(context.Background(), maptile.New(0, 0, 0))
	require.NoError(t, err)
	layers, err := mvt.UnmarshalGzipped(data)
	require.NoError(t, err)
	require.Len(t, layers[0].Features, 2)

	meta, err := db.Metadata(context.Background())
	require.NoError(t, err)
	require.Equal(t, "0", meta["maxzoom"])
}

func TestRun_Tiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiles.mbtiles")
	in := writeFile(t, "in.json", input)

	var stdout, stderr bytes.Buffer
	args := []string{"tiles", "-in", in, "-mbtiles", path, "-zoom", "0-4", "-workers", "3", "-collection", "bauwerke"}
	require.NoError(t, run(args, nil, &stdout, &stderr))
	require.Contains(t, stderr.String(), "tiles=5")

	ctx := context.Background()
	db, err := store.Open(ctx, path, nil)
	require.NoError(t, err)
	defer db.Close()

	for z := maptile.Zoom(0); z <= 4; z++ {
		tile := maptile.At(orb.Point{10, 50}, z)
		data, err := db.ReadTile(ctx, tile)
		require.NoError(t, err, "zoom %d", z)
		require.NotEmpty(t, data)
	}

	meta, err := db.Metadata(ctx)
	require.NoError(t, err)
	require.Equal(t, "bauwerke", meta["name"])
	require.Equal(t, "4", meta["maxzoom"])

	err = run([]string{"tiles", "-zoom", "0-4"}, strings.NewReader(input), &stdout, &stderr)
	require.ErrorContains(t, err, "-mbtiles is required")
}

func TestParseZooms(t *testing.T) {
	tests := []struct {
		in       string
		min, max maptile.Zoom
		ok       bool
	}{
		{"0-10", 0, 10, true},
		{"7", 7, 7, true},
		{"5-2", 0, 0, false},
		{"0-30", 0, 0, false},
		{"a-b", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			lo, hi, err := parseZooms(tt.in)
			if !tt.ok {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.min, lo)
			require.Equal(t, tt.max, hi)
		})
	}
}

func TestCoverage(t *testing.T) {
	bound := orb.Bound{Min: orb.Point{10, 50}, Max: orb.Point{11, 51}}

	var tiles []maptile.Tile
	coverage(bound, 0, 1, func(t maptile.Tile) bool {
		tiles = append(tiles, t)
		return true
	})
	require.Equal(t, []maptile.Tile{maptile.New(0, 0, 0), maptile.New(1, 0, 1)}, tiles)

	count := 0
	coverage(orb.Bound{Min: orb.Point{-180, -85}, Max: orb.Point{180, 85}}, 2, 2, func(maptile.Tile) bool {
		count++
		return count < 3
	})
	require.Equal(t, 3, count)
}

func TestDocumentBound(t *testing.T) {
	b, ok, err := documentBound([]byte(input), "")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, orb.Bound{Min: orb.Point{10, 50}, Max: orb.Point{11, 51}}, b)

	b, ok, err = documentBound([]byte(`{"type":"Feature","geometry":{"type":"Point","coordinates":[50,10]},"properties":{}}`), "EPSG:4326")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, orb.Point{10, 50}, b.Min)

	_, ok, err = documentBound([]byte(`{"type":"FeatureCollection","features":[]}`), "")
	require.NoError(t, err)
	require.False(t, ok)
}
