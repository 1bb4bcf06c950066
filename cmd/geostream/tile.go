package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/paulmach/orb"
	orbjson "github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/project"
	"github.com/sirupsen/logrus"

	"github.com/arloliu/geostream/config"
	"github.com/arloliu/geostream/coords"
	"github.com/arloliu/geostream/mvt"
	"github.com/arloliu/geostream/source"
	"github.com/arloliu/geostream/store"
)

// tileFlags are the tile encoder flags shared by tile and tiles.
type tileFlags struct {
	common
	layer       string
	compression string
	mbtiles     string
}

func (f *tileFlags) register(fs *flag.FlagSet) {
	f.common.register(fs)
	fs.StringVar(&f.layer, "layer", "", "layer name")
	fs.StringVar(&f.compression, "compress", "", "tile compression (none, gzip, zstd, s2, lz4)")
	fs.StringVar(&f.mbtiles, "mbtiles", "", "MBTiles file to store tiles in")
}

func (f *tileFlags) load(stderr io.Writer) (*config.Profile, *logrus.Logger, []mvt.Option, error) {
	p, logger, err := f.common.load(stderr)
	if err != nil {
		return nil, nil, nil, err
	}

	if f.layer != "" {
		p.Tile.Layer = f.layer
	}
	if f.compression != "" {
		p.Tile.Compression = f.compression
	}

	opts, err := p.TileOptions(logger)
	if err != nil {
		return nil, nil, nil, err
	}

	return p, logger, opts, nil
}

func runTile(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var (
		f    tileFlags
		name string
		out  string
	)

	fs := newFlagSet("tile", stderr)
	f.register(fs)
	fs.StringVar(&name, "tile", "", "tile as z/x/y (required)")
	fs.StringVar(&out, "out", "-", "output file, - for stdout; ignored with -mbtiles")
	if err := fs.Parse(args); err != nil {
		return err
	}

	t, err := parseTile(name)
	if err != nil {
		return err
	}
	p, logger, opts, err := f.load(stderr)
	if err != nil {
		return err
	}

	in, err := openInput(f.in, stdin)
	if err != nil {
		return err
	}
	defer in.Close()

	data, stats, err := encodeTile(in, t, p.SourceOptions(), opts)
	if err != nil {
		return fmt.Errorf("tile %s: %w", name, err)
	}

	if f.mbtiles != "" {
		ctx := context.Background()
		db, err := store.Open(ctx, f.mbtiles, logger)
		if err != nil {
			return err
		}
		err = errors.Join(writeTiles(ctx, db, p, t.Z, t.Z, t, data), db.Close())
		if err != nil {
			return err
		}
	} else {
		dst, err := openOutput(out, stdout)
		if err != nil {
			return err
		}
		_, err = dst.Write(data)
		if err = errors.Join(err, dst.Close()); err != nil {
			return err
		}
	}

	logger.WithFields(logrus.Fields{
		"tile":       name,
		"bytes":      len(data),
		"emitted":    stats.Emitted,
		"merged":     stats.Merged,
		"dropped":    stats.Dropped,
		"collisions": stats.Collisions,
	}).Info("tile written")

	return nil
}

func runTiles(args []string, stdin io.Reader, stderr io.Writer) error {
	var (
		f       tileFlags
		zooms   string
		workers int
	)

	fs := newFlagSet("tiles", stderr)
	f.register(fs)
	fs.StringVar(&zooms, "zoom", "0-10", "zoom level range as min-max or a single level")
	fs.IntVar(&workers, "workers", runtime.NumCPU(), "number of tiles encoded in parallel")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if f.mbtiles == "" {
		return fmt.Errorf("tiles: -mbtiles is required")
	}
	if workers < 1 {
		return fmt.Errorf("tiles: -workers must be positive")
	}
	minZoom, maxZoom, err := parseZooms(zooms)
	if err != nil {
		return err
	}
	p, logger, opts, err := f.load(stderr)
	if err != nil {
		return err
	}

	in, err := openInput(f.in, stdin)
	if err != nil {
		return err
	}
	doc, err := io.ReadAll(in)
	in.Close()
	if err != nil {
		return err
	}

	bound, ok, err := documentBound(doc, p.Tile.SourceCRS)
	if err != nil {
		return err
	}
	if !ok {
		logger.Warn("input has no geometries, no tiles written")
		return nil
	}

	ctx := context.Background()
	db, err := store.Open(ctx, f.mbtiles, logger)
	if err != nil {
		return err
	}

	written, err := renderTiles(ctx, db, doc, bound, minZoom, maxZoom, workers, p.SourceOptions(), opts)
	if err == nil {
		err = writeTiles(ctx, db, p, minZoom, maxZoom, maptile.Tile{}, nil)
	}
	if err = errors.Join(err, db.Close()); err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"mbtiles": f.mbtiles,
		"zoom":    zooms,
		"tiles":   written,
	}).Info("tiles written")

	return nil
}

// renderTiles encodes every tile of the zoom range that intersects bound and
// stores the non-empty ones. The first error stops all workers.
func renderTiles(ctx context.Context, db *store.MBTiles, doc []byte, bound orb.Bound,
	minZoom, maxZoom maptile.Zoom, workers int, srcOpts []source.Option, opts []mvt.Option,
) (int64, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	tiles := make(chan maptile.Tile)
	var (
		wg      sync.WaitGroup
		written atomic.Int64
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range tiles {
				if ctx.Err() != nil {
					continue
				}
				data, _, err := encodeTile(bytes.NewReader(doc), t, srcOpts, opts)
				if err == nil && len(data) > 0 {
					if err = db.WriteTile(ctx, t, data); err == nil {
						written.Add(1)
					}
				}
				if err != nil {
					cancel(fmt.Errorf("tile %d/%d/%d: %w", t.Z, t.X, t.Y, err))
				}
			}
		}()
	}

	coverage(bound, minZoom, maxZoom, func(t maptile.Tile) bool {
		select {
		case tiles <- t:
			return true
		case <-ctx.Done():
			return false
		}
	})
	close(tiles)
	wg.Wait()

	return written.Load(), context.Cause(ctx)
}

// coverage calls fn for every tile of the zoom range intersecting bound until fn returns false.
func coverage(bound orb.Bound, minZoom, maxZoom maptile.Zoom, fn func(maptile.Tile) bool) {
	for z := minZoom; z <= maxZoom; z++ {
		nw := maptile.At(orb.Point{bound.Min[0], bound.Max[1]}, z)
		se := maptile.At(orb.Point{bound.Max[0], bound.Min[1]}, z)
		for x := nw.X; x <= se.X; x++ {
			for y := nw.Y; y <= se.Y; y++ {
				if !fn(maptile.New(x, y, z)) {
					return
				}
			}
		}
	}
}

// documentBound returns the longitude/latitude bound of all geometries in doc.
func documentBound(doc []byte, sourceCRS string) (orb.Bound, bool, error) {
	crs, err := coords.ParseCRS(sourceCRS)
	if err != nil {
		return orb.Bound{}, false, err
	}

	fc, err := orbjson.UnmarshalFeatureCollection(doc)
	if err != nil || len(fc.Features) == 0 {
		f, ferr := orbjson.UnmarshalFeature(doc)
		switch {
		case ferr == nil && f.Geometry != nil:
			fc = orbjson.NewFeatureCollection().Append(f)
		case err != nil:
			return orb.Bound{}, false, fmt.Errorf("read bounds: %w", err)
		}
	}

	var (
		bound orb.Bound
		found bool
	)
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		b := f.Geometry.Bound()
		if found {
			bound = bound.Union(b)
		} else {
			bound, found = b, true
		}
	}
	if !found {
		return bound, false, nil
	}

	switch crs {
	case coords.EPSG4326:
		bound = orb.Bound{
			Min: orb.Point{bound.Min[1], bound.Min[0]},
			Max: orb.Point{bound.Max[1], bound.Max[0]},
		}
	case coords.EPSG3857:
		bound = orb.Bound{
			Min: project.Mercator.ToWGS84(bound.Min),
			Max: project.Mercator.ToWGS84(bound.Max),
		}
	}

	return bound, true, nil
}

func encodeTile(r io.Reader, t maptile.Tile, srcOpts []source.Option, opts []mvt.Option) ([]byte, mvt.Stats, error) {
	enc, err := mvt.NewEncoder(t, opts...)
	if err != nil {
		return nil, mvt.Stats{}, err
	}
	defer enc.Close()

	if err := source.Decode(r, enc, srcOpts...); err != nil {
		return nil, mvt.Stats{}, err
	}
	data, err := enc.Bytes()

	return data, enc.Stats(), err
}

// writeTiles stores one tile, when data is not empty, and the tileset metadata.
func writeTiles(ctx context.Context, db *store.MBTiles, p *config.Profile,
	minZoom, maxZoom maptile.Zoom, t maptile.Tile, data []byte,
) error {
	if len(data) > 0 {
		if err := db.WriteTile(ctx, t, data); err != nil {
			return err
		}
	}

	layer := p.Tile.Layer
	if layer == "" {
		layer = mvt.DefaultLayerName
	}
	name := p.Collection
	if name == "" {
		name = layer
	}
	meta, err := store.TilesetMetadata(name, layer, minZoom, maxZoom)
	if err != nil {
		return err
	}

	return db.WriteMetadata(ctx, meta)
}

func parseTile(s string) (maptile.Tile, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return maptile.Tile{}, fmt.Errorf("tile %q: want z/x/y", s)
	}

	var v [3]uint32
	for i, part := range parts {
		n, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return maptile.Tile{}, fmt.Errorf("tile %q: %w", s, err)
		}
		v[i] = uint32(n)
	}

	t := maptile.New(v[1], v[2], maptile.Zoom(v[0]))
	if err := mvt.ValidateTile(t); err != nil {
		return maptile.Tile{}, err
	}

	return t, nil
}

func parseZooms(s string) (maptile.Zoom, maptile.Zoom, error) {
	lo, hi, found := strings.Cut(s, "-")
	if !found {
		hi = lo
	}

	minZoom, err := strconv.ParseUint(lo, 10, 8)
	if err != nil {
		return 0, 0, fmt.Errorf("zoom %q: %w", s, err)
	}
	maxZoom, err := strconv.ParseUint(hi, 10, 8)
	if err != nil {
		return 0, 0, fmt.Errorf("zoom %q: %w", s, err)
	}
	if minZoom > maxZoom || maxZoom > mvt.MaxZoom {
		return 0, 0, fmt.Errorf("zoom %q: want min-max within 0-%d", s, mvt.MaxZoom)
	}

	return maptile.Zoom(minZoom), maptile.Zoom(maxZoom), nil
}
