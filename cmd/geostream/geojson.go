package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/arloliu/geostream/compress"
	"github.com/arloliu/geostream/format"
	"github.com/arloliu/geostream/geojson"
	"github.com/arloliu/geostream/source"
)

func runGeoJSON(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var (
		c           common
		out         string
		sourceCRS   string
		targetCRS   string
		precision   int
		flatten     string
		compression string
		single      bool
	)

	fs := newFlagSet("geojson", stderr)
	c.register(fs)
	fs.StringVar(&out, "out", "-", "output file, - for stdout")
	fs.StringVar(&sourceCRS, "source-crs", "", "CRS of the input coordinates")
	fs.StringVar(&targetCRS, "crs", "", "CRS of the output coordinates")
	fs.IntVar(&precision, "precision", -1, "decimal places of output coordinates, -1 keeps them")
	fs.StringVar(&flatten, "flatten", "", "flatten nested properties with this separator")
	fs.StringVar(&compression, "compress", "", "output compression (none, gzip, zstd, s2, lz4)")
	fs.BoolVar(&single, "single", false, "write a single Feature instead of a FeatureCollection")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p, logger, err := c.load(stderr)
	if err != nil {
		return err
	}

	g := &p.GeoJSON
	if sourceCRS != "" {
		g.SourceCRS = sourceCRS
	}
	if targetCRS != "" {
		g.TargetCRS = targetCRS
	}
	if precision >= 0 {
		g.Precision = &precision
	}
	if flatten != "" {
		g.Flatten = flatten
	}
	if compression != "" {
		g.Compression = compression
	}
	if single {
		g.SingleFeature = true
	}

	opts, err := p.GeoJSONOptions(logger)
	if err != nil {
		return err
	}
	ct, err := p.GeoJSONCompression()
	if err != nil {
		return err
	}

	in, err := openInput(c.in, stdin)
	if err != nil {
		return err
	}
	defer in.Close()

	dst, err := openOutput(out, stdout)
	if err != nil {
		return err
	}

	enc, err := encodeGeoJSON(in, dst, ct, p.SourceOptions(), opts)
	if err = errors.Join(err, dst.Close()); err != nil {
		return fmt.Errorf("geojson: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"collection": p.Collection,
		"returned":   enc.Returned(),
		"skipped":    enc.Skipped(),
	}).Info("document written")

	return nil
}

func encodeGeoJSON(in io.Reader, out io.Writer, ct format.CompressionType,
	srcOpts []source.Option, opts []geojson.Option,
) (*geojson.Encoder, error) {
	w, err := compress.NewWriter(ct, out)
	if err != nil {
		return nil, err
	}

	enc, err := geojson.NewEncoder(w, opts...)
	if err != nil {
		return nil, err
	}
	defer enc.Close()

	err = source.Decode(in, enc, srcOpts...)

	return enc, errors.Join(err, w.Close())
}
