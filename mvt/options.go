package mvt

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/arloliu/geostream/coords"
	"github.com/arloliu/geostream/errs"
	"github.com/arloliu/geostream/format"
	"github.com/arloliu/geostream/internal/options"
	"github.com/arloliu/geostream/nesting"
)

const (
	// DefaultExtent is the number of tile units along one tile edge.
	DefaultExtent = 4096
	// DefaultBuffer is the clip buffer in screen pixels of a 256 pixel tile.
	DefaultBuffer = 5
	// DefaultLayerName is used when no layer name is configured.
	DefaultLayerName = "features"
)

// config holds the tile encoder settings.
type config struct {
	logger       logrus.FieldLogger
	collectionID string
	layerName    string

	extent    uint32
	buffer    float64
	minArea   float64
	minLength float64
	tolerance float64

	sourceCRS     coords.CRS
	ignoreInvalid bool
	separator     string
	rules         []MergeRule
	compression   format.CompressionType
}

func defaultConfig() *config {
	return &config{
		logger:      logrus.StandardLogger(),
		layerName:   DefaultLayerName,
		extent:      DefaultExtent,
		buffer:      DefaultBuffer,
		minArea:     1,
		minLength:   1,
		sourceCRS:   coords.CRS84,
		separator:   nesting.DefaultSeparator,
		compression: format.CompressionNone,
	}
}

// bufferUnits returns the clip buffer in tile units.
func (c *config) bufferUnits() float64 {
	return c.buffer * float64(c.extent) / 256
}

// Option configures an Encoder.
type Option = options.Option[*config]

// WithLogger sets the logger for dropped features. Defaults to the logrus standard logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return options.New(func(c *config) error {
		if logger == nil {
			return fmt.Errorf("%w: nil logger", errs.ErrInvalidOption)
		}
		c.logger = logger

		return nil
	})
}

// WithCollectionID sets the collection id used in log fields.
func WithCollectionID(id string) Option {
	return options.NoError(func(c *config) {
		c.collectionID = id
	})
}

// WithLayerName sets the name of the tile layer.
func WithLayerName(name string) Option {
	return options.New(func(c *config) error {
		if name == "" {
			return fmt.Errorf("%w: empty layer name", errs.ErrInvalidOption)
		}
		c.layerName = name

		return nil
	})
}

// WithExtent sets the number of tile units along one tile edge.
func WithExtent(extent uint32) Option {
	return options.New(func(c *config) error {
		if extent == 0 {
			return fmt.Errorf("%w: zero tile extent", errs.ErrInvalidOption)
		}
		c.extent = extent

		return nil
	})
}

// WithBuffer sets the clip buffer around the tile in screen pixels of a 256
// pixel tile, e.g. 5 for 80 units of a 4096 extent.
func WithBuffer(pixels float64) Option {
	return options.New(func(c *config) error {
		if pixels < 0 {
			return fmt.Errorf("%w: negative tile buffer", errs.ErrInvalidOption)
		}
		c.buffer = pixels

		return nil
	})
}

// WithMinArea drops polygons whose area in square tile units is below the threshold.
func WithMinArea(area float64) Option {
	return options.New(func(c *config) error {
		if area < 0 {
			return fmt.Errorf("%w: negative minimum area", errs.ErrInvalidOption)
		}
		c.minArea = area

		return nil
	})
}

// WithMinLength drops lines whose length in tile units is below the threshold.
func WithMinLength(length float64) Option {
	return options.New(func(c *config) error {
		if length < 0 {
			return fmt.Errorf("%w: negative minimum length", errs.ErrInvalidOption)
		}
		c.minLength = length

		return nil
	})
}

// WithSimplification simplifies lines and rings with a tolerance in tile units.
func WithSimplification(tolerance float64) Option {
	return options.New(func(c *config) error {
		if tolerance < 0 {
			return fmt.Errorf("%w: negative simplification tolerance", errs.ErrInvalidOption)
		}
		c.tolerance = tolerance

		return nil
	})
}

// WithSourceCRS sets the CRS of the incoming coordinates. Defaults to CRS84.
func WithSourceCRS(crs coords.CRS) Option {
	return options.New(func(c *config) error {
		if _, err := coords.NewTransformer(crs, coords.EPSG3857); err != nil {
			return fmt.Errorf("%w: %w", errs.ErrInvalidOption, err)
		}
		c.sourceCRS = crs

		return nil
	})
}

// WithIgnoreInvalid logs geometries that cannot be repaired at debug level
// instead of warning level. They are dropped either way.
func WithIgnoreInvalid(ignore bool) Option {
	return options.NoError(func(c *config) {
		c.ignoreInvalid = ignore
	})
}

// WithSeparator sets the separator of flattened attribute names. Defaults to ".".
func WithSeparator(separator string) Option {
	return options.NoError(func(c *config) {
		c.separator = separator
	})
}

// WithMergeRules adds merge rules. The first rule matching the tile zoom level applies.
func WithMergeRules(rules ...MergeRule) Option {
	return options.New(func(c *config) error {
		for _, r := range rules {
			if err := r.validate(); err != nil {
				return err
			}
		}
		c.rules = append(c.rules, rules...)

		return nil
	})
}

// WithCompression compresses the finished tile. Defaults to none.
func WithCompression(compression format.CompressionType) Option {
	return options.New(func(c *config) error {
		if compression < format.CompressionNone || compression > format.CompressionGzip {
			return fmt.Errorf("%w: compression %s", errs.ErrInvalidOption, compression)
		}
		c.compression = compression

		return nil
	})
}
