package source

import (
	"fmt"

	"github.com/arloliu/geostream/errs"
	"github.com/arloliu/geostream/event"
	"github.com/arloliu/geostream/internal/options"
)

const (
	// DefaultBufferSize is the read buffer of the JSON iterator in bytes.
	DefaultBufferSize = 32 * 1024
	// DefaultChunkSize is the maximum number of positions pushed in one coordinate value.
	DefaultChunkSize = 256
	// DefaultGeometryName is the property name reported for the primary geometry.
	DefaultGeometryName = "geometry"
)

type config struct {
	bufferSize   int
	chunkSize    int
	dimension    int
	geometryName string
	idProperty   string
	doc          event.Document
	docSet       bool
}

func defaultConfig() *config {
	return &config{
		bufferSize:   DefaultBufferSize,
		chunkSize:    DefaultChunkSize,
		dimension:    2,
		geometryName: DefaultGeometryName,
		doc:          event.NewDocument(),
	}
}

// Option configures a Decoder.
type Option = options.Option[*config]

// WithBufferSize sets the read buffer size of the underlying iterator.
func WithBufferSize(size int) Option {
	return options.New(func(c *config) error {
		if size <= 0 {
			return fmt.Errorf("%w: buffer size must be positive", errs.ErrInvalidOption)
		}
		c.bufferSize = size

		return nil
	})
}

// WithChunkSize sets how many positions are joined into one coordinate value.
func WithChunkSize(positions int) Option {
	return options.New(func(c *config) error {
		if positions <= 0 {
			return fmt.Errorf("%w: chunk size must be positive", errs.ErrInvalidOption)
		}
		c.chunkSize = positions

		return nil
	})
}

// WithDimension sets the coordinate dimension of the source, 2 or 3.
// Ordinates beyond the dimension are ignored.
func WithDimension(dimension int) Option {
	return options.New(func(c *config) error {
		if dimension != 2 && dimension != 3 {
			return fmt.Errorf("%w: dimension %d", errs.ErrInvalidOption, dimension)
		}
		c.dimension = dimension

		return nil
	})
}

// WithGeometryName sets the property name of the primary geometry.
func WithGeometryName(name string) Option {
	return options.New(func(c *config) error {
		if name == "" {
			return fmt.Errorf("%w: empty geometry name", errs.ErrInvalidOption)
		}
		c.geometryName = name

		return nil
	})
}

// WithIDProperty marks the top-level property with the given name as the
// feature id, for sources that carry the id inside "properties".
func WithIDProperty(name string) Option {
	return options.NoError(func(c *config) {
		c.idProperty = name
	})
}

// WithDocument announces the given counts at document start instead of the
// numberMatched and numberReturned members of the input.
func WithDocument(doc event.Document) Option {
	return options.NoError(func(c *config) {
		c.doc = doc
		c.docSet = true
	})
}
