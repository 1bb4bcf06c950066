package geojson

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/arloliu/geostream/coords"
	"github.com/arloliu/geostream/errs"
	"github.com/arloliu/geostream/internal/options"
)

// Link is a web link written to a "links" array.
type Link struct {
	Href  string `yaml:"href"`
	Rel   string `yaml:"rel"`
	Type  string `yaml:"type,omitempty"`
	Title string `yaml:"title,omitempty"`
}

// config holds the encoder settings.
type config struct {
	logger       logrus.FieldLogger
	collectionID string
	collection   bool

	sourceCRS coords.CRS
	targetCRS coords.CRS
	swapAxes  bool
	precision int
	tolerance float64

	flatten   bool
	separator string

	metadata bool
	clock    func() time.Time

	links          []Link
	featureLinks   []Link
	selfTemplate   string
	canonTemplate  string
	offset, limit  int64
	extraWriters   []Writer
	idInProperties bool
}

func defaultConfig() *config {
	return &config{
		logger:     logrus.StandardLogger(),
		collection: true,
		sourceCRS:  coords.CRS84,
		targetCRS:  coords.CRS84,
		precision:  coords.NoPrecision,
		metadata:   true,
		clock:      time.Now,
	}
}

// Option configures an Encoder.
type Option = options.Option[*config]

// WithLogger sets the logger for skipped features. Defaults to the logrus standard logger.
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

// WithSingleFeature encodes a single Feature document instead of a FeatureCollection.
func WithSingleFeature() Option {
	return options.NoError(func(c *config) {
		c.collection = false
	})
}

// WithCRS sets the CRS of the incoming coordinates and the CRS to write.
// A "crs" member is written whenever the target is not CRS84.
func WithCRS(source, target coords.CRS) Option {
	return options.New(func(c *config) error {
		if _, err := coords.NewTransformer(source, target); err != nil {
			return fmt.Errorf("%w: %w", errs.ErrInvalidOption, err)
		}
		c.sourceCRS = source
		c.targetCRS = target

		return nil
	})
}

// WithSwapAxes exchanges the first two coordinate axes after reprojection.
func WithSwapAxes() Option {
	return options.NoError(func(c *config) {
		c.swapAxes = true
	})
}

// WithPrecision rounds coordinates to the given number of fractional digits.
func WithPrecision(digits int) Option {
	return options.New(func(c *config) error {
		if digits < 0 || digits > 15 {
			return fmt.Errorf("%w: precision %d out of range [0,15]", errs.ErrInvalidOption, digits)
		}
		c.precision = digits

		return nil
	})
}

// WithSimplification simplifies lines and rings with the given tolerance in
// target CRS units.
func WithSimplification(tolerance float64) Option {
	return options.New(func(c *config) error {
		if tolerance < 0 {
			return fmt.Errorf("%w: negative simplification tolerance", errs.ErrInvalidOption)
		}
		c.tolerance = tolerance

		return nil
	})
}

// WithFlatten writes nested properties as flattened field names joined by separator.
func WithFlatten(separator string) Option {
	return options.NoError(func(c *config) {
		c.flatten = true
		c.separator = separator
	})
}

// WithMetadata enables or disables numberReturned, numberMatched and timeStamp.
// Enabled by default.
func WithMetadata(enabled bool) Option {
	return options.NoError(func(c *config) {
		c.metadata = enabled
	})
}

// WithClock sets the time source for timeStamp.
func WithClock(clock func() time.Time) Option {
	return options.New(func(c *config) error {
		if clock == nil {
			return fmt.Errorf("%w: nil clock", errs.ErrInvalidOption)
		}
		c.clock = clock

		return nil
	})
}

// WithLinks sets the collection level links. A "next" link is dropped on the last page.
func WithLinks(links ...Link) Option {
	return options.NoError(func(c *config) {
		c.links = append(c.links, links...)
	})
}

// WithFeatureLinks sets additional links for single feature documents. Features
// embedded in a collection only keep self and canonical links.
func WithFeatureLinks(links ...Link) Option {
	return options.NoError(func(c *config) {
		c.featureLinks = append(c.featureLinks, links...)
	})
}

// WithFeatureURITemplate synthesizes a self link per feature. "{id}" is replaced
// by the escaped feature id.
func WithFeatureURITemplate(template string) Option {
	return options.NoError(func(c *config) {
		c.selfTemplate = template
	})
}

// WithCanonicalURITemplate synthesizes a canonical link per feature, see WithFeatureURITemplate.
func WithCanonicalURITemplate(template string) Option {
	return options.NoError(func(c *config) {
		c.canonTemplate = template
	})
}

// WithPaging sets the page window used to detect the last page.
func WithPaging(offset, limit int64) Option {
	return options.New(func(c *config) error {
		if offset < 0 || limit < 0 {
			return fmt.Errorf("%w: negative paging window", errs.ErrInvalidOption)
		}
		c.offset = offset
		c.limit = limit

		return nil
	})
}

// WithIDInProperties also writes the id property into "properties".
func WithIDInProperties() Option {
	return options.NoError(func(c *config) {
		c.idInProperties = true
	})
}

// WithWriters adds writer stages to the chain. They are ordered by priority
// together with the built-in stages.
func WithWriters(writers ...Writer) Option {
	return options.NoError(func(c *config) {
		c.extraWriters = append(c.extraWriters, writers...)
	})
}
