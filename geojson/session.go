package geojson

import (
	"github.com/sirupsen/logrus"

	"github.com/arloliu/geostream/coords"
	"github.com/arloliu/geostream/event"
	"github.com/arloliu/geostream/nesting"
	"github.com/arloliu/geostream/sink"
)

// Session is the mutable state of one document encoding, shared by the stages.
type Session struct {
	cfg      *config
	buffered *sink.Buffered
	pipeline *coords.Pipeline
	tracker  *nesting.Tracker

	doc      event.Document
	returned int64
	skipped  int64

	// per feature
	index        int64
	featureDepth int
	featureID    string
	links        []Link
}

func newSession(cfg *config, direct sink.Sink) (*Session, error) {
	tr, err := coords.NewTransformer(cfg.sourceCRS, cfg.targetCRS)
	if err != nil {
		return nil, err
	}

	var strategy nesting.Strategy = nesting.Nested{}
	if cfg.flatten {
		strategy = nesting.NewFlattened(cfg.separator)
	}

	s := &Session{
		cfg:      cfg,
		buffered: sink.NewBuffered(direct),
		tracker:  nesting.NewTracker(strategy),
		index:    -1,
	}
	s.pipeline = coords.NewPipeline(coords.Config{
		Transformer: tr,
		SwapAxes:    cfg.swapAxes,
		Tolerance:   cfg.tolerance,
		Precision:   cfg.precision,
	}, &coords.JSONTerminal{Sink: direct})

	return s, nil
}

// Sink returns the sink currently receiving writes, the direct sink or the buffer.
func (s *Session) Sink() sink.Sink { return s.buffered.Active() }

// Direct returns the real output sink.
func (s *Session) Direct() sink.Sink { return s.buffered.Direct() }

// Buffered returns the buffering switch of the session.
func (s *Session) Buffered() *sink.Buffered { return s.buffered }

// IsCollection reports whether the document is a FeatureCollection.
func (s *Session) IsCollection() bool { return s.cfg.collection }

// Document returns the counts announced at document start.
func (s *Session) Document() event.Document { return s.doc }

// FeatureIndex returns the 0-based index of the current feature.
func (s *Session) FeatureIndex() int64 { return s.index }

// FeatureID returns the id of the current feature, empty while unknown.
func (s *Session) FeatureID() string { return s.featureID }

// AtFeatureLevel reports whether the direct sink is positioned directly inside
// the current feature object, so a member can be written there.
func (s *Session) AtFeatureLevel() bool {
	return s.Direct().Depth() == s.featureDepth
}

// AddFeatureLink adds a link to the current feature's "links".
func (s *Session) AddFeatureLink(l Link) {
	s.links = append(s.links, l)
}

// Logger returns the logger with the collection and feature fields set.
func (s *Session) Logger() logrus.FieldLogger {
	fields := logrus.Fields{"feature": s.index}
	if s.cfg.collectionID != "" {
		fields["collection"] = s.cfg.collectionID
	}
	if s.featureID != "" {
		fields["id"] = s.featureID
	}

	return s.cfg.logger.WithFields(fields)
}

func (s *Session) resetFeature() {
	s.featureID = ""
	s.links = s.links[:0]
	s.tracker.Reset()
}

func (s *Session) close() {
	s.pipeline.Close()
	s.buffered.Close()
}
