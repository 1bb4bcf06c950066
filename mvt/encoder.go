// Package mvt encodes feature events into one Mapbox Vector Tile layer.
//
// The Encoder is an event.Handler that accumulates one feature at a time:
//
//	Idle -> Accumulating (feature start) -> Emitted | Merged | Dropped (feature end) -> Idle
//
// Properties are flattened into attribute names such as "foto.2.bemerkung".
// Coordinates run through the same coords.Pipeline as GeoJSON output, with a
// terminal that builds an orb geometry in Web Mercator. At feature end the
// geometry is transformed to tile units, clipped to the buffered tile, repaired
// and checked against the size thresholds. Features covered by a MergeRule are
// kept until the document ends and are then written as one feature per group.
//
// Dropped features are logged, never fatal.
package mvt

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	vt "github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/planar"
	"github.com/sirupsen/logrus"

	"github.com/arloliu/geostream/compress"
	"github.com/arloliu/geostream/coords"
	"github.com/arloliu/geostream/errs"
	"github.com/arloliu/geostream/event"
	"github.com/arloliu/geostream/format"
	"github.com/arloliu/geostream/internal/collision"
	"github.com/arloliu/geostream/internal/hash"
	"github.com/arloliu/geostream/internal/options"
	"github.com/arloliu/geostream/nesting"
)

// MediaType is the vector tile media type.
const MediaType = "application/vnd.mapbox-vector-tile"

type docState uint8

const (
	stateInitial docState = iota
	stateOpen
	stateFeature
	stateClosed
)

// Status is the outcome of one feature.
type Status uint8

const (
	StatusIdle Status = iota
	StatusAccumulating
	StatusEmitted
	StatusMerged
	StatusDropped
)

func (s Status) String() string {
	switch s {
	case StatusAccumulating:
		return "accumulating"
	case StatusEmitted:
		return "emitted"
	case StatusMerged:
		return "merged"
	case StatusDropped:
		return "dropped"
	default:
		return "idle"
	}
}

// Stats counts the feature outcomes of a tile.
type Stats struct {
	Emitted int
	Merged  int
	Dropped int
	// Groups is the number of features written for merged groups.
	Groups int
	// Collisions counts features whose id hashed to the id of a different one.
	Collisions int
}

// Encoder writes one vector tile from an event sequence.
//
// Encoder is NOT thread-safe and NOT reusable: create one per tile.
type Encoder struct {
	cfg   *config
	tile  maptile.Tile
	proj  tileProjection
	bound orb.Bound
	codec compress.Codec

	pipeline *coords.Pipeline
	builder  *coords.GeometryBuilder
	tracker  *nesting.Tracker
	capture  nameCapture
	merger   *merger
	ids      *collision.Tracker
	rule     *MergeRule

	state    docState
	features []*geojson.Feature
	stats    Stats
	data     []byte

	// per feature
	index         int64
	status        Status
	attrs         *attributes
	id            string
	hasID         bool
	geometry      orb.Geometry
	geometryType  format.GeometryType
	inGeometry    bool
	geometryDone  bool
	geometryDepth int
	unsupported   bool
	skipping      bool
}

var _ event.Handler = (*Encoder)(nil)

// NewEncoder creates an encoder for the given tile.
//
// Parameters:
//   - tile: the tile to encode, in the XYZ scheme
//   - opts: encoder options
//
// Returns:
//   - *Encoder: the encoder, ready for OnStart
//   - error: errs.ErrInvalidTile or errs.ErrInvalidOption wrapped with details
func NewEncoder(tile maptile.Tile, opts ...Option) (*Encoder, error) {
	if err := ValidateTile(tile); err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	tr, err := coords.NewTransformer(cfg.sourceCRS, coords.EPSG3857)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrInvalidOption, err)
	}
	codec, err := compress.CreateCodec(cfg.compression, "tile")
	if err != nil {
		return nil, err
	}

	proj := newTileProjection(tile, cfg.extent)
	buf := cfg.bufferUnits()
	ext := float64(cfg.extent)

	e := &Encoder{
		cfg:     cfg,
		tile:    tile,
		proj:    proj,
		bound:   orb.Bound{Min: orb.Point{-buf, -buf}, Max: orb.Point{ext + buf, ext + buf}},
		codec:   codec,
		builder: &coords.GeometryBuilder{},
		tracker: nesting.NewTracker(nesting.NewFlattened(cfg.separator)),
		merger:  newMerger(),
		ids:     collision.NewTracker(),
		attrs:   newAttributes(),
		index:   -1,
	}
	e.pipeline = coords.NewPipeline(coords.Config{
		Transformer: tr,
		Tolerance:   proj.meters(cfg.tolerance),
		Precision:   coords.NoPrecision,
	}, e.builder)

	for i := range cfg.rules {
		if cfg.rules[i].Applies(int(tile.Z)) {
			e.rule = &cfg.rules[i]
			break
		}
	}

	return e, nil
}

// Tile returns the tile being encoded.
func (e *Encoder) Tile() maptile.Tile { return e.tile }

// Stats returns the feature counts so far.
func (e *Encoder) Stats() Stats { return e.stats }

// Status returns the outcome of the last feature.
func (e *Encoder) Status() Status { return e.status }

// Bytes returns the encoded and compressed tile. It is available after the
// document end. A tile without features has no layer and zero length.
func (e *Encoder) Bytes() ([]byte, error) {
	if e.state != stateClosed {
		return nil, fmt.Errorf("%w: tile requested before document end", errs.ErrProtocol)
	}

	return e.data, nil
}

// WriteTo writes the finished tile to w.
func (e *Encoder) WriteTo(w io.Writer) (int64, error) {
	data, err := e.Bytes()
	if err != nil {
		return 0, err
	}

	return io.Copy(w, bytes.NewReader(data))
}

// Close releases pooled memory.
func (e *Encoder) Close() {
	e.pipeline.Close()
}

func (e *Encoder) tileName() string {
	return fmt.Sprintf("%d/%d/%d", e.tile.Z, e.tile.X, e.tile.Y)
}

func (e *Encoder) logger() logrus.FieldLogger {
	fields := logrus.Fields{
		"tile":    e.tileName(),
		"feature": e.index,
	}
	if e.cfg.collectionID != "" {
		fields["collection"] = e.cfg.collectionID
	}
	if e.hasID {
		fields["id"] = e.id
	}

	return e.cfg.logger.WithFields(fields)
}

func (e *Encoder) OnStart(event.Document) error {
	switch e.state {
	case stateClosed:
		return errs.ErrTileClosed
	case stateInitial:
		e.state = stateOpen
		return nil
	default:
		return fmt.Errorf("%w: document already started", errs.ErrProtocol)
	}
}

// OnEnd drains the merge groups and encodes the tile.
func (e *Encoder) OnEnd() error {
	switch e.state {
	case stateFeature:
		return fmt.Errorf("%w: document end inside feature", errs.ErrProtocol)
	case stateClosed:
		return errs.ErrTileClosed
	case stateInitial:
		return fmt.Errorf("%w: document end before start", errs.ErrProtocol)
	}
	e.state = stateClosed

	merged := e.merger.drain()
	e.stats.Groups = len(merged)
	e.features = append(e.features, merged...)

	if len(e.features) == 0 {
		return nil
	}

	layer := &vt.Layer{
		Name:     e.cfg.layerName,
		Version:  2,
		Extent:   e.cfg.extent,
		Features: e.features,
	}
	raw, err := vt.Marshal(vt.Layers{layer})
	if err != nil {
		return fmt.Errorf("encode tile %s: %w", e.tileName(), err)
	}

	data, err := e.codec.Compress(raw)
	if err != nil {
		return fmt.Errorf("compress tile %s: %w", e.tileName(), err)
	}
	e.data = data

	e.logger().WithFields(logrus.Fields{
		"emitted":    e.stats.Emitted,
		"merged":     e.stats.Merged,
		"dropped":    e.stats.Dropped,
		"bytes":      len(data),
		"collisions": e.stats.Collisions,
	}).Debug("tile encoded")

	return nil
}

func (e *Encoder) OnFeatureStart(*event.Schema) error {
	if err := e.expect(stateOpen, "feature start"); err != nil {
		return err
	}

	e.state = stateFeature
	e.status = StatusAccumulating
	e.index++
	e.attrs.reset()
	e.tracker.Reset()
	e.id = ""
	e.hasID = false
	e.geometry = nil
	e.geometryType = format.GeometryNone
	e.inGeometry = false
	e.geometryDone = false
	e.geometryDepth = 0
	e.unsupported = false
	e.skipping = false

	return nil
}

func (e *Encoder) OnFeatureEnd() error {
	if err := e.expect(stateFeature, "feature end"); err != nil {
		return err
	}
	e.state = stateOpen

	if e.skipping {
		return nil
	}

	e.finishFeature()

	return nil
}

func (e *Encoder) OnObjectStart(schema *event.Schema) error {
	if err := e.expect(stateFeature, "object start"); err != nil || e.skipping {
		return err
	}

	if e.inGeometry {
		e.geometryDepth++
		return nil
	}
	if schema == nil || !schema.IsGeometry {
		return nil
	}
	if e.geometryDone {
		return errs.ErrGeometryClosed
	}

	e.inGeometry = true
	e.geometryDepth = 0
	e.geometryType = schema.GeometryType
	e.unsupported = !schema.GeometryType.IsEncodable()
	if e.unsupported {
		return nil
	}

	e.builder.Reset(schema.GeometryType)

	return e.coordinates(e.pipeline.Begin(schema.GeometryType, schema.CoordinateDimension()))
}

func (e *Encoder) OnObjectEnd() error {
	if err := e.expect(stateFeature, "object end"); err != nil || e.skipping {
		return err
	}
	if !e.inGeometry {
		return nil
	}
	if e.geometryDepth > 0 {
		e.geometryDepth--
		return nil
	}

	e.inGeometry = false
	e.geometryDone = true
	if e.unsupported {
		return nil
	}
	if err := e.coordinates(e.pipeline.End()); err != nil || e.skipping {
		return err
	}
	e.geometry = e.builder.Geometry()

	return nil
}

func (e *Encoder) OnArrayStart(*event.Schema) error {
	if err := e.expect(stateFeature, "array start"); err != nil || e.skipping {
		return err
	}
	if e.inGeometry && !e.unsupported {
		e.pipeline.StartArray()
	}

	return nil
}

func (e *Encoder) OnArrayEnd() error {
	if err := e.expect(stateFeature, "array end"); err != nil || e.skipping {
		return err
	}
	if e.inGeometry && !e.unsupported {
		return e.coordinates(e.pipeline.EndArray())
	}

	return nil
}

func (e *Encoder) OnValue(schema *event.Schema, text string) error {
	if err := e.expect(stateFeature, "value"); err != nil || e.skipping {
		return err
	}

	if e.inGeometry {
		if e.unsupported {
			return nil
		}
		return e.coordinates(e.pipeline.Push(text))
	}
	if schema == nil {
		return fmt.Errorf("%w: value %q without schema", errs.ErrProtocol, text)
	}

	if schema.IsID {
		e.id = text
		e.hasID = true

		return nil
	}

	path := schema.Path
	if len(path) == 0 {
		path = event.Path{{Name: schema.Name}}
	}
	if path.IsBlank() {
		return nil
	}

	v, ok := attributeValue(schema.ValueType, text)
	if !ok {
		return nil
	}
	e.tracker.Track(&e.capture, path, schema.Multiplicities)
	e.attrs.set(e.capture.name, v)

	return nil
}

// coordinates turns a malformed coordinate into a dropped feature. Other
// errors abort the tile.
func (e *Encoder) coordinates(err error) error {
	if err == nil {
		return nil
	}
	if !errors.Is(err, errs.ErrMalformedCoordinate) {
		return err
	}

	e.drop(logrus.WarnLevel, err.Error())
	e.skipping = true
	e.inGeometry = false

	return nil
}

func (e *Encoder) drop(level logrus.Level, reason string) {
	e.status = StatusDropped
	e.stats.Dropped++

	log := e.logger().WithField("reason", reason)
	if level == logrus.WarnLevel {
		log.Warn("dropping feature")
	} else {
		log.Debug("dropping feature")
	}
}

func (e *Encoder) finishFeature() {
	if e.geometry == nil {
		reason := "no geometry"
		if e.unsupported {
			reason = fmt.Sprintf("%s: %s", errs.ErrUnsupportedGeometry, e.geometryType)
		}
		e.drop(logrus.DebugLevel, reason)

		return
	}

	g := clip.Geometry(e.bound, e.proj.apply(e.geometry))
	if isEmpty(g) {
		e.drop(logrus.DebugLevel, "outside tile")
		return
	}

	g, err := repair(snap(g))
	if err != nil {
		level := logrus.WarnLevel
		if e.cfg.ignoreInvalid {
			level = logrus.DebugLevel
		}
		e.drop(level, err.Error())

		return
	}

	if reason := e.tooSmall(g); reason != "" {
		e.drop(logrus.DebugLevel, reason)
		return
	}

	if e.rule != nil {
		kind := kindOf(g)
		e.merger.add(e.rule.groupKey(kind, e.attrs), kind, e.attrs.subset(e.rule.GroupBy), g)
		e.status = StatusMerged
		e.stats.Merged++

		return
	}

	f := geojson.NewFeature(g)
	f.Properties = e.attrs.properties()
	if e.hasID {
		id := FeatureID(e.id)
		if other, collided := e.ids.Track(e.id, id); collided {
			e.stats.Collisions++
			e.logger().WithField("other", other).Warn("feature id collision")
		}
		f.ID = id
	}
	e.features = append(e.features, f)
	e.status = StatusEmitted
	e.stats.Emitted++
}

// tooSmall returns the reason for dropping g, or "" when it is large enough.
func (e *Encoder) tooSmall(g orb.Geometry) string {
	switch kindOf(g) {
	case kindPolygon:
		if area := math.Abs(planar.Area(g)); area < e.cfg.minArea {
			return fmt.Sprintf("area %.2f below %.2f", area, e.cfg.minArea)
		}
	case kindLine:
		if length := planar.Length(g); length < e.cfg.minLength {
			return fmt.Sprintf("length %.2f below %.2f", length, e.cfg.minLength)
		}
	}

	return ""
}

// FeatureID returns the tile id of a feature id: the number itself for
// non-negative integers, otherwise the xxHash64 of the text.
func FeatureID(text string) uint64 {
	if n, err := strconv.ParseUint(text, 10, 64); err == nil {
		return n
	}

	return hash.ID(text)
}

func (e *Encoder) expect(state docState, what string) error {
	if e.state == state {
		return nil
	}
	if e.state == stateClosed {
		return errs.ErrTileClosed
	}

	return fmt.Errorf("%w: unexpected %s", errs.ErrProtocol, what)
}
