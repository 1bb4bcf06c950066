// Package geojson encodes feature events into GeoJSON.
//
// The Encoder is an event.Handler. Each event runs through a chain of writer
// stages ordered by priority:
//
//	skeleton (0)    FeatureCollection / Feature envelope
//	id (10)         "id" member, self and canonical links
//	metadata (20)   numberReturned, numberMatched, timeStamp
//	links (25)      collection and feature "links"
//	geometry (30)   "geometry" member, property buffering
//	properties (40) "properties" object with nested or flattened members
//	crs (50)        "crs" member for non-CRS84 output
//
// Features are written to the output as soon as they are complete. Inside a
// collection, a feature with malformed coordinates is dropped and logged and
// the document continues; a single feature document fails instead.
package geojson

import (
	"errors"
	"fmt"
	"io"

	"github.com/arloliu/geostream/errs"
	"github.com/arloliu/geostream/event"
	"github.com/arloliu/geostream/internal/options"
	"github.com/arloliu/geostream/sink"
)

// MediaType is the GeoJSON media type.
const MediaType = "application/geo+json"

type docState uint8

const (
	stateInitial docState = iota
	stateOpen
	stateFeature
	stateClosed
)

// Encoder writes one GeoJSON document from an event sequence.
//
// Encoder is NOT thread-safe and NOT reusable: create one per document.
type Encoder struct {
	cfg     *config
	session *Session
	chain   Chain
	direct  sink.Sink
	saver   sink.Savepointer

	state         docState
	inGeometry    bool
	geometryDepth int
	skipping      bool
}

var _ event.Handler = (*Encoder)(nil)

// NewEncoder creates an encoder writing compact JSON to w.
//
// Parameters:
//   - w: destination of the document; written at every feature end and at document end
//   - opts: encoder options
//
// Returns:
//   - *Encoder: the encoder, ready for OnStart
//   - error: errs.ErrInvalidOption wrapped with details for invalid options
func NewEncoder(w io.Writer, opts ...Option) (*Encoder, error) {
	return NewSinkEncoder(sink.NewJSON(w), opts...)
}

// NewSinkEncoder creates an encoder writing to an arbitrary sink. Feature
// rollback is only available when the sink implements sink.Savepointer.
func NewSinkEncoder(out sink.Sink, opts ...Option) (*Encoder, error) {
	cfg := defaultConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	session, err := newSession(cfg, out)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrInvalidOption, err)
	}

	writers := []Writer{
		skeleton{},
		&idWriter{},
		metadata{},
		links{},
		&geometry{},
		&properties{},
		crsWriter{},
	}
	writers = append(writers, cfg.extraWriters...)

	e := &Encoder{
		cfg:     cfg,
		session: session,
		chain:   NewChain(writers...),
		direct:  out,
	}
	if sp, ok := out.(sink.Savepointer); ok && cfg.collection {
		e.saver = sp
	}

	return e, nil
}

// Returned returns the number of features written so far.
func (e *Encoder) Returned() int64 { return e.session.returned }

// Skipped returns the number of features dropped because of malformed coordinates.
func (e *Encoder) Skipped() int64 { return e.session.skipped }

// Close releases pooled memory. It does not write anything.
func (e *Encoder) Close() {
	e.session.close()
}

func (e *Encoder) ctx(kind event.Kind, schema *event.Schema, text string) Context {
	return Context{
		Kind:       kind,
		Schema:     schema,
		Text:       text,
		InGeometry: e.inGeometry,
		Session:    e.session,
	}
}

// dispatch runs the chain and checks the sink afterwards. Errors inside a
// feature go through recoverFeature.
func (e *Encoder) dispatch(ctx Context, m method) error {
	err := e.chain.run(ctx, m)
	if err == nil {
		err = e.direct.Err()
	}
	if err != nil && e.state == stateFeature {
		return e.recoverFeature(err)
	}

	return err
}

// recoverFeature rolls back the current feature for malformed coordinates in
// a collection. Every other error aborts the document.
func (e *Encoder) recoverFeature(err error) error {
	if e.saver == nil || !errors.Is(err, errs.ErrMalformedCoordinate) {
		return err
	}
	if rbErr := e.saver.Rollback(); rbErr != nil {
		return errors.Join(err, rbErr)
	}

	e.session.Logger().WithField("reason", err.Error()).Warn("skipping feature with malformed coordinates")
	e.session.buffered.Discard()
	e.session.skipped++
	e.skipping = true
	e.inGeometry = false

	return nil
}

func (e *Encoder) OnStart(doc event.Document) error {
	if e.state != stateInitial {
		return fmt.Errorf("%w: document already started", errs.ErrProtocol)
	}
	e.state = stateOpen
	e.session.doc = doc

	if err := e.dispatch(e.ctx(event.KindStart, nil, ""), callStart); err != nil {
		return err
	}

	return e.direct.Flush()
}

func (e *Encoder) OnEnd() error {
	switch e.state {
	case stateFeature:
		return fmt.Errorf("%w: document end inside feature", errs.ErrProtocol)
	case stateClosed:
		return errs.ErrDocumentClosed
	case stateInitial:
		return fmt.Errorf("%w: document end before start", errs.ErrProtocol)
	}
	e.state = stateClosed

	if err := e.dispatch(e.ctx(event.KindEnd, nil, ""), callEnd); err != nil {
		return err
	}

	return e.direct.Flush()
}

func (e *Encoder) OnFeatureStart(schema *event.Schema) error {
	if err := e.expect(stateOpen, "feature start"); err != nil {
		return err
	}
	if !e.cfg.collection && e.session.index >= 0 {
		return fmt.Errorf("%w: second feature in single feature document", errs.ErrProtocol)
	}

	s := e.session
	e.state = stateFeature
	s.index++
	s.resetFeature()
	e.inGeometry = false
	e.geometryDepth = 0

	if e.saver != nil {
		e.saver.Mark()
	}

	return e.dispatch(e.ctx(event.KindFeatureStart, schema, ""), callFeatureStart)
}

func (e *Encoder) OnFeatureEnd() error {
	if err := e.expect(stateFeature, "feature end"); err != nil {
		return err
	}

	if e.skipping {
		e.skipping = false
		e.state = stateOpen

		return nil
	}

	if err := e.dispatch(e.ctx(event.KindFeatureEnd, nil, ""), callPropertiesEnd); err != nil {
		return err
	}
	if err := e.dispatch(e.ctx(event.KindFeatureEnd, nil, ""), callFeatureEnd); err != nil {
		return err
	}

	e.state = stateOpen
	e.session.returned++
	if e.saver != nil {
		if err := e.saver.Release(); err != nil {
			return err
		}
	}

	return e.direct.Flush()
}

func (e *Encoder) OnObjectStart(schema *event.Schema) error {
	if err := e.expect(stateFeature, "object start"); err != nil || e.skipping {
		return err
	}

	if e.inGeometry {
		e.geometryDepth++
		return nil
	}
	if schema != nil && schema.IsGeometry {
		e.inGeometry = true
		e.geometryDepth = 0
	}

	return e.dispatch(e.ctx(event.KindObjectStart, schema, ""), callObjectStart)
}

func (e *Encoder) OnObjectEnd() error {
	if err := e.expect(stateFeature, "object end"); err != nil || e.skipping {
		return err
	}

	if e.inGeometry && e.geometryDepth > 0 {
		e.geometryDepth--
		return nil
	}

	err := e.dispatch(e.ctx(event.KindObjectEnd, nil, ""), callObjectEnd)
	e.inGeometry = false

	return err
}

func (e *Encoder) OnArrayStart(schema *event.Schema) error {
	if err := e.expect(stateFeature, "array start"); err != nil || e.skipping {
		return err
	}

	return e.dispatch(e.ctx(event.KindArrayStart, schema, ""), callArrayStart)
}

func (e *Encoder) OnArrayEnd() error {
	if err := e.expect(stateFeature, "array end"); err != nil || e.skipping {
		return err
	}

	return e.dispatch(e.ctx(event.KindArrayEnd, nil, ""), callArrayEnd)
}

func (e *Encoder) OnValue(schema *event.Schema, text string) error {
	if err := e.expect(stateFeature, "value"); err != nil || e.skipping {
		return err
	}

	return e.dispatch(e.ctx(event.KindValue, schema, text), callValue)
}

func (e *Encoder) expect(state docState, what string) error {
	if e.state == state {
		return nil
	}
	if e.state == stateClosed {
		return errs.ErrDocumentClosed
	}

	return fmt.Errorf("%w: unexpected %s", errs.ErrProtocol, what)
}
