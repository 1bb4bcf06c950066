package geojson

import (
	"fmt"

	"github.com/arloliu/geostream/coords"
	"github.com/arloliu/geostream/errs"
	"github.com/arloliu/geostream/format"
)

// geometry writes the "geometry" member and owns the buffering decisions.
//
// Until the geometry starts, every property value is buffered. The geometry is
// written to the real sink and the buffered properties are replayed after it,
// so "geometry" always precedes "properties" regardless of the event order.
// A feature without geometry gets "geometry":null at its end.
type geometry struct {
	Base
	written  bool
	ignoring bool
	point    bool
	term     pointTerminal
}

func (*geometry) Priority() int { return PriorityGeometry }

func (g *geometry) OnFeatureStart(_ Context, next func() error) error {
	g.written = false
	g.ignoring = false

	return next()
}

func (g *geometry) OnValue(ctx Context, next func() error) error {
	s := ctx.Session
	if !ctx.InGeometry {
		if !g.written {
			if err := s.buffered.StartBuffering(); err != nil {
				return err
			}
		}

		return next()
	}

	if g.ignoring {
		return nil
	}

	return s.pipeline.Push(ctx.Text)
}

func (g *geometry) OnObjectStart(ctx Context, next func() error) error {
	if !ctx.InGeometry {
		return next()
	}
	if g.written {
		return errs.ErrGeometryClosed
	}

	s := ctx.Session
	gt := ctx.Schema.GeometryType
	if !gt.IsEncodable() {
		s.Logger().WithField("geometryType", gt.String()).Debug("geometry type cannot be written, using null geometry")
		g.ignoring = true

		return nil
	}

	out := s.Direct()
	open := func() {
		s.buffered.StopBuffering()
		out.WriteFieldName("geometry")
		out.WriteStartObject()
		out.WriteFieldName("type")
		out.WriteString(gt.String())
		out.WriteFieldName("coordinates")
	}

	g.point = gt == format.GeometryPoint
	g.term = pointTerminal{}
	if g.point {
		g.term = pointTerminal{JSONTerminal: coords.JSONTerminal{Sink: out}, open: open}
		s.pipeline.SetTerminal(&g.term)
	} else {
		open()
		out.WriteStartArray()
		s.pipeline.SetTerminal(&coords.JSONTerminal{Sink: out})
	}

	return s.pipeline.Begin(gt, ctx.Schema.CoordinateDimension())
}

func (g *geometry) OnArrayStart(ctx Context, next func() error) error {
	if !ctx.InGeometry {
		return next()
	}
	if !g.ignoring {
		ctx.Session.pipeline.StartArray()
	}

	return nil
}

func (g *geometry) OnArrayEnd(ctx Context, next func() error) error {
	if !ctx.InGeometry {
		return next()
	}
	if g.ignoring {
		return nil
	}

	return ctx.Session.pipeline.EndArray()
}

func (g *geometry) OnObjectEnd(ctx Context, next func() error) error {
	if !ctx.InGeometry {
		return next()
	}
	if g.ignoring {
		g.ignoring = false
		return nil
	}

	s := ctx.Session
	if err := s.pipeline.End(); err != nil {
		return err
	}
	if g.point && !g.term.opened {
		// no position: the feature gets "geometry":null at its end
		s.Logger().Debug("point without position, using null geometry")
		return nil
	}

	out := s.Direct()
	if !g.point {
		out.WriteEndArray()
	}
	out.WriteEndObject()
	g.written = true

	if s.buffered.HasBuffer() {
		return s.buffered.FlushBuffer()
	}

	return nil
}

func (g *geometry) OnPropertiesEnd(ctx Context, next func() error) error {
	s := ctx.Session
	if !g.written {
		s.buffered.StopBuffering()
		if !s.AtFeatureLevel() {
			return fmt.Errorf("%w: feature object is not the current container", errs.ErrProtocol)
		}
		out := s.Direct()
		out.WriteFieldName("geometry")
		out.WriteNull()
		g.written = true
	}
	if s.buffered.HasBuffer() {
		if err := s.buffered.FlushBuffer(); err != nil {
			return err
		}
	}

	return next()
}

// pointTerminal writes the geometry envelope together with the first
// position, so that a point without a position leaves no output.
type pointTerminal struct {
	coords.JSONTerminal
	open   func()
	opened bool
}

func (t *pointTerminal) ensureOpen() {
	if !t.opened {
		t.open()
		t.opened = true
	}
}

func (t *pointTerminal) StartArray() {
	t.ensureOpen()
	t.JSONTerminal.StartArray()
}

func (t *pointTerminal) Position(tuple []float64) {
	t.ensureOpen()
	t.JSONTerminal.Position(tuple)
}
