package geojson

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/arloliu/geostream/errs"
	"github.com/arloliu/geostream/event"
	"github.com/arloliu/geostream/format"
	"github.com/arloliu/geostream/sink"
)

// properties writes the "properties" object. Nesting below it follows the
// property paths through the session's nesting tracker.
//
// A member of the properties object must arrive in one run: a root member
// that comes back after another one, or the same leaf twice in a row, would
// write a duplicate JSON member and fails with errs.ErrProtocol.
type properties struct {
	Base
	opened bool
	root   string
	roots  map[string]struct{}
}

func (*properties) Priority() int { return PriorityProperties }

func (p *properties) OnFeatureStart(_ Context, next func() error) error {
	p.opened = false
	p.root = ""
	clear(p.roots)

	return next()
}

func (p *properties) OnValue(ctx Context, next func() error) error {
	if ctx.InGeometry {
		return next()
	}
	if ctx.Schema == nil {
		return fmt.Errorf("%w: value %q without schema", errs.ErrProtocol, ctx.Text)
	}

	path := ctx.Schema.Path
	if len(path) == 0 {
		path = event.Path{{Name: ctx.Schema.Name}}
	}
	if path.IsBlank() {
		return next()
	}

	s := ctx.Session
	if err := p.checkMember(s, path, ctx.Schema.Multiplicities); err != nil {
		return err
	}

	out := s.Sink()
	if !p.opened {
		out.WriteFieldName("properties")
		out.WriteStartObject()
		p.opened = true
	}
	s.tracker.Track(out, path, ctx.Schema.Multiplicities)
	writeValue(out, ctx.Schema.ValueType, ctx.Text)

	return next()
}

func (p *properties) checkMember(s *Session, path event.Path, multiplicities []int) error {
	if s.tracker.Repeats(path, multiplicities) {
		return fmt.Errorf("%w: property %s written twice", errs.ErrProtocol, path)
	}

	name := path[0].Name
	if name == p.root {
		return nil
	}
	if p.roots == nil {
		p.roots = make(map[string]struct{})
	}
	if _, seen := p.roots[name]; seen {
		return fmt.Errorf("%w: property %s continued after other properties", errs.ErrProtocol, name)
	}
	p.roots[name] = struct{}{}
	p.root = name

	return nil
}

func (p *properties) OnPropertiesEnd(ctx Context, next func() error) error {
	s := ctx.Session
	out := s.Sink()
	if p.opened {
		s.tracker.Close(out)
		out.WriteEndObject()
		p.opened = false
	} else {
		out.WriteFieldName("properties")
		out.WriteStartObject()
		out.WriteEndObject()
	}

	return next()
}

// writeValue encodes a scalar according to its declared type. Text that does
// not parse as the declared type is written as a string; empty text of a
// non-string type is written as null.
func writeValue(out sink.Sink, valueType format.ValueType, text string) {
	switch valueType {
	case format.ValueBoolean:
		if text == "" {
			out.WriteNull()
			return
		}
		out.WriteBool(text == "t" || text == "1" || strings.EqualFold(text, "true"))
	case format.ValueInteger, format.ValueFloat:
		if text == "" {
			out.WriteNull()
			return
		}
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			out.WriteInt(n)
			return
		}
		if f, err := strconv.ParseFloat(text, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			out.WriteFloat(f)
			return
		}
		out.WriteString(text)
	default:
		out.WriteString(text)
	}
}
