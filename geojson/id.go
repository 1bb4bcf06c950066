package geojson

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/arloliu/geostream/format"
	"github.com/arloliu/geostream/sink"
)

// idWriter writes the "id" member and synthesizes the self and canonical links.
//
// The id goes straight to the real sink while the sink is positioned at the
// feature's top level, which holds while properties are still buffered. Once
// properties were written directly, the id is deferred to the feature end.
type idWriter struct {
	Base
	deferred  bool
	valueType format.ValueType
}

func (*idWriter) Priority() int { return PriorityID }

func (w *idWriter) OnFeatureStart(_ Context, next func() error) error {
	w.deferred = false
	return next()
}

func (w *idWriter) OnValue(ctx Context, next func() error) error {
	if ctx.InGeometry || ctx.Schema == nil || !ctx.Schema.IsID {
		return next()
	}

	s := ctx.Session
	s.featureID = ctx.Text
	w.valueType = ctx.Schema.ValueType
	w.addLinks(s)

	if s.AtFeatureLevel() {
		writeID(s.Direct(), ctx.Text, w.valueType)
	} else {
		w.deferred = true
	}

	if s.cfg.idInProperties {
		return next()
	}

	return nil
}

func (w *idWriter) OnFeatureEnd(ctx Context, next func() error) error {
	if w.deferred {
		writeID(ctx.Session.Direct(), ctx.Session.featureID, w.valueType)
		w.deferred = false
	}

	return next()
}

func (w *idWriter) addLinks(s *Session) {
	if s.cfg.selfTemplate != "" {
		s.AddFeatureLink(Link{Href: expand(s.cfg.selfTemplate, s.featureID), Rel: "self", Type: MediaType})
	}
	if s.cfg.canonTemplate != "" {
		s.AddFeatureLink(Link{Href: expand(s.cfg.canonTemplate, s.featureID), Rel: "canonical", Type: MediaType})
	}
}

func expand(template, id string) string {
	return strings.ReplaceAll(template, "{id}", url.PathEscape(id))
}

func writeID(out sink.Sink, id string, valueType format.ValueType) {
	out.WriteFieldName("id")
	if valueType == format.ValueInteger {
		if n, err := strconv.ParseInt(id, 10, 64); err == nil {
			out.WriteInt(n)
			return
		}
	}
	out.WriteString(id)
}
