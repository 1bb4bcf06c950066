package geojson

import "github.com/arloliu/geostream/coords"

// crsWriter writes a "crs" member when coordinates are not in CRS84. It runs
// at document start for collections and at feature start for single features.
type crsWriter struct{ Base }

func (crsWriter) Priority() int { return PriorityCRS }

func (crsWriter) OnStart(ctx Context, next func() error) error {
	if ctx.Session.IsCollection() {
		writeCRS(ctx.Session)
	}

	return next()
}

func (crsWriter) OnFeatureStart(ctx Context, next func() error) error {
	if !ctx.Session.IsCollection() {
		writeCRS(ctx.Session)
	}

	return next()
}

func writeCRS(s *Session) {
	if s.cfg.targetCRS == coords.CRS84 {
		return
	}

	out := s.Direct()
	out.WriteFieldName("crs")
	out.WriteStartObject()
	out.WriteFieldName("type")
	out.WriteString("name")
	out.WriteFieldName("properties")
	out.WriteStartObject()
	out.WriteFieldName("name")
	out.WriteString(s.cfg.targetCRS.URN())
	out.WriteEndObject()
	out.WriteEndObject()
}
