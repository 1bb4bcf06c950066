package geojson

import "time"

// metadata writes numberReturned, numberMatched and timeStamp at the end of a collection.
type metadata struct{ Base }

func (metadata) Priority() int { return PriorityMetadata }

func (metadata) OnEnd(ctx Context, next func() error) error {
	s := ctx.Session
	if !s.IsCollection() || !s.cfg.metadata {
		return next()
	}

	out := s.Direct()
	returned := s.returned
	if s.doc.NumberReturned >= 0 && s.skipped == 0 {
		returned = s.doc.NumberReturned
	}
	out.WriteFieldName("numberReturned")
	out.WriteInt(returned)
	if s.doc.NumberMatched >= 0 {
		out.WriteFieldName("numberMatched")
		out.WriteInt(s.doc.NumberMatched)
	}
	out.WriteFieldName("timeStamp")
	out.WriteString(s.cfg.clock().UTC().Truncate(time.Second).Format(time.RFC3339))

	return next()
}
