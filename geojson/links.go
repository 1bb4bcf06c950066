package geojson

import "github.com/arloliu/geostream/sink"

// links writes the "links" arrays of the collection and of each feature.
type links struct{ Base }

func (links) Priority() int { return PriorityLinks }

func (links) OnEnd(ctx Context, next func() error) error {
	s := ctx.Session
	if !s.IsCollection() {
		return next()
	}

	last := s.isLastPage()
	writeLinks(s.Direct(), s.cfg.links, func(l Link) bool {
		return !(last && l.Rel == "next")
	})

	return next()
}

func (links) OnFeatureEnd(ctx Context, next func() error) error {
	s := ctx.Session
	all := s.links
	if !s.IsCollection() {
		all = append(all, s.cfg.featureLinks...)
	}

	embedded := s.IsCollection()
	writeLinks(s.Direct(), all, func(l Link) bool {
		return !embedded || l.Rel == "self" || l.Rel == "canonical"
	})

	return next()
}

// isLastPage reports whether the page window reaches the end of the result.
func (s *Session) isLastPage() bool {
	if s.cfg.limit <= 0 {
		return false
	}
	if s.returned < s.cfg.limit {
		return true
	}

	return s.doc.NumberMatched >= 0 && s.cfg.offset+s.returned >= s.doc.NumberMatched
}

func writeLinks(out sink.Sink, all []Link, keep func(Link) bool) {
	opened := false
	for _, l := range all {
		if !keep(l) {
			continue
		}
		if !opened {
			out.WriteFieldName("links")
			out.WriteStartArray()
			opened = true
		}
		out.WriteStartObject()
		out.WriteFieldName("href")
		out.WriteString(l.Href)
		out.WriteFieldName("rel")
		out.WriteString(l.Rel)
		if l.Type != "" {
			out.WriteFieldName("type")
			out.WriteString(l.Type)
		}
		if l.Title != "" {
			out.WriteFieldName("title")
			out.WriteString(l.Title)
		}
		out.WriteEndObject()
	}
	if opened {
		out.WriteEndArray()
	}
}
