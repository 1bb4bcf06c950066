package event

import "github.com/arloliu/geostream/format"

// Property returns a scalar property schema for the given dotted path.
func Property(path string, valueType format.ValueType) *Schema {
	p := ParsePath(path)

	return &Schema{
		Name:      p.Last().Name,
		Path:      p,
		IsArray:   len(p.Groups()) > 0,
		ValueType: valueType,
	}
}

// ID returns the schema of an id property with the given name.
func ID(name string, valueType format.ValueType) *Schema {
	s := Property(name, valueType)
	s.IsID = true

	return s
}

// Geometry returns the schema of the primary geometry property.
func Geometry(name string, geometryType format.GeometryType, dimension int) *Schema {
	return &Schema{
		Name:         name,
		Path:         Path{{Name: name}},
		IsGeometry:   true,
		GeometryType: geometryType,
		Dimension:    dimension,
	}
}

// WithMultiplicities returns a copy of s carrying the given multiplicity indices.
func (s *Schema) WithMultiplicities(indices ...int) *Schema {
	c := *s
	c.Multiplicities = indices

	return &c
}

// Builder collects an event sequence. It is meant for sources that produce whole
// documents in memory and for tests; it performs no protocol validation.
type Builder struct {
	events []Event
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Start appends a document start with unknown counts.
func (b *Builder) Start() *Builder {
	return b.StartDocument(NewDocument())
}

// StartDocument appends a document start with the given counts.
func (b *Builder) StartDocument(doc Document) *Builder {
	b.events = append(b.events, Event{Kind: KindStart, Document: doc})
	return b
}

func (b *Builder) End() *Builder {
	b.events = append(b.events, Event{Kind: KindEnd})
	return b
}

func (b *Builder) FeatureStart() *Builder {
	b.events = append(b.events, Event{Kind: KindFeatureStart})
	return b
}

func (b *Builder) FeatureEnd() *Builder {
	b.events = append(b.events, Event{Kind: KindFeatureEnd})
	return b
}

func (b *Builder) ObjectStart(s *Schema) *Builder {
	b.events = append(b.events, Event{Kind: KindObjectStart, Schema: s})
	return b
}

func (b *Builder) ObjectEnd() *Builder {
	b.events = append(b.events, Event{Kind: KindObjectEnd})
	return b
}

func (b *Builder) ArrayStart(s *Schema) *Builder {
	b.events = append(b.events, Event{Kind: KindArrayStart, Schema: s})
	return b
}

func (b *Builder) ArrayEnd() *Builder {
	b.events = append(b.events, Event{Kind: KindArrayEnd})
	return b
}

func (b *Builder) Value(s *Schema, text string) *Builder {
	b.events = append(b.events, Event{Kind: KindValue, Schema: s, Text: text})
	return b
}

// Geometry appends a complete geometry: the object start, nesting arrays derived
// from depths and one coordinate chunk per entry of chunks.
//
// depths[i] is the number of array levels closed before and reopened for chunk i
// (for the first chunk: opened). For a MultiPolygon, 2 starts a new polygon and
// 1 starts a new ring in the current polygon. When depths is nil every chunk is
// pushed at the outermost level.
func (b *Builder) Geometry(s *Schema, depths []int, chunks ...string) *Builder {
	b.ObjectStart(s)
	open := 0
	for i, chunk := range chunks {
		d := 0
		if i < len(depths) {
			d = depths[i]
		}
		if i > 0 {
			for j := 0; j < d && open > 0; j++ {
				b.ArrayEnd()
				open--
			}
		}
		for j := 0; j < d; j++ {
			b.ArrayStart(s)
			open++
		}
		b.Value(s, chunk)
	}
	for ; open > 0; open-- {
		b.ArrayEnd()
	}

	return b.ObjectEnd()
}

// Events returns the collected events.
func (b *Builder) Events() []Event {
	return b.events
}
