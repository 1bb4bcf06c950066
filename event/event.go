// Package event defines the push protocol between a feature source and the encoders.
//
// A source produces one strictly ordered sequence of events per document:
//
//	Start
//	  FeatureStart
//	    Value(id) Value(property) ...
//	    ObjectStart(geometry) ArrayStart Value(coordinates) ArrayEnd ... ObjectEnd
//	  FeatureEnd
//	  ...
//	End
//
// Every Start has a matching End, FeatureStart/FeatureEnd pairs never nest and a
// Value never contains further events. Each event may carry a Schema describing
// the property it belongs to; events are consumed once and never mutated.
package event

import (
	"fmt"

	"github.com/arloliu/geostream/format"
)

// Kind discriminates the events of a document.
type Kind uint8

const (
	KindStart Kind = iota + 1
	KindEnd
	KindFeatureStart
	KindFeatureEnd
	KindObjectStart
	KindObjectEnd
	KindArrayStart
	KindArrayEnd
	KindValue
)

func (k Kind) String() string {
	switch k {
	case KindStart:
		return "Start"
	case KindEnd:
		return "End"
	case KindFeatureStart:
		return "FeatureStart"
	case KindFeatureEnd:
		return "FeatureEnd"
	case KindObjectStart:
		return "ObjectStart"
	case KindObjectEnd:
		return "ObjectEnd"
	case KindArrayStart:
		return "ArrayStart"
	case KindArrayEnd:
		return "ArrayEnd"
	case KindValue:
		return "Value"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Unknown marks a document count that the source could not determine.
const Unknown int64 = -1

// Document carries the counts announced at document start.
type Document struct {
	// NumberReturned is the number of features the source expects to push, or Unknown.
	NumberReturned int64
	// NumberMatched is the number of features matching the query, or Unknown.
	NumberMatched int64
}

// NewDocument returns a Document with both counts unknown.
func NewDocument() Document {
	return Document{NumberReturned: Unknown, NumberMatched: Unknown}
}

// Schema describes the property an event belongs to.
//
// A source may reuse one Schema value for consecutive events and update its
// Multiplicities in between. Handlers therefore must not retain a Schema, or
// the slices it references, beyond the call it was passed to.
type Schema struct {
	// Name is the property name, the last segment of Path.
	Name string
	// Path is the full property path, see ParsePath for the notation.
	Path Path
	// IsID marks the feature id property.
	IsID bool
	// IsGeometry marks the primary geometry property.
	IsGeometry bool
	// IsArray marks properties that may repeat.
	IsArray bool
	// Multiplicities holds the 1-based repetition index for every multiplicity
	// group in Path, in path order.
	Multiplicities []int
	// ValueType directs how scalar values are encoded.
	ValueType format.ValueType
	// GeometryType is the declared geometry type of a geometry property.
	GeometryType format.GeometryType
	// Dimension is the coordinate dimension of a geometry property, 2 or 3.
	// Zero is treated as 2.
	Dimension int
}

// CoordinateDimension returns the coordinate dimension, defaulting to 2.
func (s *Schema) CoordinateDimension() int {
	if s == nil || s.Dimension == 0 {
		return 2
	}

	return s.Dimension
}

// Event is a single element of the event protocol.
type Event struct {
	Kind     Kind
	Schema   *Schema
	Text     string
	Document Document
}

func (e Event) String() string {
	name := ""
	if e.Schema != nil {
		name = e.Schema.Path.String()
	}

	switch e.Kind {
	case KindValue:
		return fmt.Sprintf("%s(%s=%q)", e.Kind, name, e.Text)
	case KindObjectStart, KindArrayStart, KindFeatureStart:
		if name != "" {
			return fmt.Sprintf("%s(%s)", e.Kind, name)
		}
	}

	return e.Kind.String()
}

// Handler consumes the events of one document.
//
// Implementations are single-threaded: the source calls the handler synchronously
// and does not push the next event before the previous call returned. Any error
// returned by a handler aborts the document.
type Handler interface {
	OnStart(doc Document) error
	OnEnd() error
	OnFeatureStart(schema *Schema) error
	OnFeatureEnd() error
	OnObjectStart(schema *Schema) error
	OnObjectEnd() error
	OnArrayStart(schema *Schema) error
	OnArrayEnd() error
	OnValue(schema *Schema, text string) error
}

// Dispatch calls the handler method matching the event kind.
func Dispatch(h Handler, e Event) error {
	switch e.Kind {
	case KindStart:
		return h.OnStart(e.Document)
	case KindEnd:
		return h.OnEnd()
	case KindFeatureStart:
		return h.OnFeatureStart(e.Schema)
	case KindFeatureEnd:
		return h.OnFeatureEnd()
	case KindObjectStart:
		return h.OnObjectStart(e.Schema)
	case KindObjectEnd:
		return h.OnObjectEnd()
	case KindArrayStart:
		return h.OnArrayStart(e.Schema)
	case KindArrayEnd:
		return h.OnArrayEnd()
	case KindValue:
		return h.OnValue(e.Schema, e.Text)
	default:
		return fmt.Errorf("unknown event kind %d", e.Kind)
	}
}

// Replay dispatches all events in order and stops at the first error.
func Replay(h Handler, events []Event) error {
	for i, e := range events {
		if err := Dispatch(h, e); err != nil {
			return fmt.Errorf("event %d %s: %w", i, e, err)
		}
	}

	return nil
}

// Tee returns a handler forwarding every event to all handlers in order.
func Tee(handlers ...Handler) Handler {
	return tee(handlers)
}

type tee []Handler

func (t tee) each(fn func(h Handler) error) error {
	for _, h := range t {
		if err := fn(h); err != nil {
			return err
		}
	}

	return nil
}

func (t tee) OnStart(doc Document) error {
	return t.each(func(h Handler) error { return h.OnStart(doc) })
}

func (t tee) OnEnd() error {
	return t.each(func(h Handler) error { return h.OnEnd() })
}

func (t tee) OnFeatureStart(s *Schema) error {
	return t.each(func(h Handler) error { return h.OnFeatureStart(s) })
}

func (t tee) OnFeatureEnd() error {
	return t.each(func(h Handler) error { return h.OnFeatureEnd() })
}

func (t tee) OnObjectStart(s *Schema) error {
	return t.each(func(h Handler) error { return h.OnObjectStart(s) })
}

func (t tee) OnObjectEnd() error {
	return t.each(func(h Handler) error { return h.OnObjectEnd() })
}

func (t tee) OnArrayStart(s *Schema) error {
	return t.each(func(h Handler) error { return h.OnArrayStart(s) })
}

func (t tee) OnArrayEnd() error {
	return t.each(func(h Handler) error { return h.OnArrayEnd() })
}

func (t tee) OnValue(s *Schema, text string) error {
	return t.each(func(h Handler) error { return h.OnValue(s, text) })
}
