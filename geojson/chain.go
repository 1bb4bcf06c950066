package geojson

import (
	"sort"

	"github.com/arloliu/geostream/event"
)

// Stage priorities. Lower values run first and wrap the output of later stages.
const (
	PrioritySkeleton   = 0
	PriorityID         = 10
	PriorityMetadata   = 20
	PriorityLinks      = 25
	PriorityGeometry   = 30
	PriorityProperties = 40
	PriorityCRS        = 50
)

// Context is the per-event value passed down the chain. Stages must not keep it.
type Context struct {
	Kind   event.Kind
	Schema *event.Schema
	Text   string
	// InGeometry is set for the events of the primary geometry, including its
	// ObjectStart and ObjectEnd.
	InGeometry bool
	Session    *Session
}

// Writer is one stage of the GeoJSON writer chain.
//
// Every method receives the continuation next, which runs the remaining stages.
// A stage may write before and after calling next, or not call it at all to
// consume the event.
type Writer interface {
	Priority() int
	OnStart(ctx Context, next func() error) error
	OnEnd(ctx Context, next func() error) error
	OnFeatureStart(ctx Context, next func() error) error
	// OnPropertiesEnd runs at the end of a feature, before OnFeatureEnd.
	OnPropertiesEnd(ctx Context, next func() error) error
	OnFeatureEnd(ctx Context, next func() error) error
	OnObjectStart(ctx Context, next func() error) error
	OnObjectEnd(ctx Context, next func() error) error
	OnArrayStart(ctx Context, next func() error) error
	OnArrayEnd(ctx Context, next func() error) error
	OnValue(ctx Context, next func() error) error
}

// Base implements every Writer method by passing the event on. Stages embed it
// and override what they handle.
type Base struct{}

func (Base) OnStart(_ Context, next func() error) error         { return next() }
func (Base) OnEnd(_ Context, next func() error) error           { return next() }
func (Base) OnFeatureStart(_ Context, next func() error) error  { return next() }
func (Base) OnPropertiesEnd(_ Context, next func() error) error { return next() }
func (Base) OnFeatureEnd(_ Context, next func() error) error    { return next() }
func (Base) OnObjectStart(_ Context, next func() error) error   { return next() }
func (Base) OnObjectEnd(_ Context, next func() error) error     { return next() }
func (Base) OnArrayStart(_ Context, next func() error) error    { return next() }
func (Base) OnArrayEnd(_ Context, next func() error) error      { return next() }
func (Base) OnValue(_ Context, next func() error) error         { return next() }

type method func(w Writer, ctx Context, next func() error) error

var (
	callStart         method = Writer.OnStart
	callEnd           method = Writer.OnEnd
	callFeatureStart  method = Writer.OnFeatureStart
	callPropertiesEnd method = Writer.OnPropertiesEnd
	callFeatureEnd    method = Writer.OnFeatureEnd
	callObjectStart   method = Writer.OnObjectStart
	callObjectEnd     method = Writer.OnObjectEnd
	callArrayStart    method = Writer.OnArrayStart
	callArrayEnd      method = Writer.OnArrayEnd
	callValue         method = Writer.OnValue
)

// Chain is an ordered list of writers.
type Chain []Writer

// NewChain sorts the writers by priority. Writers with equal priority keep
// their relative order.
func NewChain(writers ...Writer) Chain {
	c := make(Chain, len(writers))
	copy(c, writers)
	sort.SliceStable(c, func(i, j int) bool {
		return c[i].Priority() < c[j].Priority()
	})

	return c
}

func (c Chain) run(ctx Context, m method) error {
	var step func(i int) error
	step = func(i int) error {
		if i == len(c) {
			return nil
		}

		return m(c[i], ctx, func() error { return step(i + 1) })
	}

	return step(0)
}
