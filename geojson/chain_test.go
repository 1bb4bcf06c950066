package geojson

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/geostream/event"
)

type tracing struct {
	Base
	name     string
	priority int
	trace    *[]string
	consume  bool
}

func (w *tracing) Priority() int { return w.priority }

func (w *tracing) OnValue(_ Context, next func() error) error {
	*w.trace = append(*w.trace, w.name+">")
	if w.consume {
		return nil
	}
	err := next()
	*w.trace = append(*w.trace, "<"+w.name)

	return err
}

func TestChain_Order(t *testing.T) {
	var trace []string
	c := NewChain(
		&tracing{name: "c", priority: 30, trace: &trace},
		&tracing{name: "a", priority: 0, trace: &trace},
		&tracing{name: "b1", priority: 10, trace: &trace},
		&tracing{name: "b2", priority: 10, trace: &trace},
	)

	require.NoError(t, c.run(Context{Kind: event.KindValue}, callValue))
	require.Equal(t, []string{"a>", "b1>", "b2>", "c>", "<c", "<b2", "<b1", "<a"}, trace)
}

func TestChain_Consume(t *testing.T) {
	var trace []string
	c := NewChain(
		&tracing{name: "a", priority: 0, trace: &trace},
		&tracing{name: "b", priority: 1, trace: &trace, consume: true},
		&tracing{name: "c", priority: 2, trace: &trace},
	)

	require.NoError(t, c.run(Context{}, callValue))
	require.Equal(t, []string{"a>", "b>", "<a"}, trace)
}

type failing struct{ Base }

func (failing) Priority() int { return 5 }

func (failing) OnStart(Context, func() error) error { return errors.New("boom") }

func TestChain_Error(t *testing.T) {
	var trace []string
	c := NewChain(&tracing{name: "a", trace: &trace}, failing{})

	require.EqualError(t, c.run(Context{}, callStart), "boom")
	require.NoError(t, c.run(Context{}, callValue))
}

type extraMember struct{ Base }

func (extraMember) Priority() int { return 45 }

func (extraMember) OnFeatureEnd(ctx Context, next func() error) error {
	out := ctx.Session.Direct()
	out.WriteFieldName("index")
	out.WriteInt(ctx.Session.FeatureIndex())

	return next()
}

func TestEncoder_WithWriters(t *testing.T) {
	events := event.NewBuilder().Start().FeatureStart().FeatureEnd().End().Events()

	got := mustEncode(t, events, WithSingleFeature(), WithWriters(extraMember{}))
	require.Equal(t, `{"type":"Feature","geometry":null,"properties":{},"index":0}`, got)
}
