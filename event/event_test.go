package event

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/geostream/format"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Path
	}{
		{"empty", "", nil},
		{"single", "kennung", Path{{Name: "kennung"}}},
		{"grouped", "foto[foto].bemerkung", Path{{Name: "foto", Group: "foto"}, {Name: "bemerkung"}}},
		{"group key differs", "a[grp].b[b].c", Path{{Name: "a", Group: "grp"}, {Name: "b", Group: "b"}, {Name: "c"}}},
		{"dot inside brackets", "a[x.y].b", Path{{Name: "a", Group: "x.y"}, {Name: "b"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePath(tt.in)
			require.Equal(t, tt.want, got)
			require.Equal(t, tt.in, got.String())
		})
	}
}

func TestPath_DivergeAt(t *testing.T) {
	a := ParsePath("foto[foto].bemerkung")
	b := ParsePath("foto[foto].hauptfoto")
	c := ParsePath("kennung")

	require.Equal(t, 1, a.DivergeAt(b))
	require.Equal(t, 0, a.DivergeAt(c))
	require.Equal(t, 2, a.DivergeAt(a))
	require.Equal(t, 1, a.DivergeAt(ParsePath("foto[foto]")))
	require.Equal(t, 0, Path(nil).DivergeAt(a))
	require.Equal(t, []string{"foto"}, a.Groups())
}

func TestPath_IsBlank(t *testing.T) {
	require.True(t, Path(nil).IsBlank())
	require.True(t, Path{{Name: ""}}.IsBlank())
	require.True(t, Path{{}, {}}.IsBlank())
	require.False(t, ParsePath("kennung").IsBlank())
	require.False(t, Path{{Group: "foto"}}.IsBlank())
}

type countingHandler struct {
	kinds []Kind
}

func (c *countingHandler) OnStart(Document) error { c.kinds = append(c.kinds, KindStart); return nil }
func (c *countingHandler) OnEnd() error { c.kinds = append(c.kinds, KindEnd); return nil }
func (c *countingHandler) OnFeatureStart(*Schema) error { c.kinds = append(c.kinds, KindFeatureStart); return nil }
func (c *countingHandler) OnFeatureEnd() error { c.kinds = append(c.kinds, KindFeatureEnd); return nil }
func (c *countingHandler) OnObjectStart(*Schema) error { c.kinds = append(c.kinds, KindObjectStart); return nil }
func (c *countingHandler) OnObjectEnd() error { c.kinds = append(c.kinds, KindObjectEnd); return nil }
func (c *countingHandler) OnArrayStart(*Schema) error { c.kinds = append(c.kinds, KindArrayStart); return nil }
func (c *countingHandler) OnArrayEnd() error { c.kinds = append(c.kinds, KindArrayEnd); return nil }
func (c *countingHandler) OnValue(*Schema, string) error { c.kinds = append(c.kinds, KindValue); return nil }

func TestBuilder_Geometry(t *testing.T) {
	geom := Geometry("geom", format.GeometryMultiPolygon, 2)
	events := NewBuilder().Geometry(geom, []int{2, 1, 2}, "a", "b", "c").Events()

	h := &countingHandler{}
	require.NoError(t, Replay(h, events))

	want := []Kind{
		KindObjectStart,
		KindArrayStart, KindArrayStart, KindValue,
		KindArrayEnd, KindArrayStart, KindValue,
		KindArrayEnd, KindArrayEnd, KindArrayStart, KindArrayStart, KindValue,
		KindArrayEnd, KindArrayEnd,
		KindObjectEnd,
	}
	require.Equal(t, want, h.kinds)
}

func TestTee(t *testing.T) {
	a, b := &countingHandler{}, &countingHandler{}
	events := NewBuilder().Start().FeatureStart().FeatureEnd().End().Events()

	require.NoError(t, Replay(Tee(a, b), events))
	require.Equal(t, a.kinds, b.kinds)
	require.Len(t, a.kinds, 4)
}

func TestSchema_WithMultiplicities(t *testing.T) {
	s := Property("foto[foto].bemerkung", format.ValueString)
	require.True(t, s.IsArray)
	require.Equal(t, "bemerkung", s.Name)

	c := s.WithMultiplicities(2)
	require.Equal(t, []int{2}, c.Multiplicities)
	require.Nil(t, s.Multiplicities)
	require.Equal(t, 2, c.CoordinateDimension())
}
