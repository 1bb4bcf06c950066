package geojson

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/geostream/coords"
	"github.com/arloliu/geostream/errs"
	"github.com/arloliu/geostream/event"
	"github.com/arloliu/geostream/format"
	"github.com/arloliu/geostream/sink"
)

var fixedClock = func() time.Time {
	return time.Date(2026, 10, 15, 8, 30, 0, 0, time.UTC)
}

func encode(t *testing.T, events []event.Event, opts ...Option) (string, error) {
	t.Helper()

	var out bytes.Buffer
	enc, err := NewEncoder(&out, append([]Option{WithClock(fixedClock)}, opts...)...)
	require.NoError(t, err)
	defer enc.Close()

	err = event.Replay(enc, events)

	return out.String(), err
}

func mustEncode(t *testing.T, events []event.Event, opts ...Option) string {
	t.Helper()

	out, err := encode(t, events, opts...)
	require.NoError(t, err)

	return out
}

var (
	pointGeom = event.Geometry("geom", format.GeometryPoint, 2)
	nameProp  = event.Property("name", format.ValueString)
	countProp = event.Property("count", format.ValueInteger)
)

// =============================================================================
// Envelope and metadata
// =============================================================================

func TestEncoder_EmptyCollection(t *testing.T) {
	events := event.NewBuilder().Start().End().Events()

	got := mustEncode(t, events, WithMetadata(false))
	require.Equal(t, `{"type":"FeatureCollection","features":[]}`, got)

	got = mustEncode(t, events)
	require.Equal(t, `{"type":"FeatureCollection","features":[],"numberReturned":0,"timeStamp":"2026-10-15T08:30:00Z"}`, got)
}

func TestEncoder_Metadata(t *testing.T) {
	b := event.NewBuilder().StartDocument(event.Document{NumberReturned: 2, NumberMatched: 10})
	for i := 0; i < 2; i++ {
		b.FeatureStart().Value(nameProp, "x").FeatureEnd()
	}
	got := mustEncode(t, b.End().Events())

	require.True(t, strings.HasSuffix(got, `],"numberReturned":2,"numberMatched":10,"timeStamp":"2026-10-15T08:30:00Z"}`), got)
}

func TestEncoder_SingleFeatureNoGeometry(t *testing.T) {
	events := event.NewBuilder().Start().
		FeatureStart().Value(nameProp, "x").FeatureEnd().
		End().Events()

	got := mustEncode(t, events, WithSingleFeature())
	require.Equal(t, `{"type":"Feature","geometry":null,"properties":{"name":"x"}}`, got)
}

func TestEncoder_NoProperties(t *testing.T) {
	events := event.NewBuilder().Start().
		FeatureStart().Geometry(pointGeom, nil, "7 50").FeatureEnd().
		End().Events()

	got := mustEncode(t, events, WithSingleFeature())
	require.Equal(t, `{"type":"Feature","geometry":{"type":"Point","coordinates":[7,50]},"properties":{}}`, got)

	events = event.NewBuilder().Start().FeatureStart().FeatureEnd().End().Events()
	got = mustEncode(t, events, WithSingleFeature())
	require.Equal(t, `{"type":"Feature","geometry":null,"properties":{}}`, got)
}

// =============================================================================
// Geometry and buffering
// =============================================================================

func TestEncoder_GeometryOrderIsTransparent(t *testing.T) {
	want := `{"type":"Feature","geometry":{"type":"Point","coordinates":[7,50]},"properties":{"name":"x","count":3}}`

	orders := map[string][]event.Event{
		"properties first": event.NewBuilder().Start().FeatureStart().
			Value(nameProp, "x").Value(countProp, "3").
			Geometry(pointGeom, nil, "7 50").
			FeatureEnd().End().Events(),
		"geometry first": event.NewBuilder().Start().FeatureStart().
			Geometry(pointGeom, nil, "7 50").
			Value(nameProp, "x").Value(countProp, "3").
			FeatureEnd().End().Events(),
		"geometry between": event.NewBuilder().Start().FeatureStart().
			Value(nameProp, "x").
			Geometry(pointGeom, nil, "7 50").
			Value(countProp, "3").
			FeatureEnd().End().Events(),
	}

	for name, events := range orders {
		t.Run(name, func(t *testing.T) {
			got := mustEncode(t, events, WithSingleFeature())
			require.Equal(t, want, got)
			require.Equal(t, 1, strings.Count(got, `"properties"`))
			require.Less(t, strings.Index(got, `"geometry"`), strings.Index(got, `"properties"`))
		})
	}
}

func TestEncoder_GeometryInsideNestedProperties(t *testing.T) {
	bem := event.Property("foto[foto].bemerkung", format.ValueString)
	events := event.NewBuilder().Start().FeatureStart().
		Value(bem.WithMultiplicities(1), "A").
		Geometry(pointGeom, nil, "1 2").
		Value(bem.WithMultiplicities(2), "B").
		FeatureEnd().End().Events()

	got := mustEncode(t, events, WithSingleFeature())
	require.Equal(t, `{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},"properties":{"foto":[{"bemerkung":"A"},{"bemerkung":"B"}]}}`, got)
}

func TestEncoder_MultiPolygon(t *testing.T) {
	geom := event.Geometry("geom", format.GeometryMultiPolygon, 2)
	chunk := "10 50, 11 51"
	events := event.NewBuilder().Start().FeatureStart().
		Geometry(geom, []int{2, 1, 2, 2, 1, 1}, chunk, chunk, chunk, chunk, chunk, chunk).
		FeatureEnd().End().Events()

	got := mustEncode(t, events, WithSingleFeature())

	ring := `[[10,50],[11,51]]`
	coordinates := `[[` + ring + `,` + ring + `],[` + ring + `],[` + ring + `,` + ring + `,` + ring + `]]`
	require.Equal(t, `{"type":"Feature","geometry":{"type":"MultiPolygon","coordinates":`+coordinates+`},"properties":{}}`, got)
}

func TestEncoder_GeometryTypes(t *testing.T) {
	tests := []struct {
		gt     format.GeometryType
		depths []int
		chunks []string
		want   string
	}{
		{format.GeometryMultiPoint, nil, []string{"1 2, 3 4"}, `{"type":"MultiPoint","coordinates":[[1,2],[3,4]]}`},
		{format.GeometryLineString, nil, []string{"1 2", "3 4"}, `{"type":"LineString","coordinates":[[1,2],[3,4]]}`},
		{format.GeometryMultiLineString, []int{1, 1}, []string{"1 2, 3 4", "5 6, 7 8"}, `{"type":"MultiLineString","coordinates":[[[1,2],[3,4]],[[5,6],[7,8]]]}`},
		{format.GeometryPolygon, []int{1}, []string{"0 0, 1 0, 1 1, 0 0"}, `{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}`},
	}

	for _, tt := range tests {
		t.Run(tt.gt.String(), func(t *testing.T) {
			geom := event.Geometry("geom", tt.gt, 2)
			events := event.NewBuilder().Start().FeatureStart().
				Geometry(geom, tt.depths, tt.chunks...).
				FeatureEnd().End().Events()

			got := mustEncode(t, events, WithSingleFeature())
			require.Equal(t, `{"type":"Feature","geometry":`+tt.want+`,"properties":{}}`, got)
		})
	}
}

func TestEncoder_UnsupportedGeometryIsNull(t *testing.T) {
	geom := event.Geometry("geom", format.GeometryGeometryCollection, 2)
	events := event.NewBuilder().Start().FeatureStart().
		Value(nameProp, "x").
		Geometry(geom, []int{1}, "1 2").
		FeatureEnd().End().Events()

	got := mustEncode(t, events, WithSingleFeature())
	require.Equal(t, `{"type":"Feature","geometry":null,"properties":{"name":"x"}}`, got)
}

func TestEncoder_SecondGeometry(t *testing.T) {
	events := event.NewBuilder().Start().FeatureStart().
		Geometry(pointGeom, nil, "1 2").
		Geometry(pointGeom, nil, "3 4").
		FeatureEnd().End().Events()

	_, err := encode(t, events, WithSingleFeature())
	require.ErrorIs(t, err, errs.ErrGeometryClosed)
}

func TestEncoder_CoordinateOptions(t *testing.T) {
	geom := event.Geometry("geom", format.GeometryLineString, 3)
	events := event.NewBuilder().Start().FeatureStart().
		Geometry(geom, nil, "7.123456 50.987654 100.25, 7.2 50.9 101").
		FeatureEnd().End().Events()

	got := mustEncode(t, events, WithSingleFeature(), WithPrecision(2))
	require.Contains(t, got, `"coordinates":[[7.12,50.99,100.25],[7.2,50.9,101]]`)

	got = mustEncode(t, events, WithSingleFeature(), WithSwapAxes())
	require.Contains(t, got, `"coordinates":[[50.987654,7.123456,100.25],[50.9,7.2,101]]`)
}

func TestEncoder_CRS(t *testing.T) {
	events := event.NewBuilder().Start().
		FeatureStart().Geometry(pointGeom, nil, "0 0").FeatureEnd().
		End().Events()

	got := mustEncode(t, events, WithMetadata(false), WithCRS(coords.CRS84, coords.EPSG3857), WithPrecision(2))
	require.Equal(t, `{"type":"FeatureCollection","crs":{"type":"name","properties":{"name":"urn:ogc:def:crs:EPSG::3857"}},"features":[`+
		`{"type":"Feature","geometry":{"type":"Point","coordinates":[0,0]},"properties":{}}]}`, got)

	got = mustEncode(t, events, WithSingleFeature(), WithCRS(coords.CRS84, coords.EPSG3857), WithPrecision(2))
	require.True(t, strings.HasPrefix(got, `{"type":"Feature","crs":{"type":"name","properties":{"name":"urn:ogc:def:crs:EPSG::3857"}},"geometry":`), got)

	got = mustEncode(t, events, WithSingleFeature())
	require.NotContains(t, got, `"crs"`)
}

// =============================================================================
// Properties
// =============================================================================

func fotoFeature() []event.Event {
	bem := event.Property("foto[foto].bemerkung", format.ValueString)
	haupt := event.Property("foto[foto].hauptfoto", format.ValueString)
	kennung := event.Property("kennung", format.ValueString)

	return event.NewBuilder().Start().FeatureStart().
		Value(bem.WithMultiplicities(1), "A").
		Value(haupt.WithMultiplicities(1), "B").
		Value(bem.WithMultiplicities(2), "C").
		Value(haupt.WithMultiplicities(2), "D").
		Value(kennung, "E").
		FeatureEnd().End().Events()
}

func TestEncoder_NestedProperties(t *testing.T) {
	got := mustEncode(t, fotoFeature(), WithSingleFeature())
	require.Equal(t, `{"type":"Feature","geometry":null,"properties":{"foto":[{"bemerkung":"A","hauptfoto":"B"},{"bemerkung":"C","hauptfoto":"D"}],"kennung":"E"}}`, got)
}

func TestEncoder_FlattenedProperties(t *testing.T) {
	got := mustEncode(t, fotoFeature(), WithSingleFeature(), WithFlatten("."))
	require.Equal(t, `{"type":"Feature","geometry":null,"properties":{"foto.1.bemerkung":"A","foto.1.hauptfoto":"B","foto.2.bemerkung":"C","foto.2.hauptfoto":"D","kennung":"E"}}`, got)
}

func TestWriteValue(t *testing.T) {
	tests := []struct {
		valueType format.ValueType
		text      string
		want      string
	}{
		{format.ValueString, "42", `"42"`},
		{format.ValueString, "", `""`},
		{format.ValueDatetime, "2026-10-15T08:30:00Z", `"2026-10-15T08:30:00Z"`},
		{format.ValueInteger, "42", `42`},
		{format.ValueInteger, "-7", `-7`},
		{format.ValueInteger, "4.5", `4.5`},
		{format.ValueInteger, "n/a", `"n/a"`},
		{format.ValueInteger, "", `null`},
		{format.ValueFloat, "2.25", `2.25`},
		{format.ValueFloat, "3", `3`},
		{format.ValueFloat, "NaN", `"NaN"`},
		{format.ValueBoolean, "t", `true`},
		{format.ValueBoolean, "TRUE", `true`},
		{format.ValueBoolean, "1", `true`},
		{format.ValueBoolean, "f", `false`},
		{format.ValueBoolean, "0", `false`},
		{format.ValueBoolean, "", `null`},
	}

	for _, tt := range tests {
		t.Run(tt.valueType.String()+"/"+tt.text, func(t *testing.T) {
			rec := &sink.Recorder{}
			writeValue(rec, tt.valueType, tt.text)
			require.Equal(t, tt.want, rec.String())
		})
	}
}

// =============================================================================
// Id and links
// =============================================================================

func TestEncoder_ID(t *testing.T) {
	idProp := event.ID("id", format.ValueInteger)

	t.Run("before properties", func(t *testing.T) {
		events := event.NewBuilder().Start().FeatureStart().
			Value(idProp, "42").Value(nameProp, "x").
			FeatureEnd().End().Events()
		got := mustEncode(t, events, WithSingleFeature())
		require.Equal(t, `{"type":"Feature","id":42,"geometry":null,"properties":{"name":"x"}}`, got)
	})

	t.Run("while properties are buffered", func(t *testing.T) {
		events := event.NewBuilder().Start().FeatureStart().
			Value(nameProp, "x").Value(idProp, "42").
			Geometry(pointGeom, nil, "1 2").
			FeatureEnd().End().Events()
		got := mustEncode(t, events, WithSingleFeature())
		require.Equal(t, `{"type":"Feature","id":42,"geometry":{"type":"Point","coordinates":[1,2]},"properties":{"name":"x"}}`, got)
	})

	t.Run("deferred after direct properties", func(t *testing.T) {
		events := event.NewBuilder().Start().FeatureStart().
			Geometry(pointGeom, nil, "1 2").
			Value(nameProp, "x").Value(event.ID("id", format.ValueString), "a/b").
			FeatureEnd().End().Events()
		got := mustEncode(t, events, WithSingleFeature(), WithFeatureURITemplate("https://example.org/items/{id}"))
		require.Equal(t, `{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},"properties":{"name":"x"},"id":"a/b",`+
			`"links":[{"href":"https://example.org/items/a%2Fb","rel":"self","type":"application/geo+json"}]}`, got)
	})

	t.Run("in properties", func(t *testing.T) {
		events := event.NewBuilder().Start().FeatureStart().
			Value(idProp, "7").
			FeatureEnd().End().Events()
		got := mustEncode(t, events, WithSingleFeature(), WithIDInProperties())
		require.Equal(t, `{"type":"Feature","id":7,"geometry":null,"properties":{"id":7}}`, got)
	})
}

func TestEncoder_FeatureLinks(t *testing.T) {
	idProp := event.ID("id", format.ValueInteger)
	opts := []Option{
		WithMetadata(false),
		WithFeatureURITemplate("https://example.org/items/{id}"),
		WithCanonicalURITemplate("https://example.org/canonical/{id}"),
		WithFeatureLinks(Link{Href: "https://example.org/items/1?f=html", Rel: "alternate", Type: "text/html"}),
	}

	single := event.NewBuilder().Start().FeatureStart().Value(idProp, "1").FeatureEnd().End().Events()
	got := mustEncode(t, single, append(opts, WithSingleFeature())...)
	require.Contains(t, got, `"links":[`+
		`{"href":"https://example.org/items/1","rel":"self","type":"application/geo+json"},`+
		`{"href":"https://example.org/canonical/1","rel":"canonical","type":"application/geo+json"},`+
		`{"href":"https://example.org/items/1?f=html","rel":"alternate","type":"text/html"}]`)

	got = mustEncode(t, single, opts...)
	require.Contains(t, got, `"links":[`+
		`{"href":"https://example.org/items/1","rel":"self","type":"application/geo+json"},`+
		`{"href":"https://example.org/canonical/1","rel":"canonical","type":"application/geo+json"}]}]}`)
	require.NotContains(t, got, "alternate")
}

func TestEncoder_CollectionLinks(t *testing.T) {
	collectionLinks := []Link{
		{Href: "https://example.org/items", Rel: "self", Type: MediaType},
		{Href: "https://example.org/items?offset=1", Rel: "next", Type: MediaType, Title: "Next page"},
	}

	doc := event.NewBuilder().StartDocument(event.Document{NumberReturned: event.Unknown, NumberMatched: 5}).
		FeatureStart().FeatureEnd().End().Events()

	tests := []struct {
		name     string
		offset   int64
		limit    int64
		wantNext bool
	}{
		{"no paging", 0, 0, true},
		{"more pages", 0, 1, true},
		{"short page", 0, 10, false},
		{"last page", 4, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustEncode(t, doc, WithMetadata(false), WithLinks(collectionLinks...), WithPaging(tt.offset, tt.limit))
			require.Contains(t, got, `],"links":[{"href":"https://example.org/items","rel":"self","type":"application/geo+json"}`)
			require.Equal(t, tt.wantNext, strings.Contains(got, `"rel":"next"`))
			if tt.wantNext {
				require.Contains(t, got, `"title":"Next page"`)
			}
		})
	}
}

// =============================================================================
// Error handling
// =============================================================================

func TestEncoder_MalformedCoordinatesSkipFeature(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	events := event.NewBuilder().Start().
		FeatureStart().Value(nameProp, "a").Geometry(pointGeom, nil, "1 2").FeatureEnd().
		FeatureStart().Value(nameProp, "b").Geometry(pointGeom, nil, "3 abc").Value(countProp, "1").FeatureEnd().
		FeatureStart().Value(nameProp, "c").Geometry(pointGeom, nil, "5 6").FeatureEnd().
		End().Events()

	var out bytes.Buffer
	enc, err := NewEncoder(&out, WithClock(fixedClock), WithLogger(logger), WithCollectionID("bauwerke"))
	require.NoError(t, err)
	defer enc.Close()

	require.NoError(t, event.Replay(enc, events))
	require.Equal(t, `{"type":"FeatureCollection","features":[`+
		`{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},"properties":{"name":"a"}},`+
		`{"type":"Feature","geometry":{"type":"Point","coordinates":[5,6]},"properties":{"name":"c"}}],`+
		`"numberReturned":2,"timeStamp":"2026-10-15T08:30:00Z"}`, out.String())
	require.Equal(t, int64(2), enc.Returned())
	require.Equal(t, int64(1), enc.Skipped())

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	require.Equal(t, logrus.WarnLevel, entry.Level)
	require.Equal(t, "bauwerke", entry.Data["collection"])
	require.Equal(t, int64(1), entry.Data["feature"])
}

func TestEncoder_MalformedCoordinatesSingleFeature(t *testing.T) {
	events := event.NewBuilder().Start().
		FeatureStart().Geometry(pointGeom, nil, "1").FeatureEnd().
		End().Events()

	_, err := encode(t, events, WithSingleFeature())
	require.ErrorIs(t, err, errs.ErrMalformedCoordinate)
}

func TestEncoder_PointWithoutPosition(t *testing.T) {
	events := event.NewBuilder().Start().
		FeatureStart().Geometry(pointGeom, nil).Value(nameProp, "a").FeatureEnd().
		FeatureStart().Value(nameProp, "b").FeatureEnd().
		End().Events()

	got := mustEncode(t, events, WithMetadata(false))
	require.Equal(t, `{"type":"FeatureCollection","features":[`+
		`{"type":"Feature","geometry":null,"properties":{"name":"a"}},`+
		`{"type":"Feature","geometry":null,"properties":{"name":"b"}}]}`, got)

	events = event.NewBuilder().Start().
		FeatureStart().Value(nameProp, "a").Geometry(pointGeom, nil).FeatureEnd().
		End().Events()

	got = mustEncode(t, events, WithSingleFeature())
	require.Equal(t, `{"type":"Feature","geometry":null,"properties":{"name":"a"}}`, got)
}

func TestEncoder_PointWithSeveralPositionsSkipped(t *testing.T) {
	events := event.NewBuilder().Start().
		FeatureStart().Value(nameProp, "a").Geometry(pointGeom, nil, "1 2, 3 4").FeatureEnd().
		FeatureStart().Value(nameProp, "b").Geometry(pointGeom, nil, "5 6").FeatureEnd().
		End().Events()

	var out bytes.Buffer
	enc, err := NewEncoder(&out, WithMetadata(false))
	require.NoError(t, err)
	defer enc.Close()

	require.NoError(t, event.Replay(enc, events))
	require.Equal(t, `{"type":"FeatureCollection","features":[`+
		`{"type":"Feature","geometry":{"type":"Point","coordinates":[5,6]},"properties":{"name":"b"}}]}`, out.String())
	require.Equal(t, int64(1), enc.Returned())
	require.Equal(t, int64(1), enc.Skipped())
}

func TestEncoder_DuplicateProperties(t *testing.T) {
	tests := []struct {
		name   string
		events []event.Event
	}{
		{
			"same value twice",
			event.NewBuilder().Start().FeatureStart().
				Value(nameProp, "a").Value(nameProp, "b").
				FeatureEnd().End().Events(),
		},
		{
			"member continued after another",
			event.NewBuilder().Start().FeatureStart().
				Value(event.Property("adresse.ort", format.ValueString), "Bern").
				Value(countProp, "1").
				Value(event.Property("adresse.plz", format.ValueString), "3000").
				FeatureEnd().End().Events(),
		},
		{
			"group entered again",
			event.NewBuilder().Start().FeatureStart().
				Value(event.Property("foto[foto].a", format.ValueString).WithMultiplicities(1), "1").
				Value(countProp, "2").
				Value(event.Property("foto[foto].a", format.ValueString).WithMultiplicities(1), "3").
				FeatureEnd().End().Events(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := encode(t, tt.events, WithSingleFeature())
			require.ErrorIs(t, err, errs.ErrProtocol)
		})
	}

	t.Run("same name in the next feature", func(t *testing.T) {
		events := event.NewBuilder().Start().
			FeatureStart().Value(nameProp, "a").FeatureEnd().
			FeatureStart().Value(nameProp, "b").FeatureEnd().
			End().Events()

		got := mustEncode(t, events, WithMetadata(false))
		require.Equal(t, `{"type":"FeatureCollection","features":[`+
			`{"type":"Feature","geometry":null,"properties":{"name":"a"}},`+
			`{"type":"Feature","geometry":null,"properties":{"name":"b"}}]}`, got)
	})

	t.Run("repeated group entries", func(t *testing.T) {
		bem := event.Property("foto[foto].bemerkung", format.ValueString)
		events := event.NewBuilder().Start().FeatureStart().
			Value(bem.WithMultiplicities(1), "A").
			Value(bem.WithMultiplicities(2), "B").
			FeatureEnd().End().Events()

		got := mustEncode(t, events, WithSingleFeature())
		require.Equal(t, `{"type":"Feature","geometry":null,"properties":{"foto":[{"bemerkung":"A"},{"bemerkung":"B"}]}}`, got)
	})
}

func TestEncoder_EmptyPropertyName(t *testing.T) {
	events := event.NewBuilder().Start().FeatureStart().
		Value(event.Property("", format.ValueString), "lost").
		Value(nameProp, "x").
		FeatureEnd().End().Events()

	got := mustEncode(t, events, WithSingleFeature())
	require.Equal(t, `{"type":"Feature","geometry":null,"properties":{"name":"x"}}`, got)

	events = event.NewBuilder().Start().FeatureStart().
		Value(event.Property("", format.ValueString), "lost").
		FeatureEnd().End().Events()

	got = mustEncode(t, events, WithSingleFeature())
	require.Equal(t, `{"type":"Feature","geometry":null,"properties":{}}`, got)
}

func TestEncoder_Protocol(t *testing.T) {
	tests := []struct {
		name   string
		events []event.Event
		want   error
	}{
		{"feature before start", event.NewBuilder().FeatureStart().Events(), errs.ErrProtocol},
		{"nested feature", event.NewBuilder().Start().FeatureStart().FeatureStart().Events(), errs.ErrProtocol},
		{"end inside feature", event.NewBuilder().Start().FeatureStart().End().Events(), errs.ErrProtocol},
		{"value outside feature", event.NewBuilder().Start().Value(nameProp, "x").Events(), errs.ErrProtocol},
		{"event after end", event.NewBuilder().Start().End().FeatureStart().Events(), errs.ErrDocumentClosed},
		{"double start", event.NewBuilder().Start().Start().Events(), errs.ErrProtocol},
		{"value without schema", event.NewBuilder().Start().FeatureStart().Value(nil, "x").Events(), errs.ErrProtocol},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := encode(t, tt.events)
			require.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("second feature in single feature document", func(t *testing.T) {
		events := event.NewBuilder().Start().FeatureStart().FeatureEnd().FeatureStart().Events()
		_, err := encode(t, events, WithSingleFeature())
		require.ErrorIs(t, err, errs.ErrProtocol)
	})
}

func TestEncoder_Balance(t *testing.T) {
	a := event.Property("a[a].b[b].c", format.ValueString)
	d := event.Property("d.e", format.ValueFloat)
	events := event.NewBuilder().Start().
		FeatureStart().
		Value(a.WithMultiplicities(1, 1), "x").
		Value(a.WithMultiplicities(1, 2), "y").
		Geometry(event.Geometry("g", format.GeometryPolygon, 2), []int{1, 1}, "0 0 1 0 1 1 0 0", "0 0 1 0 1 1 0 0").
		Value(a.WithMultiplicities(2, 1), "z").
		Value(d, "1.5").
		FeatureEnd().
		FeatureStart().FeatureEnd().
		End().Events()

	rec := &sink.Recorder{}
	enc, err := NewSinkEncoder(rec, WithClock(fixedClock))
	require.NoError(t, err)
	defer enc.Close()

	require.NoError(t, event.Replay(enc, events))
	require.Equal(t, rec.Count(sink.TokenStartObject), rec.Count(sink.TokenEndObject))
	require.Equal(t, rec.Count(sink.TokenStartArray), rec.Count(sink.TokenEndArray))
	require.Equal(t, 0, rec.Depth())
}

func TestNewEncoder_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"precision", WithPrecision(-1)},
		{"tolerance", WithSimplification(-1)},
		{"paging", WithPaging(-1, 10)},
		{"crs", WithCRS(coords.CRS("EPSG:25832"), coords.CRS84)},
		{"logger", WithLogger(nil)},
		{"clock", WithClock(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEncoder(&bytes.Buffer{}, tt.opt)
			require.ErrorIs(t, err, errs.ErrInvalidOption)
		})
	}
}
