package sink

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/geostream/errs"
)

func TestTokenBuffer_Replay(t *testing.T) {
	b := NewTokenBuffer()
	defer b.Release()

	b.WriteFieldName("properties")
	b.WriteStartObject()
	b.WriteFieldName("name")
	b.WriteString("Kölner Dom")
	b.WriteFieldName("height")
	b.WriteFloat(157.38)
	b.WriteFieldName("floors")
	b.WriteInt(-3)
	b.WriteFieldName("open")
	b.WriteBool(true)
	b.WriteFieldName("note")
	b.WriteNull()
	b.WriteFieldName("raw")
	b.WriteRaw(`[1]`)
	require.Equal(t, 1, b.Depth())
	b.WriteEndObject()
	require.Equal(t, 0, b.Depth())

	rec := &Recorder{}
	b.Replay(rec)
	require.Equal(t, b.Len(), len(rec.Tokens))
	require.Equal(t, `"properties": { "name": "Kölner Dom" "height": 157.38 "floors": -3 "open": true "note": null "raw": [1] }`, rec.String())

	b.Reset()
	require.Equal(t, 0, b.Len())
}

func TestBuffered_Lifecycle(t *testing.T) {
	var out bytes.Buffer
	direct := NewJSON(&out)
	b := NewBuffered(direct)
	defer b.Close()

	require.Same(t, Sink(direct), b.Active())
	require.False(t, b.HasBuffer())
	require.ErrorIs(t, b.FlushBuffer(), errs.ErrNotBuffering)

	direct.WriteStartObject()

	require.NoError(t, b.StartBuffering())
	require.NoError(t, b.StartBuffering())
	require.True(t, b.IsBuffering())
	b.Active().WriteFieldName("properties")
	b.Active().WriteStartObject()
	b.Active().WriteFieldName("a")
	b.Active().WriteInt(1)

	b.StopBuffering()
	require.False(t, b.IsBuffering())
	require.True(t, b.HasBuffer())
	b.Active().WriteFieldName("geometry")
	b.Active().WriteNull()

	require.NoError(t, b.FlushBuffer())
	require.False(t, b.HasBuffer())

	b.Active().WriteFieldName("b")
	b.Active().WriteInt(2)
	b.Active().WriteEndObject()
	direct.WriteEndObject()

	require.NoError(t, direct.Flush())
	require.Equal(t, `{"geometry":null,"properties":{"a":1,"b":2}}`, out.String())
}

func TestBuffered_Discard(t *testing.T) {
	rec := &Recorder{}
	b := NewBuffered(rec)
	defer b.Close()

	require.NoError(t, b.StartBuffering())
	b.Active().WriteString("dropped")
	b.Discard()

	require.False(t, b.HasBuffer())
	require.Empty(t, rec.Tokens)
}

func TestBuffered_ResumeAfterStop(t *testing.T) {
	rec := &Recorder{}
	b := NewBuffered(rec)
	defer b.Close()

	require.NoError(t, b.StartBuffering())
	b.Active().WriteInt(1)
	b.StopBuffering()
	b.Active().WriteInt(2)
	require.NoError(t, b.StartBuffering())
	b.Active().WriteInt(3)
	require.NoError(t, b.FlushBuffer())

	require.Equal(t, "2 1 3", rec.String())
}

func TestRecorder(t *testing.T) {
	rec := &Recorder{}
	rec.WriteStartObject()
	rec.WriteFieldName("a")
	rec.WriteStartArray()
	rec.WriteEndArray()
	rec.WriteEndObject()

	require.Equal(t, 1, rec.Count(TokenStartObject))
	require.Equal(t, 1, rec.Count(TokenEndArray))
	require.Equal(t, []string{"a"}, rec.FieldNames())
	require.Equal(t, 0, rec.Depth())

	rec.Reset()
	require.Empty(t, rec.Tokens)
}
