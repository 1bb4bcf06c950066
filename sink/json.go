package sink

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/arloliu/geostream/errs"
)

var jsonConfig = jsoniter.Config{EscapeHTML: false}.Froze()

const defaultStreamBufferSize = 4096

type frame struct {
	object    bool
	count     int
	afterName bool
}

type savepoint struct {
	offset int
	frames []frame
}

// JSON is a Sink producing compact JSON on an io.Writer through a jsoniter.Stream.
//
// The sink validates token order: values inside an object need a preceding
// field name and end tokens must match the open container. A violation is kept
// as the sink error.
//
// While a savepoint is active, Flush keeps the bytes in memory so that Rollback
// can discard them. Without savepoints Flush writes through to the writer.
//
// JSON is NOT thread-safe.
type JSON struct {
	stream *jsoniter.Stream
	frames []frame
	marks  []savepoint
	err    error
}

var _ Sink = (*JSON)(nil)
var _ Savepointer = (*JSON)(nil)

// NewJSON creates a JSON sink writing to w.
func NewJSON(w io.Writer) *JSON {
	return &JSON{stream: newStream(w)}
}

func newStream(w io.Writer) *jsoniter.Stream {
	return jsoniter.NewStream(jsonConfig, w, defaultStreamBufferSize)
}

func (j *JSON) fail(err error) {
	if j.err == nil {
		j.err = err
	}
}

// beforeValue writes the separator for a value and checks the container state.
func (j *JSON) beforeValue() bool {
	if j.err != nil {
		return false
	}
	if len(j.frames) == 0 {
		return true
	}

	f := &j.frames[len(j.frames)-1]
	if f.object {
		if !f.afterName {
			j.fail(errs.ErrMissingFieldName)
			return false
		}
		f.afterName = false

		return true
	}

	if f.count > 0 {
		j.stream.WriteMore()
	}
	f.count++

	return true
}

func (j *JSON) WriteStartObject() {
	if !j.beforeValue() {
		return
	}
	j.stream.WriteObjectStart()
	j.frames = append(j.frames, frame{object: true})
}

func (j *JSON) WriteEndObject() {
	if j.err != nil {
		return
	}
	if len(j.frames) == 0 || !j.frames[len(j.frames)-1].object || j.frames[len(j.frames)-1].afterName {
		j.fail(fmt.Errorf("%w: end object", errs.ErrUnbalancedToken))
		return
	}
	j.frames = j.frames[:len(j.frames)-1]
	j.stream.WriteObjectEnd()
}

func (j *JSON) WriteStartArray() {
	if !j.beforeValue() {
		return
	}
	j.stream.WriteArrayStart()
	j.frames = append(j.frames, frame{})
}

func (j *JSON) WriteEndArray() {
	if j.err != nil {
		return
	}
	if len(j.frames) == 0 || j.frames[len(j.frames)-1].object {
		j.fail(fmt.Errorf("%w: end array", errs.ErrUnbalancedToken))
		return
	}
	j.frames = j.frames[:len(j.frames)-1]
	j.stream.WriteArrayEnd()
}

func (j *JSON) WriteFieldName(name string) {
	if j.err != nil {
		return
	}
	if len(j.frames) == 0 || !j.frames[len(j.frames)-1].object || j.frames[len(j.frames)-1].afterName {
		j.fail(fmt.Errorf("%w: field name %q outside object", errs.ErrUnbalancedToken, name))
		return
	}

	f := &j.frames[len(j.frames)-1]
	if f.count > 0 {
		j.stream.WriteMore()
	}
	f.count++
	f.afterName = true
	j.stream.WriteObjectField(name)
}

func (j *JSON) WriteString(s string) {
	if j.beforeValue() {
		j.stream.WriteString(s)
	}
}

func (j *JSON) WriteInt(n int64) {
	if j.beforeValue() {
		j.stream.WriteInt64(n)
	}
}

func (j *JSON) WriteFloat(f float64) {
	if !isFinite(f) {
		j.fail(fmt.Errorf("unsupported float value %v", f))
		return
	}
	if j.beforeValue() {
		j.stream.WriteFloat64(f)
	}
}

func (j *JSON) WriteBool(b bool) {
	if j.beforeValue() {
		j.stream.WriteBool(b)
	}
}

func (j *JSON) WriteNull() {
	if j.beforeValue() {
		j.stream.WriteNil()
	}
}

func (j *JSON) WriteRaw(s string) {
	if j.beforeValue() {
		j.stream.WriteRaw(s)
	}
}

func (j *JSON) Depth() int {
	return len(j.frames)
}

func (j *JSON) Err() error {
	if j.err == nil && j.stream.Error != nil {
		j.err = j.stream.Error
	}

	return j.err
}

// Flush writes the buffered bytes to the writer unless a savepoint is active.
func (j *JSON) Flush() error {
	if err := j.Err(); err != nil {
		return err
	}
	if len(j.marks) > 0 {
		return nil
	}

	if err := j.stream.Flush(); err != nil {
		j.fail(err)
		return err
	}

	return nil
}

// Mark starts a savepoint at the current position.
func (j *JSON) Mark() {
	frames := make([]frame, len(j.frames))
	copy(frames, j.frames)
	j.marks = append(j.marks, savepoint{offset: len(j.stream.Buffer()), frames: frames})
}

// Rollback discards everything written since the last Mark, including a
// pending write error caused by invalid token order.
func (j *JSON) Rollback() error {
	if len(j.marks) == 0 {
		return errs.ErrNoSavepoint
	}
	if j.stream.Error != nil {
		return j.stream.Error
	}

	m := j.marks[len(j.marks)-1]
	j.marks = j.marks[:len(j.marks)-1]
	j.stream.SetBuffer(j.stream.Buffer()[:m.offset])
	j.frames = m.frames
	j.err = nil

	return nil
}

// Release drops the last savepoint and keeps what was written after it.
func (j *JSON) Release() error {
	if len(j.marks) == 0 {
		return errs.ErrNoSavepoint
	}
	j.marks = j.marks[:len(j.marks)-1]

	return nil
}
