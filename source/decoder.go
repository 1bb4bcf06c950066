// Package source reads GeoJSON documents and pushes them as feature events.
//
// The Decoder walks the input with a streaming JSON iterator, so neither the
// document nor a single feature is held in memory. A FeatureCollection
// produces one feature per member of "features"; a Feature document produces
// exactly one. Properties are reported with their full path: nested objects
// become dotted paths and arrays become multiplicity groups, e.g.
// "foto[foto].bemerkung" with a 1-based index per array element.
package source

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/arloliu/geostream/errs"
	"github.com/arloliu/geostream/event"
	"github.com/arloliu/geostream/format"
	"github.com/arloliu/geostream/internal/options"
	"github.com/arloliu/geostream/internal/pool"
)

var api = jsoniter.ConfigCompatibleWithStandardLibrary

// Decoder turns one GeoJSON document into an event sequence.
//
// Decoder is NOT thread-safe and NOT reusable: create one per document.
type Decoder struct {
	cfg  *config
	iter *jsoniter.Iterator
	h    event.Handler
	err  error

	started  bool
	single   bool
	rootType string
	features int

	geometry  *event.Schema
	chunk     *pool.ByteBuffer
	positions int
}

// NewDecoder creates a decoder reading from r.
//
// Parameters:
//   - r: the GeoJSON document
//   - opts: decoder options
//
// Returns:
//   - *Decoder: the decoder, ready for Decode
//   - error: errs.ErrInvalidOption wrapped with details for invalid options
func NewDecoder(r io.Reader, opts ...Option) (*Decoder, error) {
	cfg := defaultConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	return &Decoder{
		cfg:  cfg,
		iter: jsoniter.Parse(api, r, cfg.bufferSize),
	}, nil
}

// Decode reads r and pushes its events to h.
func Decode(r io.Reader, h event.Handler, opts ...Option) error {
	d, err := NewDecoder(r, opts...)
	if err != nil {
		return err
	}

	return d.Decode(h)
}

// Features returns the number of features pushed so far.
func (d *Decoder) Features() int { return d.features }

// Decode reads the whole document and pushes its events to h.
//
// Handler errors stop decoding and are returned wrapped with the feature
// position. Syntax errors and documents that are neither a Feature nor a
// FeatureCollection return errs.ErrInvalidInput.
func (d *Decoder) Decode(h event.Handler) error {
	if d.h != nil {
		return fmt.Errorf("%w: decoder already used", errs.ErrProtocol)
	}
	d.h = h
	d.chunk = pool.GetTokenBuffer()
	defer pool.PutTokenBuffer(d.chunk)

	if d.iter.WhatIsNext() != jsoniter.ObjectValue {
		return d.invalid("document is not an object")
	}
	d.iter.ReadObjectCB(d.rootMember)
	if err := d.failure(d.iter); err != nil {
		return err
	}

	if d.rootType == "Feature" && !d.single {
		d.beginSingle()
	}
	if !d.started {
		d.start()
	}
	if d.single {
		d.emit(d.h.OnFeatureEnd())
		d.features++
	}
	if d.err != nil {
		return d.err
	}

	return d.h.OnEnd()
}

func (d *Decoder) rootMember(it *jsoniter.Iterator, key string) bool {
	switch key {
	case "type":
		if it.WhatIsNext() != jsoniter.StringValue {
			it.Skip()
			break
		}
		d.rootType = it.ReadString()
	case "features":
		if d.single {
			d.err = d.invalid("features member in a feature")
			return false
		}
		d.start()
		it.ReadArrayCB(d.feature)
	case "numberMatched", "numberReturned":
		d.count(it, key)
	case "id", "geometry", "properties":
		if !d.single {
			d.beginSingle()
		}
		d.featureMember(it, key)
	default:
		it.Skip()
	}

	return d.ok(it)
}

// count records a document count. Counts after the features cannot be
// announced any more and are skipped.
func (d *Decoder) count(it *jsoniter.Iterator, key string) {
	if d.started || d.cfg.docSet || it.WhatIsNext() != jsoniter.NumberValue {
		it.Skip()
		return
	}

	n := it.ReadInt64()
	if key == "numberMatched" {
		d.cfg.doc.NumberMatched = n
	} else {
		d.cfg.doc.NumberReturned = n
	}
}

func (d *Decoder) start() {
	if d.started {
		return
	}
	d.started = true
	d.emit(d.h.OnStart(d.cfg.doc))
}

func (d *Decoder) beginSingle() {
	d.start()
	d.single = true
	d.emit(d.h.OnFeatureStart(nil))
}

func (d *Decoder) feature(it *jsoniter.Iterator) bool {
	if it.WhatIsNext() != jsoniter.ObjectValue {
		d.err = d.invalid(fmt.Sprintf("feature %d is not an object", d.features))
		return false
	}

	if !d.emit(d.h.OnFeatureStart(nil)) {
		return false
	}
	it.ReadObjectCB(func(it *jsoniter.Iterator, key string) bool {
		d.featureMember(it, key)
		return d.ok(it)
	})
	if !d.ok(it) || !d.emit(d.h.OnFeatureEnd()) {
		return false
	}
	d.features++

	return true
}

func (d *Decoder) featureMember(it *jsoniter.Iterator, key string) {
	switch key {
	case "id":
		d.id(it)
	case "geometry":
		d.readGeometry(it)
	case "properties":
		if it.WhatIsNext() != jsoniter.ObjectValue {
			it.Skip()
			return
		}
		d.object(it, nil, nil)
	default:
		it.Skip()
	}
}

func (d *Decoder) id(it *jsoniter.Iterator) {
	switch it.WhatIsNext() {
	case jsoniter.StringValue:
		text := it.ReadString()
		d.emit(d.h.OnValue(event.ID("id", format.ValueString), text))
	case jsoniter.NumberValue:
		text := string(it.ReadNumber())
		d.emit(d.h.OnValue(event.ID("id", numberType(text)), text))
	default:
		it.Skip()
	}
}

func (d *Decoder) object(it *jsoniter.Iterator, path event.Path, mults []int) {
	it.ReadObjectCB(func(it *jsoniter.Iterator, key string) bool {
		d.value(it, path.Child(event.Segment{Name: key}), mults)
		return d.ok(it)
	})
}

func (d *Decoder) value(it *jsoniter.Iterator, path event.Path, mults []int) {
	switch it.WhatIsNext() {
	case jsoniter.ObjectValue:
		d.object(it, path, mults)
	case jsoniter.ArrayValue:
		d.array(it, path, mults)
	case jsoniter.StringValue:
		d.scalar(path, mults, format.ValueString, it.ReadString())
	case jsoniter.NumberValue:
		text := string(it.ReadNumber())
		d.scalar(path, mults, numberType(text), text)
	case jsoniter.BoolValue:
		d.scalar(path, mults, format.ValueBoolean, strconv.FormatBool(it.ReadBool()))
	default:
		// null and anything the iterator rejects
		it.Skip()
	}
}

// array turns the elements of a JSON array into a multiplicity group keyed by
// the array path. An array directly inside another array has no name of its
// own and is passed on as raw JSON text.
func (d *Decoder) array(it *jsoniter.Iterator, path event.Path, mults []int) {
	last := len(path) - 1
	if path[last].IsGrouped() {
		raw := string(it.SkipAndReturnBytes())
		d.scalar(path, mults, format.ValueString, raw)

		return
	}

	grouped := slices.Clone(path)
	grouped[last].Group = groupKey(path)

	index := 0
	it.ReadArrayCB(func(it *jsoniter.Iterator) bool {
		index++
		d.value(it, grouped, append(mults[:len(mults):len(mults)], index))

		return d.ok(it)
	})
}

func (d *Decoder) scalar(path event.Path, mults []int, valueType format.ValueType, text string) {
	if d.err != nil {
		return
	}

	schema := &event.Schema{
		Name:           path.Last().Name,
		Path:           path,
		IsArray:        len(mults) > 0,
		Multiplicities: mults,
		ValueType:      valueType,
	}
	if d.cfg.idProperty != "" && len(path) == 1 && path[0].Name == d.cfg.idProperty {
		schema.IsID = true
	}
	d.emit(d.h.OnValue(schema, text))
}

func (d *Decoder) emit(err error) bool {
	if err != nil && d.err == nil {
		d.err = fmt.Errorf("feature %d: %w", d.features, err)
	}

	return d.err == nil
}

func (d *Decoder) ok(it *jsoniter.Iterator) bool {
	return d.err == nil && it.Error == nil
}

// failure returns the first handler error, or the iterator error as invalid input.
func (d *Decoder) failure(it *jsoniter.Iterator) error {
	if d.err != nil {
		return d.err
	}
	if it.Error != nil {
		return fmt.Errorf("%w: %w", errs.ErrInvalidInput, it.Error)
	}

	return nil
}

func (d *Decoder) invalid(msg string) error {
	return fmt.Errorf("%w: %s", errs.ErrInvalidInput, msg)
}

// groupKey names the multiplicity group of an array by its ungrouped path.
func groupKey(path event.Path) string {
	var sb strings.Builder
	for i, seg := range path {
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(seg.Name)
	}

	return sb.String()
}

func numberType(text string) format.ValueType {
	if strings.ContainsAny(text, ".eE") {
		return format.ValueFloat
	}

	return format.ValueInteger
}
