package source

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/arloliu/geostream/event"
	"github.com/arloliu/geostream/format"
)

// readGeometry pushes a GeoJSON geometry object. "coordinates" may precede
// "type"; in that case the raw coordinates are kept until the type is known.
func (d *Decoder) readGeometry(it *jsoniter.Iterator) {
	switch it.WhatIsNext() {
	case jsoniter.NilValue:
		it.Skip()
		return
	case jsoniter.ObjectValue:
	default:
		d.err = d.invalid(fmt.Sprintf("feature %d: geometry is not an object", d.features))
		return
	}

	var (
		geometryType format.GeometryType
		typed        bool
		pending      []byte
		done         bool
	)
	it.ReadObjectCB(func(it *jsoniter.Iterator, key string) bool {
		switch key {
		case "type":
			if it.WhatIsNext() != jsoniter.StringValue {
				it.Skip()
				break
			}
			geometryType = format.ParseGeometryType(it.ReadString())
			typed = true
		case "coordinates":
			if !typed {
				pending = append([]byte(nil), it.SkipAndReturnBytes()...)
				break
			}
			if d.beginGeometry(geometryType) {
				d.coordinates(it, geometryType)
				done = true
			}
		default:
			it.Skip()
		}

		return d.ok(it)
	})
	if !d.ok(it) {
		return
	}

	if !done {
		if !d.beginGeometry(geometryType) {
			return
		}
		if pending != nil {
			sub := jsoniter.ParseBytes(api, pending)
			d.coordinates(sub, geometryType)
			if err := d.failure(sub); err != nil {
				d.err = err
				return
			}
		}
	}
	d.emit(d.h.OnObjectEnd())
}

func (d *Decoder) beginGeometry(geometryType format.GeometryType) bool {
	d.geometry = event.Geometry(d.cfg.geometryName, geometryType, d.cfg.dimension)
	d.chunk.Reset()
	d.positions = 0

	return d.emit(d.h.OnObjectStart(d.geometry))
}

// coordinates walks the "coordinates" array. Array levels below it become
// array events, position tuples are joined into text chunks.
func (d *Decoder) coordinates(it *jsoniter.Iterator, geometryType format.GeometryType) {
	if !geometryType.IsEncodable() {
		// unsupported geometries are reported without coordinates
		it.Skip()
		return
	}

	depth := geometryType.NestingDepth()
	if depth < 0 {
		d.position(it)
		d.flush()

		return
	}
	d.level(it, 0, depth)
}

func (d *Decoder) level(it *jsoniter.Iterator, level, depth int) {
	if level == depth {
		it.ReadArrayCB(func(it *jsoniter.Iterator) bool {
			d.position(it)
			if d.positions >= d.cfg.chunkSize {
				d.flush()
			}

			return d.ok(it)
		})
		d.flush()

		return
	}

	it.ReadArrayCB(func(it *jsoniter.Iterator) bool {
		if !d.emit(d.h.OnArrayStart(d.geometry)) {
			return false
		}
		d.level(it, level+1, depth)

		return d.ok(it) && d.emit(d.h.OnArrayEnd())
	})
}

// position appends one tuple to the current chunk. Values that are not numbers
// are copied verbatim so the coordinate pipeline reports them as malformed.
func (d *Decoder) position(it *jsoniter.Iterator) {
	if d.positions > 0 {
		d.chunk.WriteString(", ")
	}
	d.positions++

	n := 0
	it.ReadArrayCB(func(it *jsoniter.Iterator) bool {
		if n >= d.cfg.dimension {
			it.Skip()
			return true
		}
		if n > 0 {
			d.chunk.WriteString(" ")
		}
		n++
		if it.WhatIsNext() == jsoniter.NumberValue {
			d.chunk.WriteString(string(it.ReadNumber()))
		} else {
			d.chunk.Write(it.SkipAndReturnBytes())
		}

		return it.Error == nil
	})
}

func (d *Decoder) flush() {
	if d.positions == 0 || d.err != nil {
		return
	}
	text := string(d.chunk.Bytes())
	d.chunk.Reset()
	d.positions = 0
	d.emit(d.h.OnValue(d.geometry, text))
}
