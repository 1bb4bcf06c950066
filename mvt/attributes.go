package mvt

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/arloliu/geostream/format"
	"github.com/arloliu/geostream/nesting"
)

// attributes is the sorted attribute map of one feature. A name written twice
// keeps the last value.
type attributes struct {
	keys   []string
	values map[string]any
}

func newAttributes() *attributes {
	return &attributes{values: make(map[string]any)}
}

func (a *attributes) set(name string, v any) {
	if _, ok := a.values[name]; !ok {
		i, _ := slices.BinarySearch(a.keys, name)
		a.keys = slices.Insert(a.keys, i, name)
	}
	a.values[name] = v
}

func (a *attributes) get(name string) (any, bool) {
	v, ok := a.values[name]
	return v, ok
}

func (a *attributes) reset() {
	a.keys = a.keys[:0]
	clear(a.values)
}

// properties copies the attributes in key order.
func (a *attributes) properties() geojson.Properties {
	props := make(geojson.Properties, len(a.keys))
	for _, k := range a.keys {
		props[k] = a.values[k]
	}

	return props
}

// subset copies the named attributes that are present.
func (a *attributes) subset(names []string) geojson.Properties {
	props := make(geojson.Properties, len(names))
	for _, k := range names {
		if v, ok := a.values[k]; ok {
			props[k] = v
		}
	}

	return props
}

// attributeValue converts value text to a tile attribute. Empty text of a
// non-string type has no tile representation and reports false.
func attributeValue(valueType format.ValueType, text string) (any, bool) {
	switch valueType {
	case format.ValueBoolean:
		if text == "" {
			return nil, false
		}
		return text == "t" || text == "1" || strings.EqualFold(text, "true"), true
	case format.ValueInteger, format.ValueFloat:
		if text == "" {
			return nil, false
		}
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(text, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			return f, true
		}
		return text, true
	default:
		return text, true
	}
}

// nameCapture records the flattened field name a nesting strategy resolves.
type nameCapture struct {
	name string
}

var _ nesting.Target = (*nameCapture)(nil)

func (*nameCapture) WriteStartObject()            {}
func (*nameCapture) WriteEndObject()              {}
func (*nameCapture) WriteStartArray()             {}
func (*nameCapture) WriteEndArray()               {}
func (c *nameCapture) WriteFieldName(name string) { c.name = name }
