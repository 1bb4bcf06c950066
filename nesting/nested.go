package nesting

import "github.com/arloliu/geostream/event"

// Nested writes real JSON nesting: groups become arrays, intermediate
// segments become objects.
type Nested struct{}

var _ Strategy = Nested{}

func (Nested) OpenArray(t Target, seg event.Segment) {
	t.WriteFieldName(seg.Name)
	t.WriteStartArray()
}

func (Nested) OpenObject(t Target, seg event.Segment, element bool) {
	if !element {
		t.WriteFieldName(seg.Name)
	}
	t.WriteStartObject()
}

func (Nested) OpenValue(t Target, seg event.Segment) {
	t.WriteFieldName(seg.Name)
}

func (Nested) CloseObject(t Target) { t.WriteEndObject() }
func (Nested) CloseArray(t Target)  { t.WriteEndArray() }
func (Nested) Resolve(Target, Step) {}
func (Nested) Reset()               {}
