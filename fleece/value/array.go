package value

import "github.com/couchbaselabs/fleece-go/fleece"

// Array is a decoded view onto an Array value's header: its element
// count, slot width, and the absolute position its child slots start
// at.
type Array struct {
	doc           []byte
	count         int
	wide          bool
	childrenStart uint32
}

// AsArray interprets v as an Array, decoding its header.
func (v Value) AsArray() (Array, error) {
	if v.Type() != fleece.TagArray {
		return Array{}, errorf("value at %d is a %v, not an array", v.pos, v.Type())
	}
	count, wide, start, err := containerHeader(v)
	if err != nil {
		return Array{}, err
	}
	return Array{doc: v.doc, count: count, wide: wide, childrenStart: start}, nil
}

// Count returns the number of elements.
func (a Array) Count() int { return a.count }

// Get resolves and returns the element at index i.
func (a Array) Get(i int) (Value, error) {
	if i < 0 || i >= a.count {
		return Value{}, errorf("array index %d out of range [0,%d)", i, a.count)
	}
	width := fleece.Narrow
	if a.wide {
		width = fleece.Wide
	}
	slot := a.childrenStart + uint32(i)*uint32(width)
	return resolveSlot(a.doc, slot, width)
}
