package value

import "github.com/couchbaselabs/fleece-go/fleece"

// Dict is a decoded view onto a Dict value's header: its pair count,
// slot width, and the absolute position its key/value children start
// at (alternating key, value, key, value, ...).
type Dict struct {
	doc           []byte
	count         int
	wide          bool
	childrenStart uint32
}

// AsDict interprets v as a Dict, decoding its header.
func (v Value) AsDict() (Dict, error) {
	if v.Type() != fleece.TagDict {
		return Dict{}, errorf("value at %d is a %v, not a dict", v.pos, v.Type())
	}
	count, wide, start, err := containerHeader(v)
	if err != nil {
		return Dict{}, err
	}
	return Dict{doc: v.doc, count: count, wide: wide, childrenStart: start}, nil
}

// Count returns the number of key/value pairs.
func (d Dict) Count() int { return d.count }

func (d Dict) width() fleece.Width {
	if d.wide {
		return fleece.Wide
	}
	return fleece.Narrow
}

func (d Dict) pairSlots(i int) (keySlot, valSlot uint32) {
	width := uint32(d.width())
	keySlot = d.childrenStart + uint32(2*i)*width
	valSlot = keySlot + width
	return
}

// Get looks up key by linear scan over the pair slots and returns its
// value. Dict keys are only sorted when the document was encoded with
// SortKeys enabled, which this package has no way to know from the
// bytes alone, so it never assumes an ordering it cannot verify.
func (d Dict) Get(key string) (val Value, found bool, err error) {
	width := d.width()
	for i := 0; i < d.count; i++ {
		keySlot, valSlot := d.pairSlots(i)
		kv, err := resolveSlot(d.doc, keySlot, width)
		if err != nil {
			return Value{}, false, err
		}
		ks, err := kv.AsString()
		if err != nil {
			return Value{}, false, err
		}
		if ks == key {
			vv, err := resolveSlot(d.doc, valSlot, width)
			return vv, true, err
		}
	}
	return Value{}, false, nil
}

// Iterate walks every key/value pair in storage order, calling fn for
// each. Iteration stops early if fn returns false.
func (d Dict) Iterate(fn func(key string, val Value) bool) error {
	width := d.width()
	for i := 0; i < d.count; i++ {
		keySlot, valSlot := d.pairSlots(i)
		kv, err := resolveSlot(d.doc, keySlot, width)
		if err != nil {
			return err
		}
		ks, err := kv.AsString()
		if err != nil {
			return err
		}
		vv, err := resolveSlot(d.doc, valSlot, width)
		if err != nil {
			return err
		}
		if !fn(ks, vv) {
			return nil
		}
	}
	return nil
}
