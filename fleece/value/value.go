// Package value is a minimal, read-only navigator over an already
// encoded Fleece document: it walks the byte-exact layout the fleece
// package's Encoder produces, without re-parsing it into a Go tree.
// Nothing in this package mutates or re-serializes a document; it is
// the read-side counterpart spec.md deliberately left external to the
// encoder's own contract.
//
// A Value never holds a pointer slot: every accessor that hands one
// out (Root, Array.Get, Dict.Get, Dict.Iterate) has already resolved
// any back-pointer to the tag byte it ultimately refers to.
package value

import (
	"encoding/binary"
	"math"

	"github.com/couchbaselabs/fleece-go/fleece"
)

// pointerBit mirrors fleece's internal pointerFlag: this package reads
// the wire format independently of the encoder's unexported constants,
// the same way a real Fleece reader ships without linking the encoder.
const pointerBit = 0x80

// lengthSentinel is the String/Binary length-nibble value that means
// "the true length follows as a varint" (fleece.Encoder emits it for
// any length >= 15).
const lengthSentinel = 0x0F

// countSentinel is the container inline-count value that means "the
// true count follows as a varint" (see fleece's countVarintThreshold).
const countSentinel = 0x07FF

// Value is a handle onto one Fleece value at an absolute byte position
// within doc.
type Value struct {
	doc []byte
	pos uint32
}

// Root resolves the document's 2-byte tail into the root Value.
//
// The tail is either the root value itself (an inline scalar or an
// empty container) or a narrow pointer. For a root value that itself
// needed wide storage, End writes that value's own
// wide-encoded pointer directly before the tail and gives the tail a
// fixed distance of exactly fleece.Wide back to it — so following the
// narrow tail once can land on either the real value or, for a wide
// root, on a second pointer that must then be followed at wide width.
// A plain pointerBit check on the landing spot tells them apart: only
// that second pointer has it set, since it is the only place in the
// format one pointer ever targets another.
func Root(doc []byte) (Value, error) {
	if len(doc) < 2 {
		return Value{}, errorf("document too short: %d bytes", len(doc))
	}
	tailPos := uint32(len(doc) - 2)
	pos, isPointer, err := derefOnce(doc, tailPos, fleece.Narrow)
	if err != nil {
		return Value{}, err
	}
	if !isPointer {
		return Value{doc: doc, pos: tailPos}, nil
	}
	return resolveSlot(doc, pos, fleece.Wide)
}

// derefOnce inspects the width-byte slot at pos: if it is a pointer,
// it decodes the relative back-offset (half the true distance,
// measured from the start of the slot itself) and returns the
// position it names along with isPointer=true; otherwise it returns
// pos unchanged with isPointer=false, since the slot already holds an
// inline tagged value.
func derefOnce(doc []byte, pos uint32, width fleece.Width) (target uint32, isPointer bool, err error) {
	if uint64(pos)+uint64(width) > uint64(len(doc)) {
		return 0, false, errorf("slot at %d exceeds document length %d", pos, len(doc))
	}
	if doc[pos]&pointerBit == 0 {
		return pos, false, nil
	}
	var half uint64
	if width == fleece.Wide {
		half = uint64(doc[pos]&0x7F)<<24 | uint64(doc[pos+1])<<16 | uint64(doc[pos+2])<<8 | uint64(doc[pos+3])
	} else {
		half = uint64(doc[pos]&0x7F)<<8 | uint64(doc[pos+1])
	}
	dist := half * 2
	if dist == 0 || dist > uint64(pos) {
		return 0, false, errorf("pointer at %d has invalid distance %d", pos, dist)
	}
	return uint32(uint64(pos) - dist), true, nil
}

// resolveSlot follows pointer chains from pos at a fixed width until
// it lands on an inline value. Outside of Root's first hop, the
// encoder never produces a pointer targeting another pointer, so a
// single fixed width is correct for every caller but Root.
func resolveSlot(doc []byte, pos uint32, width fleece.Width) (Value, error) {
	target, isPointer, err := derefOnce(doc, pos, width)
	if err != nil {
		return Value{}, err
	}
	if !isPointer {
		return Value{doc: doc, pos: target}, nil
	}
	return resolveSlot(doc, target, width)
}

// Type returns the tag of the value's first byte.
func (v Value) Type() fleece.Tag {
	return fleece.Tag(v.doc[v.pos] >> 4)
}

// IsNull reports whether v is the null special value.
func (v Value) IsNull() bool {
	return v.Type() == fleece.TagSpecial && v.doc[v.pos]&0x0F == fleece.SpecialNull
}

// AsBool returns v's boolean value. Only special true/false values
// qualify.
func (v Value) AsBool() (bool, error) {
	if v.Type() != fleece.TagSpecial {
		return false, errorf("value at %d is a %v, not a bool", v.pos, v.Type())
	}
	switch v.doc[v.pos] & 0x0F {
	case fleece.SpecialTrue:
		return true, nil
	case fleece.SpecialFalse:
		return false, nil
	default:
		return false, errorf("special value at %d is not a bool", v.pos)
	}
}

func signExtend12(u uint16) int64 {
	i := int64(u)
	if i&0x0800 != 0 {
		i |= ^int64(0x0FFF)
	}
	return i
}

// AsInt64 returns v's value as a signed integer. It accepts ShortInt
// and out-of-line Int; a Float that happens to round-trip through an
// integer reads back as one here too, since WriteFloat/WriteDouble
// normalize such values into Int at encode time.
func (v Value) AsInt64() (int64, error) {
	switch v.Type() {
	case fleece.TagShortInt:
		u := uint16(v.doc[v.pos]&0x0F)<<8 | uint16(v.doc[v.pos+1])
		return signExtend12(u), nil
	case fleece.TagInt:
		b0 := v.doc[v.pos]
		length := int(b0&0x07) + 1
		unsigned := b0&0x08 != 0
		if int(v.pos)+1+length > len(v.doc) {
			return 0, errorf("int body at %d exceeds document", v.pos)
		}
		var u uint64
		for i := length - 1; i >= 0; i-- {
			u = u<<8 | uint64(v.doc[int(v.pos)+1+i])
		}
		if unsigned {
			return int64(u), nil
		}
		if length < 8 && u&(1<<(uint(length)*8-1)) != 0 {
			u |= ^uint64(0) << (uint(length) * 8)
		}
		return int64(u), nil
	default:
		return 0, errorf("value at %d is a %v, not an int", v.pos, v.Type())
	}
}

// AsFloat64 returns v's value as a float. Accepts Float (4- or 8-byte)
// as well as ShortInt/Int, since WriteFloat/WriteDouble store any
// integral float as an Int.
func (v Value) AsFloat64() (float64, error) {
	switch v.Type() {
	case fleece.TagShortInt, fleece.TagInt:
		i, err := v.AsInt64()
		return float64(i), err
	case fleece.TagFloat:
		b0 := v.doc[v.pos]
		if b0&0x08 != 0 {
			if int(v.pos)+10 > len(v.doc) {
				return 0, errorf("double body at %d exceeds document", v.pos)
			}
			bits := binary.LittleEndian.Uint64(v.doc[v.pos+2 : v.pos+10])
			return math.Float64frombits(bits), nil
		}
		if int(v.pos)+6 > len(v.doc) {
			return 0, errorf("float body at %d exceeds document", v.pos)
		}
		bits := binary.LittleEndian.Uint32(v.doc[v.pos+2 : v.pos+6])
		return float64(math.Float32frombits(bits)), nil
	default:
		return 0, errorf("value at %d is a %v, not a float", v.pos, v.Type())
	}
}

// decodeData reads a length-prefixed String/Binary body starting at
// v.pos, valid whether the value sits inline in a slot or out-of-line
// behind a pointer — both look the same from here: a tag+length byte
// followed by payload.
func (v Value) decodeData() ([]byte, error) {
	nibble := int(v.doc[v.pos] & 0x0F)
	p := v.pos + 1
	length := nibble
	if nibble == lengthSentinel {
		l, n := binary.Uvarint(v.doc[p:])
		if n <= 0 {
			return nil, errorf("bad length varint at %d", p)
		}
		length = int(l)
		p += uint32(n)
	}
	if uint64(p)+uint64(length) > uint64(len(v.doc)) {
		return nil, errorf("data body at %d exceeds document", p)
	}
	return v.doc[p : uint32(length)+p], nil
}

// AsString returns v's UTF-8 string contents.
func (v Value) AsString() (string, error) {
	if v.Type() != fleece.TagString {
		return "", errorf("value at %d is a %v, not a string", v.pos, v.Type())
	}
	b, err := v.decodeData()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// AsBytes returns v's opaque binary contents.
func (v Value) AsBytes() ([]byte, error) {
	if v.Type() != fleece.TagBinary {
		return nil, errorf("value at %d is a %v, not binary", v.pos, v.Type())
	}
	return v.decodeData()
}

// containerHeader decodes the (count, wide, childrenStart) triple
// immediately preceding an Array or Dict's child slots.
func containerHeader(v Value) (count int, wide bool, childrenStart uint32, err error) {
	doc := v.doc
	pos := v.pos
	if int(pos)+2 > len(doc) {
		return 0, false, 0, errorf("container header at %d exceeds document", pos)
	}
	b0 := doc[pos]
	wide = b0&0x08 != 0
	inline := int(b0&0x07)<<8 | int(doc[pos+1])
	headerLen := uint32(2)
	count = inline
	if inline == countSentinel {
		l, n := binary.Uvarint(doc[pos+2:])
		if n <= 0 {
			return 0, false, 0, errorf("bad count varint at %d", pos+2)
		}
		count = int(l)
		headerLen = 2 + uint32(n)
		if headerLen%2 != 0 {
			headerLen++
		}
	}
	return count, wide, pos + headerLen, nil
}
