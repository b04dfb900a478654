package fleece

import "fmt"

// Tag names the kind of a Fleece value. It occupies the high nibble of a
// value's first byte; the top bit of that nibble (0x8, i.e. 0x80 of the
// byte) is reserved to mark the value as a pointer instead, so only the
// low three bits of Tag (0-7) are ever used.
//
// These numeric assignments are pinned: every encoded document and every
// reader built against this package must agree on them.
type Tag uint8

const (
	TagShortInt Tag = iota // 12-bit signed int, packed entirely inline
	TagInt                 // out-of-line variable-length integer
	TagFloat               // out-of-line 4- or 8-byte IEEE-754 float
	TagString              // out-of-line (or tiny-inline) UTF-8 bytes
	TagBinary              // out-of-line (or tiny-inline) opaque bytes
	TagArray               // count + contiguous child values
	TagDict                // count + alternating key/value children
	TagSpecial             // null, true, false; also used for the synthetic root frame
)

func (t Tag) String() string {
	switch t {
	case TagShortInt:
		return "shortint"
	case TagInt:
		return "int"
	case TagFloat:
		return "float"
	case TagString:
		return "string"
	case TagBinary:
		return "binary"
	case TagArray:
		return "array"
	case TagDict:
		return "dict"
	case TagSpecial:
		return "special"
	default:
		return fmt.Sprintf("tag(%d)", uint8(t))
	}
}

// Special-value payloads carried in the low nibble of a TagSpecial value.
const (
	SpecialNull  = 0
	SpecialFalse = 1
	SpecialTrue  = 2
)

// pointerFlag is the bit of a value's first byte that marks it as a
// back-pointer rather than an inline tagged value.
const pointerFlag = 0x80

// Width is the byte size of a single Fleece value slot within a
// container: narrow (2 bytes) or wide (4 bytes).
type Width int

const (
	Narrow Width = 2
	Wide   Width = 4
)

// kMinSharedStringSize/kMaxSharedStringSize bound the string lengths
// eligible for interning (spec §3.3): below the lower bound interning
// costs more than it saves, the upper bound is a tunable tradeoff.
const (
	kMinSharedStringSize = 2
	kMaxSharedStringSize = 15
)

// kInlineDataMax is the largest String/Binary body that packs directly
// into a value's payload bytes instead of being written out-of-line.
// Resolved against original_source/Fleece/Encoder.cc's writeData, which
// inlines only when size < kNarrow (i.e. 0 or 1 byte) regardless of the
// enclosing frame's width.
const kInlineDataMax = int(Narrow) - 1

// maxNarrowPointerDistance is the promotion threshold used to decide
// whether a container's pointers still fit narrow. Pointer magnitudes
// are stored as half the true byte distance (every out-of-line write
// lands at an even offset, so the low bit is always zero and free to
// drop), so 15 stored bits cover true distances up to 2*(2^15-1) =
// 65534; the next reachable (even) distance is 65536, which is exactly
// this threshold.
const maxNarrowPointerDistance = 0x10000

// maxInlineCount is the largest value the 11 payload bits of a container
// header's first two bytes can hold. It is reserved as a sentinel (see
// countVarintThreshold): a count of 0x7FF or more is written as 0x7FF
// followed by a varint.
const maxInlineCount = 0x07FF

// countVarintThreshold is the count at which a trailing varint true-count
// must be emitted, and it must equal maxInlineCount itself rather than
// maxInlineCount+1. maxInlineCount is a reserved sentinel, the same way
// an all-ones prefix works in HPACK integer encoding: an inline field
// holding exactly maxInlineCount unambiguously means "true count follows
// as a varint", so every count in [maxInlineCount, ...) goes through the
// varint path, and reading back an inline field strictly less than
// maxInlineCount always means that value is the whole count, no further
// bytes. (The narrative walkthrough in spec.md §4.1 names a distinct,
// larger threshold for this same check, echoing a gap present in the
// original encoder's own source; §6.1's bit-exact wire-format contract
// ties the varint directly to the 0x7FF inline cap. Using maxInlineCount
// itself, rather than maxInlineCount+1, is what makes that contract
// unambiguous to decode: with the +1 variant, a count of exactly
// maxInlineCount would encode identically to one that actually needed
// the trailing varint, and a reader would have no way to tell them
// apart.)
const countVarintThreshold = maxInlineCount
