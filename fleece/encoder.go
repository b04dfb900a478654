package fleece

import (
	"bytes"
	"math"
	"sort"
)

type encoderState int

const (
	stateIdle encoderState = iota
	stateEncoding
	stateFinalized
)

// Encoder builds one Fleece document by writing values, arrays and
// dictionaries in depth-first order into a Writer. It keeps one open
// frame per nesting level on an internal stack; the bottom-most frame
// is a synthetic single-slot container holding the eventual root value.
//
// An Encoder is single-use: call End (or Reset to start over) once the
// top-level value is complete. No method is safe for concurrent use.
type Encoder struct {
	out  Writer
	opts Options

	stack []frame
	depth int
	items *frame // == &stack[depth-1]

	writingKey   bool
	blockedOnKey bool
	state        encoderState

	strings internTable

	// Counters mirroring the original implementation's debug-build
	// instrumentation; kept unconditionally so callers can inspect how
	// much a document benefited from interning and width minimization.
	NumNarrow       int
	NumWide         int
	NumSavedStrings int
}

// NewEncoder returns an Encoder that writes to w, using DefaultOptions.
func NewEncoder(w Writer) *Encoder {
	return NewEncoderWithOptions(w, DefaultOptions())
}

// NewEncoderWithOptions returns an Encoder configured with opts.
func NewEncoderWithOptions(w Writer, opts Options) *Encoder {
	e := &Encoder{out: w, opts: opts, strings: newInternTable()}
	e.push(TagSpecial, 1)
	return e
}

// Reset discards all in-progress state and rebinds the Encoder to w,
// ready to write a fresh document. Unlike the C++ original, which
// resets a Writer held by reference, this takes the new Writer
// explicitly: Go's Writer is an interface value, not an aliasable
// reference, so there is nothing to reset in place.
func (e *Encoder) Reset(w Writer) {
	e.out = w
	e.depth = 0
	e.stack = e.stack[:0]
	e.strings.clear()
	e.writingKey = false
	e.blockedOnKey = false
	e.NumNarrow, e.NumWide, e.NumSavedStrings = 0, 0, 0
	e.push(TagSpecial, 1)
	e.state = stateIdle
}

func (e *Encoder) checkWritable() error {
	if e.state == stateFinalized {
		return misuseError("encoder already finalized")
	}
	return nil
}

func (e *Encoder) push(tag Tag, reserve int) {
	if e.depth >= len(e.stack) {
		e.stack = append(e.stack, frame{})
	}
	f := &e.stack[e.depth]
	e.depth++
	f.reset(tag)
	if reserve > 0 {
		f.reserve(reserve)
	}
	e.items = f
}

// addItem appends v to the current frame, applying the key/value
// turn-taking rule for dictionaries: every other item added to a dict
// frame is expected to be a key, and attempting to add a plain value
// while a key is due is rejected.
func (e *Encoder) addItem(v pending) error {
	if e.blockedOnKey {
		return misuseError("need a key before this value")
	}
	if e.writingKey {
		e.writingKey = false
	} else if e.items.tag == TagDict {
		e.blockedOnKey = true
		e.writingKey = true
	}
	e.items.push(v)
	e.state = stateEncoding
	return nil
}

func (e *Encoder) append(b []byte) (int, error) {
	pos, err := e.out.Append(b)
	if err != nil {
		return 0, resourceError("writer append failed", err)
	}
	return pos, nil
}

// nextWritePos pads the stream with a single zero byte if its current
// length is odd, then returns the (now even) position the next
// out-of-line write will land at. Every pointer target is therefore
// guaranteed even, which is what lets pointer magnitudes be packed as
// half the true byte distance.
func (e *Encoder) nextWritePos() (int, error) {
	pos := e.out.Length()
	if pos&1 != 0 {
		if _, err := e.append([]byte{0}); err != nil {
			return 0, err
		}
		pos++
	}
	return pos, nil
}

// writeValue finishes packing a tagged value: body[0] already holds
// the value's low-nibble payload and gets the tag OR'd into its high
// nibble here. If canInline is set and the whole body fits in a wide
// (4-byte) slot, it is added directly as an inline item; otherwise it
// is written out-of-line and a pointer to it is added instead.
func (e *Encoder) writeValue(tag Tag, body []byte, canInline bool) error {
	body[0] |= byte(tag) << 4
	if canInline && len(body) <= int(Wide) {
		var buf [4]byte
		copy(buf[:], body)
		p := pending{bytes: buf}
		if len(body) > int(Narrow) {
			p.wide = true
		}
		return e.addItem(p)
	}
	pos, err := e.nextWritePos()
	if err != nil {
		return err
	}
	if err := e.addItem(pointerValue(uint64(pos))); err != nil {
		return err
	}
	_, err = e.append(body)
	return err
}

// encodePointerRelative packs dist — the byte distance from the start
// of a pointer's own slot back to its target — into pointer form.
// dist is always even (every out-of-line write lands at an even
// offset), so only dist/2 needs to fit in the available bits: 15 for
// narrow, 31 for wide.
func encodePointerRelative(dist uint64, wide bool) pending {
	half := dist / 2
	if wide {
		return pending{wide: true, bytes: [4]byte{
			pointerFlag | byte((half>>24)&0x7F),
			byte(half >> 16),
			byte(half >> 8),
			byte(half),
		}}
	}
	return pending{bytes: [4]byte{
		pointerFlag | byte((half>>8)&0x7F),
		byte(half),
		0, 0,
	}}
}

// checkPointerWidths decides whether items must commit wide: base is
// the absolute position item 0 will occupy once written, and each
// subsequent item advances base by the frame's current (narrow)
// slot width. The first pointer whose distance would need 16 or more
// halved bits forces the whole frame wide.
func (e *Encoder) checkPointerWidths(f *frame, base uint64) {
	if f.wide {
		return
	}
	b := base
	for _, it := range f.items {
		if it.isPointer && b-it.abs >= maxNarrowPointerDistance {
			f.wide = true
			return
		}
		b += uint64(Narrow)
	}
}

// fixPointers converts every pointer item's absolute target into a
// relative back-offset, now that the frame's final width is settled.
func (e *Encoder) fixPointers(f *frame, base uint64) {
	width := uint64(Narrow)
	if f.wide {
		width = uint64(Wide)
	}
	b := base
	for i := range f.items {
		if f.items[i].isPointer {
			f.items[i] = encodePointerRelative(b-f.items[i].abs, f.wide)
		}
		b += width
	}
}

func (e *Encoder) writeChildren(f *frame) error {
	width := int(Narrow)
	if f.wide {
		width = int(Wide)
	}
	buf := make([]byte, width*len(f.items))
	for i, it := range f.items {
		copy(buf[i*width:], it.bytes[:width])
	}
	_, err := e.append(buf)
	return err
}

// --- scalar writers -------------------------------------------------

// WriteNull writes the null value.
func (e *Encoder) WriteNull() error {
	if err := e.checkWritable(); err != nil {
		return err
	}
	return e.addItem(inlineValue(TagSpecial, SpecialNull, 0))
}

// WriteBool writes a boolean value.
func (e *Encoder) WriteBool(b bool) error {
	if err := e.checkWritable(); err != nil {
		return err
	}
	v := byte(SpecialFalse)
	if b {
		v = SpecialTrue
	}
	return e.addItem(inlineValue(TagSpecial, v, 0))
}

// minIntLen returns the fewest little-endian bytes (1-8) needed to
// hold u, written into buf, as a signed two's-complement integer
// (unsigned=false) or a plain magnitude (unsigned=true).
func minIntLen(buf []byte, u uint64, unsigned bool) int {
	length := 1
	if unsigned {
		for length < 8 && u>>(uint(length)*8) != 0 {
			length++
		}
	} else {
		i := int64(u)
		for length < 8 {
			bits := uint(length) * 8
			lo := -(int64(1) << (bits - 1))
			hi := int64(1) << (bits - 1)
			if i >= lo && i < hi {
				break
			}
			length++
		}
	}
	for n := 0; n < length; n++ {
		buf[n] = byte(u >> uint(n*8))
	}
	return length
}

func (e *Encoder) writeIntValue(u uint64, small, unsigned bool) error {
	if small {
		hi := byte((u >> 8) & 0x0F)
		lo := byte(u & 0xFF)
		return e.addItem(inlineValue(TagShortInt, hi, lo))
	}
	var body [10]byte
	length := minIntLen(body[1:], u, unsigned)
	body[0] = byte(length - 1)
	if unsigned {
		body[0] |= 0x08
	}
	size := 1 + length
	if size&1 != 0 {
		size++
	}
	// Int values always commit out-of-line: original_source/Fleece's
	// writeValue default does not inline them, and spec.md §3.1 states
	// Int is "pointed to by a back-pointer" unconditionally.
	return e.writeValue(TagInt, body[:size], false)
}

// WriteInt writes a signed integer. Values in [-2048, 2048) pack
// entirely inline as ShortInt; everything else is written out-of-line
// as a minimal-width two's-complement integer.
func (e *Encoder) WriteInt(i int64) error {
	if err := e.checkWritable(); err != nil {
		return err
	}
	small := i >= -2048 && i < 2048
	return e.writeIntValue(uint64(i), small, false)
}

// WriteUInt writes an unsigned integer, using the same ShortInt fast
// path and minimal out-of-line encoding as WriteInt.
func (e *Encoder) WriteUInt(u uint64) error {
	if err := e.checkWritable(); err != nil {
		return err
	}
	small := u < 2048
	return e.writeIntValue(u, small, true)
}

// WriteFloat writes a 32-bit float. A value with no fractional part
// that round-trips through int32 is written as an Int instead, which
// is almost always smaller.
func (e *Encoder) WriteFloat(f float32) error {
	if err := e.checkWritable(); err != nil {
		return err
	}
	if math.IsNaN(float64(f)) {
		return valueDomainError("can't write NaN")
	}
	if i := int32(f); float32(i) == f {
		return e.WriteInt(int64(i))
	}
	var body [6]byte
	body[0] = 0x00 // 4-byte float size flag
	putFloat32(body[2:], f)
	return e.writeValue(TagFloat, body[:], false)
}

// WriteDouble writes a 64-bit float. A value with no fractional part
// that round-trips through int32 is written as an Int instead.
func (e *Encoder) WriteDouble(d float64) error {
	if err := e.checkWritable(); err != nil {
		return err
	}
	if math.IsNaN(d) {
		return valueDomainError("can't write NaN")
	}
	if i := int32(d); float64(i) == d {
		return e.WriteInt(int64(i))
	}
	var body [10]byte
	body[0] = 0x08 // 8-byte double size flag
	putFloat64(body[2:], d)
	return e.writeValue(TagFloat, body[:], false)
}

// writeData packs tagged bytes: a 0- or 1-byte body inlines directly;
// anything longer is written out-of-line behind a length header
// (inline for lengths < 15, else 0x0F followed by a length varint).
func (e *Encoder) writeData(tag Tag, s []byte) (uint64, error) {
	if len(s) <= kInlineDataMax {
		var body [2]byte
		body[0] = byte(len(s))
		n := 1
		if len(s) == 1 {
			body[1] = s[0]
			n = 2
		}
		return 0, e.writeValue(tag, body[:n], true)
	}

	header := make([]byte, 1+maxVarintLen64+len(s))
	header[0] = byte(min(len(s), 0x0F))
	n := 1
	if len(s) >= 0x0F {
		n += putUvarint(header[1:], uint64(len(s)))
	}
	copy(header[n:], s)
	body := header[:n+len(s)]

	pos, err := e.nextWritePos()
	if err != nil {
		return 0, err
	}
	if err := e.addItem(pointerValue(uint64(pos))); err != nil {
		return 0, err
	}
	body[0] |= byte(tag) << 4
	if _, err := e.append(body); err != nil {
		return 0, err
	}
	return uint64(pos), nil
}

func (e *Encoder) writeInternedString(s []byte, asKey bool) error {
	if entry, ok := e.strings.find(s); ok {
		if asKey {
			e.strings.markUsedAsKey(s)
		}
		e.NumSavedStrings++
		return e.addItem(pointerValue(entry.offset))
	}
	offset, err := e.writeData(TagString, s)
	if err != nil {
		return err
	}
	e.strings.add(s, internEntry{offset: offset, usedAsKey: asKey})
	return nil
}

func (e *Encoder) internable(s []byte) bool {
	return e.opts.UniqueStrings && len(s) >= kMinSharedStringSize && len(s) <= kMaxSharedStringSize
}

// WriteString writes a UTF-8 string value, deduplicating it against
// any previously-written string of the same bytes when interning is
// enabled and its length falls in the interning range.
func (e *Encoder) WriteString(s []byte) error {
	if err := e.checkWritable(); err != nil {
		return err
	}
	if e.internable(s) {
		return e.writeInternedString(s, false)
	}
	_, err := e.writeData(TagString, s)
	return err
}

// WriteData writes an opaque binary blob. Binary values are never
// interned, regardless of length.
func (e *Encoder) WriteData(b []byte) error {
	if err := e.checkWritable(); err != nil {
		return err
	}
	_, err := e.writeData(TagBinary, b)
	return err
}

// --- collections -----------------------------------------------------

// BeginArray opens a new array frame. reserve is a hint for how many
// elements will be added, used only to presize the internal buffer.
func (e *Encoder) BeginArray(reserve int) error {
	if err := e.checkWritable(); err != nil {
		return err
	}
	if e.blockedOnKey {
		return misuseError("need a key before this value")
	}
	e.push(TagArray, reserve)
	e.state = stateEncoding
	return nil
}

// EndArray closes the innermost array frame and commits it as a value
// in its parent frame.
func (e *Encoder) EndArray() error {
	if err := e.checkWritable(); err != nil {
		return err
	}
	return e.endCollection(TagArray)
}

// BeginDict opens a new dictionary frame. reserve is a hint for how
// many key/value pairs will be added.
func (e *Encoder) BeginDict(reserve int) error {
	if err := e.checkWritable(); err != nil {
		return err
	}
	if e.blockedOnKey {
		return misuseError("need a key before this value")
	}
	e.push(TagDict, 2*reserve)
	e.writingKey = true
	e.blockedOnKey = true
	e.state = stateEncoding
	return nil
}

// WriteKey writes a dictionary key. It must be called exactly once
// before each value inside a dict, and is rejected anywhere else.
func (e *Encoder) WriteKey(key []byte) error {
	if err := e.checkWritable(); err != nil {
		return err
	}
	if !e.blockedOnKey {
		if e.items.tag == TagDict {
			return misuseError("need a value after a key")
		}
		return misuseError("not writing a dictionary")
	}
	e.blockedOnKey = false

	var err error
	if e.internable(key) {
		err = e.writeInternedString(key, true)
	} else {
		_, err = e.writeData(TagString, key)
	}
	if err != nil {
		return err
	}
	if e.opts.SortKeys {
		e.items.keys = append(e.items.keys, append([]byte(nil), key...))
	}
	return nil
}

// EndDict closes the innermost dictionary frame and commits it as a
// value in its parent frame. It is rejected if the last key written
// has no matching value yet.
func (e *Encoder) EndDict() error {
	if err := e.checkWritable(); err != nil {
		return err
	}
	if !e.writingKey {
		return misuseError("need a value")
	}
	return e.endCollection(TagDict)
}

func containerHeaderLen(count int) int {
	if count < countVarintThreshold {
		return 2
	}
	n := 2
	v := uint64(count)
	for {
		n++
		v >>= 7
		if v == 0 {
			break
		}
	}
	if n&1 != 0 {
		n++
	}
	return n
}

func buildContainerHeader(count int, wide bool, headerLen int) []byte {
	buf := make([]byte, headerLen)
	inlineCount := count
	if inlineCount > maxInlineCount {
		inlineCount = maxInlineCount
	}
	buf[0] = byte(inlineCount >> 8)
	buf[1] = byte(inlineCount & 0xFF)
	if count >= countVarintThreshold {
		putUvarint(buf[2:], uint64(count))
	}
	if wide {
		buf[0] |= 0x08
	}
	return buf
}

// sortDict reorders a dict frame's flat key/value pending pairs into
// lexicographic order by key bytes. Equal keys keep their relative
// write order (spec.md §5, scenario 3: "sorting is stable").
func sortDict(f *frame) {
	n := len(f.keys)
	if n < 2 {
		return
	}
	type pair struct {
		key  []byte
		k, v pending
	}
	pairs := make([]pair, n)
	for i := 0; i < n; i++ {
		pairs[i] = pair{key: f.keys[i], k: f.items[2*i], v: f.items[2*i+1]}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return bytes.Compare(pairs[i].key, pairs[j].key) < 0
	})
	for i, p := range pairs {
		f.items[2*i] = p.k
		f.items[2*i+1] = p.v
		f.keys[i] = p.key
	}
}

func (e *Encoder) endCollection(tag Tag) error {
	if e.items.tag != tag {
		return misuseError("ending wrong type of collection")
	}

	items := &e.stack[e.depth-1]
	e.depth--
	e.items = &e.stack[e.depth-1]
	e.writingKey = false
	e.blockedOnKey = false

	if e.opts.SortKeys && tag == TagDict {
		sortDict(items)
	}

	count := len(items.items)
	if tag == TagDict {
		count /= 2
	}

	headerLen := containerHeaderLen(count)
	var base uint64
	if count > 0 {
		startPos, err := e.nextWritePos()
		if err != nil {
			return err
		}
		base = uint64(startPos) + uint64(headerLen)
		e.checkPointerWidths(items, base)
	}

	if items.wide {
		e.NumWide++
	} else {
		e.NumNarrow++
	}

	header := buildContainerHeader(count, items.wide, headerLen)
	if err := e.writeValue(tag, header, count == 0); err != nil {
		return err
	}

	if count > 0 {
		e.fixPointers(items, base)
		if err := e.writeChildren(items); err != nil {
			return err
		}
	}
	return nil
}

// End finalizes the document: the stack must be back down to the
// synthetic root frame holding at most one value. If that value needs
// wide (4-byte) storage it is written directly followed by a 2-byte
// pointer back to it, so the last two bytes of the stream always
// resolve the root regardless of its own width.
func (e *Encoder) End() error {
	if e.state == stateFinalized {
		return nil
	}
	if e.depth == 0 {
		e.state = stateFinalized
		return nil
	}
	if e.depth > 1 {
		return misuseError("unclosed array/dict")
	}
	root := &e.stack[0]
	if len(root.items) > 1 {
		return misuseError("top level must have only one value")
	}
	if len(root.items) == 1 {
		// Out-of-line String/Binary bodies are not self-padded to even
		// length the way int/float bodies are (writeData has no
		// trailing size&1 pad), so the stream can be at an odd offset
		// here. Pad through nextWritePos before computing tailBase, or
		// an odd-length top-level string leaves the tail pointer's
		// dist/2 halving lossy and pointing mid-body.
		pos, err := e.nextWritePos()
		if err != nil {
			return err
		}
		tailBase := uint64(pos)
		// Unlike the traced original, which fixes up the root's single
		// pointer without first checking whether it still fits narrow,
		// this also runs checkPointerWidths here: the root's item is
		// committed last of all, but for a top-level container with a
		// large child array the distance back to its own header can
		// still exceed the narrow range, and silently truncating it
		// would violate the pointer back-direction invariant.
		e.checkPointerWidths(root, tailBase)
		e.fixPointers(root, tailBase)
		item := root.items[0]
		if root.wide {
			if _, err := e.append(item.bytes[:Wide]); err != nil {
				return err
			}
			trailer := encodePointerRelative(uint64(Wide), false)
			if _, err := e.append(trailer.bytes[:Narrow]); err != nil {
				return err
			}
		} else {
			if _, err := e.append(item.bytes[:Narrow]); err != nil {
				return err
			}
		}
		root.items = root.items[:0]
	}
	e.depth = 0
	e.state = stateFinalized
	return nil
}
