package fleece

// pending is one not-yet-committed slot inside an open container frame:
// either an inline tagged value (already fully formed, up to 4 bytes)
// or a pointer whose target is still an absolute offset awaiting
// conversion to a relative back-offset at commit time.
type pending struct {
	bytes     [4]byte // inline encoding; valid bytes depend on width
	isPointer bool
	abs       uint64 // absolute target offset, valid iff isPointer
	wide      bool   // true if this single item requires wide (>2 byte) storage
}

func inlineValue(tag Tag, hi, lo byte) pending {
	return pending{bytes: [4]byte{byte(tag)<<4 | hi, lo, 0, 0}}
}

func pointerValue(abs uint64) pending {
	return pending{isPointer: true, abs: abs}
}

// frame is an open container accumulator: an array, a dict, or the
// synthetic single-slot top-level frame that every Encoder starts with.
type frame struct {
	tag   Tag
	items []pending
	keys  [][]byte // parallel to items[0], items[2], ... when tag == TagDict and key sorting is enabled
	wide  bool
}

func (f *frame) reset(tag Tag) {
	f.tag = tag
	f.items = f.items[:0]
	f.keys = f.keys[:0]
	f.wide = false
}

func (f *frame) reserve(n int) {
	if cap(f.items) < n {
		grown := make([]pending, len(f.items), n)
		copy(grown, f.items)
		f.items = grown
	}
}

func (f *frame) push(v pending) {
	if v.wide {
		f.wide = true
	}
	f.items = append(f.items, v)
}
