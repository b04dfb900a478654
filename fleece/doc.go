// Package fleece implements a compact, self-describing binary encoding:
// a stream of scalar, array, and dictionary write calls is buffered and
// committed to an append-only Writer such that any value in the output
// can be located and navigated without a parse pass. Internal references
// are relative back-pointers, not absolute offsets, so the document is
// position-independent once written.
//
// # Encoding model
//
// Every value in the output is either 2 bytes (narrow) or 4 bytes (wide).
// The high nibble of the first byte names a Tag; the remaining bits carry
// either an inline payload or, when the top bit of the first byte is set,
// a relative back-pointer to the value's out-of-line body.
//
// Containers (arrays, dicts) pick their own width independently: a
// container commits narrow unless one of its pointers can't fit in 15
// bits or an inline value needs more than 2 bytes.
//
// # Usage
//
//	w := fleece.NewMemoryWriter()
//	enc := fleece.NewEncoder(w)
//	enc.BeginDict(1)
//	enc.WriteKey([]byte("hello"))
//	enc.WriteInt(42)
//	enc.EndDict()
//	if err := enc.End(); err != nil {
//	    // handle
//	}
//	doc := w.Bytes()
package fleece
