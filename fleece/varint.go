package fleece

import "encoding/binary"

// maxVarintLen64 bounds the number of bytes a uvarint-encoded uint64 can
// need, matching encoding/binary.MaxVarintLen64. Kept as a local name so
// buffer sizing here reads the same as spec.md's kMaxVarintLen64/32.
const maxVarintLen64 = binary.MaxVarintLen64

// putUvarint appends the unsigned varint encoding of v to buf and
// returns the number of bytes written. Fleece's count and string-length
// varints are plain LEB128, which is exactly what encoding/binary
// already implements — no reason to hand-roll it.
func putUvarint(buf []byte, v uint64) int {
	return binary.PutUvarint(buf, v)
}
