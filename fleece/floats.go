package fleece

import (
	"encoding/binary"
	"math"
)

// putFloat32 writes f's IEEE-754 bit pattern to buf in little-endian
// byte order, matching the byte order used for out-of-line integers.
func putFloat32(buf []byte, f float32) {
	binary.LittleEndian.PutUint32(buf, math.Float32bits(f))
}

// putFloat64 writes d's IEEE-754 bit pattern to buf in little-endian
// byte order.
func putFloat64(buf []byte, d float64) {
	binary.LittleEndian.PutUint64(buf, math.Float64bits(d))
}
