package byteorder

import (
	"encoding/binary"
	"math"
)

// The wire format is little-endian throughout (see internal/protocol).
// Floats travel as their IEEE-754 bit patterns so that a value survives
// a round-trip bit-for-bit.

func PutU16(buf []byte, val uint16) {
	binary.LittleEndian.PutUint16(buf, val)
}

func PutU32(buf []byte, val uint32) {
	binary.LittleEndian.PutUint32(buf, val)
}

func PutF32(buf []byte, val float32) {
	binary.LittleEndian.PutUint32(buf, math.Float32bits(val))
}

func U16(buf []byte) uint16 {
	return binary.LittleEndian.Uint16(buf)
}

func U32(buf []byte) uint32 {
	return binary.LittleEndian.Uint32(buf)
}

func F32(buf []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf))
}
