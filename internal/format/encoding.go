package format

import "encoding/binary"

// Binary encoding utilities for region bookkeeping words.
//
// Words are stored little-endian at the platform pointer width, so a 32-bit
// target spends four bytes per link and a 64-bit target spends eight.

// PutU32 writes a uint32 value to the buffer at the specified offset in little-endian format.
func PutU32(b []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(b[off:off+4], v)
}

// ReadU32 reads a uint32 value from the buffer at the specified offset in little-endian format.
func ReadU32(b []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(b[off : off+4])
}

// PutWord writes a word-sized value at off.
func PutWord(b []byte, off int, v uint64) {
	if WordSize == 8 {
		binary.LittleEndian.PutUint64(b[off:off+8], v)
		return
	}
	binary.LittleEndian.PutUint32(b[off:off+4], uint32(v))
}

// ReadWord reads a word-sized value at off.
func ReadWord(b []byte, off int) uint64 {
	if WordSize == 8 {
		return binary.LittleEndian.Uint64(b[off : off+8])
	}
	return uint64(binary.LittleEndian.Uint32(b[off : off+4]))
}
