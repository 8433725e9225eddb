// Package format describes the on-buffer layout of arena regions: the header
// that starts every region, the footer that ends it, and the size arithmetic
// that ties the two together. It holds no allocator policy; the arena package
// owns that.
package format

import "unsafe"

// WordSize is the platform pointer width in bytes. Region sizes, offsets and
// payloads are all multiples of it.
const WordSize = int(unsafe.Sizeof(uintptr(0)))

// Region header layout (little-endian, one word = WordSize bytes):
//
//	Offset    Size  Field
//	0         word  Total region size, header and footer included
//	word      4     Magic tag
//	word+4    4     State (0 = free, 1 = allocated)
//	2*word    word  Offset of the previous region in the list
//	3*word    word  Offset of the next region in the list
//	4*word    ...   Payload
//	size-word word  Footer: offset of this region's own header
const (
	SizeOffset  = 0
	TagOffset   = WordSize
	StateOffset = WordSize + 4
	PrevOffset  = 2 * WordSize
	NextOffset  = 3 * WordSize

	// HeaderSize is the number of bytes preceding the payload.
	HeaderSize = 4 * WordSize

	// FooterSize is the trailing self-reference word.
	FooterSize = WordSize

	// Overhead is the bookkeeping cost of every region.
	Overhead = HeaderSize + FooterSize
)

// Magic is the tag every live header carries: 'M' 'e' 'm' 0.
const Magic uint32 = uint32('M')<<24 | uint32('e')<<16 | uint32('m')<<8

// MinBlockSize is the smallest region that can hold a one-byte payload.
// A free remainder below this size is never split off.
const MinBlockSize = (1 + Overhead + WordSize - 1) &^ (WordSize - 1)

// SentinelSize is the footprint of the zero-payload region that closes the
// region list at the end of the managed area.
const SentinelSize = Overhead

// MinArenaSize is the smallest managed area an arena accepts.
const MinArenaSize = 3 * MinBlockSize
