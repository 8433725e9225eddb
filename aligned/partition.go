package aligned

import (
	"fmt"
	"math/bits"

	"github.com/joshuapare/bufalloc/arena"
)

// Partition describes how a span of memory lines up with an alignment
// boundary. Forward covers the bytes before the first boundary, Middle the
// whole aligned units after it and Bottom the remainder. Forward, Middle and
// Bottom always add up to Total.
type Partition struct {
	Total     int
	Alignment int
	Forward   int
	Middle    int
	Bottom    int

	// Aligned is set when the span starts on a boundary.
	Aligned bool
	// SizeMultiple is set when Total is a whole number of alignment units.
	SizeMultiple bool
}

// Split partitions the size bytes starting at addr around alignment
// boundaries. Spans shorter than one alignment unit are all Forward. An
// alignment of 0 means DefaultAlignment.
//
// Word-at-a-time copy and fill loops use it to handle an unaligned head and
// tail bytewise around an aligned middle.
func Split(addr uintptr, size, alignment int) (Partition, error) {
	if alignment == 0 {
		alignment = DefaultAlignment
	}
	if alignment < 0 || bits.OnesCount(uint(alignment)) != 1 {
		return Partition{}, fmt.Errorf("%w: %d", ErrBadAlignment, alignment)
	}
	if size < 0 {
		return Partition{}, fmt.Errorf("%w: %d", arena.ErrInvalidSize, size)
	}

	mask := alignment - 1
	part := Partition{
		Total:        size,
		Alignment:    alignment,
		Aligned:      int(addr&uintptr(mask)) == 0,
		SizeMultiple: size&mask == 0,
	}
	if size < alignment {
		part.Forward = size
		return part, nil
	}
	if !part.Aligned {
		part.Forward = alignment - int(addr&uintptr(mask))
	}
	rest := size - part.Forward
	part.Bottom = rest & mask
	part.Middle = rest - part.Bottom
	return part, nil
}
