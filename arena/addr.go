package arena

import (
	"unsafe"

	"github.com/joshuapare/bufalloc/internal/format"
)

// Every conversion between offsets and machine addresses happens in this
// file. The rest of the package works on offsets into a.mem.

// alignmentOffset returns how many leading bytes of b must be skipped for the
// managed area to start on a word boundary.
func alignmentOffset(b []byte) int {
	if len(b) == 0 {
		return 0
	}
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(b)))
	return int(-addr & uintptr(format.WordSize-1))
}

// Base returns the machine address of the start of the managed area, or 0
// when the arena is not initialised.
func (a *Arena) Base() uintptr {
	if !a.initialized || len(a.mem) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(a.mem)))
}

// Addr returns the machine address p refers to. Nil maps to 0.
func (a *Arena) Addr(p Ptr) uintptr {
	base := a.Base()
	if p == Nil || base == 0 {
		return 0
	}
	return base + uintptr(p)
}
