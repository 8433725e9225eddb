package arena

import (
	"fmt"

	"github.com/joshuapare/bufalloc/internal/format"
)

// Alloc returns a region with at least size usable bytes. The slice has
// length size and capacity equal to the region's usable payload.
func (a *Arena) Alloc(size int) (Ptr, []byte, error) {
	if err := a.ready(); err != nil {
		return Nil, nil, err
	}
	a.stats.AllocCalls++
	need, err := requestSize(size)
	if err != nil {
		return Nil, nil, err
	}
	off, err := a.allocate(opAlloc, need)
	if err != nil {
		return Nil, nil, err
	}
	a.log.Debug("alloc", "size", size, "ptr", ptrOf(off), "region", a.sizeOf(off))
	return ptrOf(off), a.payload(off, size), nil
}

// requestSize converts a payload request into a region size.
func requestSize(size int) (int, error) {
	if size <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	need, ok := format.TotalSize(size)
	if !ok {
		return 0, fmt.Errorf("%w: %d overflows when padded", ErrInvalidSize, size)
	}
	return need, nil
}

// allocate finds, claims and re-checks a region of at least need bytes.
func (a *Arena) allocate(op string, need int) (int, error) {
	off, err := a.find(op, need)
	if err != nil {
		return 0, err
	}
	if off < 0 {
		a.stats.Failures++
		return 0, fmt.Errorf("%w: need %d bytes", ErrNoSpace, need)
	}
	a.claim(off, need)
	if _, cerr := a.check(op, off); cerr != nil {
		return 0, a.fatal(cerr)
	}
	a.stats.noteAlloc(a.sizeOf(off))
	return off, nil
}

// find returns the first free region of exactly need bytes, or failing that
// the first free region larger than need, or -1.
func (a *Arena) find(op string, need int) (int, error) {
	exact, larger := -1, -1
	err := a.walk(op, func(off int, h format.Header) bool {
		if !h.Free() {
			return true
		}
		if h.Size == need {
			exact = off
			return false
		}
		if h.Size > need && larger < 0 {
			larger = off
		}
		return true
	})
	if err != nil {
		return 0, err
	}
	if exact >= 0 {
		a.stats.ExactFits++
		return exact, nil
	}
	if larger >= 0 {
		a.stats.FirstFits++
	}
	return larger, nil
}

// claim marks the free region at off allocated, first splitting off the tail
// when it could hold a region of its own.
func (a *Arena) claim(off, need int) {
	if a.sizeOf(off)-need >= format.MinBlockSize {
		a.split(off, need)
	}
	a.stamp(off, Allocated)
}

// split shrinks the region at off to size bytes and links a free region over
// the remainder right after it. It returns the new region's offset.
func (a *Arena) split(off, size int) int {
	total := a.sizeOf(off)
	next := a.nextOf(off)
	tail := off + size

	a.writeRegion(tail, format.Header{
		Size:  total - size,
		State: Free,
		Prev:  off,
		Next:  next,
	})
	a.setPrev(next, tail)
	a.setNext(off, tail)
	a.setSize(off, size)
	a.writeFooter(off)

	a.stats.Splits++
	a.log.Debug("split", "region", off, "size", size, "remainder", total-size)
	return tail
}
