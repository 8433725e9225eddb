package arena

import (
	"github.com/joshuapare/bufalloc/internal/format"
)

// Realloc resizes the allocation behind p to size bytes, keeping the first
// min(old usable, size) bytes. Realloc(Nil, n) is Alloc(n); Realloc(p, 0)
// frees p and returns Nil.
//
// The region is shrunk or grown in place when possible; otherwise the data
// moves to a fresh region. When no region can hold size bytes, ErrNoSpace is
// returned and p stays valid and unchanged.
func (a *Arena) Realloc(p Ptr, size int) (Ptr, []byte, error) {
	if err := a.ready(); err != nil {
		return Nil, nil, err
	}
	if p == Nil {
		return a.Alloc(size)
	}
	if size == 0 {
		return Nil, nil, a.Free(p)
	}
	a.stats.ReallocCalls++
	need, err := requestSize(size)
	if err != nil {
		return Nil, nil, err
	}
	off, err := a.lookup(opRealloc, p)
	if err != nil {
		return Nil, nil, err
	}

	old := a.sizeOf(off)
	switch {
	case need <= old:
		a.shrink(off, need)
	case a.grow(off, need):
	default:
		return a.move(off, size, need)
	}
	if _, cerr := a.check(opRealloc, off); cerr != nil {
		return Nil, nil, a.fatal(cerr)
	}
	a.stats.noteResize(old, a.sizeOf(off))
	a.log.Debug("realloc in place", "ptr", p, "size", size, "region", a.sizeOf(off), "was", old)
	return p, a.payload(off, size), nil
}

// shrink gives the tail of an allocated region back when it can stand alone.
func (a *Arena) shrink(off, need int) {
	if a.sizeOf(off)-need < format.MinBlockSize {
		return
	}
	a.stats.ShrinkInPlace++
	tail := a.split(off, need)
	if next := a.nextOf(tail); next != a.sentinel && a.stateOf(next) == Free {
		a.absorb(tail, next)
		a.stats.MergeRight++
	}
	a.stamp(off, Allocated)
}

// grow extends an allocated region into a free successor. It reports false
// and leaves the arena untouched when the pair is too small.
func (a *Arena) grow(off, need int) bool {
	next := a.nextOf(off)
	if next == a.sentinel || a.stateOf(next) != Free {
		return false
	}
	if a.sizeOf(off)+a.sizeOf(next) < need {
		return false
	}
	a.absorb(off, next)
	if a.sizeOf(off)-need >= format.MinBlockSize {
		a.split(off, need)
	}
	a.stamp(off, Allocated)
	a.stats.GrowInPlace++
	return true
}

// move copies the allocation at off into a fresh region and frees the old one.
func (a *Arena) move(off, size, need int) (Ptr, []byte, error) {
	dst, err := a.allocate(opRealloc, need)
	if err != nil {
		return Nil, nil, err
	}
	old := a.payload(off, format.PayloadSize(a.sizeOf(off)))
	copy(a.payload(dst, size), old)

	a.stats.noteFree(a.sizeOf(off))
	merged := a.release(off)
	if _, cerr := a.check(opRealloc, merged); cerr != nil {
		return Nil, nil, a.fatal(cerr)
	}
	a.stats.Moves++
	a.log.Debug("realloc moved", "from", ptrOf(off), "to", ptrOf(dst), "size", size)
	return ptrOf(dst), a.payload(dst, size), nil
}
