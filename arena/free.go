package arena

import (
	"github.com/joshuapare/bufalloc/internal/format"
)

// Free returns the region behind p to the arena and merges it with free
// neighbours. Free(Nil) does nothing. Freeing a pointer that does not name an
// allocated region is corruption.
func (a *Arena) Free(p Ptr) error {
	if p == Nil {
		return nil
	}
	if err := a.ready(); err != nil {
		return err
	}
	a.stats.FreeCalls++
	off, err := a.lookup(opFree, p)
	if err != nil {
		return err
	}
	size := a.sizeOf(off)
	a.stats.noteFree(size)
	if a.scrub {
		fill(a.payload(off, format.PayloadSize(size)), a.scrubByte)
	}

	merged := a.release(off)
	if _, cerr := a.check(opFree, merged); cerr != nil {
		return a.fatal(cerr)
	}
	a.log.Debug("free", "ptr", p, "size", size, "merged_region", merged, "merged_size", a.sizeOf(merged))
	return nil
}

// release marks the region at off free, absorbing a free predecessor first
// and then a free successor. It returns the offset of the resulting region.
func (a *Arena) release(off int) int {
	if prev := a.prevOf(off); prev != a.sentinel && a.stateOf(prev) == Free {
		a.absorb(prev, off)
		off = prev
		a.stats.MergeLeft++
	}
	if next := a.nextOf(off); next != a.sentinel && a.stateOf(next) == Free {
		a.absorb(off, next)
		a.stats.MergeRight++
	}
	a.stamp(off, Free)
	return off
}

// absorb folds victim, which must directly follow keep, into keep.
func (a *Arena) absorb(keep, victim int) {
	next := a.nextOf(victim)
	a.setNext(keep, next)
	a.setPrev(next, keep)
	a.setSize(keep, a.sizeOf(keep)+a.sizeOf(victim))
	a.scrubTag(victim)
	a.writeFooter(keep)
}

func fill(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}
