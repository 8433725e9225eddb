package arena

import (
	"strconv"

	"github.com/joshuapare/bufalloc/internal/format"
)

// inspect validates the region at off on its own: bounds, tag, state, size
// and footer.
func (a *Arena) inspect(op string, off int) (format.Header, *CorruptionError) {
	if off < 0 || off%format.WordSize != 0 || off > a.sentinel {
		return format.Header{}, newCorruption(op, off, KindOutOfBounds,
			"header offset outside managed area [0, %d]", a.sentinel)
	}
	h, err := format.DecodeHeader(a.mem, off)
	if err != nil {
		return h, newCorruption(op, off, KindOutOfBounds, "%v", err)
	}
	if !h.TagOK() {
		return h, newCorruption(op, off, KindBadMagic, "tag 0x%08X, want 0x%08X", h.Tag, format.Magic)
	}
	if !h.State.Valid() {
		return h, newCorruption(op, off, KindBadState, "state word %d", uint32(h.State))
	}
	if off == a.sentinel {
		if h.Size != format.SentinelSize || h.State != Allocated {
			return h, newCorruption(op, off, KindBadSize,
				"sentinel rewritten: size %d state %s", h.Size, h.State)
		}
	} else if h.Size < format.MinBlockSize || h.Size%format.WordSize != 0 || h.Size > a.sentinel-off {
		return h, newCorruption(op, off, KindBadSize, "size %d", h.Size)
	}
	foot, err := format.ReadFooter(a.mem, off, h.Size)
	if err != nil {
		return h, newCorruption(op, off, KindFooterMismatch, "%v", err)
	}
	if foot != off {
		return h, newCorruption(op, off, KindFooterMismatch, "footer holds %d", foot)
	}
	return h, nil
}

// check validates the region at off together with its immediate neighbours
// and the links between them.
func (a *Arena) check(op string, off int) (format.Header, *CorruptionError) {
	h, cerr := a.inspect(op, off)
	if cerr != nil {
		return h, cerr
	}
	prev, cerr := a.inspect(op, h.Prev)
	if cerr != nil {
		cerr.Detail = "previous of " + strconv.Itoa(off) + ": " + cerr.Detail
		return h, cerr
	}
	next, cerr := a.inspect(op, h.Next)
	if cerr != nil {
		cerr.Detail = "next of " + strconv.Itoa(off) + ": " + cerr.Detail
		return h, cerr
	}
	if prev.Next != off {
		return h, newCorruption(op, off, KindBadLink, "previous region %d links forward to %d", h.Prev, prev.Next)
	}
	if next.Prev != off {
		return h, newCorruption(op, off, KindBadLink, "next region %d links back to %d", h.Next, next.Prev)
	}

	wantNext := off + h.Size
	if off == a.sentinel {
		wantNext = 0
	}
	if h.Next != wantNext {
		return h, newCorruption(op, off, KindBadLink, "next region at %d, want %d", h.Next, wantNext)
	}
	if off == 0 {
		if h.Prev != a.sentinel {
			return h, newCorruption(op, off, KindBadLink, "first region links back to %d, want sentinel", h.Prev)
		}
	} else if h.Prev+prev.Size != off {
		return h, newCorruption(op, off, KindBadLink, "previous region %d ends at %d", h.Prev, h.Prev+prev.Size)
	}
	return h, nil
}

// walk visits every region from the first to the last, in address order,
// stopping early when fn returns false. Any invalid region is fatal.
func (a *Arena) walk(op string, fn func(off int, h format.Header) bool) error {
	sent, cerr := a.inspect(op, a.sentinel)
	if cerr != nil {
		return a.fatal(cerr)
	}
	limit := a.sentinel/format.MinBlockSize + 1
	off := sent.Next
	for n := 0; off != a.sentinel; n++ {
		if n > limit {
			return a.fatal(newCorruption(op, off, KindBadLink, "region list does not close at the sentinel"))
		}
		h, cerr := a.inspect(op, off)
		if cerr != nil {
			return a.fatal(cerr)
		}
		if !fn(off, h) {
			return nil
		}
		off = h.Next
	}
	return nil
}

// lookup resolves a payload pointer to its header offset, checking the region
// and its neighbours. The region must be allocated.
func (a *Arena) lookup(op string, p Ptr) (int, error) {
	off := int(p) - format.HeaderSize
	if off < 0 || off%format.WordSize != 0 || off >= a.sentinel {
		return 0, a.fatal(newCorruption(op, int(p), KindInvalidPointer, "pointer does not address a region payload"))
	}
	h, cerr := a.check(op, off)
	if cerr != nil {
		if cerr.Offset == off && cerr.Kind == KindBadMagic {
			cerr.Kind = KindInvalidPointer
			cerr.Detail = "no region header behind pointer: " + cerr.Detail
		}
		return 0, a.fatal(cerr)
	}
	if h.Free() {
		kind := KindNotAllocated
		if op == opFree {
			kind = KindDoubleFree
		}
		return 0, a.fatal(newCorruption(op, off, kind, "region is already free"))
	}
	return off, nil
}
