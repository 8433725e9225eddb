package arena

import (
	"fmt"
	"io"

	"github.com/joshuapare/bufalloc/internal/buf"
	"github.com/joshuapare/bufalloc/internal/format"
)

// RegionInfo describes one region of the list.
type RegionInfo struct {
	Offset int   // header offset
	Ptr    Ptr   // payload offset
	Size   int   // total size, header and footer included
	Usable int   // payload bytes
	State  State // Free or Allocated
}

// TotalBytes is the usable capacity of the arena: every byte regions can
// occupy, bookkeeping included. It equals FreeBytes when nothing is allocated.
func (a *Arena) TotalBytes() int {
	if !a.initialized {
		return 0
	}
	return a.sentinel
}

// FreeBytes sums the sizes of all free regions. It returns 0 when the list
// cannot be walked.
func (a *Arena) FreeBytes() int {
	if a.ready() != nil {
		return 0
	}
	total := 0
	err := a.walk(opWalk, func(_ int, h format.Header) bool {
		if h.Free() {
			total += h.Size
		}
		return true
	})
	if err != nil {
		return 0
	}
	return total
}

// Regions returns every region in address order, sentinel excluded.
func (a *Arena) Regions() ([]RegionInfo, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	var out []RegionInfo
	err := a.walk(opWalk, func(off int, h format.Header) bool {
		out = append(out, RegionInfo{
			Offset: off,
			Ptr:    ptrOf(off),
			Size:   h.Size,
			Usable: format.PayloadSize(h.Size),
			State:  h.State,
		})
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Usable returns the payload capacity of the allocation behind p.
func (a *Arena) Usable(p Ptr) (int, error) {
	if err := a.ready(); err != nil {
		return 0, err
	}
	off, err := a.lookup(opAccess, p)
	if err != nil {
		return 0, err
	}
	return format.PayloadSize(a.sizeOf(off)), nil
}

// Owns reports whether p is the payload pointer of an allocated region whose
// header, neighbours and links all check out. Unlike the other accessors it
// never raises corruption, so wrappers can vet pointers they did not produce.
func (a *Arena) Owns(p Ptr) bool {
	if a.ready() != nil {
		return false
	}
	off := int(p) - format.HeaderSize
	if off < 0 || off%format.WordSize != 0 || off >= a.sentinel {
		return false
	}
	h, cerr := a.check(opAccess, off)
	return cerr == nil && !h.Free()
}

// Bytes returns the whole usable payload of the allocation behind p.
func (a *Arena) Bytes(p Ptr) ([]byte, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	off, err := a.lookup(opAccess, p)
	if err != nil {
		return nil, err
	}
	return a.payload(off, format.PayloadSize(a.sizeOf(off))), nil
}

// Window returns n bytes of the managed area starting at p without checking
// that p names a region. Wrappers that hand out interior pointers use it.
func (a *Arena) Window(p Ptr, n int) ([]byte, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	w, ok := buf.Slice(a.mem, int(p), n)
	if !ok {
		return nil, fmt.Errorf("%w: [%d, %d+%d)", ErrOutOfRange, p, p, n)
	}
	return w, nil
}

// Image returns a copy of the managed area, sentinel included. Offsets in
// the image match the Ptr and RegionInfo offsets of this arena.
func (a *Arena) Image() ([]byte, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	return append([]byte(nil), a.mem...), nil
}

// Dump writes a human-readable listing of the region list to w, walking it
// forward and then backward. It tolerates corruption and reports what it
// finds instead of stopping the arena.
func (a *Arena) Dump(w io.Writer) error {
	d := &dumper{w: w}
	if !a.initialized {
		d.printf("arena: not initialized\n")
		return d.err
	}
	d.printf("arena base=0x%X align_offset=%d capacity=%d sentinel=0x%X\n",
		a.Base(), a.alignOff, a.sentinel, a.sentinel)
	if a.poisoned != nil {
		d.printf("poisoned: %v\n", a.poisoned)
	}

	d.printf("forward:\n")
	free, live := a.dumpList(d, func(h format.Header) int { return h.Next })
	d.printf("backward:\n")
	a.dumpList(d, func(h format.Header) int { return h.Prev })
	d.printf("free=%d allocated=%d total=%d\n", free, live, a.sentinel)
	return d.err
}

// dumpList prints the regions reachable from the sentinel by following step
// and returns the free and allocated byte totals it saw.
func (a *Arena) dumpList(d *dumper, step func(format.Header) int) (free, live int) {
	sent, err := format.DecodeHeader(a.mem, a.sentinel)
	if err != nil {
		d.printf("  sentinel unreadable: %v\n", err)
		return 0, 0
	}
	limit := a.sentinel/format.MinBlockSize + 1
	off := step(sent)
	for n := 0; off != a.sentinel; n++ {
		if n > limit {
			d.printf("  list does not close at the sentinel\n")
			return free, live
		}
		if off < 0 || off > a.sentinel {
			d.printf("  %04d: off=0x%06X outside managed area\n", n, off)
			return free, live
		}
		h, err := format.DecodeHeader(a.mem, off)
		if err != nil {
			d.printf("  %04d: off=0x%06X unreadable: %v\n", n, off, err)
			return free, live
		}
		footer := "NG"
		if h.Size > 0 && h.Size <= a.sentinel-off {
			if f, err := format.ReadFooter(a.mem, off, h.Size); err == nil && f == off {
				footer = "OK"
			}
		}
		magic := "NG"
		if h.TagOK() {
			magic = "OK"
		}
		d.printf("  %04d: off=0x%06X ptr=0x%06X size=%-8d %-9s magic=%s footer=%s\n",
			n, off, off+format.HeaderSize, h.Size, h.State, magic, footer)
		if h.Free() {
			free += h.Size
		} else {
			live += h.Size
		}
		off = step(h)
	}
	return free, live
}

type dumper struct {
	w   io.Writer
	err error
}

func (d *dumper) printf(f string, args ...any) {
	if d.err != nil {
		return
	}
	_, d.err = fmt.Fprintf(d.w, f, args...)
}
