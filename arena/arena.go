package arena

import (
	"fmt"
	"log/slog"

	"github.com/joshuapare/bufalloc/internal/buf"
	"github.com/joshuapare/bufalloc/internal/format"
)

// Ptr is the offset of a payload inside the managed area. The zero Ptr is nil.
type Ptr int

// Nil is the null pointer. No payload ever starts at offset 0.
const Nil Ptr = 0

// State is the occupancy of a region.
type State = format.State

const (
	Free      = format.StateFree
	Allocated = format.StateAllocated
)

// Size constants of the region layout on this platform.
const (
	WordSize     = format.WordSize
	HeaderSize   = format.HeaderSize
	FooterSize   = format.FooterSize
	Overhead     = format.Overhead
	MinBlockSize = format.MinBlockSize
	SentinelSize = format.SentinelSize
	MinArenaSize = format.MinArenaSize
)

const (
	opInit    = "init"
	opAlloc   = "alloc"
	opFree    = "free"
	opRealloc = "realloc"
	opAccess  = "access"
	opWalk    = "walk"
	opWrite   = "write"
)

// Arena manages one caller supplied buffer. It is not safe for concurrent
// use; wrap it (see package heap) when several goroutines share it.
type Arena struct {
	raw      []byte // buffer as handed over
	mem      []byte // managed area, raw[alignOff:alignOff+capacity+SentinelSize]
	alignOff int
	sentinel int // sentinel header offset; equals the usable capacity

	initialized bool
	poisoned    *CorruptionError

	log       *slog.Logger
	onFatal   FatalHandler
	scrub     bool
	scrubByte byte

	stats Stats
}

// New initialises an Arena over b. The Arena owns b until Destroy.
func New(b []byte, opts ...Option) (*Arena, error) {
	a := &Arena{}
	a.configure(opts)
	if err := a.Init(b); err != nil {
		return nil, err
	}
	return a, nil
}

// Init lays out a fresh arena over b: one free region spanning the usable
// area followed by the sentinel. Calling Init on an initialised Arena discards
// every outstanding allocation.
func (a *Arena) Init(b []byte) error {
	if a.log == nil {
		a.configure(nil)
	}

	off := alignmentOffset(b)
	usable := 0
	if len(b) > off {
		usable = buf.AlignDown(len(b)-off, format.WordSize)
	}
	if usable < format.MinArenaSize {
		return fmt.Errorf("%w: %d usable bytes, need %d", ErrBufferTooSmall, usable, format.MinArenaSize)
	}

	if a.initialized {
		a.log.Warn("arena re-initialised, outstanding pointers are invalid",
			"live_regions", a.stats.LiveRegions, "old_capacity", a.sentinel)
	}

	clear(b)
	a.raw = b
	a.alignOff = off
	a.mem = b[off : off+usable : off+usable]
	a.sentinel = usable - format.SentinelSize
	a.stats = Stats{}
	a.poisoned = nil

	a.writeRegion(0, format.Header{
		Size:  a.sentinel,
		State: Free,
		Prev:  a.sentinel,
		Next:  a.sentinel,
	})
	a.writeRegion(a.sentinel, format.Header{
		Size:  format.SentinelSize,
		State: Allocated,
		Prev:  0,
		Next:  0,
	})
	a.initialized = true

	if _, cerr := a.check(opInit, 0); cerr != nil {
		return a.fatal(cerr)
	}
	a.log.Debug("arena initialised",
		"buffer", len(b), "align_offset", off, "capacity", a.sentinel)
	return nil
}

// Destroy zeroes the whole buffer and detaches it. Every Ptr handed out
// becomes invalid.
func (a *Arena) Destroy() error {
	if !a.initialized {
		return ErrNotInitialized
	}
	clear(a.raw)
	a.log.Debug("arena destroyed", "buffer", len(a.raw))
	a.raw, a.mem = nil, nil
	a.alignOff, a.sentinel = 0, 0
	a.initialized = false
	a.poisoned = nil
	return nil
}

// Initialized reports whether the arena currently manages a buffer.
func (a *Arena) Initialized() bool { return a.initialized }

// AlignOffset is the number of leading buffer bytes skipped for alignment.
func (a *Arena) AlignOffset() int { return a.alignOff }

// Poisoned returns the corruption that stopped the arena, if any.
func (a *Arena) Poisoned() *CorruptionError { return a.poisoned }

// ready gates every public operation.
func (a *Arena) ready() error {
	if !a.initialized {
		return ErrNotInitialized
	}
	if a.poisoned != nil {
		return a.poisoned
	}
	return nil
}

// fatal records err, logs it and hands it to the fatal handler. The returned
// error is always err.
func (a *Arena) fatal(err *CorruptionError) error {
	a.poisoned = err
	a.log.Error("arena corruption",
		"op", err.Op, "offset", err.Offset, "kind", err.Kind.String(), "detail", err.Detail)
	a.onFatal(err)
	return err
}

// Raw accessors. Callers only pass offsets the checker has validated or that
// were derived from validated regions.

func (a *Arena) sizeOf(off int) int {
	return int(format.ReadWord(a.mem, off+format.SizeOffset))
}

func (a *Arena) stateOf(off int) State {
	return State(format.ReadU32(a.mem, off+format.StateOffset))
}

func (a *Arena) prevOf(off int) int {
	return int(format.ReadWord(a.mem, off+format.PrevOffset))
}

func (a *Arena) nextOf(off int) int {
	return int(format.ReadWord(a.mem, off+format.NextOffset))
}

func (a *Arena) setSize(off, n int) {
	format.PutWord(a.mem, off+format.SizeOffset, uint64(n))
}

func (a *Arena) setPrev(off, prev int) {
	format.PutWord(a.mem, off+format.PrevOffset, uint64(prev))
}

func (a *Arena) setNext(off, next int) {
	format.PutWord(a.mem, off+format.NextOffset, uint64(next))
}

// stamp writes tag, state and footer of the region at off.
func (a *Arena) stamp(off int, st State) {
	format.PutU32(a.mem, off+format.TagOffset, format.Magic)
	format.PutU32(a.mem, off+format.StateOffset, uint32(st))
	a.writeFooter(off)
}

func (a *Arena) writeFooter(off int) {
	if err := format.WriteFooter(a.mem, off, a.sizeOf(off)); err != nil {
		_ = a.fatal(newCorruption(opWrite, off, KindOutOfBounds, "%v", err))
	}
}

// scrubTag clears the tag of a header that has been absorbed by a neighbour.
func (a *Arena) scrubTag(off int) {
	format.PutU32(a.mem, off+format.TagOffset, 0)
}

// writeRegion lays down a complete header and footer at off. A write that
// does not fit the managed area is reported as corruption; the checker run
// after every mutation then refuses the result.
func (a *Arena) writeRegion(off int, h format.Header) {
	h.Tag = format.Magic
	if err := format.EncodeHeader(a.mem, off, h); err != nil {
		_ = a.fatal(newCorruption(opWrite, off, KindOutOfBounds, "%v", err))
		return
	}
	a.writeFooter(off)
}

// payload returns the first n payload bytes of the region at off with the
// capacity clipped to the usable payload.
func (a *Arena) payload(off, n int) []byte {
	start := off + format.HeaderSize
	end := off + a.sizeOf(off) - format.FooterSize
	return a.mem[start : start+n : end]
}

func ptrOf(off int) Ptr { return Ptr(off + format.HeaderSize) }
