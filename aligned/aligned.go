// Package aligned hands out blocks whose payload starts on a caller chosen
// power-of-two boundary, on top of any Allocator.
//
// Each block is over-allocated by one word plus alignment-1 bytes. The
// returned pointer is the first suitably aligned address at least one word
// past the start of the underlying payload, and that word just before it
// records the underlying pointer so Free can find the block again.
package aligned

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/joshuapare/bufalloc/arena"
	"github.com/joshuapare/bufalloc/internal/buf"
	"github.com/joshuapare/bufalloc/internal/format"
)

// DefaultAlignment is used when the caller passes 0.
const DefaultAlignment = 8

var (
	// ErrBadAlignment indicates an alignment that is not a power of two.
	ErrBadAlignment = errors.New("aligned: alignment must be a power of two")

	// ErrForeignPointer indicates a pointer that Alloc did not return.
	ErrForeignPointer = errors.New("aligned: pointer not returned by aligned.Alloc")
)

// Allocator is the block allocator the wrapper builds on. *arena.Arena and
// *heap.Heap implement it. Owns must not treat an unknown pointer as
// corruption.
type Allocator interface {
	Alloc(size int) (arena.Ptr, []byte, error)
	Free(p arena.Ptr) error
	Owns(p arena.Ptr) bool
	Usable(p arena.Ptr) (int, error)
	Window(p arena.Ptr, n int) ([]byte, error)
	Addr(p arena.Ptr) uintptr
}

// Alloc returns size bytes starting at an address that is a multiple of
// alignment.
func Alloc(a Allocator, alignment, size int) (arena.Ptr, []byte, error) {
	if alignment == 0 {
		alignment = DefaultAlignment
	}
	if alignment < 0 || bits.OnesCount(uint(alignment)) != 1 {
		return arena.Nil, nil, fmt.Errorf("%w: %d", ErrBadAlignment, alignment)
	}
	if size <= 0 {
		return arena.Nil, nil, fmt.Errorf("%w: %d", arena.ErrInvalidSize, size)
	}
	total, ok := buf.AddOverflowSafe(size, format.WordSize+alignment-1)
	if !ok {
		return arena.Nil, nil, fmt.Errorf("%w: %d with alignment %d", arena.ErrInvalidSize, size, alignment)
	}

	block, _, err := a.Alloc(total)
	if err != nil {
		return arena.Nil, nil, err
	}
	span, err := Split(a.Addr(block)+uintptr(format.WordSize), total-format.WordSize, alignment)
	if err != nil {
		_ = a.Free(block)
		return arena.Nil, nil, err
	}
	p := block + arena.Ptr(format.WordSize+span.Forward)

	back, err := a.Window(p-arena.Ptr(format.WordSize), format.WordSize)
	if err != nil {
		_ = a.Free(block)
		return arena.Nil, nil, err
	}
	format.PutWord(back, 0, uint64(block))

	out, err := a.Window(p, size)
	if err != nil {
		_ = a.Free(block)
		return arena.Nil, nil, err
	}
	return p, out, nil
}

// Free releases a block returned by Alloc. Free(a, arena.Nil) does nothing.
func Free(a Allocator, p arena.Ptr) error {
	if p == arena.Nil {
		return nil
	}
	block, err := blockOf(a, p)
	if err != nil {
		return err
	}
	return a.Free(block)
}

// Usable returns how many bytes are addressable from p to the end of its
// block.
func Usable(a Allocator, p arena.Ptr) (int, error) {
	block, err := blockOf(a, p)
	if err != nil {
		return 0, err
	}
	n, err := a.Usable(block)
	if err != nil {
		return 0, err
	}
	return n - int(p-block), nil
}

// Realloc moves the block behind p to a new block of size bytes with the
// given alignment, keeping min(old, size) bytes. Realloc(a, arena.Nil, ...)
// is Alloc; size 0 frees p and returns arena.Nil. When the new block cannot
// be allocated p is left untouched.
func Realloc(a Allocator, p arena.Ptr, alignment, size int) (arena.Ptr, []byte, error) {
	if p == arena.Nil {
		return Alloc(a, alignment, size)
	}
	if size == 0 {
		return arena.Nil, nil, Free(a, p)
	}
	old, err := Usable(a, p)
	if err != nil {
		return arena.Nil, nil, err
	}
	src, err := a.Window(p, old)
	if err != nil {
		return arena.Nil, nil, err
	}

	q, dst, err := Alloc(a, alignment, size)
	if err != nil {
		return arena.Nil, nil, err
	}
	copy(dst, src)
	if err := Free(a, p); err != nil {
		return arena.Nil, nil, err
	}
	return q, dst, nil
}

// blockOf reads the underlying pointer stored in the word before p and
// confirms it names a live block that contains p. Nothing is freed or
// flagged as corrupt on the way, so a stray pointer leaves the allocator
// usable.
func blockOf(a Allocator, p arena.Ptr) (arena.Ptr, error) {
	if p < arena.Ptr(format.WordSize) {
		return arena.Nil, fmt.Errorf("%w: %d", ErrForeignPointer, p)
	}
	back, err := a.Window(p-arena.Ptr(format.WordSize), format.WordSize)
	if err != nil {
		return arena.Nil, fmt.Errorf("%w: %w", ErrForeignPointer, err)
	}
	block := arena.Ptr(format.ReadWord(back, 0))
	if block <= 0 || block > p-arena.Ptr(format.WordSize) || !a.Owns(block) {
		return arena.Nil, fmt.Errorf("%w: %d records block %d", ErrForeignPointer, p, block)
	}
	n, err := a.Usable(block)
	if err != nil {
		return arena.Nil, err
	}
	if int(p-block) >= n {
		return arena.Nil, fmt.Errorf("%w: %d lies past block %d (%d bytes)", ErrForeignPointer, p, block, n)
	}
	return block, nil
}
