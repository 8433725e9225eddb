package format

import (
	"fmt"
	"math"

	"github.com/joshuapare/bufalloc/internal/buf"
)

// State says whether a region is handed out to a caller.
type State uint32

const (
	StateFree      State = 0
	StateAllocated State = 1
)

func (s State) String() string {
	switch s {
	case StateFree:
		return "free"
	case StateAllocated:
		return "allocated"
	default:
		return fmt.Sprintf("state(%d)", uint32(s))
	}
}

// Valid reports whether s is one of the two known states.
func (s State) Valid() bool {
	return s == StateFree || s == StateAllocated
}

// Header is the decoded form of a region header. Offsets are relative to the
// start of the managed area.
type Header struct {
	Size  int
	Tag   uint32
	State State
	Prev  int
	Next  int
}

// TagOK reports whether the header carries the region magic.
func (h Header) TagOK() bool { return h.Tag == Magic }

// Free reports whether the region is available.
func (h Header) Free() bool { return h.State == StateFree }

// DecodeHeader reads the header at off. It only checks that the header bytes
// are in range; semantic validation is the caller's job.
func DecodeHeader(b []byte, off int) (Header, error) {
	head, ok := buf.Slice(b, off, HeaderSize)
	if !ok {
		return Header{}, fmt.Errorf("header at %d: %w", off, ErrTruncated)
	}
	return Header{
		Size:  wordToInt(ReadWord(head, SizeOffset)),
		Tag:   ReadU32(head, TagOffset),
		State: State(ReadU32(head, StateOffset)),
		Prev:  wordToInt(ReadWord(head, PrevOffset)),
		Next:  wordToInt(ReadWord(head, NextOffset)),
	}, nil
}

// EncodeHeader writes h at off.
func EncodeHeader(b []byte, off int, h Header) error {
	head, ok := buf.Slice(b, off, HeaderSize)
	if !ok {
		return fmt.Errorf("header at %d: %w", off, ErrTruncated)
	}
	if !h.State.Valid() {
		return ErrBadState
	}
	PutWord(head, SizeOffset, uint64(h.Size))
	PutU32(head, TagOffset, h.Tag)
	PutU32(head, StateOffset, uint32(h.State))
	PutWord(head, PrevOffset, uint64(h.Prev))
	PutWord(head, NextOffset, uint64(h.Next))
	return nil
}

// FooterOffset returns where the footer of a region at off with the given
// size lives.
func FooterOffset(off, size int) int {
	return off + size - FooterSize
}

// ReadFooter returns the header offset recorded in the footer of the region
// at off with the given size.
func ReadFooter(b []byte, off, size int) (int, error) {
	foot, ok := buf.Slice(b, FooterOffset(off, size), FooterSize)
	if !ok || size < FooterSize {
		return 0, fmt.Errorf("footer of %d: %w", off, ErrTruncated)
	}
	return wordToInt(ReadWord(foot, 0)), nil
}

// WriteFooter stamps the region at off with its own header offset.
func WriteFooter(b []byte, off, size int) error {
	foot, ok := buf.Slice(b, FooterOffset(off, size), FooterSize)
	if !ok || size < FooterSize {
		return fmt.Errorf("footer of %d: %w", off, ErrTruncated)
	}
	PutWord(foot, 0, uint64(off))
	return nil
}

// wordToInt maps words that do not fit in int to -1 so range checks reject them.
func wordToInt(v uint64) int {
	if v > math.MaxInt {
		return -1
	}
	return int(v)
}
