package arena

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized indicates an operation on an arena that has not been
	// initialised or has been destroyed.
	ErrNotInitialized = errors.New("arena: not initialized")

	// ErrInvalidSize indicates a zero or negative request, or one that overflows
	// when padded to region granularity.
	ErrInvalidSize = errors.New("arena: invalid size")

	// ErrNoSpace indicates that no free region is large enough. The caller may
	// free memory and retry.
	ErrNoSpace = errors.New("arena: no free region large enough")

	// ErrBufferTooSmall indicates a buffer that cannot hold an arena. It wraps
	// ErrNoSpace.
	ErrBufferTooSmall = fmt.Errorf("%w: buffer too small", ErrNoSpace)

	// ErrOutOfRange indicates a window that leaves the managed area.
	ErrOutOfRange = errors.New("arena: range outside managed area")

	// ErrCorrupt is matched by every *CorruptionError.
	ErrCorrupt = errors.New("arena: corrupted bookkeeping")
)

// Kind classifies a corruption.
type Kind uint8

const (
	KindInvalidPointer Kind = iota + 1
	KindOutOfBounds
	KindBadMagic
	KindBadState
	KindBadSize
	KindFooterMismatch
	KindBadLink
	KindDoubleFree
	KindNotAllocated
)

var kindNames = map[Kind]string{
	KindInvalidPointer: "invalid pointer",
	KindOutOfBounds:    "out of bounds",
	KindBadMagic:       "bad magic",
	KindBadState:       "bad state",
	KindBadSize:        "bad size",
	KindFooterMismatch: "footer mismatch",
	KindBadLink:        "bad link",
	KindDoubleFree:     "double free",
	KindNotAllocated:   "not allocated",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// CorruptionError reports inconsistent region bookkeeping. It is fatal: the
// arena that produced it refuses further work.
type CorruptionError struct {
	Op     string
	Offset int
	Kind   Kind
	Detail string
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("arena: %s: %s at offset 0x%X: %s", e.Op, e.Kind, e.Offset, e.Detail)
}

// Is makes errors.Is(err, ErrCorrupt) true for every corruption.
func (e *CorruptionError) Is(target error) bool {
	return target == ErrCorrupt
}

func newCorruption(op string, off int, kind Kind, format string, args ...any) *CorruptionError {
	return &CorruptionError{
		Op:     op,
		Offset: off,
		Kind:   kind,
		Detail: fmt.Sprintf(format, args...),
	}
}
