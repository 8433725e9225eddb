package aligned

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/bufalloc/arena"
	"github.com/joshuapare/bufalloc/arena/verify"
	"github.com/joshuapare/bufalloc/internal/format"
)

func newArena(t *testing.T, size int) *arena.Arena {
	t.Helper()
	a, err := arena.New(make([]byte, size), arena.WithFatalHandler(arena.ReturnOnCorruption))
	require.NoError(t, err)
	return a
}

func TestAlloc_RespectsAlignment(t *testing.T) {
	a := newArena(t, 64*1024)

	for _, align := range []int{1, 2, 4, 8, 16, 32, 64, 128, 256, 1024, 4096} {
		for _, size := range []int{1, 7, 100} {
			p, b, err := Alloc(a, align, size)
			require.NoError(t, err, "align %d size %d", align, size)
			require.Zero(t, a.Addr(p)%uintptr(align), "align %d size %d", align, size)
			require.Len(t, b, size)

			usable, err := Usable(a, p)
			require.NoError(t, err)
			require.GreaterOrEqual(t, usable, size)

			for i := range b {
				b[i] = 0xEE
			}
			require.NoError(t, verify.AllInvariants(a))
			require.NoError(t, Free(a, p))
		}
	}
	require.Equal(t, a.TotalBytes(), a.FreeBytes())
}

func TestAlloc_ZeroAlignmentMeansDefault(t *testing.T) {
	a := newArena(t, 4096)

	p, _, err := Alloc(a, 0, 10)
	require.NoError(t, err)
	require.Zero(t, a.Addr(p)%DefaultAlignment)
}

func TestAlloc_RejectsBadInput(t *testing.T) {
	a := newArena(t, 4096)

	for _, align := range []int{3, 6, 12, -8} {
		_, _, err := Alloc(a, align, 10)
		require.ErrorIs(t, err, ErrBadAlignment, "align %d", align)
	}
	_, _, err := Alloc(a, 16, 0)
	require.ErrorIs(t, err, arena.ErrInvalidSize)

	_, _, err = Alloc(a, 16, 8192)
	require.ErrorIs(t, err, arena.ErrNoSpace)
	require.Equal(t, a.TotalBytes(), a.FreeBytes())
}

func TestFree_Nil(t *testing.T) {
	a := newArena(t, 4096)
	require.NoError(t, Free(a, arena.Nil))
}

func TestFree_ForeignPointer(t *testing.T) {
	a := newArena(t, 4096)

	// A plain allocation has the header's link word in front of it.
	p, _, err := a.Alloc(64)
	require.NoError(t, err)
	require.ErrorIs(t, Free(a, p), ErrForeignPointer)
	require.ErrorIs(t, Free(a, 3), ErrForeignPointer)
	require.Nil(t, a.Poisoned())
}

func TestFree_InteriorPointerLeavesArenaUsable(t *testing.T) {
	a := newArena(t, 4096)

	p, b, err := Alloc(a, 16, 64)
	require.NoError(t, err)
	// The word in front of p+8 now holds a small, plausible block pointer.
	format.PutWord(b, 0, 8)

	require.ErrorIs(t, Free(a, p+8), ErrForeignPointer)
	_, err = Usable(a, p+8)
	require.ErrorIs(t, err, ErrForeignPointer)
	require.Nil(t, a.Poisoned())

	q, _, err := a.Alloc(8)
	require.NoError(t, err)
	require.NoError(t, a.Free(q))
	require.NoError(t, Free(a, p))
	require.NoError(t, verify.AllInvariants(a))
}

func TestFree_PointerOutsideRecordedBlock(t *testing.T) {
	a := newArena(t, 4096)

	first, _, err := a.Alloc(16)
	require.NoError(t, err)
	p, b, err := Alloc(a, 8, 128)
	require.NoError(t, err)

	// first is a live block, but it does not contain p+64.
	format.PutWord(b, 56, uint64(first))
	require.ErrorIs(t, Free(a, p+64), ErrForeignPointer)
	require.Nil(t, a.Poisoned())

	require.NoError(t, Free(a, p))
	require.NoError(t, a.Free(first))
}

func TestFree_DefaultHandlerDoesNotPanic(t *testing.T) {
	a, err := arena.New(make([]byte, 4096))
	require.NoError(t, err)

	p, b, err := Alloc(a, 16, 64)
	require.NoError(t, err)
	format.PutWord(b, 0, 8)

	require.NotPanics(t, func() {
		require.ErrorIs(t, Free(a, p+8), ErrForeignPointer)
	})
	require.NoError(t, Free(a, p))
}

func TestRealloc_KeepsDataAndAlignment(t *testing.T) {
	a := newArena(t, 16*1024)

	p, b, err := Alloc(a, 64, 40)
	require.NoError(t, err)
	for i := range b {
		b[i] = byte(i)
	}

	q, nb, err := Realloc(a, p, 256, 500)
	require.NoError(t, err)
	require.Zero(t, a.Addr(q)%256)
	require.Len(t, nb, 500)
	for i := range 40 {
		require.Equal(t, byte(i), nb[i])
	}

	r, sb, err := Realloc(a, q, 16, 10)
	require.NoError(t, err)
	require.Zero(t, a.Addr(r)%16)
	for i := range 10 {
		require.Equal(t, byte(i), sb[i])
	}

	n, _, err := Realloc(a, r, 16, 0)
	require.NoError(t, err)
	require.Equal(t, arena.Nil, n)
	require.Equal(t, a.TotalBytes(), a.FreeBytes())
}

func TestRealloc_FailureKeepsBlock(t *testing.T) {
	a := newArena(t, 1024)

	p, b, err := Alloc(a, 32, 64)
	require.NoError(t, err)
	copy(b, "payload")

	_, _, err = Realloc(a, p, 32, 4096)
	require.ErrorIs(t, err, arena.ErrNoSpace)

	w, err := a.Window(p, 7)
	require.NoError(t, err)
	require.Equal(t, "payload", string(w))
	require.NoError(t, Free(a, p))
}

func TestRealloc_NilIsAlloc(t *testing.T) {
	a := newArena(t, 1024)
	p, b, err := Realloc(a, arena.Nil, 16, 24)
	require.NoError(t, err)
	require.Len(t, b, 24)
	require.Zero(t, a.Addr(p)%16)
}
