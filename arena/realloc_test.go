package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Realloc_NilActsAsAlloc(t *testing.T) {
	a := newTestArena(t, 1024)

	p, b, err := a.Realloc(Nil, 50)
	require.NoError(t, err)
	require.NotEqual(t, Nil, p)
	require.Len(t, b, 50)
	require.Equal(t, 1, a.Stats().AllocCalls)
}

func Test_Realloc_ZeroActsAsFree(t *testing.T) {
	a := newTestArena(t, 1024)

	p, _ := mustAlloc(t, a, 50)
	q, b, err := a.Realloc(p, 0)
	require.NoError(t, err)
	require.Equal(t, Nil, q)
	require.Nil(t, b)
	require.Equal(t, a.TotalBytes(), a.FreeBytes())
}

func Test_Realloc_ShrinkInPlace(t *testing.T) {
	a := newTestArena(t, 2048)

	p, b := mustAlloc(t, a, 400)
	fillPattern(b, 9)
	before := a.FreeBytes()

	q, nb, err := a.Realloc(p, 50)
	require.NoError(t, err)
	require.Equal(t, p, q)
	require.Len(t, nb, 50)
	requirePattern(t, nb, 9)

	require.Greater(t, a.FreeBytes(), before, "tail must be returned")
	// The returned tail merged with the trailing free region.
	require.Len(t, requireTiled(t, a), 2)
	require.Equal(t, 1, a.Stats().ShrinkInPlace)
}

func Test_Realloc_ShrinkKeepsSmallTail(t *testing.T) {
	a := newTestArena(t, 2048)

	p, _ := mustAlloc(t, a, 100)
	before, err := a.Usable(p)
	require.NoError(t, err)

	q, _, err := a.Realloc(p, 100-WordSize)
	require.NoError(t, err)
	require.Equal(t, p, q)
	after, err := a.Usable(p)
	require.NoError(t, err)
	require.Equal(t, before, after, "a tail below the minimum block stays with the region")
	require.Zero(t, a.Stats().ShrinkInPlace, "nothing was given back")

	// Same size again is a no-op too.
	_, _, err = a.Realloc(p, 100)
	require.NoError(t, err)
	require.Zero(t, a.Stats().ShrinkInPlace)
}

func Test_Realloc_GrowInPlace(t *testing.T) {
	a := newTestArena(t, 2048)

	p, b := mustAlloc(t, a, 100)
	fillPattern(b, 21)

	q, nb, err := a.Realloc(p, 300)
	require.NoError(t, err)
	require.Equal(t, p, q)
	require.Len(t, nb, 300)
	requirePattern(t, nb[:100], 21)
	require.Equal(t, 1, a.Stats().GrowInPlace)
	require.Zero(t, a.Stats().Moves)
	requireTiled(t, a)
}

func Test_Realloc_MovesWhenBlocked(t *testing.T) {
	a := newTestArena(t, 2048)

	p, b := mustAlloc(t, a, 100)
	fillPattern(b, 33)
	mustAlloc(t, a, 8) // pins the region after p

	q, nb, err := a.Realloc(p, 300)
	require.NoError(t, err)
	require.NotEqual(t, p, q)
	require.Len(t, nb, 300)
	requirePattern(t, nb[:100], 33)
	require.Equal(t, 1, a.Stats().Moves)

	// The old region is free again and reusable.
	r, _ := mustAlloc(t, a, 100)
	require.Equal(t, p, r)
	requireTiled(t, a)
}

func Test_Realloc_FailureKeepsOldBlock(t *testing.T) {
	a := newTestArena(t, 1024)

	p, b := mustAlloc(t, a, 100)
	fillPattern(b, 44)
	mustAlloc(t, a, 8)
	usable, err := a.Usable(p)
	require.NoError(t, err)
	free := a.FreeBytes()

	q, nb, err := a.Realloc(p, 4096)
	require.ErrorIs(t, err, ErrNoSpace)
	assert.Equal(t, Nil, q)
	assert.Nil(t, nb)

	got, err := a.Bytes(p)
	require.NoError(t, err)
	require.Len(t, got, usable)
	requirePattern(t, got[:100], 44)
	require.Equal(t, free, a.FreeBytes())
	requireTiled(t, a)
}

func Test_Realloc_FreedPointer(t *testing.T) {
	a := newTestArena(t, 1024)

	p, _ := mustAlloc(t, a, 64)
	mustAlloc(t, a, 64)
	require.NoError(t, a.Free(p))

	_, _, err := a.Realloc(p, 128)
	requireCorruption(t, err, KindNotAllocated)
}

func Test_Realloc_InvalidSizeLeavesBlock(t *testing.T) {
	a := newTestArena(t, 1024)

	p, _ := mustAlloc(t, a, 64)
	_, _, err := a.Realloc(p, -5)
	require.ErrorIs(t, err, ErrInvalidSize)

	_, err = a.Usable(p)
	require.NoError(t, err)
}
