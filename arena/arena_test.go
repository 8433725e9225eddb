package arena

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Init_SingleFreeRegion(t *testing.T) {
	a := newTestArena(t, 1024)

	require.True(t, a.Initialized())
	require.Equal(t, 0, a.AlignOffset(), "heap slices are word aligned")
	require.Equal(t, 1024-SentinelSize, a.TotalBytes())
	require.Equal(t, a.TotalBytes(), a.FreeBytes())

	regions, err := a.Regions()
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Equal(t, 0, regions[0].Offset)
	assert.Equal(t, Free, regions[0].State)
	assert.Equal(t, a.TotalBytes(), regions[0].Size)
}

func Test_Init_BufferTooSmall(t *testing.T) {
	for _, size := range []int{0, 1, MinBlockSize, MinArenaSize - 1} {
		_, err := New(make([]byte, size))
		require.ErrorIs(t, err, ErrBufferTooSmall, "size %d", size)
		require.ErrorIs(t, err, ErrNoSpace, "size %d", size)
	}

	_, err := New(make([]byte, MinArenaSize))
	require.NoError(t, err)
}

func Test_Init_UnalignedBuffer(t *testing.T) {
	backing := make([]byte, 1024+1)
	a, err := New(backing[1:])
	require.NoError(t, err)

	require.Equal(t, WordSize-1, a.AlignOffset())
	require.Zero(t, a.Base()%uintptr(WordSize))
	require.Equal(t, 1024-WordSize-SentinelSize, a.TotalBytes())

	p, _ := mustAlloc(t, a, 13)
	require.Zero(t, a.Addr(p)%uintptr(WordSize))
}

func Test_Init_ReinitOverwritesState(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	a := newTestArena(t, 1024, WithLogger(logger))

	p, _ := mustAlloc(t, a, 100)
	mustAlloc(t, a, 200)
	require.Less(t, a.FreeBytes(), a.TotalBytes())

	require.NoError(t, a.Init(a.raw))
	require.Equal(t, a.TotalBytes(), a.FreeBytes(), "re-init must discard every allocation")
	require.Zero(t, a.Stats().LiveRegions)
	require.Contains(t, logs.String(), "re-initialised")

	// The old pointer now lands inside the single free region.
	requireCorruption(t, a.Free(p), 0)
}

func Test_ZeroValue_NotInitialized(t *testing.T) {
	var a Arena

	_, _, err := a.Alloc(10)
	require.ErrorIs(t, err, ErrNotInitialized)
	require.NoError(t, a.Free(Nil))
	require.ErrorIs(t, a.Free(Ptr(HeaderSize)), ErrNotInitialized)
	_, _, err = a.Realloc(Nil, 10)
	require.ErrorIs(t, err, ErrNotInitialized)
	require.Zero(t, a.FreeBytes())
	require.Zero(t, a.TotalBytes())
	require.Zero(t, a.Addr(Ptr(64)))

	var out strings.Builder
	require.NoError(t, a.Dump(&out))
	require.Contains(t, out.String(), "not initialized")

	require.NoError(t, a.Init(make([]byte, 512)))
	mustAlloc(t, &a, 10)
}

func Test_Destroy_ZeroesBuffer(t *testing.T) {
	b := make([]byte, 512)
	a, err := New(b)
	require.NoError(t, err)

	_, payload := mustAlloc(t, a, 32)
	fillPattern(payload, 0x10)

	require.NoError(t, a.Destroy())
	require.False(t, a.Initialized())
	require.Equal(t, make([]byte, 512), b)

	_, _, err = a.Alloc(1)
	require.ErrorIs(t, err, ErrNotInitialized)
	require.ErrorIs(t, a.Destroy(), ErrNotInitialized)
}

func Test_IndependentArenas(t *testing.T) {
	a := newTestArena(t, 1024)
	b := newTestArena(t, 1024)

	pa, ba := mustAlloc(t, a, 64)
	pb, bb := mustAlloc(t, b, 64)
	fillPattern(ba, 1)
	fillPattern(bb, 100)

	require.Equal(t, pa, pb, "same layout yields the same offsets")
	require.NotEqual(t, a.Addr(pa), b.Addr(pb))
	requirePattern(t, ba, 1)
	requirePattern(t, bb, 100)
}
