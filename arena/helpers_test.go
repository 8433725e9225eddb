package arena

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestArena builds an arena that returns corruption instead of panicking.
func newTestArena(t *testing.T, size int, opts ...Option) *Arena {
	t.Helper()
	opts = append([]Option{WithFatalHandler(ReturnOnCorruption)}, opts...)
	a, err := New(make([]byte, size), opts...)
	require.NoError(t, err)
	return a
}

func mustAlloc(t *testing.T, a *Arena, size int) (Ptr, []byte) {
	t.Helper()
	p, b, err := a.Alloc(size)
	require.NoError(t, err, "Alloc(%d)", size)
	require.NotEqual(t, Nil, p)
	return p, b
}

func requireCorruption(t *testing.T, err error, kind Kind) *CorruptionError {
	t.Helper()
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrCorrupt), "want corruption, got %v", err)
	var cerr *CorruptionError
	require.True(t, errors.As(err, &cerr))
	if kind != 0 {
		require.Equal(t, kind, cerr.Kind, "corruption kind: %v", cerr)
	}
	return cerr
}

func fillPattern(b []byte, seed byte) {
	for i := range b {
		b[i] = seed + byte(i)
	}
}

func requirePattern(t *testing.T, b []byte, seed byte) {
	t.Helper()
	for i := range b {
		if b[i] != seed+byte(i) {
			t.Fatalf("byte %d = 0x%02X, want 0x%02X", i, b[i], seed+byte(i))
		}
	}
}

// requireTiled checks the region list covers the managed area without gaps
// and without adjacent free regions.
func requireTiled(t *testing.T, a *Arena) []RegionInfo {
	t.Helper()
	regions, err := a.Regions()
	require.NoError(t, err)
	next := 0
	for i, r := range regions {
		require.Equal(t, next, r.Offset, "region %d offset", i)
		require.GreaterOrEqual(t, r.Size, MinBlockSize, "region %d size", i)
		if i > 0 && r.State == Free {
			require.NotEqual(t, Free, regions[i-1].State, "regions %d and %d both free", i-1, i)
		}
		next += r.Size
	}
	require.Equal(t, a.TotalBytes(), next)
	return regions
}
