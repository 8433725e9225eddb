package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/bufalloc/heap"
)

func TestParseTrace(t *testing.T) {
	ops, err := parseTrace(strings.NewReader(`
# comment line
alloc a 100
aligned b 64 10   # trailing comment
calloc c 4 0x10
fill a 0xAB
realloc a 300
free b
dump
CHECK
`))
	require.NoError(t, err)
	require.Len(t, ops, 8)
	require.Equal(t, traceOp{Line: 3, Verb: "alloc", Name: "a", Args: []int{100}}, ops[0])
	require.Equal(t, []int{64, 10}, ops[1].Args)
	require.Equal(t, []int{4, 16}, ops[2].Args)
	require.Equal(t, []int{0xAB}, ops[3].Args)
	require.Equal(t, "check", ops[7].Verb)
}

func TestParseTrace_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown verb", "grow a 10", "unknown operation"},
		{"missing size", "alloc a", "takes 2 argument(s)"},
		{"extra args", "free a b", "takes 1 argument(s)"},
		{"bad number", "alloc a ten", "bad number"},
		{"fill range", "fill a 256", "out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseTrace(strings.NewReader(tt.body))
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
			require.Contains(t, err.Error(), "line 1")
		})
	}
}

func TestReplayer(t *testing.T) {
	resetFlags()
	h, err := heap.New(make([]byte, 2048))
	require.NoError(t, err)
	defer h.Close()

	ops, err := parseTrace(strings.NewReader(`
alloc a 100
aligned b 128 50
fill a 7
fill b 9
realloc a 400
realloc b 200
alloc big 100000
check
free a
free b
check
`))
	require.NoError(t, err)

	var out strings.Builder
	r := newReplayer(h, &out)
	for _, op := range ops {
		require.NoError(t, r.apply(op), "line %d", op.Line)
	}
	require.Equal(t, 1, r.failed, "big does not fit")
	require.Empty(t, r.live)
	require.Equal(t, h.TotalBytes(), h.FreeBytes())
}

func TestReplayer_Errors(t *testing.T) {
	resetFlags()
	h, err := heap.New(make([]byte, 2048))
	require.NoError(t, err)
	defer h.Close()

	r := newReplayer(h, nil)
	err = r.apply(traceOp{Line: 4, Verb: "free", Name: "ghost"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "line 4")

	require.NoError(t, r.apply(traceOp{Line: 5, Verb: "alloc", Name: "x", Args: []int{8}}))
	err = r.apply(traceOp{Line: 6, Verb: "alloc", Name: "x", Args: []int{8}})
	require.ErrorContains(t, err, "already allocated")

	// Realloc needs a live name, like free.
	err = r.apply(traceOp{Line: 7, Verb: "realloc", Name: "y", Args: []int{16}})
	require.ErrorContains(t, err, "line 7")
	require.ErrorContains(t, err, "not allocated")
	require.NotContains(t, r.live, "y")

	require.NoError(t, r.apply(traceOp{Line: 8, Verb: "realloc", Name: "x", Args: []int{0}}))
	require.NotContains(t, r.live, "x")
}
