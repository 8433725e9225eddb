package main

import (
	"fmt"

	"github.com/joshuapare/bufalloc/arena"
	"github.com/joshuapare/bufalloc/heap"
)

// newHeap builds a heap of size bytes over the backing selected by --backing.
// Corruption is returned as an error so commands can report it.
func newHeap(size int, name string, opts ...heap.Option) (*heap.Heap, error) {
	base := []heap.Option{
		heap.WithName(name),
		heap.WithArenaOptions(
			arena.WithLogger(logger.With("heap", name)),
			arena.WithFatalHandler(arena.ReturnOnCorruption),
		),
	}
	opts = append(base, opts...)

	switch backing {
	case "heap", "":
		return heap.New(make([]byte, size), opts...)
	case "mmap":
		return heap.NewMapped(size, opts...)
	default:
		return nil, fmt.Errorf("unknown backing %q (want heap or mmap)", backing)
	}
}
