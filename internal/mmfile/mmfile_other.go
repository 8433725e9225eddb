//go:build !unix

// Package mmfile provides platform-specific helpers for obtaining off-heap
// backing memory.
package mmfile

import "fmt"

// MapAnon falls back to a heap slice when anonymous mappings are unavailable.
func MapAnon(size int) ([]byte, func() error, error) {
	if size < 0 {
		return nil, nil, fmt.Errorf("mmfile: negative size %d", size)
	}
	return make([]byte, size), func() error { return nil }, nil
}

// Mapped reports whether MapAnon returns memory outside the Go heap.
const Mapped = false
