package format

import "github.com/joshuapare/bufalloc/internal/buf"

// TotalSize returns the region size needed to hold n payload bytes:
// n plus header and footer, rounded up to the word size. ok is false when n
// is negative or the padding overflows int.
func TotalSize(n int) (int, bool) {
	if n < 0 {
		return 0, false
	}
	sum, ok := buf.AddOverflowSafe(n, Overhead)
	if !ok {
		return 0, false
	}
	return buf.AlignUp(sum, WordSize)
}

// PayloadSize returns the usable bytes of a region of the given total size.
func PayloadSize(total int) int {
	return total - Overhead
}
