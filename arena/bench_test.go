package arena

import (
	"testing"
)

// BenchmarkArena_Init measures laying out a fresh arena.
func BenchmarkArena_Init(b *testing.B) {
	buf := make([]byte, 64*1024)

	b.ResetTimer()
	b.ReportAllocs()

	for range b.N {
		if _, err := New(buf); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkArena_AllocFree measures an alloc/free pair on an empty arena,
// which always hits the first region.
func BenchmarkArena_AllocFree(b *testing.B) {
	a, err := New(make([]byte, 64*1024))
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := range b.N {
		p, _, err := a.Alloc(64 + (i%64)*2)
		if err != nil {
			b.Fatal(err)
		}
		if err := a.Free(p); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkArena_AllocFragmented measures the linear search when every other
// region is a small hole.
func BenchmarkArena_AllocFragmented(b *testing.B) {
	a, err := New(make([]byte, 256*1024))
	if err != nil {
		b.Fatal(err)
	}
	var holes []Ptr
	for {
		p, _, err := a.Alloc(16)
		if err != nil {
			break
		}
		holes = append(holes, p)
		if _, _, err := a.Alloc(16); err != nil {
			break
		}
	}
	for _, p := range holes[:len(holes)/2] {
		if err := a.Free(p); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	b.ReportAllocs()

	for range b.N {
		// Too large for any hole, so the whole list is scanned and fails.
		if _, _, err := a.Alloc(1024); err == nil {
			b.Fatal("expected no space")
		}
	}
}

// BenchmarkArena_Realloc measures growing and shrinking a block in place.
func BenchmarkArena_Realloc(b *testing.B) {
	a, err := New(make([]byte, 64*1024))
	if err != nil {
		b.Fatal(err)
	}
	p, _, err := a.Alloc(64)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := range b.N {
		size := 64
		if i%2 == 0 {
			size = 4096
		}
		if p, _, err = a.Realloc(p, size); err != nil {
			b.Fatal(err)
		}
	}
}
