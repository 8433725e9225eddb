package arena

// Stats counts what the arena has done since the last Init.
type Stats struct {
	AllocCalls   int
	FreeCalls    int
	ReallocCalls int

	ExactFits int // allocations served by a region of exactly the needed size
	FirstFits int // allocations served by the first larger region
	Failures  int // allocations that found no region

	Splits        int
	MergeLeft     int
	MergeRight    int
	GrowInPlace   int
	ShrinkInPlace int
	Moves         int

	LiveRegions int
	LiveBytes   int // region bytes held by allocations, bookkeeping included
	PeakBytes   int
}

// Stats returns a copy of the counters.
func (a *Arena) Stats() Stats { return a.stats }

func (s *Stats) noteAlloc(n int) {
	s.LiveRegions++
	s.LiveBytes += n
	s.peak()
}

func (s *Stats) noteFree(n int) {
	s.LiveRegions--
	s.LiveBytes -= n
}

func (s *Stats) noteResize(from, to int) {
	s.LiveBytes += to - from
	s.peak()
}

func (s *Stats) peak() {
	if s.LiveBytes > s.PeakBytes {
		s.PeakBytes = s.LiveBytes
	}
}
