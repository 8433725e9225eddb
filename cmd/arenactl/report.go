package main

import (
	"github.com/joshuapare/bufalloc/arena"
	"github.com/joshuapare/bufalloc/heap"
)

// heapReport summarises the state of one heap. The json tags double as CBOR
// keys.
type heapReport struct {
	Backing       string      `json:"backing"`
	BufferSize    int         `json:"buffer_size"`
	Capacity      int         `json:"capacity"`
	FreeBytes     int         `json:"free_bytes"`
	LargestFree   int         `json:"largest_free"`
	Regions       int         `json:"regions"`
	FreeRegions   int         `json:"free_regions"`
	Fragmentation float64     `json:"fragmentation"`
	Stats         arena.Stats `json:"stats"`
}

func summarize(h *heap.Heap, size int) (heapReport, error) {
	regions, err := h.Regions()
	if err != nil {
		return heapReport{}, err
	}
	rep := heapReport{
		Backing:    backing,
		BufferSize: size,
		Capacity:   h.TotalBytes(),
		Regions:    len(regions),
		Stats:      h.Stats(),
	}
	for _, r := range regions {
		if r.State != arena.Free {
			continue
		}
		rep.FreeRegions++
		rep.FreeBytes += r.Size
		rep.LargestFree = max(rep.LargestFree, r.Size)
	}
	if rep.FreeBytes > 0 {
		rep.Fragmentation = 1 - float64(rep.LargestFree)/float64(rep.FreeBytes)
	}
	return rep, nil
}

func printHeapReport(r heapReport, indent string) {
	printInfo("%sBacking: %s (%d bytes)\n", indent, r.Backing, r.BufferSize)
	printInfo("%sCapacity: %d bytes\n", indent, r.Capacity)
	printInfo("%sFree: %d bytes in %d region(s), largest %d\n", indent, r.FreeBytes, r.FreeRegions, r.LargestFree)
	printInfo("%sLive: %d region(s), %d bytes, peak %d\n", indent, r.Stats.LiveRegions, r.Stats.LiveBytes, r.Stats.PeakBytes)
	printInfo("%sFragmentation: %.1f%%\n", indent, r.Fragmentation*100)
	printVerbose("%sCalls: alloc %d, free %d, realloc %d, failed %d\n", indent,
		r.Stats.AllocCalls, r.Stats.FreeCalls, r.Stats.ReallocCalls, r.Stats.Failures)
	printVerbose("%sFits: exact %d, first %d; splits %d; merges %d left, %d right\n", indent,
		r.Stats.ExactFits, r.Stats.FirstFits, r.Stats.Splits, r.Stats.MergeLeft, r.Stats.MergeRight)
	printVerbose("%sRealloc: %d grown, %d shrunk in place, %d moved\n", indent,
		r.Stats.GrowInPlace, r.Stats.ShrinkInPlace, r.Stats.Moves)
}
