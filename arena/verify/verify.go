package verify

import (
	"fmt"

	"github.com/joshuapare/bufalloc/arena"
)

// Inspector is the read-only view of an arena the checks need. *arena.Arena
// and *heap.Heap both provide it.
type Inspector interface {
	Regions() ([]arena.RegionInfo, error)
	FreeBytes() int
	TotalBytes() int
	Stats() arena.Stats
	Addr(p arena.Ptr) uintptr
}

// ValidationError describes a violated invariant.
type ValidationError struct {
	Type    string
	Message string
	Offset  int
}

func (e *ValidationError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s at offset 0x%X: %s", e.Type, e.Offset, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// AllInvariants runs every check and returns the first failure.
func AllInvariants(a Inspector) error {
	regions, err := a.Regions()
	if err != nil {
		return err
	}
	if err := layout(a, regions); err != nil {
		return err
	}
	if err := coalesced(regions); err != nil {
		return err
	}
	return accounting(a, regions)
}

// Layout checks that the regions tile the managed area.
func Layout(a Inspector) error {
	regions, err := a.Regions()
	if err != nil {
		return err
	}
	return layout(a, regions)
}

// Coalesced checks that no two free regions touch.
func Coalesced(a Inspector) error {
	regions, err := a.Regions()
	if err != nil {
		return err
	}
	return coalesced(regions)
}

// Accounting checks FreeBytes and the live counters against the regions.
func Accounting(a Inspector) error {
	regions, err := a.Regions()
	if err != nil {
		return err
	}
	return accounting(a, regions)
}

func layout(a Inspector, regions []arena.RegionInfo) error {
	if len(regions) == 0 {
		return &ValidationError{Type: "Layout", Message: "no regions", Offset: -1}
	}
	next := 0
	for _, r := range regions {
		if r.Offset != next {
			return &ValidationError{
				Type:    "Layout",
				Message: fmt.Sprintf("region starts at %d, previous ended at %d", r.Offset, next),
				Offset:  r.Offset,
			}
		}
		if r.Size < arena.MinBlockSize || r.Size%arena.WordSize != 0 {
			return &ValidationError{
				Type:    "Layout",
				Message: fmt.Sprintf("size %d below minimum %d or not word aligned", r.Size, arena.MinBlockSize),
				Offset:  r.Offset,
			}
		}
		if r.Usable != r.Size-arena.Overhead {
			return &ValidationError{
				Type:    "Layout",
				Message: fmt.Sprintf("usable %d does not match size %d", r.Usable, r.Size),
				Offset:  r.Offset,
			}
		}
		if addr := a.Addr(r.Ptr); addr%uintptr(arena.WordSize) != 0 {
			return &ValidationError{
				Type:    "Layout",
				Message: fmt.Sprintf("payload address 0x%X not word aligned", addr),
				Offset:  r.Offset,
			}
		}
		next = r.Offset + r.Size
	}
	if next != a.TotalBytes() {
		return &ValidationError{
			Type:    "Layout",
			Message: fmt.Sprintf("regions end at %d, sentinel at %d", next, a.TotalBytes()),
			Offset:  next,
		}
	}
	return nil
}

func coalesced(regions []arena.RegionInfo) error {
	for i := 1; i < len(regions); i++ {
		if regions[i-1].State == arena.Free && regions[i].State == arena.Free {
			return &ValidationError{
				Type:    "Coalesced",
				Message: fmt.Sprintf("free regions %d and %d are adjacent", regions[i-1].Offset, regions[i].Offset),
				Offset:  regions[i].Offset,
			}
		}
	}
	return nil
}

func accounting(a Inspector, regions []arena.RegionInfo) error {
	var free, live, count int
	for _, r := range regions {
		if r.State == arena.Free {
			free += r.Size
			continue
		}
		live += r.Size
		count++
	}
	if got := a.FreeBytes(); got != free {
		return &ValidationError{
			Type:    "Accounting",
			Message: fmt.Sprintf("FreeBytes %d, free regions hold %d", got, free),
			Offset:  -1,
		}
	}
	if free+live != a.TotalBytes() {
		return &ValidationError{
			Type:    "Accounting",
			Message: fmt.Sprintf("free %d + allocated %d != total %d", free, live, a.TotalBytes()),
			Offset:  -1,
		}
	}
	st := a.Stats()
	if st.LiveBytes != live || st.LiveRegions != count {
		return &ValidationError{
			Type: "Accounting",
			Message: fmt.Sprintf("stats report %d regions / %d bytes live, list holds %d / %d",
				st.LiveRegions, st.LiveBytes, count, live),
			Offset: -1,
		}
	}
	return nil
}
