// Package verify checks whole-arena invariants. It is used by tests and by
// arenactl sim after every step of a workload.
//
// # Quick Start
//
//	a, _ := arena.New(make([]byte, 4096))
//	if err := verify.AllInvariants(a); err != nil {
//	    fmt.Printf("arena broken: %v\n", err)
//	}
//
// # Checks
//
//   - Layout: regions start at offset 0, follow each other without gaps, end
//     exactly at the sentinel and are word aligned with at least the minimum
//     block size.
//   - Coalesced: no two free regions are adjacent.
//   - Accounting: FreeBytes matches the free regions and the live counters
//     in Stats match the allocated ones.
//
// Per-region checks (tag, state, footer, links) run inside the arena while
// Regions walks the list, so a damaged region surfaces as the arena's own
// corruption error.
//
// All functions return *ValidationError on an invariant violation.
package verify
