// Package arena carves variable-sized blocks out of a single caller supplied
// byte buffer and reclaims them, without touching the Go heap after setup.
//
// # Overview
//
// An Arena keeps every block of its buffer, free or allocated, in one
// circular doubly linked list ordered by address. The list lives inside the
// buffer itself: each region starts with a header and ends with a footer.
//
//	+--------+--------+--------+--------+---------------+--------+
//	| size   | tag    | state  | prev   | next | payload | footer |
//	+--------+--------+--------+--------+---------------+--------+
//
// Links and footers hold byte offsets relative to the start of the managed
// area, so the bookkeeping is position independent. A zero-payload sentinel
// region at the very end of the managed area closes the list; it is always
// allocated and is never merged.
//
// # Allocation
//
// Alloc looks for a free region of exactly the padded size and otherwise
// takes the first larger one. The tail is split off as a new free region only
// when it can hold a minimum block; otherwise the caller gets the whole
// region. Free merges the released region with a free predecessor, then with
// a free successor, so two free regions are never adjacent.
//
// # Corruption
//
// Every operation validates the regions it touches, including their
// neighbours: magic tag, state word, size, footer and links. A violation is
// reported as a *CorruptionError (errors.Is(err, ErrCorrupt)) after the
// configured FatalHandler has run. The default handler panics; with
// ReturnOnCorruption the call returns the error and the Arena refuses all
// further work.
//
// # Usage Example
//
//	a, err := arena.New(make([]byte, 4096))
//	if err != nil {
//	    return err
//	}
//	p, b, err := a.Alloc(100)
//	if err != nil {
//	    return err
//	}
//	copy(b, payload)
//	defer a.Free(p)
//
// # Thread Safety
//
// An Arena is not safe for concurrent use. Package heap wraps one behind a
// mutex.
package arena
