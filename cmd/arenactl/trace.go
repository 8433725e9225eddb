package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/joshuapare/bufalloc/aligned"
	"github.com/joshuapare/bufalloc/arena"
	"github.com/joshuapare/bufalloc/arena/verify"
	"github.com/joshuapare/bufalloc/heap"
)

// Trace files hold one operation per line; '#' starts a comment.
//
//	alloc   <name> <size>
//	calloc  <name> <count> <size>
//	aligned <name> <alignment> <size>
//	realloc <name> <size>
//	free    <name>
//	fill    <name> <byte>
//	dump
//	check
type traceOp struct {
	Line int
	Verb string
	Name string
	Args []int
}

// traceArity is the number of fields after the verb.
var traceArity = map[string]int{
	"alloc":   2,
	"calloc":  3,
	"aligned": 3,
	"realloc": 2,
	"free":    1,
	"fill":    2,
	"dump":    0,
	"check":   0,
}

func parseTrace(r io.Reader) ([]traceOp, error) {
	var ops []traceOp
	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		verb := strings.ToLower(fields[0])
		arity, ok := traceArity[verb]
		if !ok {
			return nil, fmt.Errorf("line %d: unknown operation %q", line, fields[0])
		}
		if len(fields)-1 != arity {
			return nil, fmt.Errorf("line %d: %s takes %d argument(s), got %d", line, verb, arity, len(fields)-1)
		}
		op := traceOp{Line: line, Verb: verb}
		if arity > 0 {
			op.Name = fields[1]
		}
		for _, f := range fields[min(2, len(fields)):] {
			n, err := strconv.ParseInt(f, 0, 0)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad number %q: %w", line, f, err)
			}
			op.Args = append(op.Args, int(n))
		}
		if verb == "fill" && (op.Args[0] < 0 || op.Args[0] > 0xFF) {
			return nil, fmt.Errorf("line %d: fill byte %d out of range", line, op.Args[0])
		}
		ops = append(ops, op)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return ops, nil
}

type liveBlock struct {
	p     arena.Ptr
	align int // 0 for plain allocations
}

// replayer applies trace operations to a heap.
type replayer struct {
	h      *heap.Heap
	out    io.Writer // dump destination
	live   map[string]liveBlock
	failed int
}

func newReplayer(h *heap.Heap, out io.Writer) *replayer {
	return &replayer{h: h, out: out, live: map[string]liveBlock{}}
}

func (r *replayer) apply(op traceOp) error {
	err := r.exec(op)
	if errors.Is(err, arena.ErrNoSpace) {
		r.failed++
		logger.Info("allocation failed", "line", op.Line, "op", op.Verb, "name", op.Name, "err", err)
		printVerbose("line %d: %s %s: %v\n", op.Line, op.Verb, op.Name, err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("line %d: %s %s: %w", op.Line, op.Verb, op.Name, err)
	}
	return nil
}

func (r *replayer) exec(op traceOp) error {
	switch op.Verb {
	case "alloc", "calloc", "aligned":
		if _, ok := r.live[op.Name]; ok {
			return fmt.Errorf("%q is already allocated", op.Name)
		}
		blk, err := r.allocate(op)
		if err != nil {
			return err
		}
		r.live[op.Name] = blk

	case "realloc":
		blk, ok := r.live[op.Name]
		if !ok {
			return fmt.Errorf("%q is not allocated", op.Name)
		}
		var (
			p   arena.Ptr
			err error
		)
		if blk.align > 0 {
			p, _, err = aligned.Realloc(r.h, blk.p, blk.align, op.Args[0])
		} else {
			p, _, err = r.h.Realloc(blk.p, op.Args[0])
		}
		if err != nil {
			return err
		}
		if p == arena.Nil {
			delete(r.live, op.Name)
		} else {
			blk.p = p
			r.live[op.Name] = blk
		}

	case "free":
		blk, ok := r.live[op.Name]
		if !ok {
			return fmt.Errorf("%q is not allocated", op.Name)
		}
		var err error
		if blk.align > 0 {
			err = aligned.Free(r.h, blk.p)
		} else {
			err = r.h.Free(blk.p)
		}
		if err != nil {
			return err
		}
		delete(r.live, op.Name)

	case "fill":
		b, err := r.payload(op.Name)
		if err != nil {
			return err
		}
		for i := range b {
			b[i] = byte(op.Args[0])
		}

	case "dump":
		return r.h.Dump(r.out)

	case "check":
		return verify.AllInvariants(r.h)
	}
	return nil
}

func (r *replayer) allocate(op traceOp) (liveBlock, error) {
	var (
		p   arena.Ptr
		err error
	)
	blk := liveBlock{}
	switch op.Verb {
	case "alloc":
		p, _, err = r.h.Alloc(op.Args[0])
	case "calloc":
		p, _, err = r.h.Calloc(op.Args[0], op.Args[1])
	case "aligned":
		blk.align = op.Args[0]
		if blk.align == 0 {
			blk.align = aligned.DefaultAlignment
		}
		p, _, err = aligned.Alloc(r.h, blk.align, op.Args[1])
	}
	if err != nil {
		return liveBlock{}, err
	}
	blk.p = p
	return blk, nil
}

// payload returns every usable byte of a live block.
func (r *replayer) payload(name string) ([]byte, error) {
	blk, ok := r.live[name]
	if !ok {
		return nil, fmt.Errorf("%q is not allocated", name)
	}
	if blk.align == 0 {
		return r.h.Bytes(blk.p)
	}
	n, err := aligned.Usable(r.h, blk.p)
	if err != nil {
		return nil, err
	}
	return r.h.Window(blk.p, n)
}
