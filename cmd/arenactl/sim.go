package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/joshuapare/bufalloc/aligned"
	"github.com/joshuapare/bufalloc/arena"
	"github.com/joshuapare/bufalloc/arena/verify"
	"github.com/joshuapare/bufalloc/heap"
)

var (
	simWorkers  int
	simSteps    int
	simSeed     int64
	simMaxAlloc int
	simMetrics  string
)

func init() {
	rootCmd.AddCommand(newSimCmd())
}

func newSimCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sim",
		Short: "Run a seeded random workload with invariant checks",
		Long: `The sim command runs random alloc, aligned alloc, realloc and free
operations against independent arenas, one per worker, and checks every
arena invariant after each step. Worker i uses seed+i, so runs are
reproducible.

Example:
  arenactl sim --steps 10000 --seed 7
  arenactl sim --workers 4 --metrics stdout --format cbor > report.cbor`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSim(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&simWorkers, "workers", 1, "Number of concurrent workers, each with its own arena")
	cmd.Flags().IntVar(&simSteps, "steps", 1000, "Operations per worker")
	cmd.Flags().Int64Var(&simSeed, "seed", 1, "Random seed of worker 0")
	cmd.Flags().IntVar(&simMaxAlloc, "max-alloc", 512, "Largest single request in bytes")
	cmd.Flags().StringVar(&simMetrics, "metrics", "none", "Metrics exporter: none or stdout")
	return cmd
}

type workerReport struct {
	Worker int        `json:"worker"`
	Seed   int64      `json:"seed"`
	Steps  int        `json:"steps"`
	Failed int        `json:"failed"`
	Heap   heapReport `json:"heap"`
}

type simReport struct {
	Workers []workerReport `json:"workers"`
}

func runSim(ctx context.Context) (err error) {
	if simWorkers < 1 || simSteps < 0 || simMaxAlloc < 1 {
		return fmt.Errorf("invalid workload: workers %d, steps %d, max-alloc %d", simWorkers, simSteps, simMaxAlloc)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	mp, shutdown, err := newMeterProvider(simMetrics)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, shutdown()) }()
	meter := mp.Meter("github.com/joshuapare/bufalloc/cmd/arenactl")

	reports := make([]workerReport, simWorkers)
	g, ctx := errgroup.WithContext(ctx)
	for i := range simWorkers {
		g.Go(func() error {
			rep, err := simulate(ctx, i, meter)
			reports[i] = rep
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return emit(simReport{Workers: reports}, func() {
		for _, r := range reports {
			printInfo("\nWorker %d (seed %d): %d steps, %d failed for lack of space\n", r.Worker, r.Seed, r.Steps, r.Failed)
			printHeapReport(r.Heap, "  ")
		}
	})
}

type simBlock struct {
	p     arena.Ptr
	align int
}

// simulate runs one worker's workload on its own heap and tears it down,
// failing if any invariant breaks or memory is not fully returned.
func simulate(ctx context.Context, worker int, meter metric.Meter) (workerReport, error) {
	seed := simSeed + int64(worker)
	rep := workerReport{Worker: worker, Seed: seed, Steps: simSteps}
	name := fmt.Sprintf("worker-%d", worker)

	h, err := newHeap(bufSize, name, heap.WithMeter(meter))
	if err != nil {
		return rep, fmt.Errorf("%s: %w", name, err)
	}
	defer h.Close()

	rng := rand.New(rand.NewSource(seed))
	var live []simBlock

	for step := range simSteps {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		err := simStep(h, rng, &live)
		if errors.Is(err, arena.ErrNoSpace) {
			rep.Failed++
		} else if err != nil {
			return rep, fmt.Errorf("%s step %d: %w", name, step, err)
		}
		if err := verify.AllInvariants(h); err != nil {
			return rep, fmt.Errorf("%s step %d: %w", name, step, err)
		}
	}

	if rep.Heap, err = summarize(h, bufSize); err != nil {
		return rep, err
	}
	logger.Debug("worker done", "worker", worker, "live", len(live), "failed", rep.Failed)

	for _, b := range live {
		if err := freeBlock(h, b); err != nil {
			return rep, fmt.Errorf("%s teardown: %w", name, err)
		}
	}
	if free, total := h.FreeBytes(), h.TotalBytes(); free != total {
		return rep, fmt.Errorf("%s: %d of %d bytes not returned after teardown", name, total-free, total)
	}
	return rep, nil
}

func simStep(h *heap.Heap, rng *rand.Rand, live *[]simBlock) error {
	switch op := rng.Intn(20); {
	case op < 8:
		p, _, err := h.Alloc(1 + rng.Intn(simMaxAlloc))
		if err != nil {
			return err
		}
		*live = append(*live, simBlock{p: p})

	case op < 10:
		align := 1 << (3 + rng.Intn(6))
		p, _, err := aligned.Alloc(h, align, 1+rng.Intn(simMaxAlloc))
		if err != nil {
			return err
		}
		*live = append(*live, simBlock{p: p, align: align})

	case op < 14:
		if len(*live) == 0 {
			return nil
		}
		i := rng.Intn(len(*live))
		b := (*live)[i]
		size := 1 + rng.Intn(2*simMaxAlloc)
		var (
			p   arena.Ptr
			err error
		)
		if b.align > 0 {
			p, _, err = aligned.Realloc(h, b.p, b.align, size)
		} else {
			p, _, err = h.Realloc(b.p, size)
		}
		if err != nil {
			return err
		}
		(*live)[i].p = p

	default:
		if len(*live) == 0 {
			return nil
		}
		i := rng.Intn(len(*live))
		b := (*live)[i]
		*live = append((*live)[:i], (*live)[i+1:]...)
		return freeBlock(h, b)
	}
	return nil
}

func freeBlock(h *heap.Heap, b simBlock) error {
	if b.align > 0 {
		return aligned.Free(h, b.p)
	}
	return h.Free(b.p)
}
