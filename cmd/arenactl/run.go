package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/bufalloc/heap"
	"github.com/joshuapare/bufalloc/internal/console"
	"github.com/joshuapare/bufalloc/internal/writer"
)

var runImage string

func init() {
	rootCmd.AddCommand(newRunCmd())
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <trace>",
		Short: "Replay an allocation trace against a fresh arena",
		Long: `The run command replays a trace file against a fresh arena and reports
the final state. Each line holds one operation:

  alloc   <name> <size>
  calloc  <name> <count> <size>
  aligned <name> <alignment> <size>
  realloc <name> <size>
  free    <name>
  fill    <name> <byte>
  dump
  check

Allocations that find no space are counted and skipped; corruption stops the
replay with an error.

Example:
  arenactl run workload.trace
  arenactl run workload.trace --size 4096 --json
  arenactl run workload.trace --image final.img`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(args)
		},
	}
	cmd.Flags().StringVar(&runImage, "image", "", "Write the final arena image to this file")
	return cmd
}

type runReport struct {
	Trace  string     `json:"trace"`
	Ops    int        `json:"ops"`
	Failed int        `json:"failed"`
	Live   int        `json:"live"`
	Image  string     `json:"image,omitempty"`
	Heap   heapReport `json:"heap"`
}

func runRun(args []string) error {
	path := args[0]
	printVerbose("Replaying trace: %s\n", path)

	ops, err := readTrace(path)
	if err != nil {
		return err
	}

	h, err := newHeap(bufSize, "run")
	if err != nil {
		return fmt.Errorf("failed to create arena: %w", err)
	}
	defer h.Close()

	f, err := outputFormat()
	if err != nil {
		return err
	}
	// Keep structured output clean: dumps go to stderr unless printing text.
	var dumpTo io.Writer = os.Stdout
	if f != "text" {
		dumpTo = os.Stderr
	}
	out, err := console.NewWriter(dumpTo, charset)
	if err != nil {
		return err
	}

	r := newReplayer(h, out)
	for _, op := range ops {
		if err := r.apply(op); err != nil {
			out.Close()
			return err
		}
	}
	if err := out.Close(); err != nil {
		return err
	}

	if runImage != "" {
		if err := saveImage(h, &writer.FileWriter{Path: runImage}); err != nil {
			return err
		}
		printVerbose("Wrote arena image: %s\n", runImage)
	}

	hr, err := summarize(h, bufSize)
	if err != nil {
		return err
	}
	rep := runReport{Trace: path, Ops: len(ops), Failed: r.failed, Live: len(r.live), Image: runImage, Heap: hr}
	return emit(rep, func() {
		printInfo("\nTrace: %s\n", path)
		printInfo("  Operations: %d (%d failed for lack of space)\n", rep.Ops, rep.Failed)
		printInfo("  Live blocks: %d\n", rep.Live)
		printHeapReport(hr, "  ")
	})
}

func saveImage(h *heap.Heap, sink writer.Sink) error {
	img, err := h.Image()
	if err != nil {
		return err
	}
	if err := sink.WriteImage(img); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	return nil
}

func readTrace(path string) ([]traceOp, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace: %w", err)
	}
	defer file.Close()
	ops, err := parseTrace(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ops, nil
}
