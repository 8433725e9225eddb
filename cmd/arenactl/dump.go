package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/bufalloc/internal/console"
)

func init() {
	rootCmd.AddCommand(newDumpCmd())
}

func newDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump [trace]",
		Short: "Print the region list of an arena",
		Long: `The dump command prints every region of an arena, forward then backward,
with its offset, payload offset, size, state and the validity of its magic tag
and footer. With a trace argument the trace is replayed first.

Example:
  arenactl dump
  arenactl dump workload.trace --charset cp437`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(args, os.Stdout)
		},
	}
	return cmd
}

func runDump(args []string, w io.Writer) error {
	h, err := newHeap(bufSize, "dump")
	if err != nil {
		return fmt.Errorf("failed to create arena: %w", err)
	}
	defer h.Close()

	if len(args) == 1 {
		ops, err := readTrace(args[0])
		if err != nil {
			return err
		}
		r := newReplayer(h, io.Discard)
		for _, op := range ops {
			if err := r.apply(op); err != nil {
				return err
			}
		}
	}

	out, err := console.NewWriter(w, charset)
	if err != nil {
		return err
	}
	if err := h.Dump(out); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
