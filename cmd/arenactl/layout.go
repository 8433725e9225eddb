package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/bufalloc/arena"
)

func init() {
	rootCmd.AddCommand(newLayoutCmd())
}

func newLayoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Print region layout constants and capacity for --size",
		Long: `The layout command prints the bookkeeping sizes of this platform and how
much of a buffer of --size bytes an arena can hand out.

Example:
  arenactl layout --size 4096
  arenactl layout --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLayout()
		},
	}
	return cmd
}

type layoutReport struct {
	WordSize     int  `json:"word_size"`
	HeaderSize   int  `json:"header_size"`
	FooterSize   int  `json:"footer_size"`
	MinBlockSize int  `json:"min_block_size"`
	SentinelSize int  `json:"sentinel_size"`
	MinArenaSize int  `json:"min_arena_size"`
	BufferSize   int  `json:"buffer_size"`
	Fits         bool `json:"fits"`
	AlignOffset  int  `json:"align_offset"`
	Capacity     int  `json:"capacity"`
	MaxAlloc     int  `json:"max_alloc"`
	MaxMinBlocks int  `json:"max_min_blocks"`
}

func runLayout() error {
	rep := layoutReport{
		WordSize:     arena.WordSize,
		HeaderSize:   arena.HeaderSize,
		FooterSize:   arena.FooterSize,
		MinBlockSize: arena.MinBlockSize,
		SentinelSize: arena.SentinelSize,
		MinArenaSize: arena.MinArenaSize,
		BufferSize:   bufSize,
	}
	if bufSize < 0 {
		return fmt.Errorf("invalid size %d", bufSize)
	}

	a, err := arena.New(make([]byte, bufSize))
	switch {
	case errors.Is(err, arena.ErrBufferTooSmall):
	case err != nil:
		return err
	default:
		rep.Fits = true
		rep.AlignOffset = a.AlignOffset()
		rep.Capacity = a.TotalBytes()
		rep.MaxAlloc = a.TotalBytes() - arena.Overhead
		rep.MaxMinBlocks = a.TotalBytes() / arena.MinBlockSize
	}

	return emit(rep, func() {
		printInfo("\nRegion layout (%d-byte words):\n", rep.WordSize)
		printInfo("  Header: %d bytes\n", rep.HeaderSize)
		printInfo("  Footer: %d bytes\n", rep.FooterSize)
		printInfo("  Minimum block: %d bytes\n", rep.MinBlockSize)
		printInfo("  Sentinel: %d bytes\n", rep.SentinelSize)
		printInfo("  Minimum buffer: %d bytes\n", rep.MinArenaSize)
		printInfo("\nBuffer of %d bytes:\n", rep.BufferSize)
		if !rep.Fits {
			printInfo("  too small for an arena\n")
			return
		}
		printInfo("  Alignment offset: %d\n", rep.AlignOffset)
		printInfo("  Capacity: %d bytes\n", rep.Capacity)
		printInfo("  Largest single allocation: %d bytes\n", rep.MaxAlloc)
		printInfo("  Minimum blocks that fit: %d\n", rep.MaxMinBlocks)
	})
}
