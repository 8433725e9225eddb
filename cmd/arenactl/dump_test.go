package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDumpCommand(t *testing.T) {
	tests := []struct {
		name        string
		trace       string
		charset     string
		wantContain []string
		wantErr     bool
	}{
		{
			name:        "fresh arena",
			wantContain: []string{"forward:", "backward:", "free", "magic=OK footer=OK"},
		},
		{
			name:        "after trace",
			trace:       "alloc a 100\nalloc b 20\nfree a\n",
			wantContain: []string{"allocated", "free", "size=144"},
		},
		{
			name:        "cp437 output",
			trace:       "alloc a 10\n",
			charset:     "cp437",
			wantContain: []string{"allocated", "magic=OK"},
		},
		{
			name:    "unknown charset",
			charset: "klingon",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()
			bufSize = 1024
			if tt.charset != "" {
				charset = tt.charset
			}
			var args []string
			if tt.trace != "" {
				args = append(args, writeTrace(t, tt.trace))
			}

			var out bytes.Buffer
			err := runDump(args, &out)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assertContains(t, out.String(), tt.wantContain)
			require.Equal(t, 2, strings.Count(out.String(), "off=0x000000"))
		})
	}
}
