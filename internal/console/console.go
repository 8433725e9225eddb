// Package console re-encodes diagnostic text for terminals and serial
// consoles that do not speak UTF-8.
package console

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var charsets = map[string]*charmap.Charmap{
	"cp437":        charmap.CodePage437,
	"cp850":        charmap.CodePage850,
	"latin1":       charmap.ISO8859_1,
	"iso-8859-1":   charmap.ISO8859_1,
	"windows-1252": charmap.Windows1252,
}

// Names lists the accepted charset names, utf8 included.
func Names() []string {
	out := []string{"utf8"}
	for name := range charsets {
		out = append(out, name)
	}
	sort.Strings(out[1:])
	return out
}

// NewWriter returns a writer that encodes UTF-8 text written to it into
// charset before passing it to w. Runes the charset lacks are replaced.
// Close flushes buffered output; it does not close w.
func NewWriter(w io.Writer, charset string) (io.WriteCloser, error) {
	name := strings.ToLower(strings.TrimSpace(charset))
	switch name {
	case "", "utf8", "utf-8":
		return nopCloser{w}, nil
	}
	cm, ok := charsets[name]
	if !ok {
		return nil, fmt.Errorf("console: unknown charset %q (want one of %s)", charset, strings.Join(Names(), ", "))
	}
	enc := encoding.ReplaceUnsupported(cm.NewEncoder())
	return transform.NewWriter(w, enc), nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
