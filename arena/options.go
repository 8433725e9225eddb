package arena

import (
	"io"
	"log/slog"
)

// FatalHandler is invoked once when an arena detects corruption, before the
// failing call returns. A handler that returns lets the call report the
// *CorruptionError; the arena stays poisoned either way.
type FatalHandler func(err *CorruptionError)

// PanicOnCorruption is the default FatalHandler. It panics with the
// *CorruptionError so hosts can recover, log and terminate on their terms.
func PanicOnCorruption(err *CorruptionError) {
	panic(err)
}

// ReturnOnCorruption only lets the failing call return the error.
func ReturnOnCorruption(*CorruptionError) {}

// Options configures an Arena.
type Options struct {
	// Logger receives debug traces of every mutation and an error record on
	// corruption. Nil discards.
	Logger *slog.Logger

	// OnCorruption is the fatal handler. Nil means PanicOnCorruption.
	OnCorruption FatalHandler

	// ScrubOnFree fills released payloads with ScrubByte so use-after-free
	// reads stand out in dumps.
	ScrubOnFree bool
	ScrubByte   byte
}

// DefaultOptions is what New uses before applying Option values.
var DefaultOptions = Options{
	OnCorruption: PanicOnCorruption,
}

// Option mutates Options.
type Option func(*Options)

// WithLogger routes arena logging to l.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithFatalHandler replaces the corruption handler.
func WithFatalHandler(h FatalHandler) Option {
	return func(o *Options) { o.OnCorruption = h }
}

// WithScrubOnFree fills freed payloads with b.
func WithScrubOnFree(b byte) Option {
	return func(o *Options) {
		o.ScrubOnFree = true
		o.ScrubByte = b
	}
}

func (a *Arena) configure(opts []Option) {
	o := DefaultOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.OnCorruption == nil {
		o.OnCorruption = PanicOnCorruption
	}
	a.log = o.Logger
	a.onFatal = o.OnCorruption
	a.scrub = o.ScrubOnFree
	a.scrubByte = o.ScrubByte
}
