// Package heap provides a lock-guarded arena handle for callers that want a
// single shared allocator without a package-level default instance.
//
// A *Heap is created explicitly and passed to whoever allocates from it. It
// implements aligned.Allocator and verify.Inspector.
package heap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/joshuapare/bufalloc/arena"
	"github.com/joshuapare/bufalloc/internal/mmfile"
)

// ErrClosed indicates use of a Heap after Close.
var ErrClosed = errors.New("heap: closed")

// Heap is an Arena behind a mutex.
type Heap struct {
	mu     sync.Mutex
	a      *arena.Arena
	closed bool
	unmap  func() error

	attrs      metric.MeasurementOption
	allocCalls metric.Int64Counter
	freeCalls  metric.Int64Counter
	failures   metric.Int64Counter
	reg        metric.Registration
}

type config struct {
	arenaOpts []arena.Option
	meter     metric.Meter
	name      string
}

// Option configures a Heap.
type Option func(*config)

// WithArenaOptions passes options through to the underlying arena.
func WithArenaOptions(opts ...arena.Option) Option {
	return func(c *config) { c.arenaOpts = append(c.arenaOpts, opts...) }
}

// WithMeter reports heap metrics through m.
func WithMeter(m metric.Meter) Option {
	return func(c *config) { c.meter = m }
}

// WithName labels the heap's metrics with a "heap" attribute.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

// New builds a Heap over b.
func New(b []byte, opts ...Option) (*Heap, error) {
	cfg := config{name: "default"}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.meter == nil {
		cfg.meter = noop.NewMeterProvider().Meter("heap")
	}

	a, err := arena.New(b, cfg.arenaOpts...)
	if err != nil {
		return nil, err
	}
	h := &Heap{
		a:     a,
		attrs: metric.WithAttributes(attribute.String("heap", cfg.name)),
	}
	if err := h.initMetrics(cfg.meter); err != nil {
		return nil, err
	}
	return h, nil
}

// NewMapped builds a Heap over size bytes of anonymous memory mapped outside
// the Go heap. Close releases the mapping.
func NewMapped(size int, opts ...Option) (*Heap, error) {
	b, unmap, err := mmfile.MapAnon(size)
	if err != nil {
		return nil, err
	}
	h, err := New(b, opts...)
	if err != nil {
		return nil, errors.Join(err, unmap())
	}
	h.unmap = unmap
	return h, nil
}

func (h *Heap) initMetrics(m metric.Meter) (err error) {
	if h.allocCalls, err = m.Int64Counter("heap.alloc.calls",
		metric.WithDescription("Number of allocation requests."),
		metric.WithUnit("{call}"),
	); err != nil {
		return fmt.Errorf("creating alloc counter: %w", err)
	}
	if h.freeCalls, err = m.Int64Counter("heap.free.calls",
		metric.WithDescription("Number of free requests."),
		metric.WithUnit("{call}"),
	); err != nil {
		return fmt.Errorf("creating free counter: %w", err)
	}
	if h.failures, err = m.Int64Counter("heap.alloc.failures",
		metric.WithDescription("Allocation requests that found no free region."),
		metric.WithUnit("{call}"),
	); err != nil {
		return fmt.Errorf("creating failure counter: %w", err)
	}

	free, err := m.Int64ObservableUpDownCounter("heap.free_bytes",
		metric.WithDescription("Bytes held by free regions."),
		metric.WithUnit("By"))
	if err != nil {
		return fmt.Errorf("creating free bytes gauge: %w", err)
	}
	total, err := m.Int64ObservableUpDownCounter("heap.total_bytes",
		metric.WithDescription("Usable capacity of the arena."),
		metric.WithUnit("By"))
	if err != nil {
		return fmt.Errorf("creating total bytes gauge: %w", err)
	}
	live, err := m.Int64ObservableUpDownCounter("heap.live_regions",
		metric.WithDescription("Allocated regions."),
		metric.WithUnit("{region}"))
	if err != nil {
		return fmt.Errorf("creating live regions gauge: %w", err)
	}

	h.reg, err = m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		h.mu.Lock()
		closed := h.closed
		st, capacity := h.a.Stats(), h.a.TotalBytes()
		h.mu.Unlock()
		if closed {
			return nil
		}
		// Derived from counters so collection never walks a possibly damaged list.
		o.ObserveInt64(free, int64(capacity-st.LiveBytes), h.attrs)
		o.ObserveInt64(total, int64(capacity), h.attrs)
		o.ObserveInt64(live, int64(st.LiveRegions), h.attrs)
		return nil
	}, free, total, live)
	if err != nil {
		return fmt.Errorf("registering heap callback: %w", err)
	}
	return nil
}

// Alloc allocates size bytes.
func (h *Heap) Alloc(size int) (arena.Ptr, []byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return arena.Nil, nil, ErrClosed
	}
	h.allocCalls.Add(context.Background(), 1, h.attrs)
	p, b, err := h.a.Alloc(size)
	if errors.Is(err, arena.ErrNoSpace) {
		h.failures.Add(context.Background(), 1, h.attrs)
	}
	return p, b, err
}

// Calloc allocates n*size bytes and zeroes the whole usable payload.
func (h *Heap) Calloc(n, size int) (arena.Ptr, []byte, error) {
	if n < 0 || size < 0 || (size != 0 && n > math.MaxInt/size) {
		return arena.Nil, nil, fmt.Errorf("%w: %d x %d", arena.ErrInvalidSize, n, size)
	}
	p, b, err := h.Alloc(n * size)
	if err != nil {
		return arena.Nil, nil, err
	}
	clear(b[:cap(b)])
	return p, b, nil
}

// Free releases p.
func (h *Heap) Free(p arena.Ptr) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	h.freeCalls.Add(context.Background(), 1, h.attrs)
	return h.a.Free(p)
}

// Realloc resizes p; see arena.Arena.Realloc.
func (h *Heap) Realloc(p arena.Ptr, size int) (arena.Ptr, []byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return arena.Nil, nil, ErrClosed
	}
	q, b, err := h.a.Realloc(p, size)
	if errors.Is(err, arena.ErrNoSpace) {
		h.failures.Add(context.Background(), 1, h.attrs)
	}
	return q, b, err
}

// FreeBytes sums the free regions.
func (h *Heap) FreeBytes() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.a.FreeBytes()
}

// TotalBytes is the usable capacity.
func (h *Heap) TotalBytes() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.a.TotalBytes()
}

// Dump writes the region listing to w.
func (h *Heap) Dump(w io.Writer) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.a.Dump(w)
}

// Owns reports whether p names a live allocation.
func (h *Heap) Owns(p arena.Ptr) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.a.Owns(p)
}

// Image returns a copy of the managed area.
func (h *Heap) Image() ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.a.Image()
}

// Regions returns a snapshot of the region list.
func (h *Heap) Regions() ([]arena.RegionInfo, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.a.Regions()
}

// Usable returns the payload capacity behind p.
func (h *Heap) Usable(p arena.Ptr) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.a.Usable(p)
}

// Bytes returns the whole payload behind p.
func (h *Heap) Bytes(p arena.Ptr) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.a.Bytes(p)
}

// Window returns n bytes of the managed area at p.
func (h *Heap) Window(p arena.Ptr, n int) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.a.Window(p, n)
}

// Addr returns the machine address of p.
func (h *Heap) Addr(p arena.Ptr) uintptr {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.a.Addr(p)
}

// Stats returns the arena counters.
func (h *Heap) Stats() arena.Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.a.Stats()
}

// Destroy zeroes the buffer, stops metric collection and releases a mapping
// made by NewMapped. The Heap is unusable afterwards.
func (h *Heap) Destroy() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrClosed
	}
	h.closed = true
	h.mu.Unlock()

	// A collection in progress holds the reader and waits on h.mu.
	errs := []error{h.reg.Unregister()}

	h.mu.Lock()
	defer h.mu.Unlock()
	errs = append(errs, h.a.Destroy())
	if h.unmap != nil {
		errs = append(errs, h.unmap())
	}
	return errors.Join(errs...)
}

// Close implements io.Closer by calling Destroy.
func (h *Heap) Close() error {
	return h.Destroy()
}
