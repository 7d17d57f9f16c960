package memory

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/bouquent/allocator-vec/internal/metrics"
)

// SystemAllocator is the backing allocator the pool grows its arena from and
// forwards large requests to. Implementations either return a slice of exactly
// size bytes or fail immediately; they never block or retry.
type SystemAllocator interface {
	Allocate(size int) ([]byte, error)
	Free(b []byte)
}

// Backend names accepted by NewSystem.
const (
	BackendGo    = "go"
	BackendMmap  = "mmap"
	BackendArrow = "arrow"
)

// NewSystem builds the named backend. A positive limit caps the bytes the
// backend may have outstanding at once.
func NewSystem(backend string, limit int64) (SystemAllocator, error) {
	var sys SystemAllocator
	switch backend {
	case BackendGo, "":
		backend = BackendGo
		sys = GoSystem{}
	case BackendMmap:
		sys = MmapSystem{}
	case BackendArrow:
		sys = NewArrowSystem(nil)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
	if limit > 0 {
		sys = NewLimitedSystem(sys, limit)
	}
	return NewTrackingSystem(sys, backend), nil
}

// GoSystem allocates from the Go heap.
type GoSystem struct{}

func (GoSystem) Allocate(size int) ([]byte, error) {
	if size < 0 {
		return nil, ErrInvalidSize
	}
	return make([]byte, size), nil
}

// Free drops the reference and leaves reclamation to the garbage collector.
func (GoSystem) Free([]byte) {}

// ArrowSystem obtains memory from an arrow memory.Allocator.
type ArrowSystem struct {
	mem memory.Allocator
}

// NewArrowSystem wraps mem. If mem is nil, memory.DefaultAllocator is used.
func NewArrowSystem(mem memory.Allocator) *ArrowSystem {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	return &ArrowSystem{mem: mem}
}

func (a *ArrowSystem) Allocate(size int) (b []byte, err error) {
	if size < 0 {
		return nil, ErrInvalidSize
	}
	// arrow allocators signal exhaustion by panicking
	defer func() {
		if r := recover(); r != nil {
			b, err = nil, fmt.Errorf("arrow allocate %d bytes: %v", size, r)
		}
	}()
	return a.mem.Allocate(size), nil
}

func (a *ArrowSystem) Free(b []byte) {
	a.mem.Free(b)
}

// LimitedSystem caps the number of bytes outstanding in a base allocator.
type LimitedSystem struct {
	base  SystemAllocator
	limit int64
	used  int64
}

func NewLimitedSystem(base SystemAllocator, limit int64) *LimitedSystem {
	return &LimitedSystem{base: base, limit: limit}
}

func (l *LimitedSystem) Allocate(size int) ([]byte, error) {
	if l.used+int64(size) > l.limit {
		return nil, fmt.Errorf("%w: %d of %d bytes in use, %d requested", ErrSystemLimit, l.used, l.limit, size)
	}
	b, err := l.base.Allocate(size)
	if err != nil {
		return nil, err
	}
	l.used += int64(size)
	return b, nil
}

func (l *LimitedSystem) Free(b []byte) {
	l.used -= int64(len(b))
	l.base.Free(b)
}

// Used returns the bytes currently outstanding.
func (l *LimitedSystem) Used() int64 { return l.used }

// TrackingSystem wraps a SystemAllocator and updates Prometheus metrics.
type TrackingSystem struct {
	SystemAllocator
	backend string

	BytesAllocated int64
	BytesFreed     int64
}

// NewTrackingSystem labels all metrics of base with backend.
func NewTrackingSystem(base SystemAllocator, backend string) *TrackingSystem {
	return &TrackingSystem{SystemAllocator: base, backend: backend}
}

func (t *TrackingSystem) Allocate(size int) ([]byte, error) {
	b, err := t.SystemAllocator.Allocate(size)
	if err != nil {
		metrics.SystemFailuresTotal.WithLabelValues(t.backend).Inc()
		return nil, err
	}
	t.BytesAllocated += int64(size)
	metrics.SystemAllocatedBytesTotal.WithLabelValues(t.backend).Add(float64(size))
	metrics.SystemAllocationsActive.WithLabelValues(t.backend).Inc()
	return b, nil
}

func (t *TrackingSystem) Free(b []byte) {
	t.BytesFreed += int64(len(b))
	metrics.SystemFreedBytesTotal.WithLabelValues(t.backend).Add(float64(len(b)))
	metrics.SystemAllocationsActive.WithLabelValues(t.backend).Dec()
	t.SystemAllocator.Free(b)
}

var (
	_ SystemAllocator = GoSystem{}
	_ SystemAllocator = (*ArrowSystem)(nil)
	_ SystemAllocator = (*LimitedSystem)(nil)
	_ SystemAllocator = (*TrackingSystem)(nil)
)
