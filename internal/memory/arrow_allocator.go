package memory

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/apache/arrow-go/v18/arrow/memory"
)

type arrowBlock struct {
	ptr  Ptr
	size int
}

// ArrowAllocator exposes a Pool as an arrow memory.Allocator so arrow builders
// and buffers can draw their small allocations from the free lists.
// The Allocator interface cannot report errors; exhaustion panics, as arrow's
// own allocators do.
type ArrowAllocator struct {
	mu        sync.Mutex
	pool      *Pool
	live      map[unsafe.Pointer]arrowBlock
	allocated int64
}

// NewArrowAllocator wraps pool. The pool must not be used concurrently by
// anything else while the adapter is in use.
func NewArrowAllocator(pool *Pool) *ArrowAllocator {
	return &ArrowAllocator{
		pool: pool,
		live: make(map[unsafe.Pointer]arrowBlock),
	}
}

// Allocate returns a slice of exactly size bytes.
func (a *ArrowAllocator) Allocate(size int) []byte {
	if size <= 0 {
		return []byte{}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	ptr, err := a.pool.Allocate(size)
	if err != nil {
		panic(err)
	}
	return a.track(ptr, size)
}

// Reallocate resizes b, preserving its contents up to the smaller size.
func (a *ArrowAllocator) Reallocate(size int, b []byte) []byte {
	if cap(b) == 0 {
		return a.Allocate(size)
	}
	if size <= 0 {
		a.Free(b)
		return []byte{}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	blk := a.untrack(b)
	ptr, err := a.pool.Reallocate(blk.ptr, blk.size, size)
	if err != nil {
		a.track(blk.ptr, blk.size)
		panic(err)
	}
	return a.track(ptr, size)
}

// Free returns b to the pool.
func (a *ArrowAllocator) Free(b []byte) {
	if cap(b) == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	blk := a.untrack(b)
	a.pool.Deallocate(blk.ptr, blk.size)
}

// Allocated returns the bytes currently handed out through this adapter.
func (a *ArrowAllocator) Allocated() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.allocated
}

// AssertSize is a test helper that returns an error if size mismatch occurs
func (a *ArrowAllocator) AssertSize(sz int) error {
	if got := a.Allocated(); int(got) != sz {
		return fmt.Errorf("allocator size mismatch: expected %d, got %d", sz, got)
	}
	return nil
}

func (a *ArrowAllocator) track(ptr Ptr, size int) []byte {
	buf := a.pool.Bytes(ptr, size)
	a.live[unsafe.Pointer(unsafe.SliceData(buf))] = arrowBlock{ptr: ptr, size: size}
	a.allocated += int64(size)
	return buf
}

func (a *ArrowAllocator) untrack(b []byte) arrowBlock {
	key := unsafe.Pointer(unsafe.SliceData(b))
	blk, ok := a.live[key]
	if !ok {
		panic(fmt.Sprintf("memory: buffer %p was not allocated by this ArrowAllocator", key))
	}
	delete(a.live, key)
	a.allocated -= int64(blk.size)
	return blk
}

var _ memory.Allocator = (*ArrowAllocator)(nil)
