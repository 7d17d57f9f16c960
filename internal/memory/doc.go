// Package memory implements a size-class pool allocator.
//
// # Overview
//
// Requests of at most MaxBytes (128) bytes are rounded up to a multiple of
// Align (8) and served from one of NumClasses (16) LIFO free lists. An empty
// list is refilled with a batch of BatchObjects (20) blocks carved from the
// arena window, a byte range of the most recent system allocation. Requests
// above MaxBytes bypass the lists and go to the SystemAllocator directly.
//
//	pool, err := memory.New(memory.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	p, err := pool.Allocate(24)       // class 2, 24-byte block
//	buf := pool.Bytes(p, 24)
//	...
//	pool.Deallocate(p, 24)            // same size as the allocation
//
// # Handles
//
// Blocks are addressed by Ptr handles (region id + offset) rather than Go
// pointers. A free block stores the handle of the next free block in its first
// eight bytes; an allocated block is opaque storage.
//
// # Arena growth
//
// When the window cannot hold a single block the pool:
//
//  1. donates the remainder to the free list it fills exactly,
//  2. asks the system allocator for 2*batch + RoundUp(heap/16) bytes,
//  3. on failure, borrows the head of the first non-empty larger class as the
//     new window,
//  4. on failure, reports ErrArenaExhausted.
//
// The window may also be only partly consumed: if it holds fewer than a full
// batch the refill is served with as many blocks as fit.
//
// # Backends
//
// GoSystem (Go heap), MmapSystem (anonymous mappings via x/sys/unix) and
// ArrowSystem (any arrow memory.Allocator) implement SystemAllocator.
// LimitedSystem caps a backend; TrackingSystem reports to Prometheus.
// ArrowAllocator goes the other way and exposes a Pool to arrow.
//
// # Thread Safety
//
// Pool is single-goroutine. Locked wraps a pool with a mutex.
//
// # Typed storage
//
// Typed[T] constructs and destroys pointer-free values in pool storage; the
// vector package builds its dynamic array on top of it.
package memory
