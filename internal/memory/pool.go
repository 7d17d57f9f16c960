package memory

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	structerr "github.com/bouquent/allocator-vec/internal/errors"
	"github.com/bouquent/allocator-vec/internal/metrics"
)

// region is one grant from the system allocator. Arena regions are carved into
// small blocks and live as long as the pool; large regions hold exactly one
// allocation above MaxBytes.
type region struct {
	buf   []byte
	large bool
}

// Pool is a two-tier allocator. Requests up to MaxBytes are served from
// per-class LIFO free lists that are refilled in batches from an arena;
// larger requests go straight to the system allocator.
//
// A Pool is not safe for concurrent use. Wrap it with NewLocked to share it.
type Pool struct {
	sys    SystemAllocator
	logger *zerolog.Logger
	debug  bool

	regions []region
	freeIDs []uint32

	free [NumClasses]Ptr

	// arena window [start, end) inside region arena
	arena    uint32
	start    int
	end      int
	heapSize int64

	systemAllocs int64
	systemFrees  int64
	refills      int64
	borrows      int64
	donations    int64
	largeInUse   int
	largeBytes   int64
}

// New creates a pool from cfg.
func New(cfg Config) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sys := cfg.System
	if sys == nil {
		var err error
		sys, err = NewSystem(cfg.Backend, cfg.HeapLimit)
		if err != nil {
			return nil, structerr.WrapConfigurationError(err, "new_pool", "cannot build system allocator")
		}
	}

	logger := cfg.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Pool{
		sys:    sys,
		logger: logger,
		debug:  cfg.Debug,
	}, nil
}

// Allocate returns a block of at least n bytes.
func (p *Pool) Allocate(n int) (Ptr, error) {
	if n <= 0 {
		return Nil, structerr.WrapValidationError(ErrInvalidSize, "allocate", "size must be positive").
			WithContext("size", n)
	}
	if n > MaxBytes {
		return p.allocateLarge(n)
	}

	c := ClassOf(n)
	if head := p.free[c]; head != Nil {
		p.free[c] = p.link(head)
		metrics.PoolAllocationsTotal.WithLabelValues("free_list").Inc()
		return head, nil
	}

	ptr, err := p.refill(RoundUp(n))
	if err != nil {
		return Nil, err
	}
	metrics.PoolAllocationsTotal.WithLabelValues("refill").Inc()
	return ptr, nil
}

// Deallocate returns a block to the pool. n must be the size passed to the
// Allocate call that produced ptr; nothing checks this unless the pool was
// built with Config.Debug.
func (p *Pool) Deallocate(ptr Ptr, n int) {
	if ptr == Nil {
		return
	}
	if p.debug {
		p.assertOwned(ptr, n)
	}
	if n <= 0 {
		return
	}
	if n > MaxBytes {
		p.freeLarge(ptr)
		return
	}

	c := ClassOf(n)
	p.setLink(ptr, p.free[c])
	p.free[c] = ptr
	metrics.PoolDeallocationsTotal.WithLabelValues("small").Inc()
}

// Reallocate resizes the block at ptr from oldSize to newSize bytes, keeping
// the first min(oldSize, newSize) bytes. On failure the old block is untouched.
func (p *Pool) Reallocate(ptr Ptr, oldSize, newSize int) (Ptr, error) {
	if ptr == Nil {
		return p.Allocate(newSize)
	}
	if newSize <= 0 {
		return Nil, structerr.WrapValidationError(ErrInvalidSize, "reallocate", "size must be positive").
			WithContext("size", newSize)
	}

	if oldSize > MaxBytes && newSize > MaxBytes {
		return p.reallocateLarge(ptr, newSize)
	}
	if oldSize <= MaxBytes && newSize <= MaxBytes && RoundUp(oldSize) == RoundUp(newSize) {
		return ptr, nil
	}

	next, err := p.Allocate(newSize)
	if err != nil {
		return Nil, err
	}
	copy(p.Bytes(next, min(oldSize, newSize)), p.Bytes(ptr, min(oldSize, newSize)))
	p.Deallocate(ptr, oldSize)
	return next, nil
}

// Bytes returns the n bytes of storage behind ptr. The slice aliases pool
// memory and is only valid until the block is deallocated.
func (p *Pool) Bytes(ptr Ptr, n int) []byte {
	if ptr == Nil || n <= 0 {
		return nil
	}
	buf := p.regions[ptr.region()-1].buf
	off := ptr.offset()
	return buf[off : off+n : off+n]
}

// FreeLen returns the number of blocks on the free list of class c.
func (p *Pool) FreeLen(c int) int {
	n := 0
	for b := p.free[c]; b != Nil; b = p.link(b) {
		n++
	}
	return n
}

func (p *Pool) allocateLarge(n int) (Ptr, error) {
	if uint64(n) > math.MaxUint32 {
		metrics.PoolOutOfMemoryTotal.WithLabelValues("large").Inc()
		return Nil, structerr.WrapOutOfMemoryError(ErrLargeRequest, "allocate", "request exceeds region size limit").
			WithContext("size", n)
	}

	buf, err := p.sys.Allocate(n)
	if err != nil {
		metrics.PoolOutOfMemoryTotal.WithLabelValues("large").Inc()
		p.logger.Error().Err(err).Int("size", n).Msg("system allocator refused large request")
		return Nil, structerr.WrapOutOfMemoryError(fmt.Errorf("%w: %w", ErrLargeRequest, err), "allocate", "system allocator failed").
			WithContext("size", n)
	}
	p.systemAllocs++
	p.largeInUse++
	p.largeBytes += int64(n)
	metrics.PoolAllocationsTotal.WithLabelValues("large").Inc()
	return makePtr(p.addRegion(buf, true), 0), nil
}

func (p *Pool) freeLarge(ptr Ptr) {
	id := ptr.region()
	buf := p.regions[id-1].buf
	p.regions[id-1] = region{}
	p.freeIDs = append(p.freeIDs, id)

	p.systemFrees++
	p.largeInUse--
	p.largeBytes -= int64(len(buf))
	metrics.PoolDeallocationsTotal.WithLabelValues("large").Inc()
	p.sys.Free(buf)
}

func (p *Pool) reallocateLarge(ptr Ptr, newSize int) (Ptr, error) {
	if uint64(newSize) > math.MaxUint32 {
		return Nil, structerr.WrapOutOfMemoryError(ErrLargeRequest, "reallocate", "request exceeds region size limit").
			WithContext("size", newSize)
	}
	id := ptr.region()
	old := p.regions[id-1].buf

	buf, err := p.sys.Allocate(newSize)
	if err != nil {
		metrics.PoolOutOfMemoryTotal.WithLabelValues("large").Inc()
		return Nil, structerr.WrapOutOfMemoryError(fmt.Errorf("%w: %w", ErrLargeRequest, err), "reallocate", "system allocator failed").
			WithContext("size", newSize)
	}
	copy(buf, old)
	p.regions[id-1].buf = buf
	p.largeBytes += int64(newSize - len(old))
	p.systemAllocs++
	p.systemFrees++
	p.sys.Free(old)
	return ptr, nil
}

// addRegion stores buf and returns its 1-based id, reusing released ids first.
func (p *Pool) addRegion(buf []byte, large bool) uint32 {
	if n := len(p.freeIDs); n > 0 {
		id := p.freeIDs[n-1]
		p.freeIDs = p.freeIDs[:n-1]
		p.regions[id-1] = region{buf: buf, large: large}
		return id
	}
	p.regions = append(p.regions, region{buf: buf, large: large})
	return uint32(len(p.regions))
}

// link reads the next-block handle stored in the first word of a free block.
func (p *Pool) link(b Ptr) Ptr {
	return Ptr(binary.LittleEndian.Uint64(p.Bytes(b, Align)))
}

func (p *Pool) setLink(b, next Ptr) {
	binary.LittleEndian.PutUint64(p.Bytes(b, Align), uint64(next))
}

// assertOwned panics when ptr cannot have come from this pool with size n.
func (p *Pool) assertOwned(ptr Ptr, n int) {
	fail := func(msg string) {
		panic(structerr.NewContractError("deallocate", msg).
			WithContext("ptr", ptr.String()).
			WithContext("size", n))
	}

	if n <= 0 {
		fail("size must be positive")
	}
	id := ptr.region()
	if id == 0 || int(id) > len(p.regions) || p.regions[id-1].buf == nil {
		fail("handle does not belong to this pool")
	}
	r := p.regions[id-1]
	if n > MaxBytes {
		if !r.large || ptr.offset() != 0 || len(r.buf) != n {
			fail("size does not match the large allocation")
		}
		return
	}
	if r.large {
		fail("small size passed for a large allocation")
	}
	if ptr.offset()%Align != 0 || ptr.offset()+RoundUp(n) > len(r.buf) {
		fail("handle is misaligned or out of bounds")
	}
	for b := p.free[ClassOf(n)]; b != Nil; b = p.link(b) {
		if b == ptr {
			fail("block is already free")
		}
	}
}
