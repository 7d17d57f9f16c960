package memory

import (
	"math"
	"strconv"

	structerr "github.com/bouquent/allocator-vec/internal/errors"
	"github.com/bouquent/allocator-vec/internal/metrics"
)

// refill carves a batch of blocks of size bytes (a multiple of Align), returns
// the first one and installs the rest as the free list of its class.
func (p *Pool) refill(size int) (Ptr, error) {
	chunk, nobjs, err := p.chunkAlloc(size, BatchObjects)
	if err != nil {
		return Nil, err
	}
	p.refills++
	metrics.PoolRefillsTotal.WithLabelValues(strconv.Itoa(ClassOf(size))).Inc()

	if nobjs == 1 {
		return chunk, nil
	}

	// block 0 goes to the caller, blocks 1..nobjs-1 form the list
	next := chunk.Add(size)
	p.free[ClassOf(size)] = next
	for i := 1; ; i++ {
		cur := next
		next = cur.Add(size)
		if i == nobjs-1 {
			p.setLink(cur, Nil)
			break
		}
		p.setLink(cur, next)
	}
	return chunk, nil
}

// chunkAlloc carves up to nobjs blocks of size bytes from the arena window and
// returns the first block with the number actually carved. When the window
// cannot hold a single block it donates the remainder, grows the arena through
// the system allocator and, failing that, borrows a free block from a larger
// class. Each pass either returns or installs a window large enough for at
// least one block, so the loop runs at most twice per attempted window.
func (p *Pool) chunkAlloc(size, nobjs int) (Ptr, int, error) {
	for {
		total := size * nobjs
		left := p.end - p.start

		if left > total {
			return p.carve(total), nobjs, nil
		}
		if left >= size {
			nobjs = left / size
			return p.carve(nobjs * size), nobjs, nil
		}

		if left > 0 {
			p.donateLeftover(left)
		}
		p.start, p.end = 0, 0

		bytesToGet := 2*total + RoundUp(int(p.heapSize>>heapDampShift))
		if p.grow(bytesToGet) {
			continue
		}
		if p.borrow(size) {
			continue
		}

		p.arena = 0
		metrics.PoolOutOfMemoryTotal.WithLabelValues("arena").Inc()
		p.logger.Error().
			Int("block_size", size).
			Int("requested", bytesToGet).
			Int64("heap_size", p.heapSize).
			Msg("arena exhausted")
		return Nil, 0, structerr.WrapOutOfMemoryError(ErrArenaExhausted, "refill", "cannot grow arena or borrow a larger block").
			WithContext("block_size", size).
			WithContext("requested", bytesToGet)
	}
}

// carve takes n bytes from the front of the window.
func (p *Pool) carve(n int) Ptr {
	ptr := makePtr(p.arena, p.start)
	p.start += n
	return ptr
}

// donateLeftover pushes the remainder of the window onto the class it fills
// exactly. Windows are always multiples of Align, so the only remainder that
// cannot be donated is one set up by hand.
func (p *Pool) donateLeftover(left int) {
	if left%Align != 0 || left > MaxBytes {
		p.logger.Warn().Int("bytes", left).Msg("dropping unaligned arena leftover")
		return
	}
	ptr := makePtr(p.arena, p.start)
	c := ClassOf(left)
	p.setLink(ptr, p.free[c])
	p.free[c] = ptr
	p.donations++
	metrics.PoolLeftoverDonationsTotal.Inc()
	p.logger.Debug().Int("bytes", left).Int("class", c).Msg("arena leftover donated")
}

// grow replaces the window with a fresh grant of n bytes.
func (p *Pool) grow(n int) bool {
	if uint64(n) > math.MaxUint32 {
		return false
	}
	buf, err := p.sys.Allocate(n)
	if err != nil {
		p.logger.Warn().Err(err).Int("bytes", n).Msg("arena grow failed")
		return false
	}
	p.systemAllocs++
	p.installWindow(p.addRegion(buf, false), 0, n)
	p.heapSize += int64(n)
	metrics.PoolArenaGrowBytesTotal.Add(float64(n))
	p.logger.Debug().Int("bytes", n).Int64("heap_size", p.heapSize).Msg("arena grown")
	return true
}

// borrow seizes the head block of the first non-empty class serving at least
// size bytes and makes it the window.
func (p *Pool) borrow(size int) bool {
	for i := size; i <= MaxBytes; i += Align {
		c := ClassOf(i)
		head := p.free[c]
		if head == Nil {
			continue
		}
		p.free[c] = p.link(head)
		p.installWindow(head.region(), head.offset(), head.offset()+i)
		p.borrows++
		metrics.PoolBorrowsTotal.Inc()
		p.logger.Warn().Int("block_size", size).Int("from_class", c).Msg("borrowed block from larger class")
		return true
	}
	return false
}

func (p *Pool) installWindow(arena uint32, start, end int) {
	p.arena = arena
	p.start = start
	p.end = end
}
