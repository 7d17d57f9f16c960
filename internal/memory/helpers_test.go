package memory

import (
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

var errRefused = errors.New("refused")

// recordingSystem logs every request and can be told to refuse them.
type recordingSystem struct {
	requests []int
	frees    []int
	refuse   bool
}

func (r *recordingSystem) Allocate(size int) ([]byte, error) {
	r.requests = append(r.requests, size)
	if r.refuse {
		return nil, errRefused
	}
	return make([]byte, size), nil
}

func (r *recordingSystem) Free(b []byte) {
	r.frees = append(r.frees, len(b))
}

func newTestPool(t *testing.T, sys SystemAllocator) *Pool {
	t.Helper()
	p, err := New(Config{System: sys, Debug: true})
	require.NoError(t, err)
	return p
}

// handRegion registers a buffer of n bytes as an arena region and returns its id.
func handRegion(p *Pool, n int) uint32 {
	return p.addRegion(make([]byte, n), false)
}

type span struct {
	start, end int
	what       string
}

// requireNoOverlap checks that live blocks, free-list blocks and the arena
// window never share a byte.
func requireNoOverlap(t *testing.T, p *Pool, live map[Ptr]int) {
	t.Helper()

	spans := make(map[uint32][]span)
	add := func(ptr Ptr, n int, what string) {
		spans[ptr.region()] = append(spans[ptr.region()], span{ptr.offset(), ptr.offset() + n, what})
	}
	for ptr, n := range live {
		if n <= MaxBytes {
			n = RoundUp(n)
		}
		add(ptr, n, "live")
	}
	for c := 0; c < NumClasses; c++ {
		for b := p.free[c]; b != Nil; b = p.link(b) {
			add(b, ClassSize(c), "free")
		}
	}
	if p.end > p.start {
		add(makePtr(p.arena, p.start), p.end-p.start, "window")
	}

	for id, ss := range spans {
		sort.Slice(ss, func(i, j int) bool { return ss[i].start < ss[j].start })
		for i := 1; i < len(ss); i++ {
			require.LessOrEqual(t, ss[i-1].end, ss[i].start,
				"region %d: %s [%d,%d) overlaps %s [%d,%d)", id,
				ss[i-1].what, ss[i-1].start, ss[i-1].end, ss[i].what, ss[i].start, ss[i].end)
		}
	}
}
