package memory

// Stats is a point-in-time summary of a pool.
type Stats struct {
	// HeapBytes is the total obtained from the system allocator for the arena.
	HeapBytes int64
	// ArenaBytesLeft is the uncarved remainder of the current window.
	ArenaBytesLeft int

	SystemAllocs int64
	SystemFrees  int64
	Refills      int64
	Borrows      int64
	Donations    int64

	LargeInUse      int
	LargeBytesInUse int64

	// FreeBlocks is the length of each class's free list.
	FreeBlocks [NumClasses]int
}

// FreeBytes is the total size of all blocks sitting on free lists.
func (s Stats) FreeBytes() int64 {
	var total int64
	for c, n := range s.FreeBlocks {
		total += int64(n) * int64(ClassSize(c))
	}
	return total
}

// Utilization is the share of arena bytes carved and not sitting on a free
// list, in percent.
func (s Stats) Utilization() float64 {
	if s.HeapBytes == 0 {
		return 0
	}
	used := s.HeapBytes - int64(s.ArenaBytesLeft) - s.FreeBytes()
	return float64(used) / float64(s.HeapBytes) * 100
}

// Stats walks the free lists and returns the pool's counters.
func (p *Pool) Stats() Stats {
	s := Stats{
		HeapBytes:       p.heapSize,
		ArenaBytesLeft:  p.end - p.start,
		SystemAllocs:    p.systemAllocs,
		SystemFrees:     p.systemFrees,
		Refills:         p.refills,
		Borrows:         p.borrows,
		Donations:       p.donations,
		LargeInUse:      p.largeInUse,
		LargeBytesInUse: p.largeBytes,
	}
	for c := range s.FreeBlocks {
		s.FreeBlocks[c] = p.FreeLen(c)
	}
	return s
}
