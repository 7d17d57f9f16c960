package memory

import "sync"

// Locked serializes every call into a Pool with one mutex.
type Locked struct {
	mu   sync.Mutex
	pool *Pool
}

func NewLocked(pool *Pool) *Locked {
	return &Locked{pool: pool}
}

func (l *Locked) Allocate(n int) (Ptr, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pool.Allocate(n)
}

func (l *Locked) Deallocate(ptr Ptr, n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pool.Deallocate(ptr, n)
}

func (l *Locked) Reallocate(ptr Ptr, oldSize, newSize int) (Ptr, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pool.Reallocate(ptr, oldSize, newSize)
}

// Bytes returns the storage behind ptr. Only the lookup is guarded; the caller
// owns the block and may use the slice without the lock.
func (l *Locked) Bytes(ptr Ptr, n int) []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pool.Bytes(ptr, n)
}

func (l *Locked) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pool.Stats()
}
