//go:build linux || darwin

package memory

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// MmapSystem maps anonymous private pages for every request.
// Memory it returns lives outside the Go heap.
type MmapSystem struct{}

func (MmapSystem) Allocate(size int) ([]byte, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mmap %d bytes: %w", size, err)
	}
	return b, nil
}

// Free unmaps b, which must be a slice returned by Allocate.
func (MmapSystem) Free(b []byte) {
	_ = unix.Munmap(b) // nothing useful to do on failure, the mapping just leaks
}

var _ SystemAllocator = MmapSystem{}
