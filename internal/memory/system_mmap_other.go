//go:build !linux && !darwin

package memory

// MmapSystem is unavailable on this platform; every request fails.
type MmapSystem struct{}

func (MmapSystem) Allocate(int) ([]byte, error) {
	return nil, ErrBackendUnsupported
}

func (MmapSystem) Free([]byte) {}

var _ SystemAllocator = MmapSystem{}
