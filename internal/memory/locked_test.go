package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocked_ConcurrentUse(t *testing.T) {
	pool, err := New(DefaultConfig())
	require.NoError(t, err)
	locked := NewLocked(pool)

	const goroutines = 8
	const rounds = 200

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func(g int) {
			defer wg.Done()
			size := 8 + g*24 // 8..176, mixes both tiers
			for i := 0; i < rounds; i++ {
				p, err := locked.Allocate(size)
				if !assert.NoError(t, err) {
					return
				}
				buf := locked.Bytes(p, size)
				for j := range buf {
					buf[j] = byte(g)
				}
				for j := range buf {
					if buf[j] != byte(g) {
						t.Errorf("goroutine %d: byte %d overwritten", g, j)
						return
					}
				}
				if i%3 == 0 {
					p, err = locked.Reallocate(p, size, size+8)
					if !assert.NoError(t, err) {
						return
					}
					locked.Deallocate(p, size+8)
					continue
				}
				locked.Deallocate(p, size)
			}
		}(g)
	}
	wg.Wait()

	stats := locked.Stats()
	assert.Equal(t, 0, stats.LargeInUse)
	assert.Equal(t, int64(0), stats.LargeBytesInUse)
}
