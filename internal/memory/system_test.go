package memory

import (
	"errors"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bouquent/allocator-vec/internal/metrics"
)

func TestGoSystem(t *testing.T) {
	var sys GoSystem
	b, err := sys.Allocate(100)
	require.NoError(t, err)
	assert.Len(t, b, 100)
	sys.Free(b)

	_, err = sys.Allocate(-1)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestLimitedSystem(t *testing.T) {
	sys := NewLimitedSystem(GoSystem{}, 100)

	a, err := sys.Allocate(60)
	require.NoError(t, err)
	assert.Equal(t, int64(60), sys.Used())

	_, err = sys.Allocate(41)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSystemLimit)
	assert.Equal(t, int64(60), sys.Used())

	b, err := sys.Allocate(40)
	require.NoError(t, err)
	assert.Equal(t, int64(100), sys.Used())

	sys.Free(a)
	sys.Free(b)
	assert.Equal(t, int64(0), sys.Used())
}

func TestLimitedSystem_PropagatesBaseFailure(t *testing.T) {
	sys := NewLimitedSystem(&recordingSystem{refuse: true}, 1000)
	_, err := sys.Allocate(10)
	assert.ErrorIs(t, err, errRefused)
	assert.Equal(t, int64(0), sys.Used())
}

func TestTrackingSystem(t *testing.T) {
	allocated := metrics.SystemAllocatedBytesTotal.WithLabelValues("tracking_test")
	freed := metrics.SystemFreedBytesTotal.WithLabelValues("tracking_test")
	active := metrics.SystemAllocationsActive.WithLabelValues("tracking_test")
	failures := metrics.SystemFailuresTotal.WithLabelValues("tracking_test")

	allocBefore := testutil.ToFloat64(allocated)
	freedBefore := testutil.ToFloat64(freed)
	activeBefore := testutil.ToFloat64(active)
	failBefore := testutil.ToFloat64(failures)

	sys := NewTrackingSystem(NewLimitedSystem(GoSystem{}, 64), "tracking_test")

	b, err := sys.Allocate(48)
	require.NoError(t, err)
	_, err = sys.Allocate(48)
	require.Error(t, err)

	assert.Equal(t, int64(48), sys.BytesAllocated)
	assert.Equal(t, 48.0, testutil.ToFloat64(allocated)-allocBefore)
	assert.Equal(t, 1.0, testutil.ToFloat64(active)-activeBefore)
	assert.Equal(t, 1.0, testutil.ToFloat64(failures)-failBefore)

	sys.Free(b)
	assert.Equal(t, int64(48), sys.BytesFreed)
	assert.Equal(t, 48.0, testutil.ToFloat64(freed)-freedBefore)
	assert.Equal(t, 0.0, testutil.ToFloat64(active)-activeBefore)
}

func TestArrowSystem(t *testing.T) {
	checked := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer checked.AssertSize(t, 0)

	sys := NewArrowSystem(checked)
	b, err := sys.Allocate(256)
	require.NoError(t, err)
	assert.Len(t, b, 256)
	assert.Equal(t, 256, checked.CurrentAlloc())

	sys.Free(b)
}

func TestArrowSystem_RecoversPanic(t *testing.T) {
	sys := NewArrowSystem(panickingAllocator{})
	_, err := sys.Allocate(16)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "arrow allocate 16 bytes")
}

// panickingAllocator fails every request the way arrow allocators do.
type panickingAllocator struct{}

func (panickingAllocator) Allocate(int) []byte          { panic("out of memory") }
func (panickingAllocator) Reallocate(int, []byte) []byte { panic("out of memory") }
func (panickingAllocator) Free([]byte)                   {}

func TestNewSystem(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		limit   int64
		wantErr error
	}{
		{"default", "", 0, nil},
		{"go", BackendGo, 0, nil},
		{"arrow", BackendArrow, 0, nil},
		{"limited", BackendGo, 1024, nil},
		{"unknown", "jemalloc", 0, ErrUnknownBackend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys, err := NewSystem(tt.backend, tt.limit)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, sys)
				return
			}
			require.NoError(t, err)
			tracking, ok := sys.(*TrackingSystem)
			require.True(t, ok, "backends are always tracked")

			if tt.limit > 0 {
				_, limited := tracking.SystemAllocator.(*LimitedSystem)
				assert.True(t, limited)
			}

			b, err := sys.Allocate(32)
			require.NoError(t, err)
			sys.Free(b)
		})
	}
}

func TestNewSystem_LimitReachesPool(t *testing.T) {
	pool, err := New(Config{Backend: BackendGo, HeapLimit: 100})
	require.NoError(t, err)

	_, err = pool.Allocate(8) // first growth asks for 320 bytes
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrArenaExhausted))
}
