package vector

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bouquent/allocator-vec/internal/memory"
	"github.com/bouquent/allocator-vec/internal/metrics"
)

// lifecycle counters for counted, reset by newCounted.
var (
	inits     int
	destroyed int
)

type counted struct {
	id    int64
	ready bool
}

func (c *counted) Init()    { inits++; c.ready = true }
func (c *counted) Destroy() { destroyed++ }

func newPool(t *testing.T) *memory.Pool {
	t.Helper()
	pool, err := memory.New(memory.Config{Backend: memory.BackendGo, Debug: true})
	require.NoError(t, err)
	return pool
}

func newTyped[T any](t *testing.T, pool *memory.Pool) *memory.Typed[T] {
	t.Helper()
	typed, err := memory.NewTyped[T](pool)
	require.NoError(t, err)
	return typed
}

func newCounted(t *testing.T) *Vector[counted] {
	t.Helper()
	inits, destroyed = 0, 0
	return New(newTyped[counted](t, newPool(t)))
}

func TestVector_CapacityDoubles(t *testing.T) {
	v := New(newTyped[int64](t, newPool(t)))
	assert.True(t, v.Empty())
	assert.Equal(t, 0, v.Cap())

	var caps []int
	for i := int64(0); i < 9; i++ {
		require.NoError(t, v.PushBack(i))
		caps = append(caps, v.Cap())
	}
	assert.Equal(t, []int{1, 2, 4, 4, 8, 8, 8, 8, 16}, caps)
	assert.Equal(t, 9, v.Len())
	assert.Equal(t, []int64{0, 1, 2, 3, 4, 5, 6, 7, 8}, v.Values())
	v.Free()
}

func TestVector_GrowthMetric(t *testing.T) {
	before := testutil.ToFloat64(metrics.VectorGrowthsTotal)
	v := New(newTyped[int32](t, newPool(t)))
	for i := int32(0); i < 5; i++ {
		require.NoError(t, v.PushBack(i))
	}
	// 0->1 is the first allocation; 1->2, 2->4 and 4->8 move elements
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.VectorGrowthsTotal)-before)
	v.Free()
}

func TestVector_GrowthDoesNotDestroy(t *testing.T) {
	v := newCounted(t)
	for i := int64(0); i < 33; i++ {
		require.NoError(t, v.PushBack(counted{id: i}))
	}
	assert.Equal(t, 0, destroyed, "moving elements must not destroy them")
	assert.Equal(t, int64(32), v.At(32).id)

	v.Free()
	assert.Equal(t, 33, destroyed)
	assert.Equal(t, 0, v.Len())
	assert.Equal(t, 0, v.Cap())
}

func TestVector_EmplaceBack(t *testing.T) {
	v := newCounted(t)

	require.NoError(t, v.EmplaceBack(nil))
	require.NoError(t, v.EmplaceBack(func(c *counted) { c.id = 42 }))

	assert.Equal(t, 1, inits, "only default construction runs Init")
	assert.Equal(t, counted{ready: true}, v.At(0))
	assert.Equal(t, counted{id: 42}, v.At(1))
	v.Free()
}

func TestVector_PopBack(t *testing.T) {
	v := newCounted(t)

	assert.ErrorIs(t, v.PopBack(), ErrEmpty)

	require.NoError(t, v.PushBack(counted{id: 1}))
	require.NoError(t, v.PushBack(counted{id: 2}))
	require.NoError(t, v.PopBack())

	assert.Equal(t, 1, v.Len())
	assert.Equal(t, 2, v.Cap())
	assert.Equal(t, 1, destroyed)

	require.NoError(t, v.PopBack())
	assert.True(t, v.Empty())
	assert.ErrorIs(t, v.PopBack(), ErrEmpty)
	v.Free()
	assert.Equal(t, 2, destroyed)
}

func TestVector_SetAndRef(t *testing.T) {
	v := New(newTyped[float64](t, newPool(t)))
	require.NoError(t, v.PushBack(1.5))
	require.NoError(t, v.PushBack(2.5))

	v.Set(0, 9)
	*v.Ref(1) *= 2
	assert.Equal(t, []float64{9, 5}, v.Values())

	assert.Panics(t, func() { v.At(2) })
	assert.Panics(t, func() { v.Set(-1, 0) })
	v.Free()
}

func TestVector_WithCapacity(t *testing.T) {
	v, err := WithCapacity(newTyped[uint64](t, newPool(t)), 50)
	require.NoError(t, err)
	assert.Equal(t, 50, v.Cap())
	assert.Equal(t, 0, v.Len())

	for i := uint64(0); i < 50; i++ {
		require.NoError(t, v.PushBack(i))
	}
	assert.Equal(t, 50, v.Cap(), "no growth within reserved capacity")
	v.Free()
}

func TestVector_Clone(t *testing.T) {
	v := newCounted(t)
	for i := int64(0); i < 5; i++ {
		require.NoError(t, v.PushBack(counted{id: i}))
	}

	c, err := v.Clone()
	require.NoError(t, err)
	c.Set(0, counted{id: 100})

	assert.Equal(t, int64(0), v.At(0).id)
	assert.Equal(t, int64(100), c.At(0).id)
	assert.Equal(t, v.Len(), c.Len())
	assert.Equal(t, 5, c.Cap())

	v.Free()
	assert.Equal(t, int64(4), c.At(4).id, "clone survives the original")
	c.Free()
	assert.Equal(t, 10, destroyed)
}

func TestVector_StorageReturnsToPool(t *testing.T) {
	pool := newPool(t)
	v := New(newTyped[int64](t, pool))
	for i := int64(0); i < 100; i++ {
		require.NoError(t, v.PushBack(i))
	}
	assert.Equal(t, 1, pool.Stats().LargeInUse, "128 slots of 8 bytes live outside the free lists")

	v.Free()
	assert.Equal(t, 0, pool.Stats().LargeInUse)

	// the vector is reusable
	require.NoError(t, v.PushBack(7))
	assert.Equal(t, []int64{7}, v.Values())
	v.Free()
}

func TestVector_MatchesSliceModel(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("push/pop sequence matches a Go slice", prop.ForAll(
		func(ops []int32) bool {
			v := New(newTyped[int32](t, newPool(t)))
			defer v.Free()

			var model []int32
			for _, op := range ops {
				if op < 0 && len(model) > 0 {
					model = model[:len(model)-1]
					if v.PopBack() != nil {
						return false
					}
					continue
				}
				model = append(model, op)
				if v.PushBack(op) != nil {
					return false
				}
			}
			if v.Len() != len(model) || v.Cap() < v.Len() {
				return false
			}
			got := v.Values()
			for i := range model {
				if got[i] != model[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Int32Range(-50, 100)),
	))

	properties.TestingRun(t)
}
