// Package vector provides a growable array whose storage comes from a
// memory.Pool instead of the Go heap.
package vector

import (
	"errors"
	"fmt"

	"github.com/bouquent/allocator-vec/internal/memory"
	"github.com/bouquent/allocator-vec/internal/metrics"
)

// ErrEmpty is returned by PopBack on an empty vector.
var ErrEmpty = errors.New("vector: empty")

// Vector is a dynamic array of T backed by pool storage. Capacity starts at
// zero, becomes one on the first insertion and doubles afterwards.
//
// A Vector is not safe for concurrent use, and neither is the pool under it.
type Vector[T any] struct {
	typed *memory.Typed[T]
	data  memory.Ptr
	len   int
	cap   int
}

// New returns an empty vector that allocates through typed.
func New[T any](typed *memory.Typed[T]) *Vector[T] {
	return &Vector[T]{typed: typed}
}

// WithCapacity returns an empty vector with room for n elements.
func WithCapacity[T any](typed *memory.Typed[T], n int) (*Vector[T], error) {
	v := New(typed)
	if err := v.Reserve(n); err != nil {
		return nil, err
	}
	return v, nil
}

// Len returns the number of elements.
func (v *Vector[T]) Len() int { return v.len }

// Cap returns the number of elements the current storage holds.
func (v *Vector[T]) Cap() int { return v.cap }

// Empty reports whether the vector has no elements.
func (v *Vector[T]) Empty() bool { return v.len == 0 }

// Reserve makes room for at least n elements without changing Len.
func (v *Vector[T]) Reserve(n int) error {
	if n <= v.cap {
		return nil
	}
	return v.realloc(n)
}

// PushBack appends a copy of x.
func (v *Vector[T]) PushBack(x T) error {
	if err := v.ensureRoom(); err != nil {
		return err
	}
	v.typed.Construct(v.data, v.len, x)
	v.len++
	return nil
}

// EmplaceBack appends a new element built in place by fn. A nil fn
// default-constructs the element.
func (v *Vector[T]) EmplaceBack(fn func(*T)) error {
	if err := v.ensureRoom(); err != nil {
		return err
	}
	if fn == nil {
		v.typed.ConstructDefault(v.data, v.len)
	} else {
		v.typed.ConstructWith(v.data, v.len, fn)
	}
	v.len++
	return nil
}

// PopBack destroys the last element. Capacity is kept.
func (v *Vector[T]) PopBack() error {
	if v.len == 0 {
		return ErrEmpty
	}
	v.len--
	v.typed.Destroy(v.data, v.len)
	return nil
}

// At returns a copy of element i.
func (v *Vector[T]) At(i int) T {
	v.checkIndex(i)
	return *v.typed.At(v.data, i)
}

// Ref returns a pointer to element i, valid until the vector grows or is freed.
func (v *Vector[T]) Ref(i int) *T {
	v.checkIndex(i)
	return v.typed.At(v.data, i)
}

// Set overwrites element i with x.
func (v *Vector[T]) Set(i int, x T) {
	v.checkIndex(i)
	*v.typed.At(v.data, i) = x
}

// Values copies the elements out into a Go slice.
func (v *Vector[T]) Values() []T {
	out := make([]T, v.len)
	copy(out, v.typed.Slice(v.data, v.len))
	return out
}

// Clone returns an independent vector with the same elements, drawing
// storage from the same pool.
func (v *Vector[T]) Clone() (*Vector[T], error) {
	c, err := WithCapacity(v.typed, v.len)
	if err != nil {
		return nil, err
	}
	for i, x := range v.typed.Slice(v.data, v.len) {
		c.typed.Construct(c.data, i, x)
	}
	c.len = v.len
	return c, nil
}

// Free destroys every element and returns the storage to the pool. The vector
// is empty and reusable afterwards.
func (v *Vector[T]) Free() {
	if v.data == memory.Nil {
		return
	}
	v.typed.DestroyRange(v.data, 0, v.len)
	v.typed.Deallocate(v.data, v.cap)
	v.data, v.len, v.cap = memory.Nil, 0, 0
}

func (v *Vector[T]) ensureRoom() error {
	if v.len < v.cap {
		return nil
	}
	next := 1
	if v.cap > 0 {
		next = 2 * v.cap
	}
	return v.realloc(next)
}

// realloc moves the elements into storage for n slots. The old slots are
// released without being destroyed: their values now live in the new storage.
func (v *Vector[T]) realloc(n int) error {
	data, err := v.typed.Allocate(n)
	if err != nil {
		return err
	}
	if v.data != memory.Nil {
		copy(v.typed.Slice(data, v.len), v.typed.Slice(v.data, v.len))
		v.typed.Deallocate(v.data, v.cap)
		metrics.VectorGrowthsTotal.Inc()
	}
	v.data, v.cap = data, n
	return nil
}

func (v *Vector[T]) checkIndex(i int) {
	if i < 0 || i >= v.len {
		panic(fmt.Sprintf("vector: index %d out of range [0:%d]", i, v.len))
	}
}
