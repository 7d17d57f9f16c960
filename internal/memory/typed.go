package memory

import (
	"fmt"
	"reflect"
	"unsafe"

	structerr "github.com/bouquent/allocator-vec/internal/errors"
)

// Initializer is implemented by element types that need more than their zero
// value when default-constructed.
type Initializer interface {
	Init()
}

// Destroyer is implemented by element types that release something when
// their lifetime ends.
type Destroyer interface {
	Destroy()
}

// Typed manages values of type T on top of raw pool storage. Allocation and
// object lifetime are separate: Allocate/Deallocate move storage, Construct*
// and Destroy* start and end values inside storage already owned.
//
// T must be free of Go pointers (strings, slices, maps, interfaces and
// pointers included): pool memory is plain bytes and the garbage collector does
// not scan it.
type Typed[T any] struct {
	pool     *Pool
	elemSize int
}

// NewTyped binds T to pool. It fails for pointer-bearing, zero-size or
// over-aligned element types.
func NewTyped[T any](pool *Pool) (*Typed[T], error) {
	var zero T
	typ := reflect.TypeOf(&zero).Elem()

	if unsafe.Sizeof(zero) == 0 {
		return nil, structerr.WrapValidationError(ErrInvalidSize, "new_typed", "element type has zero size").
			WithContext("type", typ.String())
	}
	if unsafe.Alignof(zero) > Align {
		return nil, structerr.WrapValidationError(ErrInvalidSize, "new_typed", fmt.Sprintf("element alignment exceeds %d", Align)).
			WithContext("type", typ.String())
	}
	if hasPointers(typ) {
		return nil, structerr.WrapValidationError(ErrPointerType, "new_typed", "element type cannot live in pool memory").
			WithContext("type", typ.String())
	}

	return &Typed[T]{pool: pool, elemSize: int(unsafe.Sizeof(zero))}, nil
}

// ElemSize returns the size of T in bytes.
func (t *Typed[T]) ElemSize() int { return t.elemSize }

// Allocate reserves uninitialized storage for n values.
func (t *Typed[T]) Allocate(n int) (Ptr, error) {
	if n <= 0 {
		return Nil, structerr.WrapValidationError(ErrInvalidSize, "typed_allocate", "count must be positive").
			WithContext("count", n)
	}
	return t.pool.Allocate(n * t.elemSize)
}

// Deallocate releases storage for n values. It does not destroy them.
func (t *Typed[T]) Deallocate(p Ptr, n int) {
	t.pool.Deallocate(p, n*t.elemSize)
}

// At returns a pointer to slot i of the storage at p.
func (t *Typed[T]) At(p Ptr, i int) *T {
	b := t.pool.Bytes(p.Add(i*t.elemSize), t.elemSize)
	return (*T)(unsafe.Pointer(&b[0]))
}

// Slice returns a typed view of the first n slots of the storage at p.
func (t *Typed[T]) Slice(p Ptr, n int) []T {
	if n <= 0 {
		return nil
	}
	b := t.pool.Bytes(p, n*t.elemSize)
	return unsafe.Slice((*T)(unsafe.Pointer(&b[0])), n)
}

// Construct copies v into slot i.
func (t *Typed[T]) Construct(p Ptr, i int, v T) {
	*t.At(p, i) = v
}

// ConstructDefault places the zero value in slot i and runs Init when *T
// implements Initializer.
func (t *Typed[T]) ConstructDefault(p Ptr, i int) {
	var zero T
	slot := t.At(p, i)
	*slot = zero
	if in, ok := any(slot).(Initializer); ok {
		in.Init()
	}
}

// ConstructWith zeroes slot i and lets fn initialize it in place.
func (t *Typed[T]) ConstructWith(p Ptr, i int, fn func(*T)) {
	var zero T
	slot := t.At(p, i)
	*slot = zero
	fn(slot)
}

// Destroy ends the value in slot i without releasing its storage.
func (t *Typed[T]) Destroy(p Ptr, i int) {
	if p == Nil {
		return
	}
	var zero T
	slot := t.At(p, i)
	if d, ok := any(slot).(Destroyer); ok {
		d.Destroy()
	}
	*slot = zero
}

// DestroyRange destroys slots [first, last) in order.
func (t *Typed[T]) DestroyRange(p Ptr, first, last int) {
	for i := first; i < last; i++ {
		t.Destroy(p, i)
	}
}

// hasPointers reports whether values of typ contain anything the garbage
// collector would need to trace.
func hasPointers(typ reflect.Type) bool {
	switch typ.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return typ.Len() > 0 && hasPointers(typ.Elem())
	case reflect.Struct:
		for i := 0; i < typ.NumField(); i++ {
			if hasPointers(typ.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return true
	}
}
