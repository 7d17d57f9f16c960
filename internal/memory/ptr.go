package memory

import "fmt"

// Ptr is a handle to a block owned by a Pool.
// The high 32 bits hold the 1-based region id, the low 32 bits the byte offset
// inside that region. The zero value is Nil.
type Ptr uint64

// Nil is the empty handle. It also terminates every free list.
const Nil Ptr = 0

func makePtr(region uint32, offset int) Ptr {
	return Ptr(uint64(region)<<32 | uint64(uint32(offset)))
}

// IsNil reports whether p is the empty handle.
func (p Ptr) IsNil() bool { return p == Nil }

func (p Ptr) region() uint32 { return uint32(p >> 32) }

func (p Ptr) offset() int { return int(uint32(p)) }

// Add returns the handle n bytes past p inside the same region.
func (p Ptr) Add(n int) Ptr {
	return makePtr(p.region(), p.offset()+n)
}

func (p Ptr) String() string {
	if p == Nil {
		return "nil"
	}
	return fmt.Sprintf("r%d+%#x", p.region(), p.offset())
}
