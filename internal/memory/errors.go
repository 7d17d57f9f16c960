package memory

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfMemory is the root of every allocation failure the pool reports.
	ErrOutOfMemory = errors.New("memory: out of memory")

	// ErrLargeRequest reports that the system allocator refused a request above MaxBytes.
	ErrLargeRequest = fmt.Errorf("%w: large request failed", ErrOutOfMemory)

	// ErrArenaExhausted reports that the arena could not grow and no larger
	// size class had a free block to borrow.
	ErrArenaExhausted = fmt.Errorf("%w: arena exhausted", ErrOutOfMemory)

	// ErrInvalidSize reports a non-positive or unrepresentable size.
	ErrInvalidSize = errors.New("memory: invalid size")

	// ErrPointerType reports an element type that cannot live in byte-backed storage.
	ErrPointerType = errors.New("memory: element type contains Go pointers")

	// ErrSystemLimit is returned by LimitedSystem when its budget is spent.
	ErrSystemLimit = errors.New("memory: system allocator limit reached")

	// ErrBackendUnsupported reports a backend that is not available on this platform.
	ErrBackendUnsupported = errors.New("memory: backend not supported")

	// ErrUnknownBackend reports a backend name NewSystem does not know.
	ErrUnknownBackend = errors.New("memory: unknown backend")
)
