package memory

import (
	"github.com/rs/zerolog"

	structerr "github.com/bouquent/allocator-vec/internal/errors"
)

// Config controls how a Pool is built. Size classes, the batch size and the
// growth policy are compile-time constants.
type Config struct {
	// Backend selects the system allocator: "go", "mmap" or "arrow".
	Backend string `envconfig:"BACKEND" default:"go"`
	// HeapLimit caps the bytes the system allocator may hand out (0 = unlimited).
	HeapLimit int64 `envconfig:"HEAP_LIMIT" default:"0"`
	// Debug enables contract assertions in Deallocate.
	Debug bool `envconfig:"DEBUG" default:"false"`

	// System overrides Backend and HeapLimit when set.
	System SystemAllocator `ignored:"true"`
	// Logger receives arena events. Defaults to a no-op logger.
	Logger *zerolog.Logger `ignored:"true"`
}

// DefaultConfig returns a Config backed by the Go heap.
func DefaultConfig() Config {
	return Config{Backend: BackendGo}
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	if c.HeapLimit < 0 {
		return structerr.NewConfigurationError("pool_config", "heap_limit must not be negative").
			WithContext("heap_limit", c.HeapLimit)
	}
	if c.System != nil {
		return nil
	}
	switch c.Backend {
	case "", BackendGo, BackendMmap, BackendArrow:
		return nil
	}
	return structerr.WrapConfigurationError(ErrUnknownBackend, "pool_config", "backend must be go, mmap or arrow").
		WithContext("backend", c.Backend)
}
