package memory

const (
	// Align is the granularity every small request is rounded up to.
	Align = 8
	// MaxBytes is the largest request served from the free lists.
	MaxBytes = 128
	// NumClasses is the number of free lists.
	NumClasses = MaxBytes / Align
	// BatchObjects is how many blocks a refill tries to carve at once.
	BatchObjects = 20
	// heapDampShift scales the cumulative heap size added to each arena growth.
	heapDampShift = 4
)

// RoundUp rounds n up to the next multiple of Align.
func RoundUp(n int) int {
	return (n + Align - 1) &^ (Align - 1)
}

// ClassOf returns the size class serving a request of n bytes.
// n must be in [1, MaxBytes].
func ClassOf(n int) int {
	return (n+Align-1)/Align - 1
}

// ClassSize returns the block size of class c.
func ClassSize(c int) int {
	return (c + 1) * Align
}
