package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PoolAllocationsTotal counts Allocate calls by the path that served them
	PoolAllocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allocvec_pool_allocations_total",
			Help: "Total number of pool allocations by path",
		},
		[]string{"path"}, // "free_list", "refill", "large"
	)

	// PoolDeallocationsTotal counts Deallocate calls by kind
	PoolDeallocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allocvec_pool_deallocations_total",
			Help: "Total number of pool deallocations by kind",
		},
		[]string{"kind"}, // "small", "large"
	)

	// PoolRefillsTotal counts free-list refills by size class
	PoolRefillsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allocvec_pool_refills_total",
			Help: "Total number of free-list refills by size class",
		},
		[]string{"class"},
	)

	// PoolArenaGrowBytesTotal tracks bytes requested from the system allocator for arena growth
	PoolArenaGrowBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "allocvec_pool_arena_grow_bytes_total",
			Help: "Total bytes obtained from the system allocator to grow the arena",
		},
	)

	// PoolLeftoverDonationsTotal counts arena remainders pushed onto a free list
	PoolLeftoverDonationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "allocvec_pool_leftover_donations_total",
			Help: "Total number of arena leftovers donated to a smaller size class",
		},
	)

	// PoolBorrowsTotal counts free blocks seized from a larger class after a failed arena grow
	PoolBorrowsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "allocvec_pool_borrows_total",
			Help: "Total number of free blocks borrowed from larger size classes",
		},
	)

	// PoolOutOfMemoryTotal counts allocation failures surfaced to callers
	PoolOutOfMemoryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allocvec_pool_out_of_memory_total",
			Help: "Total number of allocation failures by kind",
		},
		[]string{"kind"}, // "large", "arena"
	)

	// SystemAllocatedBytesTotal tracks bytes handed out by the system allocator backend
	SystemAllocatedBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allocvec_system_allocated_bytes_total",
			Help: "Total bytes allocated by the system allocator backend",
		},
		[]string{"backend"},
	)

	// SystemFreedBytesTotal tracks bytes returned to the system allocator backend
	SystemFreedBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allocvec_system_freed_bytes_total",
			Help: "Total bytes freed through the system allocator backend",
		},
		[]string{"backend"},
	)

	// SystemAllocationsActive tracks live system allocations
	SystemAllocationsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "allocvec_system_allocations_active",
			Help: "Number of system allocations currently live",
		},
		[]string{"backend"},
	)

	// SystemFailuresTotal counts backend allocation failures
	SystemFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allocvec_system_failures_total",
			Help: "Total number of failed system allocations",
		},
		[]string{"backend"},
	)

	// VectorGrowthsTotal counts dynamic array reallocations
	VectorGrowthsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "allocvec_vector_growths_total",
			Help: "Total number of vector storage reallocations",
		},
	)
)
