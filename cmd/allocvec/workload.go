package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"github.com/bouquent/allocator-vec/internal/memory"
	"github.com/bouquent/allocator-vec/internal/vector"
)

// sample is the element type the vector phase pushes.
type sample struct {
	Seq   int64
	Value float64
}

// Result summarizes one workload run.
type Result struct {
	Pushed    int
	Allocs    int
	Frees     int
	Failures  int
	Duration  time.Duration
	PoolStats memory.Stats
}

// RunWorkload exercises pool with cfg.Elements vector pushes followed by
// cfg.Iterations mixed allocations and frees of 1..cfg.MaxSize bytes. Every
// block is released before it returns. It stops early when ctx is done.
func RunWorkload(ctx context.Context, pool *memory.Pool, cfg Config, logger zerolog.Logger) (Result, error) {
	var res Result
	start := time.Now()

	typed, err := memory.NewTyped[sample](pool)
	if err != nil {
		return res, err
	}
	vec := vector.New(typed)
	defer vec.Free()

	for i := 0; i < cfg.Elements; i++ {
		if i%4096 == 0 && ctx.Err() != nil {
			return res, ctx.Err()
		}
		if err := vec.PushBack(sample{Seq: int64(i), Value: float64(i) / 2}); err != nil {
			return res, fmt.Errorf("push element %d: %w", i, err)
		}
		res.Pushed++
	}
	logger.Info().
		Int("elements", vec.Len()).
		Int("capacity", vec.Cap()).
		Msg("vector phase complete")

	type block struct {
		ptr  memory.Ptr
		size int
	}
	rng := rand.New(rand.NewPCG(uint64(cfg.Seed), uint64(cfg.Seed)^0x9e3779b97f4a7c15))
	var live []block
	defer func() {
		for _, b := range live {
			pool.Deallocate(b.ptr, b.size)
		}
	}()

	for i := 0; i < cfg.Iterations; i++ {
		if i%4096 == 0 && ctx.Err() != nil {
			return res, ctx.Err()
		}
		if len(live) > 0 && rng.IntN(2) == 0 {
			j := rng.IntN(len(live))
			pool.Deallocate(live[j].ptr, live[j].size)
			live[j] = live[len(live)-1]
			live = live[:len(live)-1]
			res.Frees++
			continue
		}

		size := 1 + rng.IntN(cfg.MaxSize)
		p, err := pool.Allocate(size)
		if err != nil {
			// an exhausted heap limit is part of the experiment, not fatal
			res.Failures++
			logger.Debug().Err(err).Int("size", size).Msg("allocation failed")
			continue
		}
		pool.Bytes(p, size)[0] = byte(i)
		live = append(live, block{ptr: p, size: size})
		res.Allocs++
	}

	res.Duration = time.Since(start)
	res.PoolStats = pool.Stats()
	return res, nil
}

// logResult writes res as one structured entry.
func logResult(logger zerolog.Logger, res Result) {
	s := res.PoolStats
	logger.Info().
		Int("pushed", res.Pushed).
		Int("allocs", res.Allocs).
		Int("frees", res.Frees).
		Int("failures", res.Failures).
		Dur("duration", res.Duration).
		Int64("heap_bytes", s.HeapBytes).
		Int("arena_bytes_left", s.ArenaBytesLeft).
		Int64("free_bytes", s.FreeBytes()).
		Float64("utilization_pct", s.Utilization()).
		Int64("system_allocs", s.SystemAllocs).
		Int64("refills", s.Refills).
		Int64("borrows", s.Borrows).
		Int64("donations", s.Donations).
		Int("large_in_use", s.LargeInUse).
		Ints("free_blocks", s.FreeBlocks[:]).
		Msg("workload complete")
}
