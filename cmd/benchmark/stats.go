package main

import (
	"slices"
	"time"

	"github.com/samber/lo"
)

type latencyStats struct {
	count int
	total time.Duration
	p50   time.Duration
	p95   time.Duration
	max   time.Duration
}

func summarize(durations []time.Duration) latencyStats {
	if len(durations) == 0 {
		return latencyStats{}
	}
	sorted := slices.Clone(durations)
	slices.Sort(sorted)
	return latencyStats{
		count: len(sorted),
		total: lo.Sum(sorted),
		p50:   percentile(sorted, 50),
		p95:   percentile(sorted, 95),
		max:   sorted[len(sorted)-1],
	}
}

// percentile uses nearest rank on sorted input.
func percentile(sorted []time.Duration, p int) time.Duration {
	rank := (p*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}

func (s latencyStats) fields() []any {
	return []any{"count", s.count, "total", s.total, "p50", s.p50, "p95", s.p95, "max", s.max}
}
