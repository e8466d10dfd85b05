package collector

import (
	"sort"
	"time"

	"reqdiff/internal/core"
)

// Summary is the run-level outcome tally with latency statistics.
type Summary struct {
	Total       int
	Success     int
	Failed      int
	CircuitOpen int
	TimedOut    int

	SuccessRate    float64 // percent
	RequestsPerSec float64
	TotalAttempts  int
	RunDuration    time.Duration

	Latency LatencyStats
}

// LatencyStats summarizes per-request elapsed times.
type LatencyStats struct {
	Min time.Duration
	Avg time.Duration
	Max time.Duration
	P95 time.Duration
}

// Compute builds a Summary from results. Pure function, no side effects.
func Compute(results []core.ExecutionResult, runDuration time.Duration) Summary {
	s := Summary{Total: len(results), RunDuration: runDuration}
	if len(results) == 0 {
		return s
	}

	elapsed := make([]time.Duration, 0, len(results))
	for _, r := range results {
		switch r.Status {
		case core.StatusSuccess:
			s.Success++
		case core.StatusCircuitOpen:
			s.CircuitOpen++
		case core.StatusTimedOut:
			s.TimedOut++
		default:
			s.Failed++
		}
		s.TotalAttempts += r.Attempts
		elapsed = append(elapsed, r.Elapsed)
	}

	s.SuccessRate = float64(s.Success) / float64(s.Total) * 100
	if runDuration > 0 {
		s.RequestsPerSec = float64(s.Total) / runDuration.Seconds()
	}
	s.Latency = computeLatency(elapsed)
	return s
}

func computeLatency(durations []time.Duration) LatencyStats {
	if len(durations) == 0 {
		return LatencyStats{}
	}
	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}

	return LatencyStats{
		Min: sorted[0],
		Avg: sum / time.Duration(len(sorted)),
		Max: sorted[len(sorted)-1],
		P95: percentile(sorted, 95),
	}
}

// percentile expects a sorted slice and uses nearest-rank selection.
func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := (len(sorted)*p + 99) / 100
	if idx < 1 {
		idx = 1
	}
	if idx > len(sorted) {
		idx = len(sorted)
	}
	return sorted[idx-1]
}
