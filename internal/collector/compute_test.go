package collector

import (
	"testing"
	"time"

	"reqdiff/internal/core"
)

func TestCompute_Tallies(t *testing.T) {
	results := []core.ExecutionResult{
		{Status: core.StatusSuccess, Attempts: 1, Elapsed: 10 * time.Millisecond},
		{Status: core.StatusSuccess, Attempts: 2, Elapsed: 20 * time.Millisecond},
		{Status: core.StatusFailed, Attempts: 4, Elapsed: 80 * time.Millisecond},
		{Status: core.StatusCircuitOpen, Attempts: 0, Elapsed: 0},
		{Status: core.StatusTimedOut, Attempts: 1, Elapsed: 30 * time.Millisecond},
	}
	s := Compute(results, 2*time.Second)

	if s.Total != 5 || s.Success != 2 || s.Failed != 1 || s.CircuitOpen != 1 || s.TimedOut != 1 {
		t.Errorf("tally wrong: %+v", s)
	}
	if s.SuccessRate != 40 {
		t.Errorf("success rate = %v, want 40", s.SuccessRate)
	}
	if s.TotalAttempts != 8 {
		t.Errorf("total attempts = %d, want 8", s.TotalAttempts)
	}
	if s.RequestsPerSec != 2.5 {
		t.Errorf("rps = %v, want 2.5", s.RequestsPerSec)
	}
	if s.Latency.Min != 0 || s.Latency.Max != 80*time.Millisecond {
		t.Errorf("latency bounds: %+v", s.Latency)
	}
	if s.Latency.Avg != 28*time.Millisecond {
		t.Errorf("avg latency = %v, want 28ms", s.Latency.Avg)
	}
}

func TestCompute_Empty(t *testing.T) {
	s := Compute(nil, time.Second)
	if s.Total != 0 || s.SuccessRate != 0 || s.Latency.Max != 0 {
		t.Errorf("empty summary not zero: %+v", s)
	}
}

func TestPercentile_NearestRank(t *testing.T) {
	sorted := make([]time.Duration, 100)
	for i := range sorted {
		sorted[i] = time.Duration(i+1) * time.Millisecond
	}
	if got := percentile(sorted, 95); got != 95*time.Millisecond {
		t.Errorf("p95 = %v, want 95ms", got)
	}
	if got := percentile(sorted, 50); got != 50*time.Millisecond {
		t.Errorf("p50 = %v, want 50ms", got)
	}
	if got := percentile(sorted[:1], 95); got != time.Millisecond {
		t.Errorf("p95 of single sample = %v, want 1ms", got)
	}
}
