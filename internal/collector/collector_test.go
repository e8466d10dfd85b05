package collector

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"reqdiff/internal/core"
)

func TestCollector_RetainsEveryResult(t *testing.T) {
	c := NewCollector()
	const total = 2500 // exceeds the channel buffer to hit the overflow path

	var wg sync.WaitGroup
	for w := 0; w < 10; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < total/10; i++ {
				c.Report(core.ExecutionResult{
					RequestID: fmt.Sprintf("%d-%d", w, i),
					Status:    core.StatusSuccess,
				})
			}
		}(w)
	}
	wg.Wait()
	c.Close()

	results := c.Results()
	if len(results) != total {
		t.Fatalf("retained %d results, want %d (none may be dropped)", len(results), total)
	}
	seen := make(map[string]struct{}, total)
	for _, r := range results {
		if _, dup := seen[r.RequestID]; dup {
			t.Fatalf("duplicate result for %s", r.RequestID)
		}
		seen[r.RequestID] = struct{}{}
	}
}

func TestCollector_ResultsReturnsCopy(t *testing.T) {
	c := NewCollector()
	c.Report(core.ExecutionResult{RequestID: "a", Status: core.StatusSuccess})
	c.Close()

	first := c.Results()
	first[0].RequestID = "mutated"
	if got := c.Results()[0].RequestID; got != "a" {
		t.Errorf("internal state mutated through returned slice: %q", got)
	}
}

func TestCollector_DurationFinalAfterClose(t *testing.T) {
	c := NewCollector()
	c.Close()
	d := c.Duration()
	time.Sleep(10 * time.Millisecond)
	if c.Duration() != d {
		t.Error("duration must be frozen once Close is called")
	}
}
