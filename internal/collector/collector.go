// Package collector aggregates execution results and computes run
// statistics.
package collector

import (
	"sync"
	"time"

	"reqdiff/internal/core"
)

// Collector receives results from dispatcher workers over a channel and
// retains them for the run summary.
type Collector struct {
	results   []core.ExecutionResult
	ch        chan core.ExecutionResult
	done      chan struct{}
	mu        sync.Mutex
	startTime time.Time
	endTime   time.Time
}

// NewCollector creates a Collector and starts its collection goroutine.
func NewCollector() *Collector {
	c := &Collector{
		results:   make([]core.ExecutionResult, 0),
		ch:        make(chan core.ExecutionResult, 1000),
		done:      make(chan struct{}),
		startTime: time.Now(),
	}
	go c.collect()
	return c
}

func (c *Collector) collect() {
	for res := range c.ch {
		c.mu.Lock()
		c.results = append(c.results, res)
		c.mu.Unlock()
	}
	close(c.done)
}

// Report sends a result to the collector. Thread-safe.
func (c *Collector) Report(res core.ExecutionResult) {
	select {
	case c.ch <- res:
	default:
		// Overflow: retain the result synchronously rather than drop it;
		// every submitted request must appear in the summary.
		c.mu.Lock()
		c.results = append(c.results, res)
		c.mu.Unlock()
	}
}

// Close stops accepting results and waits for the drain.
func (c *Collector) Close() {
	c.endTime = time.Now()
	close(c.ch)
	<-c.done
}

// Results returns a copy of collected results.
func (c *Collector) Results() []core.ExecutionResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]core.ExecutionResult, len(c.results))
	copy(out, c.results)
	return out
}

// Duration returns elapsed run time, final once Close has been called.
func (c *Collector) Duration() time.Duration {
	if !c.endTime.IsZero() {
		return c.endTime.Sub(c.startTime)
	}
	return time.Since(c.startTime)
}
