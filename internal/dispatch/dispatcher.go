// Package dispatch executes test requests under a fixed concurrency budget
// with think-time, retry with exponential backoff, and circuit breaking.
package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"reqdiff/internal/core"
	"reqdiff/internal/idgen"
	"reqdiff/internal/ratelimit"
)

// maxBodySize limits how much of a response body is retained per result.
const maxBodySize = 10 * 1024 * 1024 // 10MB

// DefaultRetryStatuses are the HTTP statuses retried when none are
// configured.
var DefaultRetryStatuses = []int{429, 500, 502, 503, 504}

// Config controls a dispatcher's behavior for one run.
type Config struct {
	URL     string
	Method  string
	Headers map[string]string

	Parallel          int
	ThinkTime         time.Duration
	MaxRetries        int
	RetryDelay        time.Duration
	BackoffMultiplier float64
	RetryStatuses     []int
	RetryTimeouts     bool
	RequestTimeout    time.Duration

	FailureThreshold int
	Cooldown         time.Duration
}

// Validate checks the knobs a run cannot proceed without.
func (c Config) Validate() error {
	if c.URL == "" {
		return errors.New("dispatch: url is required")
	}
	if c.Parallel < 1 {
		return fmt.Errorf("dispatch: parallel must be >= 1, got %d", c.Parallel)
	}
	if c.ThinkTime < 0 {
		return errors.New("dispatch: think_time must be >= 0")
	}
	if c.MaxRetries < 0 {
		return errors.New("dispatch: max_retries must be >= 0")
	}
	if c.RetryDelay < 0 {
		return errors.New("dispatch: retry_delay must be >= 0")
	}
	if c.BackoffMultiplier != 0 && c.BackoffMultiplier < 1 {
		return errors.New("dispatch: backoff_multiplier must be >= 1")
	}
	if c.FailureThreshold < 1 {
		return errors.New("dispatch: circuit_failure_threshold must be >= 1")
	}
	if c.Cooldown < 0 {
		return errors.New("dispatch: circuit_cooldown must be >= 0")
	}
	return nil
}

// Dispatcher sends requests through an injected client. The client is
// shared across the worker pool so connections are reused; it is never
// constructed per request.
type Dispatcher struct {
	Config  Config
	Client  core.Doer
	Clock   core.Clock
	Limiter *ratelimit.Limiter // optional arrival-rate cap on top of think-time
	Log     zerolog.Logger

	retryable map[int]struct{}
	once      sync.Once
}

// per-request execution states. Terminal outcomes are core.Status values.
type reqState int

const (
	statePending reqState = iota
	stateSending
	stateRetrying
)

func (d *Dispatcher) init() {
	d.once.Do(func() {
		statuses := d.Config.RetryStatuses
		if statuses == nil {
			statuses = DefaultRetryStatuses
		}
		d.retryable = make(map[int]struct{}, len(statuses))
		for _, s := range statuses {
			d.retryable[s] = struct{}{}
		}
		if d.Clock == nil {
			d.Clock = core.RealClock{}
		}
		if d.Config.Method == "" {
			d.Config.Method = http.MethodPost
		}
	})
}

// Run issues count identifiers from cursor, builds payloads and dispatches
// them across Parallel workers. Every submitted request yields exactly one
// terminal ExecutionResult, reported to rep and returned (completion order,
// not submission order; correlate by RequestID). Identifier exhaustion is
// fatal: remaining work is abandoned and ErrRangeExhausted returned.
// Per-request failures never abort the run.
func (d *Dispatcher) Run(ctx context.Context, count int, cursor idgen.Cursor, builder core.Builder, rep core.Reporter) ([]core.ExecutionResult, error) {
	d.init()
	if err := d.Config.Validate(); err != nil {
		return nil, err
	}
	if rep == nil {
		rep = core.NullReporter
	}

	breaker := NewBreaker(d.Config.FailureThreshold, d.Config.Cooldown, d.Clock)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan struct{})
	results := make(chan core.ExecutionResult, count)

	var exhausted sync.Once
	var runErr error

	var wg sync.WaitGroup
	for i := 0; i < d.Config.Parallel; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				id, err := cursor.Next()
				if err != nil {
					// Identifier supply exceeded: fatal to the run.
					exhausted.Do(func() {
						runErr = err
						cancel()
					})
					return
				}
				results <- d.executeOne(ctx, breaker, builder, id)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := 0; i < count; i++ {
			select {
			case jobs <- struct{}{}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]core.ExecutionResult, 0, count)
	for res := range results {
		rep.Report(res)
		out = append(out, res)
	}
	return out, runErr
}

// executeOne builds the payload and drives the request state machine.
func (d *Dispatcher) executeOne(ctx context.Context, breaker *Breaker, builder core.Builder, id string) core.ExecutionResult {
	payload, err := builder.Produce(id)
	if err != nil {
		// Pre-send failure, non-retryable.
		d.Log.Warn().Str("id", id).Err(err).Msg("payload build failed")
		return core.ExecutionResult{
			RequestID: id,
			Status:    core.StatusFailed,
			Error:     err.Error(),
		}
	}
	return d.Execute(ctx, breaker, core.TestRequest{ID: id, Payload: payload})
}

// sendOutcome is the classified result of a single send attempt.
type sendOutcome struct {
	status   int
	body     []byte
	err      error
	timedOut bool
}

// Execute runs one request to its terminal outcome:
// Pending -> Sending -> {Succeeded | Retrying -> Sending | Failed | CircuitOpen}.
func (d *Dispatcher) Execute(ctx context.Context, breaker *Breaker, req core.TestRequest) core.ExecutionResult {
	d.init()
	start := d.Clock.Now()
	state := statePending
	var last sendOutcome

	for {
		switch state {
		case statePending:
			// Think-time throttles arrival rate, so it runs strictly
			// before the send, never after the response.
			if err := d.Clock.Sleep(ctx, d.Config.ThinkTime); err != nil {
				return d.terminal(req, start, core.StatusFailed, last, "run cancelled")
			}
			if d.Limiter != nil {
				if err := d.Limiter.Wait(ctx); err != nil {
					return d.terminal(req, start, core.StatusFailed, last, "run cancelled")
				}
			}
			state = stateSending

		case stateSending:
			if !breaker.Allow() {
				d.Log.Debug().Str("id", req.ID).Msg("circuit open, short-circuiting")
				return d.terminal(req, start, core.StatusCircuitOpen, last, "circuit breaker open")
			}
			req.Attempt++
			last = d.send(ctx, req)

			if last.err == nil && last.status < 400 {
				breaker.OnSuccess()
				return d.terminal(req, start, core.StatusSuccess, last, "")
			}
			breaker.OnFailure()

			if ctx.Err() != nil {
				return d.terminal(req, start, core.StatusFailed, last, "run cancelled")
			}
			if d.shouldRetry(last) && req.Attempt <= d.Config.MaxRetries {
				state = stateRetrying
				continue
			}
			if last.timedOut {
				return d.terminal(req, start, core.StatusTimedOut, last, "request timed out")
			}
			return d.terminal(req, start, core.StatusFailed, last, failureDetail(last))

		case stateRetrying:
			delay := d.backoff(req.Attempt)
			d.Log.Debug().Str("id", req.ID).Int("attempt", req.Attempt).
				Dur("delay", delay).Msg("retrying after backoff")
			if err := d.Clock.Sleep(ctx, delay); err != nil {
				return d.terminal(req, start, core.StatusFailed, last, "run cancelled")
			}
			state = stateSending
		}
	}
}

// backoff returns the delay before the send following attempt number
// attempt (1-based): retry_delay * multiplier^(attempt-1).
func (d *Dispatcher) backoff(attempt int) time.Duration {
	mult := d.Config.BackoffMultiplier
	if mult < 1 {
		mult = 1
	}
	scaled := float64(d.Config.RetryDelay) * math.Pow(mult, float64(attempt-1))
	if scaled > float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(scaled)
}

func (d *Dispatcher) shouldRetry(o sendOutcome) bool {
	if o.timedOut {
		return d.Config.RetryTimeouts
	}
	if o.err != nil {
		return true // transport error
	}
	_, ok := d.retryable[o.status]
	return ok
}

// send performs a single attempt with the per-request timeout.
func (d *Dispatcher) send(ctx context.Context, req core.TestRequest) sendOutcome {
	attemptCtx := ctx
	var cancel context.CancelFunc
	if d.Config.RequestTimeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, d.Config.RequestTimeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, d.Config.Method, d.Config.URL, bytes.NewReader(req.Payload))
	if err != nil {
		return sendOutcome{err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range d.Config.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := d.Client.Do(httpReq)
	if err != nil {
		timedOut := errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil
		return sendOutcome{err: err, timedOut: timedOut}
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	_, _ = io.Copy(io.Discard, resp.Body) // drain for connection reuse
	if readErr != nil {
		return sendOutcome{status: resp.StatusCode, err: readErr}
	}
	return sendOutcome{status: resp.StatusCode, body: body}
}

func (d *Dispatcher) terminal(req core.TestRequest, start time.Time, status core.Status, last sendOutcome, detail string) core.ExecutionResult {
	res := core.ExecutionResult{
		RequestID:  req.ID,
		Status:     status,
		HTTPStatus: last.status,
		Body:       last.body,
		Elapsed:    d.Clock.Since(start),
		Attempts:   req.Attempt,
		Error:      detail,
	}
	if detail == "" && last.err != nil {
		res.Error = last.err.Error()
	}
	d.Log.Debug().Str("id", req.ID).Stringer("status", status).
		Int("http_status", last.status).Int("attempts", req.Attempt).
		Dur("elapsed", res.Elapsed).Msg("request settled")
	return res
}

func failureDetail(o sendOutcome) string {
	if o.err != nil {
		return o.err.Error()
	}
	return fmt.Sprintf("http status %d", o.status)
}
