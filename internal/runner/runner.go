// Package runner wires the identifier cursor, request builder, dispatcher
// and collector into complete test runs, and pairs two stored runs for
// comparison.
package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"reqdiff/internal/collector"
	"reqdiff/internal/compare"
	"reqdiff/internal/config"
	"reqdiff/internal/core"
	"reqdiff/internal/dispatch"
	"reqdiff/internal/idgen"
	"reqdiff/internal/ratelimit"
	"reqdiff/internal/template"
)

// Runner executes test runs from configuration.
type Runner struct {
	cfg   *config.Config
	log   zerolog.Logger
	clock core.Clock
}

func New(cfg *config.Config, log zerolog.Logger) *Runner {
	return &Runner{cfg: cfg, log: log, clock: core.RealClock{}}
}

// RunResult is the outcome of one complete run.
type RunResult struct {
	RunID   string
	Dir     string
	Results []core.ExecutionResult
	Summary collector.Summary
}

// Run executes one test run. Each run owns its own cursor and circuit
// state, so parallel runs in the same process stay independent.
func (r *Runner) Run(ctx context.Context, rep core.Reporter) (*RunResult, error) {
	runID := uuid.NewString()

	cursor, err := idgen.FromSpec(r.cfg.Identifiers)
	if err != nil {
		return nil, fmt.Errorf("building identifier cursor: %w", err)
	}

	builder, err := template.FromFile(r.cfg.Template.Path, r.cfg.Template.InjectPaths...)
	if err != nil {
		return nil, err
	}

	dirName := time.Now().Format("20060102_150405") + "_" + runID[:8]
	store, err := NewStore(filepath.Join(r.cfg.Output.Dir, dirName))
	if err != nil {
		return nil, err
	}

	coll := collector.NewCollector()
	sink := &storingReporter{store: store, next: coll, log: r.log}
	if rep != nil {
		sink.extra = rep
	}

	d := &dispatch.Dispatcher{
		Config: r.cfg.DispatchConfig(),
		Client: r.cfg.HTTPClient(),
		Clock:  r.clock,
		Log:    r.log,
	}
	if r.cfg.Run.RPS > 0 {
		d.Limiter = ratelimit.NewLimiter(r.cfg.Run.RPS)
	}

	r.log.Info().Str("run_id", runID).Int("count", r.cfg.Run.Count).
		Int("parallel", r.cfg.Run.ParallelCount).Str("url", r.cfg.Run.URL).
		Msg("starting run")

	results, runErr := d.Run(ctx, r.cfg.Run.Count, cursor, builder, sink)
	coll.Close()

	summary := collector.Compute(results, coll.Duration())
	r.log.Info().Str("run_id", runID).Int("total", summary.Total).
		Int("success", summary.Success).Int("failed", summary.Failed).
		Int("circuit_open", summary.CircuitOpen).Int("timed_out", summary.TimedOut).
		Msg("run finished")

	return &RunResult{
		RunID:   runID,
		Dir:     store.Dir(),
		Results: results,
		Summary: summary,
	}, runErr
}

// storingReporter persists successful response bodies and forwards every
// result downstream.
type storingReporter struct {
	store *Store
	next  core.Reporter
	extra core.Reporter
	log   zerolog.Logger
}

func (s *storingReporter) Report(res core.ExecutionResult) {
	if res.Status == core.StatusSuccess && len(res.Body) > 0 {
		if err := s.store.Save(res.RequestID, res.Body); err != nil {
			s.log.Error().Err(err).Str("id", res.RequestID).Msg("saving response")
		}
	}
	s.next.Report(res)
	if s.extra != nil {
		s.extra.Report(res)
	}
}

// RequestComparison is the diff outcome for one paired request.
type RequestComparison struct {
	RequestID string
	Result    compare.Result
}

// CompareOutcome summarizes a two-run comparison.
type CompareOutcome struct {
	Compared  int
	WithDiffs int
	OnlyLeft  []string
	OnlyRight []string
	PerFile   []RequestComparison
}

// CompareRuns pairs response files from two run directories by request id
// and deep-compares each pair. Files present on only one side are reported,
// not treated as errors.
func (r *Runner) CompareRuns(leftDir, rightDir string) (*CompareOutcome, error) {
	left, err := ListResponses(leftDir)
	if err != nil {
		return nil, err
	}
	right, err := ListResponses(rightDir)
	if err != nil {
		return nil, err
	}

	out := &CompareOutcome{}
	common := make([]string, 0, len(left))
	for id := range left {
		if _, ok := right[id]; ok {
			common = append(common, id)
		} else {
			out.OnlyLeft = append(out.OnlyLeft, id)
		}
	}
	for id := range right {
		if _, ok := left[id]; !ok {
			out.OnlyRight = append(out.OnlyRight, id)
		}
	}
	sort.Strings(common)
	sort.Strings(out.OnlyLeft)
	sort.Strings(out.OnlyRight)

	opts := r.cfg.CompareOptions()
	for _, id := range common {
		lb, err := os.ReadFile(left[id])
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", left[id], err)
		}
		rb, err := os.ReadFile(right[id])
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", right[id], err)
		}
		res := compare.Compare(lb, rb, opts)
		out.Compared++
		if len(res.Differences) > 0 {
			out.WithDiffs++
		}
		out.PerFile = append(out.PerFile, RequestComparison{RequestID: id, Result: res})
		r.log.Debug().Str("id", id).Float64("similarity", res.Similarity).
			Int("differences", len(res.Differences)).Msg("compared pair")
	}

	r.log.Info().Int("compared", out.Compared).Int("with_diffs", out.WithDiffs).
		Int("only_left", len(out.OnlyLeft)).Int("only_right", len(out.OnlyRight)).
		Msg("comparison finished")
	return out, nil
}
