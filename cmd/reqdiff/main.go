package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"reqdiff/internal/collector"
	"reqdiff/internal/config"
	"reqdiff/internal/logging"
	"reqdiff/internal/progress"
	"reqdiff/internal/report"
	"reqdiff/internal/runner"
)

const (
	ExitSuccess  = 0
	ExitFailures = 1
	ExitError    = 2
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (required)")
	mode := flag.String("mode", "run", "mode: run, compare, merge")
	left := flag.String("left", "", "left run directory (compare mode)")
	right := flag.String("right", "", "right run directory (compare mode)")
	dir := flag.String("dir", "", "directory of CSV reports to consolidate (merge mode)")
	out := flag.String("out", "reports", "directory for generated reports")
	quiet := flag.Bool("quiet", false, "suppress progress output")
	flag.Parse()

	// Merge consolidates already-written reports and needs no config.
	if *mode == "merge" {
		if *dir == "" {
			fmt.Fprintln(os.Stderr, "error: --dir is required in merge mode")
			os.Exit(ExitError)
		}
		os.Exit(mergeMode(*dir, *out))
	}

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "error: --config is required")
		flag.Usage()
		os.Exit(ExitError)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(ExitError)
	}

	log, err := logging.Configure(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(ExitError)
	}

	if err := os.MkdirAll(*out, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(ExitError)
	}

	r := runner.New(cfg, log)

	switch *mode {
	case "run":
		os.Exit(runMode(r, *out, *quiet))
	case "compare":
		if *left == "" || *right == "" {
			fmt.Fprintln(os.Stderr, "error: --left and --right are required in compare mode")
			os.Exit(ExitError)
		}
		os.Exit(compareMode(r, *left, *right, *out))
	default:
		fmt.Fprintf(os.Stderr, "error: unknown mode %q\n", *mode)
		os.Exit(ExitError)
	}
}

func runMode(r *runner.Runner, out string, quiet bool) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nreceived interrupt signal, shutting down...")
		cancel()
	}()

	coll := collector.NewCollector()
	prog := progress.NewProgress(coll, quiet)
	prog.Start()

	res, err := r.Run(ctx, coll)
	prog.Stop()
	coll.Close()

	aborted := err != nil
	if aborted {
		fmt.Fprintf(os.Stderr, "error: run aborted: %v\n", err)
		if res == nil {
			return ExitError
		}
	}

	printSummary(res.Summary)
	fmt.Printf("responses: %s\n", res.Dir)

	excelPath := filepath.Join(out, "run_"+res.RunID[:8]+".xlsx")
	if err := report.WriteExcel(excelPath, res.RunID, res.Results, res.Summary); err != nil {
		fmt.Fprintf(os.Stderr, "error writing excel report: %v\n", err)
		return ExitError
	}
	csvPath := filepath.Join(out, "run_"+res.RunID[:8]+".csv")
	if err := report.WriteResultsCSV(csvPath, res.Results); err != nil {
		fmt.Fprintf(os.Stderr, "error writing csv report: %v\n", err)
		return ExitError
	}
	fmt.Printf("reports: %s, %s\n", excelPath, csvPath)

	return runExitCode(aborted, res.Summary)
}

// runExitCode distinguishes a truncated run (identifier exhaustion or
// another fatal error, reports still written for the completed portion)
// from one that finished with request failures.
func runExitCode(aborted bool, s collector.Summary) int {
	if aborted {
		return ExitError
	}
	if s.Success < s.Total {
		return ExitFailures
	}
	return ExitSuccess
}

func compareMode(r *runner.Runner, left, right, out string) int {
	outcome, err := r.CompareRuns(left, right)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return ExitError
	}

	for _, pc := range outcome.PerFile {
		if len(pc.Result.Differences) == 0 {
			continue
		}
		// The shared "diff_" prefix lets merge mode consolidate these into
		// one workbook.
		path := filepath.Join(out, "diff_"+pc.RequestID+".csv")
		if err := report.WriteDifferencesCSV(path, pc.Result); err != nil {
			fmt.Fprintf(os.Stderr, "error writing diff report: %v\n", err)
			return ExitError
		}
		fmt.Printf("%s: similarity %.2f%%, %d differences -> %s\n",
			pc.RequestID, pc.Result.Similarity, len(pc.Result.Differences), path)
	}

	fmt.Printf("\nCompared %d pairs: %d with differences, %d identical\n",
		outcome.Compared, outcome.WithDiffs, outcome.Compared-outcome.WithDiffs)
	if len(outcome.OnlyLeft) > 0 {
		fmt.Printf("only in %s: %v\n", left, outcome.OnlyLeft)
	}
	if len(outcome.OnlyRight) > 0 {
		fmt.Printf("only in %s: %v\n", right, outcome.OnlyRight)
	}

	if outcome.WithDiffs > 0 || len(outcome.OnlyLeft) > 0 || len(outcome.OnlyRight) > 0 {
		return ExitFailures
	}
	return ExitSuccess
}

func mergeMode(dir, out string) int {
	outcome, err := report.MergeCSVReports(dir, out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return ExitError
	}
	if outcome.Groups == 0 {
		fmt.Printf("no CSV reports found in %s\n", dir)
		return ExitSuccess
	}
	fmt.Printf("merged %d files into %d workbooks:\n", outcome.Files, outcome.Groups)
	for _, path := range outcome.Merged {
		fmt.Printf("  %s\n", path)
	}
	return ExitSuccess
}

func printSummary(s collector.Summary) {
	fmt.Printf("\nRun summary: %d requests in %v (%.1f req/s)\n",
		s.Total, s.RunDuration.Round(time.Millisecond), s.RequestsPerSec)
	fmt.Printf("  success: %d (%.1f%%)  failed: %d  circuit_open: %d  timed_out: %d\n",
		s.Success, s.SuccessRate, s.Failed, s.CircuitOpen, s.TimedOut)
	fmt.Printf("  latency: min %v  avg %v  p95 %v  max %v\n",
		s.Latency.Min, s.Latency.Avg, s.Latency.P95, s.Latency.Max)
}
