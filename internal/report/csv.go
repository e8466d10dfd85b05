// Package report renders run and comparison outputs as CSV and Excel
// files. It only consumes the engine's outputs; nothing here feeds back
// into execution.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"reqdiff/internal/compare"
	"reqdiff/internal/core"
)

// WriteDifferencesCSV writes one comparison's differences, one row per
// difference.
func WriteDifferencesCSV(path string, res compare.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Path", "Kind", "Severity", "Left", "Right"}); err != nil {
		return err
	}
	for _, d := range res.Differences {
		row := []string{d.PathString(), d.Kind.String(), d.Severity.String(), d.Left, d.Right}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteResultsCSV writes one row per execution result.
func WriteResultsCSV(path string, results []core.ExecutionResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"RequestID", "Status", "HTTPStatus", "Attempts", "ElapsedMs", "Error"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range results {
		row := []string{
			r.RequestID,
			r.Status.String(),
			strconv.Itoa(r.HTTPStatus),
			strconv.Itoa(r.Attempts),
			strconv.FormatFloat(float64(r.Elapsed.Microseconds())/1000, 'f', 3, 64),
			r.Error,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
