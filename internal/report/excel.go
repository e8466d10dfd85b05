package report

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"reqdiff/internal/collector"
	"reqdiff/internal/core"
)

const (
	resultsSheet = "Results"
	summarySheet = "Summary"

	errorBgColor = "FF5900"
)

var resultHeaders = []string{
	"Request ID", "Status", "HTTP Status", "Attempts", "Elapsed (ms)", "Error",
}

// WriteExcel writes the run workbook: a Results sheet with one row per
// request and a Summary sheet with the run tally.
func WriteExcel(path string, runID string, results []core.ExecutionResult, summary collector.Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return fmt.Errorf("renaming sheet: %w", err)
	}

	errStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{errorBgColor}},
	})
	if err != nil {
		return fmt.Errorf("creating style: %w", err)
	}

	for i, h := range resultHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(resultsSheet, cell, h)
	}
	_ = f.SetColWidth(resultsSheet, "A", "A", 24)
	_ = f.SetColWidth(resultsSheet, "F", "F", 50)

	for i, r := range results {
		row := i + 2
		values := []any{
			r.RequestID,
			r.Status.String(),
			r.HTTPStatus,
			r.Attempts,
			float64(r.Elapsed.Microseconds()) / 1000,
			r.Error,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(resultsSheet, cell, v)
		}
		if r.Status != core.StatusSuccess {
			start, _ := excelize.CoordinatesToCellName(1, row)
			end, _ := excelize.CoordinatesToCellName(len(values), row)
			_ = f.SetCellStyle(resultsSheet, start, end, errStyle)
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("creating summary sheet: %w", err)
	}
	writeSummary(f, runID, summary)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, runID string, s collector.Summary) {
	rows := [][2]any{
		{"Run ID", runID},
		{"Generated", time.Now().Format(time.RFC3339)},
		{"Total requests", s.Total},
		{"Succeeded", s.Success},
		{"Failed", s.Failed},
		{"Circuit open", s.CircuitOpen},
		{"Timed out", s.TimedOut},
		{"Success rate (%)", s.SuccessRate},
		{"Requests/sec", s.RequestsPerSec},
		{"Total attempts", s.TotalAttempts},
		{"Run duration", s.RunDuration.String()},
		{"Latency min", s.Latency.Min.String()},
		{"Latency avg", s.Latency.Avg.String()},
		{"Latency p95", s.Latency.P95.String()},
		{"Latency max", s.Latency.Max.String()},
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 20)
	_ = f.SetColWidth(summarySheet, "B", "B", 40)
	for i, kv := range rows {
		keyCell, _ := excelize.CoordinatesToCellName(1, i+1)
		valCell, _ := excelize.CoordinatesToCellName(2, i+1)
		f.SetCellValue(summarySheet, keyCell, kv[0])
		f.SetCellValue(summarySheet, valCell, kv[1])
	}
}
