package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	mergeHeaderColor    = "4472C4"
	mergeSeparatorColor = "FFFF00"
	mergeMaxColWidth    = 50

	// Excel caps sheet names at 31 characters.
	maxSheetNameLen = 31
)

// MergeOutcome summarizes one folder consolidation.
type MergeOutcome struct {
	Files  int
	Groups int
	Merged []string // workbook paths, ordered by group name
}

// MergeCSVReports consolidates the CSV reports in dir into one Excel
// workbook per file-name prefix (the part of the name before the first
// underscore). Every source row is tagged with its file name, and files
// within a workbook are separated by a highlighted row, so a folder of
// per-request diff reports collapses into a single reviewable sheet.
func MergeCSVReports(dir, outDir string) (*MergeOutcome, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading report directory: %w", err)
	}

	groups := make(map[string][]string)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".csv") {
			continue
		}
		stem := strings.TrimSuffix(name, ".csv")
		prefix := stem
		if i := strings.Index(stem, "_"); i > 0 {
			prefix = stem[:i]
		}
		groups[prefix] = append(groups[prefix], name)
	}

	out := &MergeOutcome{Groups: len(groups)}
	if len(groups) == 0 {
		return out, nil
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating merge output directory: %w", err)
	}

	names := make([]string, 0, len(groups))
	for g := range groups {
		names = append(names, g)
	}
	sort.Strings(names)

	for _, g := range names {
		files := groups[g]
		sort.Strings(files)
		path, err := mergeGroup(dir, files, outDir, g)
		if err != nil {
			return nil, fmt.Errorf("merging group %s: %w", g, err)
		}
		out.Files += len(files)
		out.Merged = append(out.Merged, path)
	}
	return out, nil
}

// mergeGroup writes one group's CSV files into a single workbook. The
// header row comes from the first non-empty file; subsequent files are
// assumed to share the column layout, as all reports in this package do.
func mergeGroup(dir string, files []string, outDir, group string) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := group + "_merged"
	if len(sheet) > maxSheetNameLen {
		sheet = sheet[:maxSheetNameLen]
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return "", fmt.Errorf("renaming sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{mergeHeaderColor}},
		Font:      &excelize.Font{Color: "FFFFFF", Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return "", fmt.Errorf("creating header style: %w", err)
	}
	sepStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{mergeSeparatorColor}},
	})
	if err != nil {
		return "", fmt.Errorf("creating separator style: %w", err)
	}

	row := 1
	cols := 0
	var widths []int

	writeRow := func(cells []string, style int) error {
		for i, v := range cells {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
			for len(widths) <= i {
				widths = append(widths, 0)
			}
			if len(v) > widths[i] {
				widths[i] = len(v)
			}
		}
		if style != 0 {
			start, _ := excelize.CoordinatesToCellName(1, row)
			end, _ := excelize.CoordinatesToCellName(cols, row)
			if err := f.SetCellStyle(sheet, start, end, style); err != nil {
				return err
			}
		}
		row++
		return nil
	}

	for _, name := range files {
		records, err := readCSVFile(filepath.Join(dir, name))
		if err != nil {
			return "", err
		}
		if len(records) == 0 {
			continue
		}
		if cols == 0 {
			cols = len(records[0]) + 1
			if err := writeRow(append([]string{"Source File"}, records[0]...), headerStyle); err != nil {
				return "", err
			}
		}
		for _, rec := range records[1:] {
			if err := writeRow(append([]string{name}, rec...), 0); err != nil {
				return "", err
			}
		}
		if err := writeRow(make([]string, cols), sepStyle); err != nil {
			return "", err
		}
	}

	for i, width := range widths {
		w := width + 2
		if w > mergeMaxColWidth {
			w = mergeMaxColWidth
		}
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(sheet, col, col, float64(w))
	}

	path := filepath.Join(outDir, group+".xlsx")
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("saving workbook: %w", err)
	}
	return path, nil
}

func readCSVFile(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	return records, nil
}
