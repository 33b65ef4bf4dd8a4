// Package sheet reads question lists from and writes rosters to Excel
// workbooks.
package sheet

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/examnetshield/examshield/internal/model"
)

// RowError describes one rejected row of an import.
type RowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// ImportReport summarizes a question import.
type ImportReport struct {
	TotalRows   int        `json:"total_rows"`
	SuccessRows int        `json:"success_rows"`
	FailedRows  int        `json:"failed_rows"`
	Errors      []RowError `json:"errors"`
}

var rosterHeaders = []string{"registration_number", "ip_address", "question", "submissions"}

// ReadQuestions reads the first sheet of a workbook. The header row must
// have "number" and "text" columns in any order; blank rows are skipped.
func ReadQuestions(r io.Reader) ([]model.QuestionImport, *ImportReport, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open excel: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, errors.New("excel workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil, errors.New("no data rows found")
	}

	header := map[string]int{}
	for i, h := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range []string{"number", "text"} {
		if _, ok := header[col]; !ok {
			return nil, nil, fmt.Errorf("missing required column: %s", col)
		}
	}

	report := &ImportReport{Errors: make([]RowError, 0)}
	var out []model.QuestionImport
	for i := 1; i < len(rows); i++ {
		rowNo := i + 1
		row := rows[i]

		get := func(key string) string {
			idx := header[key]
			if idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		numberRaw, text := get("number"), get("text")
		if numberRaw == "" && text == "" {
			continue
		}
		report.TotalRows++

		number, err := strconv.Atoi(numberRaw)
		if err != nil || number <= 0 {
			report.FailedRows++
			report.Errors = append(report.Errors, RowError{Row: rowNo, Error: fmt.Sprintf("invalid question number %q", numberRaw)})
			continue
		}
		if text == "" {
			report.FailedRows++
			report.Errors = append(report.Errors, RowError{Row: rowNo, Error: "question text is empty"})
			continue
		}

		report.SuccessRows++
		out = append(out, model.QuestionImport{Number: number, Text: text})
	}
	return out, report, nil
}

// WriteRoster writes an exam's roster as a single-sheet workbook.
func WriteRoster(w io.Writer, exam model.Exam, rows []model.RosterRow) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if name := sheetName(exam.Name); name != "" {
		if err := f.SetSheetName(sheet, name); err != nil {
			return fmt.Errorf("rename sheet: %w", err)
		}
		sheet = name
	}

	for i, h := range rosterHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for i, r := range rows {
		values := []any{r.RegistrationNumber, r.IPAddress, r.Question, r.Submissions}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	_ = f.SetColWidth(sheet, "A", "B", 22)
	_ = f.SetColWidth(sheet, "C", "C", 60)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write excel: %w", err)
	}
	return nil
}

// sheetName trims an exam name to Excel's sheet name rules.
func sheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return -1
		}
		return r
	}, strings.TrimSpace(name))
	if runes := []rune(name); len(runes) > 31 {
		name = string(runes[:31])
	}
	return strings.Trim(name, "'")
}
