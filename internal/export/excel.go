// Package export renders screening batches as Excel workbooks.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fmuoria/nexushire/internal/models"
	"github.com/xuri/excelize/v2"
)

// Sheet names of an exported workbook.
const (
	SummarySheet = "Summary"
	ResultsSheet = "Candidates"
)

// Report is the content of one exported batch.
type Report struct {
	Company      string
	Tagline      string
	Role         string
	Requirements string
	CreatedAt    time.Time
	Results      []models.ResultEntry
}

// NewReport builds a report from a persisted batch and its results.
func NewReport(batch models.ScreeningBatch, results []models.CandidateResult) Report {
	entries := make([]models.ResultEntry, 0, len(results))
	for _, r := range results {
		entries = append(entries, models.ResultEntry{Email: r.Email, Status: r.Status})
	}
	return Report{
		Company:      batch.CompanyName,
		Tagline:      batch.Tagline,
		Role:         batch.RoleName,
		Requirements: batch.RoleRequirements,
		CreatedAt:    batch.CreatedAt,
		Results:      entries,
	}
}

// FileName suggests a download name for the report.
func (r Report) FileName() string {
	name := strings.Map(func(c rune) rune {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			return c
		case c == ' ':
			return '_'
		}
		return -1
	}, r.Company+" "+r.Role)
	if name == "" {
		name = "screening"
	}
	return name + ".xlsx"
}

// WriteExcel writes the report workbook to w.
func WriteExcel(w io.Writer, report Report) error {
	f, err := build(report)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write Excel workbook: %w", err)
	}
	return nil
}

// SaveExcel writes the report to outputPath, adding the .xlsx extension when missing.
func SaveExcel(report Report, outputPath string) (string, error) {
	if !strings.HasSuffix(strings.ToLower(outputPath), ".xlsx") {
		outputPath = outputPath + ".xlsx"
	}
	outputPath = filepath.Clean(outputPath)

	out, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", outputPath, err)
	}
	if err := WriteExcel(out, report); err != nil {
		_ = out.Close()
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", outputPath, err)
	}
	return outputPath, nil
}

func build(report Report) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		_ = f.Close()
		return nil, err
	}
	if _, err := f.NewSheet(ResultsSheet); err != nil {
		_ = f.Close()
		return nil, err
	}

	if err := createSummarySheet(f, report); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}
	if err := createResultsSheet(f, report.Results); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to create results sheet: %w", err)
	}
	return f, nil
}

var thinBorder = []excelize.Border{
	{Type: "left", Color: "000000", Style: 1},
	{Type: "right", Color: "000000", Style: 1},
	{Type: "top", Color: "000000", Style: 1},
	{Type: "bottom", Color: "000000", Style: 1},
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

// createSummarySheet writes batch details and status counts
func createSummarySheet(f *excelize.File, report Report) error {
	sheet := SummarySheet
	if err := f.SetColWidth(sheet, "A", "A", 25); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "B", "B", 50); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F46E5"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	if err != nil {
		return err
	}
	labelStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	row := 1
	title := func(text string) {
		_ = f.SetCellValue(sheet, cell("A", row), text)
		_ = f.SetCellStyle(sheet, cell("A", row), cell("B", row), headerStyle)
		_ = f.MergeCell(sheet, cell("A", row), cell("B", row))
		row++
	}
	field := func(label string, value interface{}) {
		_ = f.SetCellValue(sheet, cell("A", row), label)
		_ = f.SetCellStyle(sheet, cell("A", row), cell("A", row), labelStyle)
		_ = f.SetCellValue(sheet, cell("B", row), value)
		row++
	}

	title("Screening Report")
	row++
	field("Company:", report.Company)
	field("Tagline:", report.Tagline)
	field("Role:", report.Role)
	field("Requirements:", report.Requirements)
	if !report.CreatedAt.IsZero() {
		field("Screened:", report.CreatedAt.Format(models.HistoryDateLayout))
	}
	row++

	counts := map[string]int{}
	for _, r := range report.Results {
		counts[r.Status]++
	}

	title("Statistics:")
	field("Candidates:", len(report.Results))
	field("Eligible:", counts[models.StatusEligible])
	field("Not eligible:", counts[models.StatusNotEligible])
	if n := counts[models.StatusError]; n > 0 {
		field("Errors:", n)
	}
	return nil
}

// createResultsSheet lists candidates with a color per status
func createResultsSheet(f *excelize.File, results []models.ResultEntry) error {
	sheet := ResultsSheet
	if err := f.SetColWidth(sheet, "A", "A", 8); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "B", "B", 40); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "C", "C", 18); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F46E5"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorder,
	})
	if err != nil {
		return err
	}

	statusStyles := map[string]int{}
	for status, color := range map[string]string{
		models.StatusEligible:    "C6EFCE",
		models.StatusNotEligible: "FFEB9C",
		models.StatusError:       "FF9999",
	} {
		style, err := f.NewStyle(&excelize.Style{
			Fill:   excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
			Border: thinBorder,
		})
		if err != nil {
			return err
		}
		statusStyles[status] = style
	}

	for col, header := range []string{"#", "Email", "Status"} {
		c := cell(string(rune('A'+col)), 1)
		_ = f.SetCellValue(sheet, c, header)
		_ = f.SetCellStyle(sheet, c, c, headerStyle)
	}

	for i, result := range results {
		row := i + 2
		_ = f.SetCellValue(sheet, cell("A", row), i+1)
		_ = f.SetCellValue(sheet, cell("B", row), result.Email)
		_ = f.SetCellValue(sheet, cell("C", row), result.Status)
		if style, ok := statusStyles[result.Status]; ok {
			_ = f.SetCellStyle(sheet, cell("A", row), cell("C", row), style)
		}
	}

	if len(results) > 0 {
		if err := f.AutoFilter(sheet, fmt.Sprintf("A1:C%d", len(results)+1), []excelize.AutoFilterOptions{}); err != nil {
			return err
		}
	}

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}
