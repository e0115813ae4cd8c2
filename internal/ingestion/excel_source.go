package ingestion

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ExcelSource reads form responses from a local workbook.
type ExcelSource struct {
	Path  string
	Sheet string
}

// Rows returns the sheet's rows. The first sheet is used when Sheet is empty.
func (s *ExcelSource) Rows(ctx context.Context) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := s.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return rows, nil
}
