package ingestion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// RowSource yields the rows of a tabular source, header row first.
type RowSource interface {
	Rows(ctx context.Context) ([][]string, error)
}

// ErrSheetLink is returned when a spreadsheet id cannot be parsed from a link.
var ErrSheetLink = errors.New("invalid sheet link")

// ParseSheetID returns the spreadsheet id from a sheet URL: the path segment
// following "/d/". A bare id is returned unchanged.
func ParseSheetID(link string) (string, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return "", ErrSheetLink
	}
	if !strings.Contains(link, "/") {
		return link, nil
	}

	_, rest, ok := strings.Cut(link, "/d/")
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrSheetLink, link)
	}
	id, _, _ := strings.Cut(rest, "/")
	id, _, _ = strings.Cut(id, "?")
	if id == "" {
		return "", fmt.Errorf("%w: %s", ErrSheetLink, link)
	}
	return id, nil
}

// SheetsSource reads a range of a Google spreadsheet.
type SheetsSource struct {
	service       *sheets.Service
	SpreadsheetID string
	Range         string
}

// NewSheetsSource creates a source backed by the Sheets API.
func NewSheetsSource(ctx context.Context, client *http.Client, spreadsheetID, readRange string, opts ...option.ClientOption) (*SheetsSource, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets client: %w", err)
	}

	return &SheetsSource{
		service:       srv,
		SpreadsheetID: spreadsheetID,
		Range:         readRange,
	}, nil
}

// Rows fetches every row in the range with cells stringified.
func (s *SheetsSource) Rows(ctx context.Context) ([][]string, error) {
	resp, err := s.service.Spreadsheets.Values.Get(s.SpreadsheetID, s.Range).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to read sheet %s: %w", s.SpreadsheetID, err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, len(raw))
		for i, cell := range raw {
			row[i] = fmt.Sprint(cell)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
