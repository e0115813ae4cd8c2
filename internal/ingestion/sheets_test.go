package ingestion

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"google.golang.org/api/option"
)

func TestParseSheetID(t *testing.T) {
	tests := []struct {
		link    string
		want    string
		wantErr bool
	}{
		{"https://docs.google.com/spreadsheets/d/1AbC_xyz/edit#gid=0", "1AbC_xyz", false},
		{"https://docs.google.com/spreadsheets/d/1AbC_xyz", "1AbC_xyz", false},
		{"https://docs.google.com/spreadsheets/d/1AbC_xyz?usp=sharing", "1AbC_xyz", false},
		{"1AbC_xyz", "1AbC_xyz", false},
		{"  1AbC_xyz  ", "1AbC_xyz", false},
		{"https://example.com/sheet", "", true},
		{"https://docs.google.com/spreadsheets/d/", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.link, func(t *testing.T) {
			got, err := ParseSheetID(tt.link)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrSheetLink)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSheetsSource_Rows(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"range":"'Form Responses 1'!A1:C3","values":[["Timestamp","Email Address","Upload Resume"],["1/2/2024",  "a@example.com", "https://drive.google.com/open?id=F1"],[45123, "b@example.com"]]}`))
	}))
	defer srv.Close()

	src, err := NewSheetsSource(context.Background(), srv.Client(), "sheet123", "Form Responses 1", option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)

	rows, err := src.Rows(context.Background())
	require.NoError(t, err)

	assert.True(t, strings.Contains(gotPath, "sheet123"), "path %s", gotPath)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Timestamp", "Email Address", "Upload Resume"}, rows[0])
	assert.Equal(t, "b@example.com", rows[2][1])
	assert.Equal(t, "45123", rows[2][0])
	assert.Len(t, rows[2], 2)
}

func TestSheetsSource_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":404,"message":"Requested entity was not found."}}`, http.StatusNotFound)
	}))
	defer srv.Close()

	src, err := NewSheetsSource(context.Background(), srv.Client(), "missing", "Form Responses 1", option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)

	_, err = src.Rows(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to read sheet missing")
}

func TestExcelSource_Rows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "responses.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Timestamp", "Email", "CV"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"t1", "a@example.com", "https://drive.google.com/file/d/F1/view"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	src := &ExcelSource{Path: path}
	rows, err := src.Rows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "a@example.com", rows[1][1])

	_, err = (&ExcelSource{Path: path, Sheet: "Nope"}).Rows(context.Background())
	assert.Error(t, err)
}
