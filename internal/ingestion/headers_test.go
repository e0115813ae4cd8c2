package ingestion

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveColumns(t *testing.T) {
	tests := []struct {
		name       string
		headers    []string
		wantEmail  int
		wantResume int
		wantErr    bool
	}{
		{
			name:       "google form headers",
			headers:    []string{"Timestamp", "Email Address", "Upload Resume"},
			wantEmail:  1,
			wantResume: 2,
		},
		{
			name:       "case and whitespace",
			headers:    []string{"  EMAIL ", "Name", " Your CV link"},
			wantEmail:  0,
			wantResume: 2,
		},
		{
			name:       "first match wins",
			headers:    []string{"Name", "Work Email", "Resume", "Personal Email", "CV backup"},
			wantEmail:  1,
			wantResume: 2,
		},
		{
			name:       "upload keyword",
			headers:    []string{"Email", "File upload"},
			wantEmail:  0,
			wantResume: 1,
		},
		{
			name:    "missing resume column",
			headers: []string{"Timestamp", "Email Address", "Name"},
			wantErr: true,
		},
		{
			name:    "missing both",
			headers: []string{"Timestamp", "Name"},
			wantErr: true,
		},
		{
			name:    "empty headers",
			headers: nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols, err := ResolveColumns(tt.headers, nil)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrColumnsNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantEmail, cols.Email)
			assert.Equal(t, tt.wantResume, cols.Resume)
		})
	}
}

func TestResolveColumns_CustomMatchers(t *testing.T) {
	matchers := []ColumnMatcher{
		{Role: RoleEmail, Match: ContainsAny("correo")},
		{Role: RoleResume, Match: ContainsAny("curriculum")},
	}

	cols, err := ResolveColumns([]string{"Curriculum", "Correo electronico"}, matchers)
	require.NoError(t, err)
	assert.Equal(t, Columns{Email: 1, Resume: 0}, cols)
	assert.Equal(t, 2, cols.MinCells())
}

func TestColumnsMinCells(t *testing.T) {
	assert.Equal(t, 3, Columns{Email: 1, Resume: 2}.MinCells())
	assert.Equal(t, 5, Columns{Email: 4, Resume: 0}.MinCells())
}

func TestResolveColumns_FirstMatchProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	filler := gen.OneConstOf("Timestamp", "Name", "Phone", "Location", "Notes")

	properties.Property("resolved email column is the first header containing email", prop.ForAll(
		func(prefix []string, between []string) bool {
			headers := append([]string{}, prefix...)
			headers = append(headers, "Email Address")
			headers = append(headers, between...)
			headers = append(headers, "Resume", "Secondary email")

			cols, err := ResolveColumns(headers, nil)
			if err != nil {
				return false
			}
			for i := 0; i < cols.Email; i++ {
				if strings.Contains(strings.ToLower(headers[i]), "email") {
					return false
				}
			}
			return cols.Email == len(prefix) && cols.Resume == len(prefix)+1+len(between)
		},
		gen.SliceOf(filler),
		gen.SliceOf(filler),
	))

	properties.TestingRun(t)
}
