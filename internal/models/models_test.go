package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestProcessRequestDefaults(t *testing.T) {
	var req ProcessRequest
	if err := json.Unmarshal([]byte(`{"sheet_link":"https://docs.google.com/spreadsheets/d/abc/edit"}`), &req); err != nil {
		t.Fatalf("Failed to unmarshal ProcessRequest: %v", err)
	}
	req.ApplyDefaults()

	if req.CompanyName != DefaultCompanyName {
		t.Errorf("Expected company %q, got %q", DefaultCompanyName, req.CompanyName)
	}
	if req.Tagline != DefaultTagline {
		t.Errorf("Expected tagline %q, got %q", DefaultTagline, req.Tagline)
	}
	if req.RoleName != DefaultRoleName {
		t.Errorf("Expected role %q, got %q", DefaultRoleName, req.RoleName)
	}
	if req.RoleRequirements != DefaultRoleRequirements {
		t.Errorf("Expected requirements %q, got %q", DefaultRoleRequirements, req.RoleRequirements)
	}
	if req.UseOwnSMTP || req.SMTPConfig != nil {
		t.Error("Expected no SMTP override")
	}
}

func TestProcessRequestKeepsProvidedValues(t *testing.T) {
	req := ProcessRequest{CompanyName: "Acme", RoleName: "Data Engineer"}
	req.ApplyDefaults()

	if req.CompanyName != "Acme" || req.RoleName != "Data Engineer" {
		t.Errorf("Provided values overwritten: %+v", req)
	}
}

func TestSMTPConfigPort(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantPort int
		wantErr  bool
	}{
		{"numeric", `{"host":"smtp.example.com","port":587}`, 587, false},
		{"string", `{"host":"smtp.example.com","port":"465"}`, 465, false},
		{"missing", `{"host":"smtp.example.com"}`, 0, false},
		{"invalid", `{"host":"smtp.example.com","port":"abc"}`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg SMTPConfig
			err := json.Unmarshal([]byte(tt.payload), &cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if cfg.Port != tt.wantPort {
				t.Errorf("Expected port %d, got %d", tt.wantPort, cfg.Port)
			}
			if cfg.Host != "smtp.example.com" {
				t.Errorf("Expected host to be kept, got %q", cfg.Host)
			}
		})
	}
}

func TestEffectivePort(t *testing.T) {
	if got := (SMTPConfig{}).EffectivePort(); got != DefaultSMTPPort {
		t.Errorf("Expected default port %d, got %d", DefaultSMTPPort, got)
	}
	if got := (SMTPConfig{Port: 587}).EffectivePort(); got != 587 {
		t.Errorf("Expected 587, got %d", got)
	}
}

func TestNewHistoryEntry(t *testing.T) {
	summary := BatchSummary{
		ScreeningBatch: ScreeningBatch{
			ID:          7,
			CompanyName: "Acme",
			RoleName:    "Backend Engineer",
			CreatedAt:   time.Date(2024, 3, 9, 14, 5, 59, 0, time.UTC),
		},
		ResultCount: 12,
	}

	entry := NewHistoryEntry(summary)
	if entry.Date != "2024-03-09 14:05" {
		t.Errorf("Expected date 2024-03-09 14:05, got %s", entry.Date)
	}
	if entry.ID != 7 || entry.Count != 12 || entry.Company != "Acme" || entry.Role != "Backend Engineer" {
		t.Errorf("Unexpected entry: %+v", entry)
	}
}
