package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
	}{
		{"console info", "info", "console", false},
		{"json debug", "debug", "json", false},
		{"upper case json", "warn", "JSON", false},
		{"bad level", "loud", "json", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.level, tt.format)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if l == nil {
				t.Fatal("expected logger")
			}
		})
	}
}

func TestWithFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	WithFields(zap.New(core), zap.String(FieldRunID, "r1")).Info("hello")

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()[FieldRunID]; got != "r1" {
		t.Fatalf("expected run_id r1, got %v", got)
	}

	if WithFields(nil) == nil {
		t.Fatal("expected fallback logger")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		limit int
		want  string
	}{
		{"  short  ", 10, "short"},
		{"abcdef", 3, "abc..."},
		{"héllo wörld", 5, "héllo..."},
		{"anything", 0, ""},
	}

	for _, tt := range tests {
		if got := Truncate(tt.in, tt.limit); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
		}
	}
}
