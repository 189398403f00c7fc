package api

import (
	"testing"
)

func TestNewComparisonID(t *testing.T) {
	id := NewComparisonID()
	if !ValidateComparisonID(id) {
		t.Errorf("NewComparisonID() = %q, want valid comparison ID", id)
	}
}

func TestNewComparisonIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewComparisonID()
		if seen[id] {
			t.Fatalf("duplicate comparison ID %q", id)
		}
		seen[id] = true
	}
}

func TestValidateComparisonID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"valid", "cmp_abcdefghijklmnopqrstuvwx", true},
		{"valid mixed case", "cmp_AbCdEfGhIjKlMnOpQrStUvWx", true},
		{"valid digits", "cmp_123456789012345678901234", true},
		{"wrong prefix", "resp_abcdefghijklmnopqrstuvwx", false},
		{"no prefix", "abcdefghijklmnopqrstuvwxyz1234", false},
		{"too short", "cmp_abc", false},
		{"too long", "cmp_abcdefghijklmnopqrstuvwxy", false},
		{"special chars", "cmp_abcdefghijklmnopqrstuv!@", false},
		{"empty", "", false},
		{"prefix only", "cmp_", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateComparisonID(tt.id); got != tt.want {
				t.Errorf("ValidateComparisonID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}
