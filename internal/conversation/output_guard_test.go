package conversation

import (
	"strings"
	"testing"

	"github.com/mediconnect/assistant-platform/pkg/logging"
)

func TestOutputGuard_AppendsDosageCaution(t *testing.T) {
	guard := NewOutputGuard(logging.Default())

	tests := []struct {
		name        string
		reply       string
		wantCaution bool
	}{
		{"mg dosage", "A typical adult dose is 500 mg taken twice daily.", true},
		{"ml dosage", "Give 5ml every four hours.", true},
		{"spelled out", "Doctors often start with 10 milligrams.", true},
		{"no dosage", "Please rest and drink plenty of fluids.", false},
		{"bare number", "Call us at extension 500.", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := guard.Review(tt.reply)
			hasCaution := strings.Contains(got, dosageCaution)
			if hasCaution != tt.wantCaution {
				t.Fatalf("Review(%q) caution = %v, want %v", tt.reply, hasCaution, tt.wantCaution)
			}
		})
	}
}

func TestOutputGuard_DoesNotDoubleCaution(t *testing.T) {
	guard := NewOutputGuard(logging.Default())

	once := guard.Review("Take 200 mg with food.")
	twice := guard.Review(once)
	if strings.Count(twice, dosageCaution) != 1 {
		t.Fatalf("caution appended more than once: %q", twice)
	}
}

func TestOutputGuard_NormalizesWhitespace(t *testing.T) {
	guard := NewOutputGuard(logging.Default())

	got := guard.Review("  First paragraph.  \n\n\n\nSecond paragraph.\t\n")
	want := "First paragraph.\n\nSecond paragraph."
	if got != want {
		t.Fatalf("Review normalized to %q, want %q", got, want)
	}
}
