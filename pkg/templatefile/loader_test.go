package templatefile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/regexflow/regexflow/pkg/types"
)

const validBundle = `
templates:
  - bank: HDFC
    pattern: 'Rs\.(?<amount>[\d,]+\.?\d*) debited from a/c (?<accNo>\*+\d+)'
    kind: DEBIT
    sample: 'Rs.500.00 debited from a/c **1234'
    description: HDFC debit alert
  - bank: ICICI
    pattern: 'INR (?<amount>[\d,]+\.?\d*) credited to (?<accNo>\*+\d+)'
    kind: CREDIT
`

func TestLoadBundle(t *testing.T) {
	defs, err := NewLoader().LoadBundle([]byte(validBundle))
	if err != nil {
		t.Fatalf("LoadBundle: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("expected 2 definitions, got %d", len(defs))
	}

	if defs[0].BankName != "HDFC" || defs[0].Kind != types.KindDebit {
		t.Errorf("first definition mismatch: %+v", defs[0])
	}
	if defs[0].Description != "HDFC debit alert" {
		t.Errorf("description mismatch: %q", defs[0].Description)
	}
	if defs[1].Kind != types.KindCredit {
		t.Errorf("second definition kind mismatch: %v", defs[1].Kind)
	}
}

func TestLoadBundle_DefaultsKindToDebit(t *testing.T) {
	bundle := `
templates:
  - bank: SBI
    pattern: 'debited by (?<amount>[\d.]+)'
`
	defs, err := NewLoader().LoadBundle([]byte(bundle))
	if err != nil {
		t.Fatalf("LoadBundle: %v", err)
	}
	if defs[0].Kind != types.KindDebit {
		t.Errorf("expected DEBIT default, got %v", defs[0].Kind)
	}
}

func TestLoadBundle_Errors(t *testing.T) {
	tests := []struct {
		name   string
		bundle string
		want   string
	}{
		{"invalid yaml", "templates: [", "failed to parse"},
		{"empty", "templates: []", "no templates"},
		{"missing bank", "templates:\n  - pattern: 'abc'", "bank is required"},
		{"missing pattern", "templates:\n  - bank: HDFC", "pattern is required"},
		{"unknown kind", "templates:\n  - {bank: HDFC, pattern: abc, kind: TRANSFER}", "unknown kind"},
		{"bad regex", `templates:
  - bank: HDFC
    pattern: '(unclosed'`, "template 1"},
		{"dangerous pattern", `templates:
  - bank: HDFC
    pattern: '(.*)*amount'`, "template 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader().LoadBundle([]byte(tt.bundle))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadBundleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bundle.yml")
	if err := os.WriteFile(path, []byte(validBundle), 0o644); err != nil {
		t.Fatalf("writing bundle: %v", err)
	}

	defs, err := NewLoader().LoadBundleFile(path)
	if err != nil {
		t.Fatalf("LoadBundleFile: %v", err)
	}
	if len(defs) != 2 {
		t.Errorf("expected 2 definitions, got %d", len(defs))
	}

	if _, err := NewLoader().LoadBundleFile(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Error("expected error for missing file")
	}
}
