package pattern

import (
	"errors"
	"testing"
)

func TestValidate_Valid(t *testing.T) {
	v := NewValidator()

	patterns := []string{
		`Rs\.(?<amount>[\d,]+)`,
		`debited with (?<amount>[0-9,.]+) on (?<date>\d{2}-\d{2}-\d{4})`,
		`(\d+) (\w+)`,
	}
	for _, p := range patterns {
		if err := v.Validate(p); err != nil {
			t.Errorf("Validate(%q) failed: %v", p, err)
		}
	}
}

func TestValidate_Empty(t *testing.T) {
	v := NewValidator()

	for _, p := range []string{"", "   ", "\t\n"} {
		err := v.Validate(p)
		assertKind(t, err, EmptyPattern)
	}
}

func TestValidate_InvalidSyntax(t *testing.T) {
	v := NewValidator()

	for _, p := range []string{"(foo", "[a-z", "a{2,1}"} {
		err := v.Validate(p)
		assertKind(t, err, InvalidSyntax)
	}
}

func TestValidate_DangerousConstructs(t *testing.T) {
	v := NewValidator()

	dangerous := []string{
		`prefix(.*)*suffix`,
		`(.+)+`,
		`x(a*)*`,
		`(a+)+y`,
		`(a|a)*`,
		`(a|ab)*`,
	}
	for _, p := range dangerous {
		err := v.Validate(p)
		assertKind(t, err, DangerousConstruct)
	}
}

func TestValidate_CustomAnalyzer(t *testing.T) {
	v := NewValidatorWithAnalyzer(permissiveAnalyzer{})

	// Denylisted constructs pass under a permissive analyzer.
	if err := v.Validate(`(.*)*`); err != nil {
		t.Errorf("expected permissive analyzer to accept pattern, got %v", err)
	}
}

type permissiveAnalyzer struct{}

func (permissiveAnalyzer) Analyze(string) (string, bool) { return "", false }

func assertKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", kind)
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
	if verr.Kind != kind {
		t.Errorf("expected kind %v, got %v (%v)", kind, verr.Kind, verr)
	}
}
