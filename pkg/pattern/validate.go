// Package pattern validates user-supplied extraction patterns before they
// are stored or executed. Patterns are untrusted input: a careless pattern
// can blow up a backtracking engine, so validation is deliberately cheap and
// conservative.
package pattern

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"
)

// ErrorKind classifies a validation failure.
type ErrorKind int

const (
	EmptyPattern ErrorKind = iota
	InvalidSyntax
	DangerousConstruct
)

func (k ErrorKind) String() string {
	switch k {
	case EmptyPattern:
		return "empty_pattern"
	case InvalidSyntax:
		return "invalid_syntax"
	case DangerousConstruct:
		return "dangerous_construct"
	default:
		return "unknown"
	}
}

// ValidationError is a typed validation failure with a human-readable message.
type ValidationError struct {
	Kind    ErrorKind
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// RiskAnalyzer decides whether a syntactically valid pattern is safe to
// execute. The default is a substring denylist; a structural analyzer can be
// substituted without touching call sites.
type RiskAnalyzer interface {
	// Analyze returns a non-empty reason when the pattern is considered risky.
	Analyze(pattern string) (reason string, risky bool)
}

// DenylistAnalyzer flags patterns containing known catastrophic-backtracking
// constructs. It is a textual heuristic with false negatives by design.
type DenylistAnalyzer struct {
	denylist []string
}

// NewDenylistAnalyzer returns the default analyzer with the fixed denylist.
func NewDenylistAnalyzer() *DenylistAnalyzer {
	return &DenylistAnalyzer{
		denylist: []string{
			"(.*)*",
			"(.+)+",
			"(a*)*",
			"(a+)+",
			"(a|a)*",
			"(a|ab)*",
		},
	}
}

// Analyze reports the first denylisted construct found in the raw pattern text.
func (a *DenylistAnalyzer) Analyze(pattern string) (string, bool) {
	for _, dangerous := range a.denylist {
		if strings.Contains(pattern, dangerous) {
			return dangerous, true
		}
	}
	return "", false
}

// Validator checks patterns for syntax and execution risk.
type Validator struct {
	analyzer RiskAnalyzer
}

// NewValidator returns a validator backed by the default denylist analyzer.
func NewValidator() *Validator {
	return NewValidatorWithAnalyzer(NewDenylistAnalyzer())
}

// NewValidatorWithAnalyzer returns a validator with a custom risk analyzer.
func NewValidatorWithAnalyzer(a RiskAnalyzer) *Validator {
	return &Validator{analyzer: a}
}

// Validate rejects empty, uncompilable, or heuristically dangerous patterns.
// It is a pure check with no side effects.
func (v *Validator) Validate(pattern string) error {
	if strings.TrimSpace(pattern) == "" {
		return &ValidationError{Kind: EmptyPattern, Message: "pattern cannot be empty"}
	}

	if _, err := regexp2.Compile(pattern, regexp2.IgnoreCase); err != nil {
		return &ValidationError{
			Kind:    InvalidSyntax,
			Message: fmt.Sprintf("invalid pattern: %v", err),
		}
	}

	if reason, risky := v.analyzer.Analyze(pattern); risky {
		return &ValidationError{
			Kind: DangerousConstruct,
			Message: fmt.Sprintf(
				"pattern contains construct that may cause catastrophic backtracking: %s", reason),
		}
	}

	return nil
}
