// Package generator synthesizes a first-draft extraction pattern from a
// sample bank message. Output is advisory: a starting point for a maker to
// review and edit, never a guaranteed-correct pattern.
package generator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cloudflare/ahocorasick"

	"github.com/regexflow/regexflow/pkg/types"
)

// bankKeywords are known bank abbreviations, in detection priority order.
var bankKeywords = []string{
	"HDFC", "ICICI", "SBI", "AXIS", "KOTAK", "PNB", "BOB",
	"CANARA", "UNION", "INDUSIND", "YES", "IDFC", "RBL",
}

// Kind keywords. Credit is checked before debit before bill: "credited"
// would otherwise be shadowed by broader debit wording like "paid".
var (
	creditKeywords = []string{"CREDITED", "CREDIT", "RECEIVED", "DEPOSITED"}
	debitKeywords  = []string{"DEBITED", "DEBIT", "PAID", "PURCHASE", "WITHDRAWN", "SPENT"}
	billKeywords   = []string{"BILL", "PAYMENT", "UTILITY"}
)

var (
	moneyRe     = regexp.MustCompile(`(?i)(?:Rs\.?|INR)?\s*([0-9,]+\.?[0-9]*)`)
	dateRe      = regexp.MustCompile(`\d{1,2}[-/]\d{1,2}[-/]\d{2,4}`)
	accountRe   = regexp.MustCompile(`\*{2,}\d{4,}`)
	referenceRe = regexp.MustCompile(`\b[A-Z0-9]{10,}\b`)
	metaRe      = regexp.MustCompile(`([.+*?^$()\[\]{}|\\])`)
	spaceRe     = regexp.MustCompile(`\s+`)
	nonLetterRe = regexp.MustCompile(`[^a-zA-Z]`)

	merchantShapeRe   = regexp.MustCompile(`(?i)\b(to|at|from)\s+[A-Za-z0-9\s]+?\s+(on|dated|ref)\b`)
	merchantLiteralRe = regexp.MustCompile(`\\s\+(to|at|from)\\s\+[A-Za-z0-9]+`)
)

// Named-group replacements for the placeholders injected during synthesis.
const (
	amountGroup    = `(?:Rs\.?|INR)?\s*(?<amount>[0-9,]+\.?[0-9]*)`
	balanceGroup   = `(?:Rs\.?|INR)?\s*(?<balance>[0-9,]+\.?[0-9]*)`
	dateGroup      = `(?<date>\d{1,2}[-/]\d{1,2}[-/]\d{2,4})`
	accountGroup   = `(?<accountId>\*{2,}\d{4,})`
	referenceGroup = `(?<referenceNumber>[A-Z0-9]{10,})`
	merchantGroup  = `\s+(?:to|at|from)\s+(?<merchantOrPayee>[A-Za-z0-9\s]+?)\s+`
)

// Draft is the structurally-always-successful generation result; Success
// distinguishes a usable draft from a failed attempt.
type Draft struct {
	Success     bool
	Pattern     string
	BankName    string
	Kind        types.MessageKind
	Description string
	SampleText  string
	ErrMessage  string
}

// Generator builds draft templates from sample messages.
type Generator struct {
	banks  *ahocorasick.Matcher
	credit *ahocorasick.Matcher
	debit  *ahocorasick.Matcher
	bill   *ahocorasick.Matcher
}

// New creates a generator with its keyword automatons prebuilt.
func New() *Generator {
	return &Generator{
		banks:  ahocorasick.NewStringMatcher(bankKeywords),
		credit: ahocorasick.NewStringMatcher(creditKeywords),
		debit:  ahocorasick.NewStringMatcher(debitKeywords),
		bill:   ahocorasick.NewStringMatcher(billKeywords),
	}
}

// Generate synthesizes a draft template from sampleText. It never panics;
// internal failures are reported through Draft.ErrMessage.
func (g *Generator) Generate(sampleText, sender string) (draft Draft) {
	draft = Draft{SampleText: sampleText}

	defer func() {
		if r := recover(); r != nil {
			draft.Success = false
			draft.ErrMessage = fmt.Sprintf("failed to generate template: %v", r)
		}
	}()

	if strings.TrimSpace(sampleText) == "" {
		draft.ErrMessage = "failed to generate template: sample text is empty"
		return draft
	}

	draft.BankName = g.detectBank(sampleText, sender)
	draft.Kind = g.detectKind(sampleText)
	draft.Pattern = synthesizePattern(sampleText)
	draft.Description = fmt.Sprintf("Auto-generated template for %s %s transactions",
		draft.BankName, strings.ToLower(string(draft.Kind)))
	draft.Success = true
	return draft
}

// detectBank prefers a cleaned sender label, then known abbreviations found
// in the message, then falls back to the sender or a placeholder.
func (g *Generator) detectBank(sampleText, sender string) string {
	cleaned := strings.ToUpper(nonLetterRe.ReplaceAllString(sender, ""))
	if len(cleaned) >= 2 {
		return capitalize(cleaned)
	}

	hits := g.banks.Match([]byte(strings.ToUpper(sampleText)))
	if first, ok := firstKeyword(bankKeywords, hits); ok {
		return first
	}

	if cleaned != "" {
		return capitalize(cleaned)
	}
	return "UnknownBank"
}

func (g *Generator) detectKind(sampleText string) types.MessageKind {
	upper := []byte(strings.ToUpper(sampleText))
	if len(g.credit.Match(upper)) > 0 {
		return types.KindCredit
	}
	if len(g.debit.Match(upper)) > 0 {
		return types.KindDebit
	}
	if len(g.bill.Match(upper)) > 0 {
		return types.KindBill
	}
	return types.KindDebit
}

// firstKeyword maps automaton hit indices back to the earliest keyword in
// priority order.
func firstKeyword(keywords []string, hits []int) (string, bool) {
	hit := make(map[int]bool, len(hits))
	for _, h := range hits {
		hit[h] = true
	}
	for i, kw := range keywords {
		if hit[i] {
			return kw, true
		}
	}
	return "", false
}

// synthesizePattern replaces variable-looking spans of the sample with named
// capture groups and escapes everything else literally.
func synthesizePattern(sampleText string) string {
	working := sampleText

	// First monetary substring becomes the amount, the second the balance.
	if loc := moneyRe.FindString(working); loc != "" {
		working = strings.Replace(working, loc, "AMOUNT_PLACEHOLDER", 1)
	}
	if loc := moneyRe.FindString(working); loc != "" {
		working = strings.Replace(working, loc, "BALANCE_PLACEHOLDER", 1)
	}

	working = dateRe.ReplaceAllString(working, "DATE_PLACEHOLDER")
	working = accountRe.ReplaceAllString(working, "ACCOUNT_PLACEHOLDER")
	working = referenceRe.ReplaceAllString(working, "REF_PLACEHOLDER")

	// Everything that is not a placeholder matches literally.
	working = metaRe.ReplaceAllString(working, `\$1`)

	working = strings.Replace(working, "AMOUNT_PLACEHOLDER", amountGroup, 1)
	working = strings.Replace(working, "BALANCE_PLACEHOLDER", balanceGroup, 1)
	working = strings.ReplaceAll(working, "DATE_PLACEHOLDER", dateGroup)
	working = strings.ReplaceAll(working, "ACCOUNT_PLACEHOLDER", accountGroup)
	working = strings.ReplaceAll(working, "REF_PLACEHOLDER", referenceGroup)

	// Literal whitespace runs match flexibly.
	working = spaceRe.ReplaceAllString(working, `\s+`)

	// Capture a merchant span when the message has a to/at/from ... on/dated/ref shape.
	if merchantShapeRe.MatchString(sampleText) {
		working = replaceFirst(merchantLiteralRe, working, merchantGroup)
	}

	return "(?i)" + working
}

// replaceFirst substitutes only the first occurrence of re in s.
func replaceFirst(re *regexp.Regexp, s, repl string) string {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + repl + s[loc[1]:]
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
