// Package normalize converts raw extracted field maps into typed transaction
// values. Field lookup is alias-driven and case-insensitive so template
// authors are free to name groups however their bank's wording suggests.
package normalize

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/regexflow/regexflow/pkg/types"
)

// Alias tables, in lookup priority order.
var (
	amountAliases    = []string{"amount", "amt", "value", "rupees", "rs"}
	balanceAliases   = []string{"balance", "bal", "availBal", "availableBalance"}
	bankAliases      = []string{"bank", "bankName", "bankname"}
	accountAliases   = []string{"account", "accountId", "accountNumber", "accNo"}
	merchantAliases  = []string{"merchant", "payee", "merchantName", "beneficiary", "to"}
	modeAliases      = []string{"mode", "transactionMode", "channel"}
	dateAliases      = []string{"date", "transactionDate", "txnDate", "dt"}
	referenceAliases = []string{"ref", "refNo", "referenceNumber", "refNum", "txnRef"}
	typeAliases      = []string{"type", "transactionType", "txnType"}
)

// dateLayouts are attempted in order; the first that parses wins.
var dateLayouts = []string{
	"02-01-2006",
	"02/01/2006",
	"2006-01-02",
	"02-Jan-2006",
	"02 Jan 2006",
	"02.01.2006",
}

// Normalizer turns field maps into TransactionFields. The clock is
// injectable because an unparseable date deliberately resolves to "now"
// rather than null.
type Normalizer struct {
	now func() time.Time
}

// New returns a normalizer on the system clock.
func New() *Normalizer {
	return &Normalizer{now: time.Now}
}

// NewWithClock returns a normalizer with a fixed clock, for tests.
func NewWithClock(now func() time.Time) *Normalizer {
	return &Normalizer{now: now}
}

// Normalize resolves the typed transaction view of fields. Amount and
// balance failures yield absence, never errors; the result is PARTIAL when
// neither financial figure resolved.
func (n *Normalizer) Normalize(fields map[string]string, owner types.Template) types.TransactionFields {
	out := types.TransactionFields{Status: types.ParseSuccess}

	out.Amount = parseAmount(lookup(fields, amountAliases...))
	out.Balance = parseAmount(lookup(fields, balanceAliases...))

	out.BankName = lookup(fields, bankAliases...)
	if out.BankName == "" {
		out.BankName = owner.BankName
	}

	out.AccountID = lookup(fields, accountAliases...)
	out.Kind = resolveKind(fields, owner)
	out.Merchant = lookup(fields, merchantAliases...)
	out.Mode = lookup(fields, modeAliases...)
	out.Date = n.resolveDate(fields)
	out.Reference = lookup(fields, referenceAliases...)

	if out.Amount == nil && out.Balance == nil {
		out.Status = types.ParsePartial
		out.Message = "unable to extract financial amounts"
	}
	return out
}

// lookup returns the first field whose key equals any alias, case-insensitively.
func lookup(fields map[string]string, aliases ...string) string {
	for _, alias := range aliases {
		for key, value := range fields {
			if strings.EqualFold(key, alias) {
				return value
			}
		}
	}
	return ""
}

// parseAmount strips everything but digits and decimal points, then parses.
// Unparseable or empty input yields nil.
func parseAmount(raw string) *decimal.Decimal {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return nil
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return nil
	}
	return &d
}

func (n *Normalizer) resolveDate(fields map[string]string) time.Time {
	raw := lookup(fields, dateAliases...)
	if strings.TrimSpace(raw) == "" {
		return n.now()
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return n.now()
}

func resolveKind(fields map[string]string, owner types.Template) types.TransactionKind {
	typeStr := strings.ToUpper(lookup(fields, typeAliases...))
	if typeStr != "" {
		switch {
		case strings.Contains(typeStr, "DEBIT"), strings.Contains(typeStr, "DR"):
			return types.TxnDebit
		case strings.Contains(typeStr, "CREDIT"), strings.Contains(typeStr, "CR"):
			return types.TxnCredit
		}
	}

	switch owner.Kind {
	case types.KindCredit:
		return types.TxnCredit
	case types.KindBill:
		return types.TxnBillPayment
	default:
		return types.TxnDebit
	}
}
