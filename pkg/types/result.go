package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// ParseStatus is the outcome of a parse attempt.
type ParseStatus string

const (
	ParseSuccess ParseStatus = "SUCCESS"
	ParsePartial ParseStatus = "PARTIAL"
	ParseNoMatch ParseStatus = "NO_MATCH"
	ParseError   ParseStatus = "ERROR"
)

// TransactionKind classifies a normalized transaction.
type TransactionKind string

const (
	TxnDebit       TransactionKind = "DEBIT"
	TxnCredit      TransactionKind = "CREDIT"
	TxnBillPayment TransactionKind = "BILL_PAYMENT"
)

// ExtractionResult is the outcome of running one pattern against one text.
// Not persisted; a zero match is a normal negative result, not an error.
type ExtractionResult struct {
	Matched bool
	Fields  map[string]string
	Err     error
	Elapsed time.Duration
}

// TransactionFields is the typed view of an extracted field map.
// Amount and Balance are nil when absent. Date always resolves (falls back
// to the normalizer's clock), as does Kind (falls back to the template's
// declared message kind).
type TransactionFields struct {
	Status    ParseStatus
	Amount    *decimal.Decimal
	Balance   *decimal.Decimal
	BankName  string
	AccountID string
	Kind      TransactionKind
	Merchant  string
	Mode      string
	Date      time.Time
	Reference string
	Message   string // explanatory message for PARTIAL results
}
