package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regexflow/regexflow/pkg/types"
)

var fixedNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func newTestNormalizer() *Normalizer {
	return NewWithClock(func() time.Time { return fixedNow })
}

func debitTemplate() types.Template {
	return types.Template{ID: "t1", BankName: "HDFC", Kind: types.KindDebit}
}

func TestNormalize_AmountAndBalance(t *testing.T) {
	n := newTestNormalizer()

	out := n.Normalize(map[string]string{
		"amount":  "Rs.1,250.75",
		"balance": "INR 10,000",
	}, debitTemplate())

	require.Equal(t, types.ParseSuccess, out.Status)
	require.NotNil(t, out.Amount)
	assert.Equal(t, "1250.75", out.Amount.String())
	require.NotNil(t, out.Balance)
	assert.Equal(t, "10000", out.Balance.String())
}

func TestNormalize_AmountAliasesCaseInsensitive(t *testing.T) {
	n := newTestNormalizer()

	for _, key := range []string{"AMOUNT", "Amt", "value", "RUPEES", "rs"} {
		out := n.Normalize(map[string]string{key: "500"}, debitTemplate())
		require.NotNil(t, out.Amount, "alias %s", key)
		assert.Equal(t, "500", out.Amount.String())
	}
}

func TestNormalize_UnparseableAmountIsAbsent(t *testing.T) {
	n := newTestNormalizer()

	out := n.Normalize(map[string]string{"amount": "N/A", "balance": "1.2.3"}, debitTemplate())
	assert.Nil(t, out.Amount)
	assert.Nil(t, out.Balance)
	assert.Equal(t, types.ParsePartial, out.Status)
}

func TestNormalize_PartialWhenNoFinancialFigures(t *testing.T) {
	n := newTestNormalizer()

	out := n.Normalize(map[string]string{"merchant": "Grocer"}, debitTemplate())
	assert.Equal(t, types.ParsePartial, out.Status)
	assert.NotEmpty(t, out.Message)
}

func TestNormalize_DateFormats(t *testing.T) {
	n := newTestNormalizer()

	cases := map[string]time.Time{
		"12-03-2025":  time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC),
		"12/03/2025":  time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC),
		"2025-03-12":  time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC),
		"12-Mar-2025": time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC),
		"12 Mar 2025": time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC),
		"12.03.2025":  time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC),
	}
	for raw, want := range cases {
		out := n.Normalize(map[string]string{"amount": "1", "date": raw}, debitTemplate())
		assert.Equal(t, want, out.Date, "date %q", raw)
	}
}

func TestNormalize_DateDefaultsToNow(t *testing.T) {
	n := newTestNormalizer()

	out := n.Normalize(map[string]string{"amount": "1", "date": "tomorrowish"}, debitTemplate())
	assert.Equal(t, fixedNow, out.Date)

	out = n.Normalize(map[string]string{"amount": "1"}, debitTemplate())
	assert.Equal(t, fixedNow, out.Date)
}

func TestNormalize_KindFromTypeField(t *testing.T) {
	n := newTestNormalizer()

	out := n.Normalize(map[string]string{"amount": "1", "type": "debited"}, debitTemplate())
	assert.Equal(t, types.TxnDebit, out.Kind)

	out = n.Normalize(map[string]string{"amount": "1", "txnType": "CR"}, debitTemplate())
	assert.Equal(t, types.TxnCredit, out.Kind)
}

func TestNormalize_KindFallsBackToTemplate(t *testing.T) {
	n := newTestNormalizer()

	for kind, want := range map[types.MessageKind]types.TransactionKind{
		types.KindDebit:  types.TxnDebit,
		types.KindCredit: types.TxnCredit,
		types.KindBill:   types.TxnBillPayment,
	} {
		tpl := types.Template{BankName: "SBI", Kind: kind}
		out := n.Normalize(map[string]string{"amount": "1"}, tpl)
		assert.Equal(t, want, out.Kind, "template kind %s", kind)
	}
}

func TestNormalize_BankFallsBackToTemplate(t *testing.T) {
	n := newTestNormalizer()

	out := n.Normalize(map[string]string{"amount": "1"}, debitTemplate())
	assert.Equal(t, "HDFC", out.BankName)

	out = n.Normalize(map[string]string{"amount": "1", "bank": "ICICI"}, debitTemplate())
	assert.Equal(t, "ICICI", out.BankName)
}

func TestNormalize_OptionalFields(t *testing.T) {
	n := newTestNormalizer()

	out := n.Normalize(map[string]string{
		"amount":  "99",
		"accNo":   "**1234",
		"payee":   "Corner Store",
		"channel": "UPI",
		"txnRef":  "AB12CD34EF",
	}, debitTemplate())

	assert.Equal(t, "**1234", out.AccountID)
	assert.Equal(t, "Corner Store", out.Merchant)
	assert.Equal(t, "UPI", out.Mode)
	assert.Equal(t, "AB12CD34EF", out.Reference)
}
