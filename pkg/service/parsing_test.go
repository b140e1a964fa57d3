package service

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regexflow/regexflow/pkg/matcher"
	"github.com/regexflow/regexflow/pkg/store"
	"github.com/regexflow/regexflow/pkg/types"
)

const debitText = "Rs.1,250.75 debited from a/c **1234 on 12-03-2025 at BigBazaar. Avl bal Rs.8,749.25"

func newParsingService(t *testing.T) (*ParsingService, store.Store) {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	m := matcher.New(2)
	t.Cleanup(func() { m.Close() })

	st := store.NewMemory()
	svc := NewParsingService(st, m, log)

	fixed := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	seq := 0
	svc.newID = func() string {
		seq++
		return fmt.Sprintf("id-%d", seq)
	}
	return svc, st
}

func seedActive(t *testing.T, st store.Store, id, patternSrc string) types.Template {
	t.Helper()

	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	tpl, err := st.CreateTemplate(context.Background(), types.Template{
		ID:        id,
		BankName:  "HDFC",
		Pattern:   patternSrc,
		Kind:      types.KindDebit,
		Status:    types.StatusActive,
		MakerID:   "maker-1",
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	return tpl
}

func TestParse_SuccessRecordsLogAndTransaction(t *testing.T) {
	svc, st := newParsingService(t)
	ctx := context.Background()

	tpl := seedActive(t, st, "t-1",
		`Rs\.(?<amount>[\d,]+\.?\d*) debited from a/c (?<accNo>\*+\d+) on (?<date>[\d-]+) at (?<merchant>\w+)\. Avl bal Rs\.(?<bal>[\d,]+\.?\d*)`)

	out, err := svc.Parse(ctx, "user-1", debitText, "VM-HDFCBK")
	require.NoError(t, err)
	assert.Equal(t, types.ParseSuccess, out.Status)
	assert.False(t, out.Duplicate)
	require.NotNil(t, out.Transaction)

	txn := out.Transaction
	assert.Equal(t, tpl.ID, txn.TemplateID)
	assert.Equal(t, "HDFC", txn.BankName)
	require.NotNil(t, txn.Amount)
	assert.Equal(t, "1250.75", txn.Amount.String())
	require.NotNil(t, txn.Balance)
	assert.Equal(t, "8749.25", txn.Balance.String())
	assert.Equal(t, "**1234", txn.AccountID)
	assert.Equal(t, "BigBazaar", txn.Merchant)
	assert.Equal(t, types.TxnDebit, txn.Kind)
	assert.Equal(t, time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC), txn.Date)
	assert.Equal(t, "1,250.75", txn.Extracted["amount"])

	logged, err := st.GetMessageLog(ctx, out.MessageLog.ID)
	require.NoError(t, err)
	assert.Equal(t, types.ParseSuccess, logged.Status)
	assert.Equal(t, tpl.ID, logged.TemplateID)
	assert.Equal(t, "VM-HDFCBK", logged.Sender)
}

func TestParse_NoMatchQueuesMessage(t *testing.T) {
	svc, st := newParsingService(t)
	ctx := context.Background()

	seedActive(t, st, "t-1", `Rs\.(?<amount>[\d,]+) credited`)

	out, err := svc.Parse(ctx, "user-1", "your OTP is 314159", "VM-HDFCBK")
	require.NoError(t, err)
	assert.Equal(t, types.ParseNoMatch, out.Status)
	assert.Nil(t, out.Transaction)

	queue, err := svc.ListUnparsed(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, "your OTP is 314159", queue[0].Text)
}

func TestParse_NoActiveTemplates(t *testing.T) {
	svc, _ := newParsingService(t)

	out, err := svc.Parse(context.Background(), "user-1", debitText, "")
	require.NoError(t, err)
	assert.Equal(t, types.ParseNoMatch, out.Status)
}

func TestParse_EmptyText(t *testing.T) {
	svc, _ := newParsingService(t)

	_, err := svc.Parse(context.Background(), "user-1", "", "")
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestParse_DuplicateShortCircuits(t *testing.T) {
	svc, st := newParsingService(t)
	ctx := context.Background()

	seedActive(t, st, "t-1", `Rs\.(?<amount>[\d,]+\.?\d*) debited`)

	first, err := svc.Parse(ctx, "user-1", debitText, "VM-HDFCBK")
	require.NoError(t, err)
	require.NotNil(t, first.Transaction)

	second, err := svc.Parse(ctx, "user-1", debitText, "VM-HDFCBK")
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Status, second.Status)
	require.NotNil(t, second.Transaction)
	assert.Equal(t, first.Transaction.ID, second.Transaction.ID)

	// Same text from another uploader parses independently.
	third, err := svc.Parse(ctx, "user-2", debitText, "VM-HDFCBK")
	require.NoError(t, err)
	assert.False(t, third.Duplicate)
}

func TestParse_HigherScoringTemplateWins(t *testing.T) {
	svc, st := newParsingService(t)
	ctx := context.Background()

	seedActive(t, st, "t-loose", `Rs\.(?<amount>[\d,]+\.?\d*) debited`)
	rich := seedActive(t, st, "t-rich",
		`Rs\.(?<amount>[\d,]+\.?\d*) debited from a/c (?<accNo>\*+\d+) on (?<date>[\d-]+)`)

	out, err := svc.Parse(ctx, "user-1", debitText, "")
	require.NoError(t, err)
	require.NotNil(t, out.Transaction)
	assert.Equal(t, rich.ID, out.Transaction.TemplateID)
}

func TestParse_PartialWhenNoMoneyResolves(t *testing.T) {
	svc, st := newParsingService(t)
	ctx := context.Background()

	seedActive(t, st, "t-1", `payment to (?<merchant>\w+) ref (?<ref>[A-Z0-9]+)`)

	out, err := svc.Parse(ctx, "user-1", "payment to Airtel ref UPI12345678 done", "")
	require.NoError(t, err)
	assert.Equal(t, types.ParsePartial, out.Status)
	require.NotNil(t, out.Transaction)
	assert.Nil(t, out.Transaction.Amount)
	assert.Equal(t, "Airtel", out.Transaction.Merchant)
}

func TestDeleteUnparsed(t *testing.T) {
	svc, st := newParsingService(t)
	ctx := context.Background()

	out, err := svc.Parse(ctx, "user-1", "unrecognized text", "")
	require.NoError(t, err)
	require.Equal(t, types.ParseNoMatch, out.Status)

	require.NoError(t, svc.DeleteUnparsed(ctx, out.MessageLog.ID))

	queue, err := svc.ListUnparsed(ctx)
	require.NoError(t, err)
	assert.Empty(t, queue)

	// Parsed messages stay as history.
	seedActive(t, st, "t-1", `Rs\.(?<amount>[\d,]+\.?\d*) debited`)
	parsed, err := svc.Parse(ctx, "user-1", debitText, "")
	require.NoError(t, err)
	err = svc.DeleteUnparsed(ctx, parsed.MessageLog.ID)
	assert.ErrorIs(t, err, ErrNotDeletable)
}

func TestTransactions_NewestFirst(t *testing.T) {
	svc, st := newParsingService(t)
	ctx := context.Background()

	seedActive(t, st, "t-1", `Rs\.(?<amount>[\d,]+\.?\d*) debited`)

	_, err := svc.Parse(ctx, "user-1", "Rs.100 debited for coffee", "")
	require.NoError(t, err)
	_, err = svc.Parse(ctx, "user-1", "Rs.200 debited for lunch", "")
	require.NoError(t, err)

	txns, err := svc.Transactions(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, "200", txns[0].Amount.String())
	assert.Equal(t, "100", txns[1].Amount.String())
}
