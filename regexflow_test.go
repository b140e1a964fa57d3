package regexflow

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regexflow/regexflow/pkg/service"
	"github.com/regexflow/regexflow/pkg/types"
)

var (
	maker   = Actor{ID: "maker-1", Username: "asha", Role: types.RoleMaker}
	checker = Actor{ID: "checker-1", Username: "ravi", Role: types.RoleChecker}
)

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()

	engine, err := NewEngine(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return engine
}

// activate walks a fresh template through the full maker-checker flow.
func activate(t *testing.T, engine *Engine, req service.CreateTemplateRequest) Template {
	t.Helper()
	ctx := context.Background()

	tpl, err := engine.Templates().Create(ctx, maker, req)
	require.NoError(t, err)
	_, err = engine.Templates().Submit(ctx, maker, tpl.ID)
	require.NoError(t, err)
	active, err := engine.Templates().Approve(ctx, checker, tpl.ID, "")
	require.NoError(t, err)
	return active
}

func TestEngine_EndToEnd(t *testing.T) {
	engine := newEngine(t)
	ctx := context.Background()

	tpl := activate(t, engine, service.CreateTemplateRequest{
		BankName:   "HDFC",
		Pattern:    `Rs\.(?<amount>[\d,]+\.?\d*) debited from a/c (?<accNo>\*+\d+) on (?<date>[\d-]+)`,
		Kind:       "DEBIT",
		SampleText: "Rs.500.00 debited from a/c **1234 on 12-03-2025",
	})
	assert.Equal(t, StatusActive, tpl.Status)

	outcome, err := engine.Parse(ctx, "user-1", "Rs.2,400.00 debited from a/c **9876 on 15-03-2025", "VM-HDFCBK")
	require.NoError(t, err)
	require.NotNil(t, outcome.Transaction)
	assert.Equal(t, tpl.ID, outcome.Transaction.TemplateID)
	assert.Equal(t, "2400", outcome.Transaction.Amount.String())
	assert.Equal(t, "HDFC", outcome.Transaction.BankName)

	txns, err := engine.Parsing().Transactions(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, txns, 1)
}

func TestEngine_TestPattern(t *testing.T) {
	engine := newEngine(t)

	res, err := engine.TestPattern(context.Background(),
		`Rs\.(?<amount>[\d,]+) credited`, "Rs.750 credited to your account")
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.Equal(t, "750", res.Fields["amount"])
}

func TestEngine_Generate(t *testing.T) {
	engine := newEngine(t)

	draft := engine.Generate("Rs.500.00 debited from your account on 12-03-2025", "VM-HDFCBK")
	require.True(t, draft.Success)
	assert.Contains(t, draft.Pattern, "(?<amount>")
	assert.Equal(t, types.KindDebit, draft.Kind)
}

func TestEngine_ImportBundle(t *testing.T) {
	engine := newEngine(t)
	ctx := context.Background()

	bundle := `
templates:
  - bank: HDFC
    pattern: 'Rs\.(?<amount>[\d,]+) debited'
    kind: DEBIT
  - bank: ICICI
    pattern: 'INR (?<amount>[\d,]+) credited'
    kind: CREDIT
`
	path := filepath.Join(t.TempDir(), "bundle.yml")
	require.NoError(t, os.WriteFile(path, []byte(bundle), 0o644))

	created, err := engine.ImportBundle(ctx, maker, path)
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, StatusDraft, created[0].Status)

	drafts, err := engine.Templates().ListByStatus(ctx, StatusDraft)
	require.NoError(t, err)
	assert.Len(t, drafts, 2)
}

func TestEngine_ImportBundle_InvalidPatternFailsEarly(t *testing.T) {
	engine := newEngine(t)

	bundle := `
templates:
  - bank: HDFC
    pattern: '(unclosed'
`
	path := filepath.Join(t.TempDir(), "bundle.yml")
	require.NoError(t, os.WriteFile(path, []byte(bundle), 0o644))

	_, err := engine.ImportBundle(context.Background(), maker, path)
	assert.Error(t, err)
}

func TestEngine_SQLiteBacked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flow.db")
	engine := newEngine(t, WithStorePath(path))
	ctx := context.Background()

	tpl := activate(t, engine, service.CreateTemplateRequest{
		BankName: "SBI",
		Pattern:  `debited by (?<amount>[\d.]+)`,
		Kind:     "DEBIT",
	})

	got, err := engine.Templates().Get(ctx, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, got.Status)
}
