package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCmd(buf *bytes.Buffer) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	cmd.SetContext(context.Background())
	return cmd
}

func TestRunVersion(t *testing.T) {
	var buf bytes.Buffer

	err := runVersion(newTestCmd(&buf), []string{})
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "regexflow v")
	assert.Contains(t, output, "Commit:")
	assert.Contains(t, output, "Go version:")
	assert.Contains(t, output, "OS/Arch:")
}

func TestRunValidate(t *testing.T) {
	var buf bytes.Buffer

	err := runValidate(newTestCmd(&buf), []string{`Rs\.(?<amount>[\d,]+) debited`})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "valid")

	buf.Reset()
	err = runValidate(newTestCmd(&buf), []string{`(.*)*amount`})
	assert.Error(t, err)
	assert.Contains(t, buf.String(), "DangerousConstruct")
}

func TestRunTest(t *testing.T) {
	var buf bytes.Buffer

	// Reset flags for test
	storePath = ":memory:"
	testTimeoutMS = 0
	testFormat = "table"

	err := runTest(newTestCmd(&buf), []string{
		`Rs\.(?<amount>[\d,]+) debited`,
		"Rs.500 debited from a/c **1234",
	})
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "matched")
	assert.Contains(t, output, "amount")
	assert.Contains(t, output, "500")
}

func TestRunTestJSON(t *testing.T) {
	var buf bytes.Buffer

	storePath = ":memory:"
	testTimeoutMS = 0
	testFormat = "json"

	err := runTest(newTestCmd(&buf), []string{`no such`, "sample text"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"matched": false`)
}

func TestRunGenerate(t *testing.T) {
	var buf bytes.Buffer

	generateSender = "VM-HDFCBK"
	generateFormat = "table"

	err := runGenerate(newTestCmd(&buf), []string{
		"Rs.500.00 debited from your account on 12-03-2025",
	})
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "pattern:")
	assert.Contains(t, output, "(?<amount>")
}

func TestRunTemplatesImportAndList(t *testing.T) {
	bundle := `
templates:
  - bank: HDFC
    pattern: 'Rs\.(?<amount>[\d,]+) debited'
    kind: DEBIT
`
	dir := t.TempDir()
	bundlePath := filepath.Join(dir, "bundle.yml")
	require.NoError(t, os.WriteFile(bundlePath, []byte(bundle), 0o644))

	// A file-backed store so import and list share state.
	storePath = filepath.Join(dir, "flow.db")
	templatesActor = "maker-1"

	var buf bytes.Buffer
	err := runTemplatesImport(newTestCmd(&buf), []string{bundlePath})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "imported 1 template(s)")

	buf.Reset()
	templatesStatus = "DRAFT"
	templatesFormat = "table"
	err = runTemplatesList(newTestCmd(&buf), []string{})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "HDFC")

	storePath = ":memory:"
}

func TestRunParse_NoTemplates(t *testing.T) {
	var buf bytes.Buffer

	storePath = ":memory:"
	parseUser = "user-1"
	parseSender = ""
	parseFormat = "table"

	err := runParse(newTestCmd(&buf), []string{"Rs.500 debited from a/c **1234"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "NO_MATCH")
}
