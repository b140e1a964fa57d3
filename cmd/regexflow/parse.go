package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/regexflow/regexflow"
)

var (
	parseUser   string
	parseSender string
	parseFormat string
)

var parseCmd = &cobra.Command{
	Use:   "parse <text>",
	Short: "Parse a bank message into a transaction",
	Long: `Parse a bank message against the active templates in the store. The
best-scoring template wins; the attempt is logged and, on success, a
transaction is recorded.`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().StringVar(&parseUser, "user", "cli", "Uploader id recorded with the message")
	parseCmd.Flags().StringVar(&parseSender, "sender", "", "Message sender id (e.g. VM-HDFCBK)")
	parseCmd.Flags().StringVar(&parseFormat, "format", "table", "Output format: table, json")
}

func runParse(cmd *cobra.Command, args []string) error {
	engine, err := newEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	outcome, err := engine.Parse(cmd.Context(), parseUser, args[0], parseSender)
	if err != nil {
		return err
	}

	switch parseFormat {
	case "json":
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(outcome)
	case "table":
		return outputParseTable(cmd, outcome)
	default:
		return fmt.Errorf("unknown output format: %s", parseFormat)
	}
}

func outputParseTable(cmd *cobra.Command, outcome regexflow.ParseOutcome) error {
	out := cmd.OutOrStdout()

	heading := color.New(color.FgHiGreen)
	if outcome.Status != "SUCCESS" {
		heading = color.New(color.FgYellow)
	}
	heading.Fprintf(out, "status: %s", outcome.Status)
	if outcome.Duplicate {
		heading.Fprint(out, " (duplicate message)")
	}
	fmt.Fprintln(out)

	txn := outcome.Transaction
	if txn == nil {
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "bank\t%s\n", txn.BankName)
	fmt.Fprintf(w, "kind\t%s\n", txn.Kind)
	if txn.Amount != nil {
		fmt.Fprintf(w, "amount\t%s\n", txn.Amount)
	}
	if txn.Balance != nil {
		fmt.Fprintf(w, "balance\t%s\n", txn.Balance)
	}
	if txn.AccountID != "" {
		fmt.Fprintf(w, "account\t%s\n", txn.AccountID)
	}
	if txn.Merchant != "" {
		fmt.Fprintf(w, "merchant\t%s\n", txn.Merchant)
	}
	if txn.Mode != "" {
		fmt.Fprintf(w, "mode\t%s\n", txn.Mode)
	}
	if txn.Reference != "" {
		fmt.Fprintf(w, "reference\t%s\n", txn.Reference)
	}
	fmt.Fprintf(w, "date\t%s\n", txn.Date.Format("2006-01-02"))
	fmt.Fprintf(w, "template\t%s\n", txn.TemplateID)
	return nil
}
