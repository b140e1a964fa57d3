package main

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/regexflow/regexflow/pkg/generator"
)

var (
	generateSender string
	generateFormat string
)

var generateCmd = &cobra.Command{
	Use:   "generate <sample>",
	Short: "Propose a draft template from a sample message",
	Long: `Generate a draft template from a real bank message. Monetary values,
dates, masked account numbers, and reference codes become named capture
groups; the rest of the message is escaped literally. The draft still needs
maker review before submission.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&generateSender, "sender", "", "Message sender id used for bank detection")
	generateCmd.Flags().StringVar(&generateFormat, "format", "table", "Output format: table, json")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	draft := generator.New().Generate(args[0], generateSender)

	switch generateFormat {
	case "json":
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(draft)
	case "table":
		return outputDraft(cmd, draft)
	default:
		return fmt.Errorf("unknown output format: %s", generateFormat)
	}
}

func outputDraft(cmd *cobra.Command, draft generator.Draft) error {
	out := cmd.OutOrStdout()

	if !draft.Success {
		color.New(color.FgHiRed).Fprintf(out, "generation failed: %s\n", draft.ErrMessage)
		return fmt.Errorf("could not generate a template")
	}

	fmt.Fprintf(out, "bank:    %s\n", draft.BankName)
	fmt.Fprintf(out, "kind:    %s\n", draft.Kind)
	fmt.Fprintf(out, "pattern: %s\n", draft.Pattern)
	return nil
}
