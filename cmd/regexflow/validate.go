package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/regexflow/regexflow/pkg/pattern"
)

var validateCmd = &cobra.Command{
	Use:   "validate <pattern>",
	Short: "Check a pattern for syntax errors and dangerous constructs",
	Long: `Validate a regex pattern without running it. Rejects empty patterns,
syntax errors, and constructs prone to catastrophic backtracking.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	err := pattern.NewValidator().Validate(args[0])
	if err == nil {
		color.New(color.FgHiGreen).Fprintln(out, "pattern is valid")
		return nil
	}

	var verr *pattern.ValidationError
	if errors.As(err, &verr) {
		color.New(color.FgHiRed).Fprintf(out, "%s: %s\n", verr.Kind, verr.Message)
		return fmt.Errorf("pattern is invalid")
	}
	return err
}
