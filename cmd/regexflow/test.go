package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/regexflow/regexflow/pkg/service"
	"github.com/regexflow/regexflow/pkg/types"
)

var (
	testTimeoutMS int64
	testFormat    string
)

var testCmd = &cobra.Command{
	Use:   "test <pattern> <sample>",
	Short: "Run a pattern against a sample message",
	Long: `Run a pattern against a sample message and show the extracted fields.
Nothing is persisted; use this to iterate on a pattern before creating a
template from it.`,
	Args: cobra.ExactArgs(2),
	RunE: runTest,
}

func init() {
	testCmd.Flags().Int64Var(&testTimeoutMS, "timeout", 0, "Execution deadline in milliseconds (0 = default)")
	testCmd.Flags().StringVar(&testFormat, "format", "table", "Output format: table, json")
}

func runTest(cmd *cobra.Command, args []string) error {
	engine, err := newEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	res, err := engine.Templates().TestPattern(cmd.Context(), service.TestPatternRequest{
		Pattern: args[0],
		Sample:  args[1],
		Timeout: time.Duration(testTimeoutMS) * time.Millisecond,
	})
	if err != nil {
		return err
	}

	switch testFormat {
	case "json":
		return outputTestJSON(cmd, res)
	case "table":
		return outputTestTable(cmd, res)
	default:
		return fmt.Errorf("unknown output format: %s", testFormat)
	}
}

func outputTestJSON(cmd *cobra.Command, res types.ExtractionResult) error {
	view := struct {
		Matched   bool              `json:"matched"`
		Fields    map[string]string `json:"fields,omitempty"`
		ElapsedMS int64             `json:"elapsed_ms"`
		Error     string            `json:"error,omitempty"`
	}{
		Matched:   res.Matched,
		Fields:    res.Fields,
		ElapsedMS: res.Elapsed.Milliseconds(),
	}
	if res.Err != nil {
		view.Error = res.Err.Error()
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(view)
}

func outputTestTable(cmd *cobra.Command, res types.ExtractionResult) error {
	out := cmd.OutOrStdout()

	if res.Err != nil {
		color.New(color.FgHiRed).Fprintf(out, "error: %v\n", res.Err)
		return nil
	}
	if !res.Matched {
		color.New(color.FgYellow).Fprintln(out, "no match")
		return nil
	}

	color.New(color.FgHiGreen).Fprintf(out, "matched in %v\n", res.Elapsed)

	names := make([]string, 0, len(res.Fields))
	for name := range res.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "Field\tValue\n")
	fmt.Fprintf(w, "-----\t-----\n")
	for _, name := range names {
		fmt.Fprintf(w, "%s\t%s\n", name, res.Fields[name])
	}
	return nil
}
