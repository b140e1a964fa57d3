package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/regexflow/regexflow"
)

var (
	verbose   bool
	quiet     bool
	storePath string
)

var rootCmd = &cobra.Command{
	Use:   "regexflow",
	Short: "Regexflow - extract transactions from bank messages",
	Long: `Regexflow parses bank notification messages into structured transactions
using reviewed regex templates. Templates move through a maker-checker
lifecycle; only approved templates take part in parsing.

Patterns are treated as untrusted input: they are screened for dangerous
constructs and executed under a deadline.`,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode (errors only)")
	rootCmd.PersistentFlags().StringVar(&storePath, "store", ":memory:", "Store backend: \":memory:\", a SQLite file path, or a postgres:// URL")

	// Add subcommands
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(templatesCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// newEngine opens the configured store and builds an engine around it.
// Callers own the returned engine and must Close it.
func newEngine() (*regexflow.Engine, error) {
	log := logrus.New()
	switch {
	case quiet:
		log.SetLevel(logrus.ErrorLevel)
	case verbose:
		log.SetLevel(logrus.DebugLevel)
	default:
		log.SetLevel(logrus.WarnLevel)
	}

	return regexflow.NewEngine(
		regexflow.WithStorePath(storePath),
		regexflow.WithLogger(log),
	)
}
