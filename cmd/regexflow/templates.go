package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/regexflow/regexflow"
	"github.com/regexflow/regexflow/pkg/types"
)

var (
	templatesStatus string
	templatesFormat string
	templatesActor  string
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Manage extraction templates",
	Long:  "Commands for listing templates and importing template bundles",
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List templates in the store",
	Long:  "Display templates, optionally filtered by lifecycle status",
	RunE:  runTemplatesList,
}

var templatesImportCmd = &cobra.Command{
	Use:   "import <bundle.yml>",
	Short: "Import a YAML template bundle as drafts",
	Long: `Import a YAML bundle of template definitions. Every pattern is validated
before import; the imported templates start in DRAFT owned by the actor.`,
	Args: cobra.ExactArgs(1),
	RunE: runTemplatesImport,
}

func init() {
	templatesCmd.AddCommand(templatesListCmd)
	templatesCmd.AddCommand(templatesImportCmd)
	templatesListCmd.Flags().StringVar(&templatesStatus, "status", "", "Filter by status: DRAFT, PENDING_APPROVAL, ACTIVE, REJECTED, DEPRECATED")
	templatesListCmd.Flags().StringVar(&templatesFormat, "format", "table", "Output format: table, json")
	templatesImportCmd.Flags().StringVar(&templatesActor, "actor", "cli", "Maker id the imported drafts belong to")
}

func runTemplatesList(cmd *cobra.Command, args []string) error {
	engine, err := newEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	var templates []regexflow.Template
	if templatesStatus != "" {
		templates, err = engine.Templates().ListByStatus(cmd.Context(), types.TemplateStatus(templatesStatus))
	} else {
		// No filter: concatenate every lifecycle state in order.
		for _, status := range []types.TemplateStatus{
			types.StatusDraft, types.StatusPendingApproval, types.StatusActive,
			types.StatusRejected, types.StatusDeprecated,
		} {
			var batch []regexflow.Template
			batch, err = engine.Templates().ListByStatus(cmd.Context(), status)
			if err != nil {
				break
			}
			templates = append(templates, batch...)
		}
	}
	if err != nil {
		return err
	}

	switch templatesFormat {
	case "json":
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(templates)
	case "table":
		return outputTemplatesTable(cmd, templates)
	default:
		return fmt.Errorf("unknown output format: %s", templatesFormat)
	}
}

func outputTemplatesTable(cmd *cobra.Command, templates []regexflow.Template) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "ID\tBank\tKind\tStatus\tPattern\n")
	fmt.Fprintf(w, "--\t----\t----\t------\t-------\n")
	for _, t := range templates {
		pattern := t.Pattern
		if len(pattern) > 60 {
			pattern = pattern[:57] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.BankName, t.Kind, t.Status, pattern)
	}
	return nil
}

func runTemplatesImport(cmd *cobra.Command, args []string) error {
	engine, err := newEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	actor := types.Actor{ID: templatesActor, Username: templatesActor, Role: types.RoleMaker}
	created, err := engine.ImportBundle(cmd.Context(), actor, args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "imported %d template(s) as drafts\n", len(created))
	return nil
}
