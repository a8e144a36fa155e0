package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"taskledger/internal/report"
)

var sectionsJSON bool

var sectionsCmd = &cobra.Command{
	Use:   "sections",
	Short: "List all authors' current sections",
	Long: `List every author's section in document order, with last-update
timestamps and current task lists.

Use --json for machine-readable JSONL output.`,
	RunE: runSections,
}

func init() {
	sectionsCmd.Flags().BoolVar(&sectionsJSON, "json", false, "Output in JSONL format")
	rootCmd.AddCommand(sectionsCmd)
}

func runSections(cmd *cobra.Command, args []string) error {
	rec, cfg, closeStore, err := newReconciler()
	if err != nil {
		return err
	}
	defer closeStore()

	sections, err := rec.AllSections(context.Background())
	if err != nil {
		return err
	}

	if sectionsJSON {
		return report.FormatJSONL(os.Stdout, sections)
	}

	report.FormatTable(os.Stdout, sections, cfg.Ledger.Document)
	return nil
}
