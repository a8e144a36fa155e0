package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"taskledger/internal/printer"
	"taskledger/internal/report"
)

var recordCmd = &cobra.Command{
	Use:   "record <author>",
	Short: "Record a task message for an author from stdin",
	Long: `Record a task message on behalf of an author. The message text is read
from stdin and parsed for bullet-list tasks exactly as a chat message
would be:

  echo "・prepare slides
  ・review PR" | ledgerctl record Aoki`,
	Args: cobra.ExactArgs(1),
	RunE: runRecord,
}

func init() {
	rootCmd.AddCommand(recordCmd)
}

func runRecord(cmd *cobra.Command, args []string) error {
	author := args[0]

	text, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("failed to read message from stdin: %w", err)
	}

	rec, _, closeStore, err := newReconciler()
	if err != nil {
		return err
	}
	defer closeStore()

	res, err := rec.RecordTaskMessage(context.Background(), author, string(text), time.Now())
	if err != nil {
		return printer.Error(
			"Update failed",
			err.Error(),
			[]string{"Verify the content store is reachable", "Retry once concurrent updates have settled"},
		)
	}

	if res.NoOp {
		printer.Warning("%s\n", report.FormatReply(author, res))
		return nil
	}

	printer.Success("%s (version %s)\n", report.FormatReply(author, res), res.Version)
	return nil
}
