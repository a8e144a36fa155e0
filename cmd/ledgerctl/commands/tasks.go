package commands

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"taskledger/internal/printer"
	"taskledger/internal/reconcile"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks <author>",
	Short: "Show an author's current task list",
	Long: `Show the current task list recorded for one author, in the order the
author last submitted it.`,
	Args: cobra.ExactArgs(1),
	RunE: runTasks,
}

func init() {
	rootCmd.AddCommand(tasksCmd)
}

func runTasks(cmd *cobra.Command, args []string) error {
	author := args[0]

	rec, _, closeStore, err := newReconciler()
	if err != nil {
		return err
	}
	defer closeStore()

	tasks, err := rec.CurrentTasks(context.Background(), author)
	if errors.Is(err, reconcile.ErrAuthorNotFound) {
		return printer.Error(
			"No tasks recorded",
			"Author '"+author+"' has no section in the ledger.",
			[]string{"Check the author's display name with 'ledgerctl sections'"},
		)
	}
	if err != nil {
		return err
	}

	printer.Info("Current tasks for %s:\n", author)
	for _, task := range tasks {
		printer.Println("・" + task)
	}
	if len(tasks) == 0 {
		printer.Println("(no open tasks)")
	}
	return nil
}
