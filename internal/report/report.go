// Package report renders reconciliation results and section listings for the
// chat reply path, the periodic summary, and the CLI.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"taskledger/internal/reconcile"
	"taskledger/pkg/ledger"
)

// FormatReply renders the chat-facing acknowledgement for one recorded
// message: a concise structured summary on success, or a note that the
// message carried no update.
func FormatReply(author string, res reconcile.Result) string {
	if res.NoOp {
		if res.Unchanged > 0 {
			return fmt.Sprintf("%s: no changes (%d tasks unchanged)", author, res.Unchanged)
		}
		return fmt.Sprintf("%s: no tasks found, nothing recorded", author)
	}
	return fmt.Sprintf("%s: recorded %d added, %d removed, %d unchanged", author, res.Added, res.Removed, res.Unchanged)
}

// FormatFailure renders the chat-facing failure notice. The update is never
// reported as successful unless the store confirmed persistence.
func FormatFailure(author string, err error) string {
	return fmt.Sprintf("%s: update failed, nothing was recorded (%v)", author, err)
}

// FormatTable writes sections as a formatted table. Returns the number of
// sections written.
func FormatTable(w io.Writer, sections []ledger.Section, document string) int {
	if len(sections) == 0 {
		fmt.Fprintf(w, "No sections found in document '%s'\n", document)
		return 0
	}

	fmt.Fprintf(w, "Sections in document '%s':\n\n", document)
	fmt.Fprintf(w, "%-20s %-18s %-6s %s\n", "AUTHOR", "UPDATED", "TASKS", "CURRENT")
	fmt.Fprintf(w, "%-20s %-18s %-6s %s\n", "--------------------", "------------------", "------", "----------------------------------------")

	for _, s := range sections {
		fmt.Fprintf(w, "%-20s %-18s %-6d %s\n",
			s.Author,
			s.LastUpdated,
			len(s.Tasks),
			strings.Join(s.Tasks, ", "),
		)
	}

	word := "section"
	if len(sections) != 1 {
		word = "sections"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(sections), word)

	return len(sections)
}

// FormatJSONL writes sections as line-delimited JSON, one section per line.
func FormatJSONL(w io.Writer, sections []ledger.Section) error {
	for _, s := range sections {
		data, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("failed to marshal section to JSON: %w", err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// RenderChatReport renders the periodic all-sections summary posted to chat.
func RenderChatReport(sections []ledger.Section) string {
	if len(sections) == 0 {
		return "Task report: no tasks recorded yet."
	}

	var b strings.Builder
	b.WriteString("Task report:\n")
	for _, s := range sections {
		fmt.Fprintf(&b, "%s (updated %s)\n", s.Author, s.LastUpdated)
		if len(s.Tasks) == 0 {
			b.WriteString("・(no open tasks)\n")
			continue
		}
		for _, task := range s.Tasks {
			b.WriteString("・" + task + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
