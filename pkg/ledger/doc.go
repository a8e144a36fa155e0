// Package ledger provides the task-state reconciliation domain model: parsing
// bullet-list tasks out of free chat text, diffing a new task list against an
// author's previously recorded one, and a structured Document/Section model
// for the shared ledger file.
//
// The persisted ledger is plain Markdown-like text and is itself the wire
// contract with humans and tools reading the raw file. All fragile text
// matching is confined to this package; everything above it (the store
// gateway, the reconciler) operates on the structured types.
package ledger
