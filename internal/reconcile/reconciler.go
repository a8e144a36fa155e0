// Package reconcile implements the task-state reconciliation cycle: parse an
// inbound chat message into tasks, diff them against the author's previously
// recorded section, merge the result into the shared document, and persist it
// under the store's optimistic concurrency.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"taskledger/internal/store"
	"taskledger/pkg/ledger"
)

// EmptyPolicy decides what a message with zero parseable tasks means.
type EmptyPolicy string

const (
	// PolicyIgnore treats a task-free message as a non-task message: no read,
	// no write, no reply counts.
	PolicyIgnore EmptyPolicy = "ignore"

	// PolicyClear treats a task-free message as "clear all my tasks": the
	// author's section is rewritten with an empty current-tasks block.
	PolicyClear EmptyPolicy = "clear"
)

// Validate checks the policy is a known enum value.
func (p EmptyPolicy) Validate() error {
	switch p {
	case PolicyIgnore, PolicyClear:
		return nil
	default:
		return fmt.Errorf("unknown empty message policy: %q (must be 'ignore' or 'clear')", p)
	}
}

// ErrAuthorNotFound indicates the author has no section in the document.
var ErrAuthorNotFound = errors.New("author has no recorded tasks")

// DefaultTimestampLayout formats the per-section last-updated marker.
const DefaultTimestampLayout = "2006-01-02 15:04"

// Options tune a Reconciler. Zero values select the documented defaults.
type Options struct {
	MaxRetries      int         // conflict/transient retry budget, default 3
	EmptyPolicy     EmptyPolicy // default PolicyIgnore
	TimestampLayout string      // default DefaultTimestampLayout
}

// Result summarizes one recorded message for the chat-facing caller. Version
// carries the store token of the persisted document; NoOp is set when the
// message required no write (policy short-circuit or identical resubmission).
type Result struct {
	Added     int    `json:"added"`
	Removed   int    `json:"removed"`
	Unchanged int    `json:"unchanged"`
	Version   string `json:"version,omitempty"`
	NoOp      bool   `json:"no_op,omitempty"`
}

// Reconciler drives the update state machine for one ledger document. It is
// stateless apart from the gateway it writes through, so any number of
// concurrent messages (or process instances) may run cycles against the same
// document; the store's compare-and-swap is the only mutual exclusion.
type Reconciler struct {
	gw   *store.Gateway
	opts Options
}

// New creates a reconciler over the given gateway.
func New(gw *store.Gateway, opts Options) *Reconciler {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.EmptyPolicy == "" {
		opts.EmptyPolicy = PolicyIgnore
	}
	if opts.TimestampLayout == "" {
		opts.TimestampLayout = DefaultTimestampLayout
	}
	return &Reconciler{gw: gw, opts: opts}
}

// RecordTaskMessage runs one full reconciliation cycle for an inbound
// message. On a version conflict or a transient store error the whole
// fetch→diff→merge→persist cycle is retried up to the configured budget;
// exhaustion surfaces the last error, never a silent success.
//
// Concurrent messages from the same author resolve as last-write-wins; that
// race is accepted, not ordered.
func (r *Reconciler) RecordTaskMessage(ctx context.Context, author, rawText string, ts time.Time) (Result, error) {
	tasks := ledger.ParseTasks(rawText)
	if len(tasks) == 0 && r.opts.EmptyPolicy == PolicyIgnore {
		return Result{NoOp: true}, nil
	}

	var lastErr error
	for attempt := 1; attempt <= r.opts.MaxRetries; attempt++ {
		doc, token, err := r.gw.FetchDocument(ctx)
		if err != nil {
			log.Printf("[Reconciler] Fetch failed for %q (attempt %d/%d): %v", author, attempt, r.opts.MaxRetries, err)
			lastErr = err
			continue
		}

		prev := doc.Section(author)
		if len(tasks) == 0 && prev == nil {
			// Nothing recorded, nothing to clear.
			return Result{NoOp: true}, nil
		}

		var prevTasks []string
		if prev != nil {
			prevTasks = prev.Tasks
		}
		diff := ledger.Diff(prevTasks, tasks)

		if prev != nil && diff.Empty() {
			// Identical resubmission: leave the section byte-for-byte alone.
			return Result{Unchanged: len(diff.Unchanged), Version: token, NoOp: true}, nil
		}

		stamp := ts.Format(r.opts.TimestampLayout)
		section := ledger.Section{Author: author, LastUpdated: stamp, Tasks: tasks}
		if !diff.Empty() {
			section.Change = &ledger.Change{Timestamp: stamp, Added: diff.Added, Removed: diff.Removed}
		}
		doc.Upsert(section)

		newToken, err := r.gw.Save(ctx, doc, token)
		if store.IsConflict(err) {
			log.Printf("[Reconciler] Version conflict for %q (attempt %d/%d), re-reading", author, attempt, r.opts.MaxRetries)
			lastErr = err
			continue
		}
		if err != nil {
			log.Printf("[Reconciler] Persist failed for %q (attempt %d/%d): %v", author, attempt, r.opts.MaxRetries, err)
			lastErr = err
			continue
		}

		r.gw.InvalidateAuthor(author)
		return Result{
			Added:     len(diff.Added),
			Removed:   len(diff.Removed),
			Unchanged: len(diff.Unchanged),
			Version:   newToken,
		}, nil
	}

	return Result{}, fmt.Errorf("update for %q failed after %d attempts: %w", author, r.opts.MaxRetries, lastErr)
}

// CurrentTasks returns the author's recorded task list in document order.
// Returns ErrAuthorNotFound if the author has no section.
func (r *Reconciler) CurrentTasks(ctx context.Context, author string) ([]string, error) {
	tasks, found, err := r.gw.CurrentTasks(ctx, author)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrAuthorNotFound, author)
	}
	return tasks, nil
}

// AllSections returns every author's current section in document order.
// A pure read; used by periodic reports.
func (r *Reconciler) AllSections(ctx context.Context) ([]ledger.Section, error) {
	return r.gw.AllSections(ctx)
}
