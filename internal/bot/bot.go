// Package bot wires the chat transport to the reconciliation core: inbound
// messages are recorded in the ledger and acknowledged in the conversation
// they arrived in, and an optional periodic report posts the whole ledger to
// a configured channel.
package bot

import (
	"context"
	"log"
	"time"

	"taskledger/internal/reconcile"
	"taskledger/internal/report"
	"taskledger/internal/transport"
	"taskledger/pkg/ledger"
)

// Ledger is the slice of the reconciler the bot drives.
type Ledger interface {
	RecordTaskMessage(ctx context.Context, author, rawText string, ts time.Time) (reconcile.Result, error)
	AllSections(ctx context.Context) ([]ledger.Section, error)
}

// Bot connects one chat channel to one ledger document.
type Bot struct {
	channel       transport.Channel
	ledger        Ledger
	reportChannel string
}

// New creates a bot. reportChannel may be empty when periodic reports are
// disabled.
func New(channel transport.Channel, l Ledger, reportChannel string) *Bot {
	return &Bot{channel: channel, ledger: l, reportChannel: reportChannel}
}

// Run serves the transport until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	log.Printf("[Bot] Starting on transport %q", b.channel.ID())
	return b.channel.Start(ctx, func(msg transport.Message) {
		b.HandleMessage(ctx, msg)
	})
}

// HandleMessage runs one reconciliation cycle for an inbound message and
// replies with the outcome. Failures are reported to the conversation,
// never swallowed.
func (b *Bot) HandleMessage(ctx context.Context, msg transport.Message) {
	author, err := b.channel.ResolveDisplayName(ctx, msg.AuthorID)
	if err != nil {
		log.Printf("[Bot] Failed to resolve author %q: %v", msg.AuthorID, err)
		b.reply(ctx, msg.ConversationID, report.FormatFailure(msg.AuthorID, err))
		return
	}

	res, err := b.ledger.RecordTaskMessage(ctx, author, msg.Text, msg.Timestamp)
	if err != nil {
		log.Printf("[Bot] Update failed for %q: %v", author, err)
		b.reply(ctx, msg.ConversationID, report.FormatFailure(author, err))
		return
	}

	if res.NoOp && res.Unchanged == 0 {
		// Non-task message under the ignore policy: stay quiet.
		return
	}

	b.reply(ctx, msg.ConversationID, report.FormatReply(author, res))
}

// RunReport posts the all-sections summary to the report channel. Suitable
// as a scheduler job.
func (b *Bot) RunReport(ctx context.Context) error {
	sections, err := b.ledger.AllSections(ctx)
	if err != nil {
		return err
	}
	return b.channel.Send(ctx, b.reportChannel, report.RenderChatReport(sections))
}

func (b *Bot) reply(ctx context.Context, conversationID, text string) {
	if err := b.channel.Send(ctx, conversationID, text); err != nil {
		log.Printf("[Bot] Failed to send reply to %q: %v", conversationID, err)
	}
}
