// Package transport defines the narrow contract between chat systems and the
// reconciliation core. The core never talks to a chat API directly; it
// receives Message values and replies with rendered text.
package transport

import (
	"context"
	"time"
)

// Message is one inbound chat event carrying a potential task list.
type Message struct {
	ID             string    // transport-assigned message id
	AuthorID       string    // opaque author identity (e.g. Slack user id)
	Text           string    // raw message text, mentions already stripped
	ConversationID string    // channel/thread the message arrived in
	Timestamp      time.Time // author-side send time
}

// Handler consumes inbound messages. Handlers are invoked on their own
// goroutine per message; ordering across messages is not guaranteed.
type Handler func(Message)

// Channel is a bidirectional chat connection.
type Channel interface {
	// ID identifies the transport (e.g. "slack") in logs.
	ID() string

	// Start serves inbound events until ctx is cancelled, invoking handler
	// for every task-bearing message. Blocks for the lifetime of the channel.
	Start(ctx context.Context, handler Handler) error

	// Send posts text to a conversation.
	Send(ctx context.Context, conversationID, text string) error

	// ResolveDisplayName maps an opaque author identity to the canonical
	// display name used as the section key in the ledger document.
	ResolveDisplayName(ctx context.Context, authorID string) (string, error)
}
