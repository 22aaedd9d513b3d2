package contract

import (
	"context"

	"github.com/atelierline/concierge/store"
)

// CompleteOptions tune a single completion call. A negative Temperature or a
// zero MaxTokens leaves the provider default in place.
type CompleteOptions struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// Completer is the text-completion capability. Implementations must return an
// error rather than panic; empty text is a valid (if useless) result.
type Completer interface {
	Complete(ctx context.Context, systemPrompt string, turns []Turn, opts CompleteOptions) (string, error)
}

// Handler is the contract every domain handler implements.
type Handler interface {
	Name() HandlerName
	Process(ctx context.Context, message string, conv Context, st store.Store) (AgentResult, error)
}

// EventPublisher enqueues a domain event for out-of-band processing
// (notification emails and the like). Publish failures must not fail the
// user-facing action.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}
