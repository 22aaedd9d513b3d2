package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/atelierline/concierge/agent/contract"
)

// purposes is the one-line description of each handler embedded in the
// routing prompt, in contract.HandlerNames order.
var purposes = map[contractx.HandlerName]string{
	contractx.HandlerStylist:     "Fashion advice, style recommendations, outfit suggestions",
	contractx.HandlerSearch:      "Product search, catalog queries, finding specific items",
	contractx.HandlerLookbook:    "Creating styled collections, outfit combinations, lookbooks",
	contractx.HandlerCheckout:    "Order processing, payment, shipping questions",
	contractx.HandlerReturns:     "Return requests, refunds, exchange questions",
	contractx.HandlerRecommender: "Product recommendations based on purchase history",
}

// Router classifies an incoming message into a handler name with a single
// completion call. Any failure resolves to the search handler: search is
// side-effect-free and always produces some answer.
type Router struct {
	completer contractx.Completer
	system    string
	opts      contractx.CompleteOptions
}

func New(completer contractx.Completer, system string, opts contractx.CompleteOptions) (*Router, error) {
	if completer == nil {
		return nil, errors.New("router: completer is required")
	}
	return &Router{
		completer: completer,
		system:    system,
		opts:      opts,
	}, nil
}

// Classify never fails; it falls back to search on completion errors, empty
// text, or anything that is not a known handler name. One attempt, no retry.
func (r *Router) Classify(ctx context.Context, message string, conv contractx.Context) contractx.HandlerName {
	text, err := r.completer.Complete(ctx, r.system, []contractx.Turn{
		{Role: contractx.RoleUser, Content: routingPrompt(message, conv)},
	}, r.opts)
	if err != nil {
		log.Debug().Err(err).Msg("routing completion failed, falling back to search")
		return contractx.HandlerSearch
	}

	name, ok := contractx.ParseHandlerName(text)
	if !ok {
		log.Debug().Str("completion", strings.TrimSpace(text)).Msg("unroutable completion, falling back to search")
		return contractx.HandlerSearch
	}
	return name
}

func routingPrompt(message string, conv contractx.Context) string {
	var b strings.Builder
	b.WriteString("Analyze the following user message and determine which specialized handler should respond.\n\nAvailable handlers:\n")
	for _, name := range contractx.HandlerNames() {
		fmt.Fprintf(&b, "- %s: %s\n", name, purposes[name])
	}

	serialized, err := json.Marshal(conv)
	if err != nil {
		serialized = []byte("{}")
	}
	fmt.Fprintf(&b, "\nUser message: %q\nContext: %s\n\n", message, serialized)

	names := contractx.HandlerNames()
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = string(name)
	}
	fmt.Fprintf(&b, "Respond with ONLY the handler name (%s).", strings.Join(parts, ", "))
	return b.String()
}
