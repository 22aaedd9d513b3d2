// Package handlers wires the six domain handlers into a closed registry
// keyed by handler name.
package handlers

import (
	"fmt"
	"time"

	contractx "github.com/atelierline/concierge/agent/contract"
	"github.com/atelierline/concierge/agent/handlers/checkout"
	"github.com/atelierline/concierge/agent/handlers/lookbook"
	"github.com/atelierline/concierge/agent/handlers/recommender"
	"github.com/atelierline/concierge/agent/handlers/returns"
	"github.com/atelierline/concierge/agent/handlers/search"
	"github.com/atelierline/concierge/agent/handlers/stylist"
	"github.com/atelierline/concierge/agent/prompt"
)

// Deps carries the shared capabilities every handler builds on. Events and
// Now are optional.
type Deps struct {
	Completer contractx.Completer
	Prompts   prompt.Set
	Opts      contractx.CompleteOptions
	Events    contractx.EventPublisher
	Now       func() time.Time
}

// Registry is the closed set of handlers. Lookups outside the known names
// fail; nothing can be registered after construction.
type Registry struct {
	byName map[contractx.HandlerName]contractx.Handler
}

func NewRegistry(deps Deps) (*Registry, error) {
	if deps.Completer == nil {
		return nil, fmt.Errorf("%w: completer is required", contractx.ErrValidation)
	}

	checkoutOpts := []checkout.Option{checkout.WithEvents(deps.Events)}
	returnsOpts := []returns.Option{returns.WithEvents(deps.Events)}
	if deps.Now != nil {
		checkoutOpts = append(checkoutOpts, checkout.WithClock(deps.Now))
		returnsOpts = append(returnsOpts, returns.WithClock(deps.Now))
	}

	checkoutHandler, err := checkout.New(deps.Completer, deps.Prompts.Checkout, deps.Opts, checkoutOpts...)
	if err != nil {
		return nil, err
	}
	returnsHandler, err := returns.New(deps.Completer, deps.Prompts.Returns, deps.Opts, returnsOpts...)
	if err != nil {
		return nil, err
	}
	stylistHandler, err := stylist.New(deps.Completer, deps.Prompts.Stylist, deps.Opts)
	if err != nil {
		return nil, err
	}
	lookbookHandler, err := lookbook.New(deps.Completer, deps.Prompts.Lookbook, deps.Opts)
	if err != nil {
		return nil, err
	}

	all := []contractx.Handler{
		stylistHandler,
		search.New(deps.Prompts.Search),
		lookbookHandler,
		checkoutHandler,
		returnsHandler,
		recommender.New(deps.Prompts.Recommender),
	}

	byName := make(map[contractx.HandlerName]contractx.Handler, len(all))
	for _, h := range all {
		byName[h.Name()] = h
	}
	return &Registry{byName: byName}, nil
}

// Handler returns the handler registered under name.
func (r *Registry) Handler(name contractx.HandlerName) (contractx.Handler, bool) {
	h, ok := r.byName[name]
	return h, ok
}
