// Package orchestrator is the entry point of the conversational core. It
// routes each message to one handler, contains handler failures, normalizes
// results, and maintains conversation history.
package orchestrator

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"

	contractx "github.com/atelierline/concierge/agent/contract"
	"github.com/atelierline/concierge/agent/history"
	"github.com/atelierline/concierge/store"
)

// anonymousKey keys history for callers without a customer id.
const anonymousKey = "anonymous"

const defaultConfidence = 0.8

// Classifier maps a message to a handler name. Implementations never fail;
// they resolve uncertainty to a safe default.
type Classifier interface {
	Classify(ctx context.Context, message string, conv contractx.Context) contractx.HandlerName
}

// HandlerRegistry resolves handler names to handler instances.
type HandlerRegistry interface {
	Handler(name contractx.HandlerName) (contractx.Handler, bool)
}

// Orchestrator is the single fault-containment boundary: a failing or
// panicking handler degrades the reply, it never breaks the conversation.
type Orchestrator struct {
	classifier Classifier
	registry   HandlerRegistry
	history    history.Store
	store      store.Store
}

func New(classifier Classifier, registry HandlerRegistry, hist history.Store, st store.Store) (*Orchestrator, error) {
	if classifier == nil {
		return nil, fmt.Errorf("%w: classifier is required", contractx.ErrValidation)
	}
	if registry == nil {
		return nil, fmt.Errorf("%w: handler registry is required", contractx.ErrValidation)
	}
	if hist == nil {
		return nil, fmt.Errorf("%w: history store is required", contractx.ErrValidation)
	}
	if st == nil {
		return nil, fmt.Errorf("%w: data store is required", contractx.ErrValidation)
	}
	return &Orchestrator{
		classifier: classifier,
		registry:   registry,
		history:    hist,
		store:      st,
	}, nil
}

// ProcessMessage classifies the message, invokes the resolved handler, and
// returns a normalized reply. History gains a user turn before the handler
// runs and an assistant turn with the final response text after, including
// on the degraded path.
func (o *Orchestrator) ProcessMessage(ctx context.Context, message string, customerID int64, conv contractx.Context) contractx.Reply {
	conversationID := historyKey(customerID)
	if err := o.history.Append(ctx, conversationID, contractx.Turn{Role: contractx.RoleUser, Content: message}); err != nil {
		log.Warn().Err(err).Str("conversation", conversationID).Msg("history append failed")
	}

	name := o.classifier.Classify(ctx, message, conv)

	reply := o.invoke(ctx, name, message, conv)

	if err := o.history.Append(ctx, conversationID, contractx.Turn{Role: contractx.RoleAssistant, Content: reply.Response}); err != nil {
		log.Warn().Err(err).Str("conversation", conversationID).Msg("history append failed")
	}

	log.Info().
		Str("handler", string(reply.Handler)).
		Str("conversation", conversationID).
		Float64("confidence", reply.Confidence).
		Bool("degraded", reply.Error != "").
		Msg("message processed")
	return reply
}

func (o *Orchestrator) invoke(ctx context.Context, name contractx.HandlerName, message string, conv contractx.Context) (reply contractx.Reply) {
	reply.Handler = name

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("handler", string(name)).Msg("handler panicked")
			reply = degraded(name, fmt.Errorf("handler panic: %v", r))
		}
	}()

	handler, ok := o.registry.Handler(name)
	if !ok {
		// Unreachable when the classifier only returns validated names,
		// but the lookup stays defensive.
		return degraded(name, fmt.Errorf("%w: %s", contractx.ErrUnknownHandler, name))
	}

	result, err := handler.Process(ctx, message, conv, o.store)
	if err != nil {
		log.Error().Err(err).Str("handler", string(name)).Msg("handler failed")
		return degraded(name, err)
	}

	normalize(&result)
	reply.AgentResult = result
	return reply
}

// normalize applies the uniform result defaults: non-nil actions and a
// default confidence when the handler reported none.
func normalize(result *contractx.AgentResult) {
	if result.ActionsTaken == nil {
		result.ActionsTaken = []contractx.Action{}
	}
	if result.Confidence == 0 {
		result.Confidence = defaultConfidence
	}
}

func degraded(name contractx.HandlerName, err error) contractx.Reply {
	return contractx.Reply{
		Handler: name,
		AgentResult: contractx.AgentResult{
			Response:     fmt.Sprintf("I apologize, but I encountered an error: %v", err),
			ActionsTaken: []contractx.Action{},
			Confidence:   0,
		},
		Error: err.Error(),
	}
}

func historyKey(customerID int64) string {
	if customerID == 0 {
		return anonymousKey
	}
	return strconv.FormatInt(customerID, 10)
}
