// Package returns implements the returns handler: 30-day eligibility checks,
// confirmation-gated return creation, policy and status questions.
package returns

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/atelierline/concierge/agent/contract"
	matchx "github.com/atelierline/concierge/agent/handlers/internal/match"
	"github.com/atelierline/concierge/store"
)

// EligibilityWindowDays is the return window measured from the order date.
const EligibilityWindowDays = 30

// TopicReturnRequested is published after a return request is persisted.
const TopicReturnRequested = "return.requested"

const defaultReason = "Changed mind"

var (
	initiateWords = []string{"return", "refund", "exchange", "send back"}
	policyWords   = []string{"policy", "return policy", "how long"}
	statusWords   = []string{"status", "track", "where is"}
	confirmWords  = []string{"confirm", "yes", "proceed", "do it"}

	// reasonPhrases is the fixed vocabulary matched against the message;
	// order is significant, first match wins.
	reasonPhrases = []string{
		"Size doesn't fit",
		"Color not as expected",
		"Quality issues",
		"Changed mind",
		"Found better price",
		"Item damaged",
		"Wrong item received",
	}
)

type Handler struct {
	completer contractx.Completer
	system    string
	opts      contractx.CompleteOptions
	events    contractx.EventPublisher
	now       func() time.Time
}

var _ contractx.Handler = (*Handler)(nil)

type Option func(*Handler)

// WithEvents enables notification events on submitted returns.
func WithEvents(events contractx.EventPublisher) Option {
	return func(h *Handler) { h.events = events }
}

func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

func New(completer contractx.Completer, system string, opts contractx.CompleteOptions, options ...Option) (*Handler, error) {
	if completer == nil {
		return nil, errors.New("returns: completer is required")
	}
	h := &Handler{
		completer: completer,
		system:    system,
		opts:      opts,
		now:       time.Now,
	}
	for _, opt := range options {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

func (h *Handler) Name() contractx.HandlerName {
	return contractx.HandlerReturns
}

func (h *Handler) Process(ctx context.Context, message string, conv contractx.Context, st store.Store) (contractx.AgentResult, error) {
	lower := strings.ToLower(message)
	switch {
	case matchx.Any(lower, initiateWords...):
		return h.initiateReturn(ctx, lower, conv, st)
	case matchx.Any(lower, policyWords...):
		return policyAnswer(), nil
	case matchx.Any(lower, statusWords...):
		return h.returnStatus(ctx, conv, st)
	default:
		return h.generalAnswer(ctx, message)
	}
}

// ExtractReason matches the message against the fixed reason vocabulary,
// defaulting to "Changed mind".
func ExtractReason(lowerMessage string) string {
	if reason, ok := matchx.First(lowerMessage, reasonPhrases); ok {
		return reason
	}
	return defaultReason
}

func (h *Handler) initiateReturn(ctx context.Context, lower string, conv contractx.Context, st store.Store) (contractx.AgentResult, error) {
	if conv.OrderID == 0 && conv.CustomerID == 0 {
		return contractx.AgentResult{
			Response:     "To process a return, I'll need your order number. Please provide it or sign in to your account.",
			ActionsTaken: []contractx.Action{contractx.NewAction("requested_order_info")},
			Confidence:   0.9,
		}, nil
	}

	order, err := h.resolveOrder(ctx, conv, st)
	if errors.Is(err, store.ErrNotFound) {
		return contractx.AgentResult{
			Response:     "I couldn't find your order. Please check your order number.",
			ActionsTaken: []contractx.Action{contractx.NewAction("order_not_found")},
			Confidence:   0.9,
		}, nil
	}
	if err != nil {
		return contractx.AgentResult{}, err
	}

	// Whole days since the order was placed; day 30 is still eligible.
	daysSinceOrder := int(h.now().Sub(order.OrderDate).Hours() / 24)
	if daysSinceOrder > EligibilityWindowDays {
		return contractx.AgentResult{
			Response: fmt.Sprintf(
				"Your order is %d days old. Our return policy allows returns within %d days of purchase. Unfortunately, this order is no longer eligible for return.",
				daysSinceOrder, EligibilityWindowDays,
			),
			ActionsTaken: []contractx.Action{
				contractx.NewAction("checked_return_eligibility").With("eligible", false),
			},
			Confidence: 1.0,
		}, nil
	}

	reason := ExtractReason(lower)

	if matchx.Any(lower, confirmWords...) {
		return h.submitReturn(ctx, order, reason, st)
	}

	response := fmt.Sprintf(`I can help you process a return for order %s.

Return Reason: %s
Order Date: %s
Eligible for Return: Yes (within %d-day window)

Would you like me to process this return? You'll receive a refund to your original payment method within 5-7 business days after we receive the item.`,
		order.OrderNumber, reason, order.OrderDate.Format("January 2, 2006"), EligibilityWindowDays,
	)

	return contractx.AgentResult{
		Response: response,
		ActionsTaken: []contractx.Action{
			contractx.NewAction("initiated_return_request"),
			contractx.NewAction("checked_eligibility").
				With("eligible", true).
				With("days_since_order", daysSinceOrder),
		},
		Confidence: 0.9,
		Data: map[string]any{
			"order_id":              order.OrderID,
			"order_number":          order.OrderNumber,
			"return_reason":         reason,
			"eligible":              true,
			"awaiting_confirmation": true,
		},
	}, nil
}

func (h *Handler) resolveOrder(ctx context.Context, conv contractx.Context, st store.Store) (*store.Order, error) {
	if conv.OrderID != 0 {
		return st.GetOrder(ctx, conv.OrderID)
	}
	return st.LatestOrder(ctx, conv.CustomerID)
}

func (h *Handler) submitReturn(ctx context.Context, order *store.Order, reason string, st store.Store) (contractx.AgentResult, error) {
	req := &store.ReturnRequest{
		OrderID:       order.OrderID,
		ReturnReason:  reason,
		ReturnStatus:  store.ReturnStatusPending,
		RequestedDate: h.now().UTC(),
		Notes:         fmt.Sprintf("Created by agent. Reason: %s", reason),
	}
	if err := st.CreateReturn(ctx, req); err != nil {
		return contractx.AgentResult{}, err
	}
	h.publish(ctx, order, req)

	return contractx.AgentResult{
		Response: fmt.Sprintf(
			"I've submitted your return request for order %s. Your return ID is %d. You'll receive a confirmation email shortly.",
			order.OrderNumber, req.ReturnID,
		),
		ActionsTaken: []contractx.Action{
			contractx.NewAction("created_return_request").With("return_id", req.ReturnID),
		},
		Confidence: 1.0,
		Data:       map[string]any{"return_created": true},
	}, nil
}

func (h *Handler) publish(ctx context.Context, order *store.Order, req *store.ReturnRequest) {
	if h.events == nil {
		return
	}
	err := h.events.Publish(ctx, TopicReturnRequested, map[string]any{
		"return_id":    req.ReturnID,
		"order_id":     order.OrderID,
		"order_number": order.OrderNumber,
		"reason":       req.ReturnReason,
	})
	if err != nil {
		log.Warn().Err(err).Int64("return_id", req.ReturnID).Msg("return event publish failed")
	}
}

func (h *Handler) returnStatus(ctx context.Context, conv contractx.Context, st store.Store) (contractx.AgentResult, error) {
	var response string
	switch {
	case conv.ReturnID != 0:
		ret, err := st.GetReturn(ctx, conv.ReturnID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			response = "I couldn't find that return request. Please check your return ID."
		case err != nil:
			return contractx.AgentResult{}, err
		default:
			refund := "pending"
			if ret.RefundAmount.Valid {
				refund = "$" + ret.RefundAmount.Decimal.StringFixed(2)
			}
			response = fmt.Sprintf(`Return Status: %s

Return ID: %d
Requested Date: %s
Refund Amount: %s

Your return is currently %s.`,
				ret.ReturnStatus,
				ret.ReturnID,
				ret.RequestedDate.Format("January 2, 2006"),
				refund,
				strings.ToLower(ret.ReturnStatus),
			)
		}
	case conv.CustomerID != 0:
		returns, err := st.RecentReturns(ctx, conv.CustomerID, 5)
		if err != nil {
			return contractx.AgentResult{}, err
		}
		if len(returns) > 0 {
			response = fmt.Sprintf(
				"You have %d return request(s). Your latest return is %s.",
				len(returns), strings.ToLower(returns[0].ReturnStatus),
			)
		} else {
			response = "You don't have any return requests."
		}
	default:
		response = "Please provide your return ID or sign in to check your return status."
	}

	return contractx.AgentResult{
		Response:     response,
		ActionsTaken: []contractx.Action{contractx.NewAction("checked_return_status")},
		Confidence:   0.9,
	}, nil
}

func (h *Handler) generalAnswer(ctx context.Context, message string) (contractx.AgentResult, error) {
	response, err := h.completer.Complete(ctx, h.system, []contractx.Turn{{
		Role:    contractx.RoleUser,
		Content: fmt.Sprintf("User question about returns: %s. Provide helpful, concise answer about our return policy.", message),
	}}, h.opts)
	if err != nil {
		return contractx.AgentResult{}, err
	}
	return contractx.AgentResult{
		Response:     response,
		ActionsTaken: []contractx.Action{contractx.NewAction("answered_general_return_question")},
		Confidence:   0.8,
	}, nil
}

func policyAnswer() contractx.AgentResult {
	return contractx.AgentResult{
		Response: `Our Return Policy:

• Returns accepted within 30 days of purchase
• Items must be unworn, unwashed, and in original condition with tags attached
• Free return shipping for orders over $50
• Refunds processed within 5-7 business days after we receive the item
• Original shipping costs are non-refundable
• Sale items are final sale (no returns)

To start a return, just let me know your order number or sign in to your account.`,
		ActionsTaken: []contractx.Action{contractx.NewAction("explained_return_policy")},
		Confidence:   1.0,
	}
}
