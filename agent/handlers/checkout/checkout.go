// Package checkout implements the order-processing handler: cart summaries,
// confirmation-gated order creation, and shipping/payment/status questions.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	contractx "github.com/atelierline/concierge/agent/contract"
	matchx "github.com/atelierline/concierge/agent/handlers/internal/match"
	"github.com/atelierline/concierge/store"
)

const (
	// Flat-rate shipping below the free-shipping threshold.
	freeShippingThreshold = 50
	flatShipping          = 10

	defaultPaymentMethod = "Credit Card"

	// TopicOrderConfirmed is published after a confirmed order is persisted.
	TopicOrderConfirmed = "order.confirmed"
)

var taxRate = decimal.RequireFromString("0.08")

var (
	checkoutWords = []string{"checkout", "buy", "purchase", "order", "cart"}
	shippingWords = []string{"shipping", "delivery", "ship"}
	paymentWords  = []string{"payment", "pay", "card", "billing"}
	statusWords   = []string{"confirm", "confirmation", "status"}
	confirmWords  = []string{"confirm", "yes", "proceed", "place order"}
)

// Handler processes checkout-related messages. There is no duplicate-
// submission guard: a resent confirmation creates a second order. The write
// itself is transactional, so an order never exists without its line items.
type Handler struct {
	completer contractx.Completer
	system    string
	opts      contractx.CompleteOptions
	events    contractx.EventPublisher
	now       func() time.Time
}

var _ contractx.Handler = (*Handler)(nil)

type Option func(*Handler)

// WithEvents enables notification events on confirmed orders.
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
		return nil, errors.New("checkout: completer is required")
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
	return contractx.HandlerCheckout
}

func (h *Handler) Process(ctx context.Context, message string, conv contractx.Context, st store.Store) (contractx.AgentResult, error) {
	lower := strings.ToLower(message)
	switch {
	case matchx.Any(lower, checkoutWords...):
		return h.handleCheckout(ctx, lower, conv, st)
	case matchx.Any(lower, shippingWords...):
		return shippingAnswer(), nil
	case matchx.Any(lower, paymentWords...):
		return paymentAnswer(), nil
	case matchx.Any(lower, statusWords...):
		return h.orderStatus(ctx, conv, st)
	default:
		return h.generalAnswer(ctx, message)
	}
}

// Totals is the derived money breakdown for a cart. All arithmetic is exact
// decimal; these are currency amounts.
type Totals struct {
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// ComputeTotals applies the pricing rules: flat $10 shipping under the $50
// threshold, 8% tax on the subtotal.
func ComputeTotals(items []contractx.CartItem) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		qty := item.Quantity
		if qty < 1 {
			qty = 1
		}
		subtotal = subtotal.Add(item.Price.Mul(decimal.NewFromInt(int64(qty))))
	}

	shipping := decimal.Zero
	if subtotal.LessThan(decimal.NewFromInt(freeShippingThreshold)) {
		shipping = decimal.NewFromInt(flatShipping)
	}
	tax := subtotal.Mul(taxRate)

	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal.Add(shipping).Add(tax),
	}
}

// NewOrderNumber generates a unique order number: ORD- plus 8 uppercase hex.
func NewOrderNumber() string {
	u := uuid.New()
	return fmt.Sprintf("ORD-%X", u[:4])
}

func (h *Handler) handleCheckout(ctx context.Context, lower string, conv contractx.Context, st store.Store) (contractx.AgentResult, error) {
	if len(conv.CartItems) == 0 {
		return contractx.AgentResult{
			Response:     "Your cart is empty. Add some items to your cart first!",
			ActionsTaken: []contractx.Action{contractx.NewAction("checked_cart").With("empty", true)},
			Confidence:   1.0,
			Data:         map[string]any{"cart_empty": true},
		}, nil
	}

	totals := ComputeTotals(conv.CartItems)

	if matchx.Any(lower, confirmWords...) {
		return h.placeOrder(ctx, conv, st, totals)
	}

	response := fmt.Sprintf(`I can help you checkout! Here's your order summary:

Subtotal: $%s
Shipping: $%s
Tax: $%s
Total: $%s

You have %d item(s) in your cart. Ready to place the order?`,
		totals.Subtotal.StringFixed(2),
		totals.Shipping.StringFixed(2),
		totals.Tax.StringFixed(2),
		totals.Total.StringFixed(2),
		len(conv.CartItems),
	)

	return contractx.AgentResult{
		Response: response,
		ActionsTaken: []contractx.Action{
			contractx.NewAction("calculated_totals"),
			contractx.NewAction("prepared_checkout_summary"),
		},
		Confidence: 0.95,
		Data: map[string]any{
			"subtotal":              totals.Subtotal.InexactFloat64(),
			"total":                 totals.Total.InexactFloat64(),
			"awaiting_confirmation": true,
		},
	}, nil
}

func (h *Handler) placeOrder(ctx context.Context, conv contractx.Context, st store.Store, totals Totals) (contractx.AgentResult, error) {
	if conv.CustomerID == 0 {
		return contractx.AgentResult{
			Response:     "Please look into logging in to complete the purchase.",
			ActionsTaken: []contractx.Action{contractx.NewAction("checkout_login_required")},
			Confidence:   1.0,
		}, nil
	}

	order := &store.Order{
		CustomerID:     conv.CustomerID,
		OrderNumber:    NewOrderNumber(),
		OrderDate:      h.now().UTC(),
		OrderStatus:    store.OrderStatusConfirmed,
		Subtotal:       totals.Subtotal,
		TaxAmount:      totals.Tax,
		ShippingAmount: totals.Shipping,
		TotalAmount:    totals.Total,
		PaymentMethod:  defaultPaymentMethod,
	}

	items := make([]store.OrderLineItem, 0, len(conv.CartItems))
	for _, item := range conv.CartItems {
		qty := item.Quantity
		if qty < 1 {
			qty = 1
		}
		items = append(items, store.OrderLineItem{
			SKUID:     item.ProductID,
			Quantity:  qty,
			UnitPrice: item.Price,
			LineTotal: item.Price.Mul(decimal.NewFromInt(int64(qty))),
		})
	}

	if err := st.CreateOrder(ctx, order, items); err != nil {
		return contractx.AgentResult{}, err
	}
	h.publish(ctx, order)

	return contractx.AgentResult{
		Response: fmt.Sprintf(
			"Order placed successfully! Your order number is %s. You can view it in your Orders page.",
			order.OrderNumber,
		),
		ActionsTaken: []contractx.Action{
			contractx.NewAction("created_order").With("order_id", order.OrderID),
		},
		Confidence: 1.0,
		Data: map[string]any{
			"order_placed": true,
			"clear_cart":   true,
			"order_number": order.OrderNumber,
		},
	}, nil
}

func (h *Handler) publish(ctx context.Context, order *store.Order) {
	if h.events == nil {
		return
	}
	err := h.events.Publish(ctx, TopicOrderConfirmed, map[string]any{
		"order_id":     order.OrderID,
		"order_number": order.OrderNumber,
		"customer_id":  order.CustomerID,
		"total_amount": order.TotalAmount,
	})
	if err != nil {
		log.Warn().Err(err).Str("order_number", order.OrderNumber).Msg("order confirmation event publish failed")
	}
}

func (h *Handler) orderStatus(ctx context.Context, conv contractx.Context, st store.Store) (contractx.AgentResult, error) {
	var response string
	switch {
	case conv.OrderID != 0:
		order, err := st.GetOrder(ctx, conv.OrderID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			response = "I couldn't find that order. Please check your order number."
		case err != nil:
			return contractx.AgentResult{}, err
		default:
			response = fmt.Sprintf(`Order Status: %s

Order Number: %s
Order Date: %s
Total: $%s

Your order is currently %s.`,
				order.OrderStatus,
				order.OrderNumber,
				order.OrderDate.Format("January 2, 2006"),
				order.TotalAmount.StringFixed(2),
				strings.ToLower(order.OrderStatus),
			)
		}
	case conv.CustomerID != 0:
		orders, err := st.RecentOrders(ctx, conv.CustomerID, 5)
		if err != nil {
			return contractx.AgentResult{}, err
		}
		if len(orders) > 0 {
			response = fmt.Sprintf(
				"You have %d recent order(s). Your latest order is %s.",
				len(orders), strings.ToLower(orders[0].OrderStatus),
			)
		} else {
			response = "You don't have any orders yet."
		}
	default:
		response = "Please provide your order number or sign in to check your order status."
	}

	return contractx.AgentResult{
		Response:     response,
		ActionsTaken: []contractx.Action{contractx.NewAction("checked_order_status")},
		Confidence:   0.9,
	}, nil
}

func (h *Handler) generalAnswer(ctx context.Context, message string) (contractx.AgentResult, error) {
	response, err := h.completer.Complete(ctx, h.system, []contractx.Turn{{
		Role:    contractx.RoleUser,
		Content: fmt.Sprintf("User question about checkout: %s. Provide helpful, concise answer.", message),
	}}, h.opts)
	if err != nil {
		return contractx.AgentResult{}, err
	}
	return contractx.AgentResult{
		Response:     response,
		ActionsTaken: []contractx.Action{contractx.NewAction("answered_general_checkout_question")},
		Confidence:   0.8,
	}, nil
}

func shippingAnswer() contractx.AgentResult {
	return contractx.AgentResult{
		Response: `We offer the following shipping options:

• Standard Shipping (5-7 business days): $9.99 (FREE on orders over $50)
• Express Shipping (2-3 business days): $19.99
• Overnight Shipping (next business day): $29.99

All orders are processed within 1-2 business days. You'll receive a tracking number once your order ships.`,
		ActionsTaken: []contractx.Action{contractx.NewAction("provided_shipping_info")},
		Confidence:   1.0,
	}
}

func paymentAnswer() contractx.AgentResult {
	return contractx.AgentResult{
		Response: `We accept the following payment methods:

• Credit/Debit Cards (Visa, Mastercard, American Express, Discover)
• PayPal
• Apple Pay
• Google Pay

All payments are processed securely. We never store your full payment information.`,
		ActionsTaken: []contractx.Action{contractx.NewAction("provided_payment_info")},
		Confidence:   1.0,
	}
}
