package checkout

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	contractx "github.com/atelierline/concierge/agent/contract"
	"github.com/atelierline/concierge/store"
	"github.com/atelierline/concierge/store/storetest"
)

type stubCompleter struct {
	response string
	err      error
}

func (s *stubCompleter) Complete(ctx context.Context, systemPrompt string, turns []contractx.Turn, opts contractx.CompleteOptions) (string, error) {
	return s.response, s.err
}

type recordingPublisher struct {
	topics   []string
	payloads []any
	err      error
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, payload any) error {
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload)
	return p.err
}

func newHandler(t *testing.T, opts ...Option) *Handler {
	t.Helper()
	h, err := New(&stubCompleter{response: "ok"}, "system", contractx.CompleteOptions{}, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return h
}

func cart(items ...contractx.CartItem) contractx.Context {
	return contractx.Context{CustomerID: 7, CartItems: items}
}

func item(price string, qty int) contractx.CartItem {
	return contractx.CartItem{ProductID: 1, Price: decimal.RequireFromString(price), Quantity: qty}
}

func TestComputeTotalsAboveFreeShippingThreshold(t *testing.T) {
	t.Parallel()

	totals := ComputeTotals([]contractx.CartItem{item("30.00", 2)})

	if got := totals.Subtotal.StringFixed(2); got != "60.00" {
		t.Fatalf("Subtotal = %s, want 60.00", got)
	}
	if got := totals.Shipping.StringFixed(2); got != "0.00" {
		t.Fatalf("Shipping = %s, want 0.00", got)
	}
	if got := totals.Tax.StringFixed(2); got != "4.80" {
		t.Fatalf("Tax = %s, want 4.80", got)
	}
	if got := totals.Total.StringFixed(2); got != "64.80" {
		t.Fatalf("Total = %s, want 64.80", got)
	}
}

func TestComputeTotalsBelowFreeShippingThreshold(t *testing.T) {
	t.Parallel()

	totals := ComputeTotals([]contractx.CartItem{item("10.00", 1)})

	if got := totals.Subtotal.StringFixed(2); got != "10.00" {
		t.Fatalf("Subtotal = %s, want 10.00", got)
	}
	if got := totals.Shipping.StringFixed(2); got != "10.00" {
		t.Fatalf("Shipping = %s, want 10.00", got)
	}
	if got := totals.Tax.StringFixed(2); got != "0.80" {
		t.Fatalf("Tax = %s, want 0.80", got)
	}
	if got := totals.Total.StringFixed(2); got != "20.80" {
		t.Fatalf("Total = %s, want 20.80", got)
	}
}

func TestComputeTotalsClampsQuantity(t *testing.T) {
	t.Parallel()

	totals := ComputeTotals([]contractx.CartItem{item("25.00", 0)})
	if got := totals.Subtotal.StringFixed(2); got != "25.00" {
		t.Fatalf("Subtotal = %s, want 25.00", got)
	}
}

func TestProcessEmptyCart(t *testing.T) {
	t.Parallel()

	h := newHandler(t)
	st := &storetest.Store{}

	result, err := h.Process(context.Background(), "I want to checkout", cart(), st)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if result.Confidence != 1.0 {
		t.Fatalf("Confidence = %v, want 1.0", result.Confidence)
	}
	if empty, _ := result.Data["cart_empty"].(bool); !empty {
		t.Fatalf("Data[cart_empty] = %v, want true", result.Data["cart_empty"])
	}
	if len(st.CreatedOrders) != 0 {
		t.Fatalf("CreatedOrders = %d, want 0", len(st.CreatedOrders))
	}
}

func TestProcessSummaryAwaitsConfirmation(t *testing.T) {
	t.Parallel()

	h := newHandler(t)
	st := &storetest.Store{}

	result, err := h.Process(context.Background(), "checkout please", cart(item("30.00", 2)), st)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if result.Confidence != 0.95 {
		t.Fatalf("Confidence = %v, want 0.95", result.Confidence)
	}
	if awaiting, _ := result.Data["awaiting_confirmation"].(bool); !awaiting {
		t.Fatalf("Data[awaiting_confirmation] = %v, want true", result.Data["awaiting_confirmation"])
	}
	if !strings.Contains(result.Response, "$64.80") {
		t.Fatalf("Response missing total: %q", result.Response)
	}
	if len(st.CreatedOrders) != 0 {
		t.Fatalf("CreatedOrders = %d, want 0", len(st.CreatedOrders))
	}
}

func TestProcessConfirmWithoutCustomerNeverCreatesOrder(t *testing.T) {
	t.Parallel()

	h := newHandler(t)
	st := &storetest.Store{}
	conv := contractx.Context{CartItems: []contractx.CartItem{item("30.00", 2)}}

	result, err := h.Process(context.Background(), "yes, place order", conv, st)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if result.Confidence != 1.0 {
		t.Fatalf("Confidence = %v, want 1.0", result.Confidence)
	}
	if len(st.CreatedOrders) != 0 {
		t.Fatalf("CreatedOrders = %d, want 0", len(st.CreatedOrders))
	}
	if !strings.Contains(strings.ToLower(result.Response), "logging in") {
		t.Fatalf("Response missing login hint: %q", result.Response)
	}
}

func TestProcessConfirmCreatesOrderWithLineItems(t *testing.T) {
	t.Parallel()

	events := &recordingPublisher{}
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h := newHandler(t, WithEvents(events), WithClock(func() time.Time { return fixed }))
	st := &storetest.Store{}

	conv := cart(item("30.00", 2), contractx.CartItem{ProductID: 2, Price: decimal.RequireFromString("5.50"), Quantity: 1})
	result, err := h.Process(context.Background(), "confirm my order", conv, st)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if len(st.CreatedOrders) != 1 {
		t.Fatalf("CreatedOrders = %d, want 1", len(st.CreatedOrders))
	}
	order := st.CreatedOrders[0]
	if order.OrderStatus != store.OrderStatusConfirmed {
		t.Fatalf("OrderStatus = %q, want %q", order.OrderStatus, store.OrderStatusConfirmed)
	}
	if !order.OrderDate.Equal(fixed) {
		t.Fatalf("OrderDate = %v, want %v", order.OrderDate, fixed)
	}
	if got := order.TotalAmount.StringFixed(2); got != "70.74" {
		t.Fatalf("TotalAmount = %s, want 70.74", got)
	}

	if len(st.CreatedItems) != 1 || len(st.CreatedItems[0]) != 2 {
		t.Fatalf("CreatedItems = %#v, want one batch of two items", st.CreatedItems)
	}
	if got := st.CreatedItems[0][0].LineTotal.StringFixed(2); got != "60.00" {
		t.Fatalf("LineTotal = %s, want 60.00", got)
	}

	if placed, _ := result.Data["order_placed"].(bool); !placed {
		t.Fatalf("Data[order_placed] = %v, want true", result.Data["order_placed"])
	}
	if clear, _ := result.Data["clear_cart"].(bool); !clear {
		t.Fatalf("Data[clear_cart] = %v, want true", result.Data["clear_cart"])
	}

	if len(events.topics) != 1 || events.topics[0] != TopicOrderConfirmed {
		t.Fatalf("published topics = %v, want [%s]", events.topics, TopicOrderConfirmed)
	}
}

func TestProcessConfirmPublishFailureDoesNotFailOrder(t *testing.T) {
	t.Parallel()

	events := &recordingPublisher{err: errors.New("queue down")}
	h := newHandler(t, WithEvents(events))
	st := &storetest.Store{}

	_, err := h.Process(context.Background(), "confirm my order", cart(item("30.00", 2)), st)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(st.CreatedOrders) != 1 {
		t.Fatalf("CreatedOrders = %d, want 1", len(st.CreatedOrders))
	}
}

func TestProcessCreateOrderErrorPropagates(t *testing.T) {
	t.Parallel()

	h := newHandler(t)
	st := &storetest.Store{CreateOrderErr: errors.New("db down")}

	_, err := h.Process(context.Background(), "confirm my order", cart(item("30.00", 2)), st)
	if err == nil {
		t.Fatal("Process() error = nil, want non-nil")
	}
}

func TestProcessShippingFAQ(t *testing.T) {
	t.Parallel()

	h := newHandler(t)
	result, err := h.Process(context.Background(), "how long does shipping take?", contractx.Context{}, &storetest.Store{})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if result.Confidence != 1.0 {
		t.Fatalf("Confidence = %v, want 1.0", result.Confidence)
	}
	if !strings.Contains(strings.ToLower(result.Response), "shipping") {
		t.Fatalf("Response = %q, want shipping FAQ", result.Response)
	}
}

func TestProcessOrderStatusByID(t *testing.T) {
	t.Parallel()

	h := newHandler(t)
	st := &storetest.Store{Orders: map[int64]*store.Order{
		42: {
			OrderID:     42,
			OrderNumber: "ORD-AB12CD34",
			OrderDate:   time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
			OrderStatus: store.OrderStatusConfirmed,
			TotalAmount: decimal.RequireFromString("64.80"),
		},
	}}

	result, err := h.Process(context.Background(), "can you check the status?", contractx.Context{OrderID: 42}, st)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if !strings.Contains(result.Response, "ORD-AB12CD34") {
		t.Fatalf("Response missing order number: %q", result.Response)
	}
}

func TestProcessOrderStatusNotFoundIsDomainOutcome(t *testing.T) {
	t.Parallel()

	h := newHandler(t)
	result, err := h.Process(context.Background(), "status please", contractx.Context{OrderID: 99}, &storetest.Store{})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if !strings.Contains(result.Response, "couldn't find that order") {
		t.Fatalf("Response = %q, want not-found message", result.Response)
	}
}

func TestNewOrderNumberFormat(t *testing.T) {
	t.Parallel()

	number := NewOrderNumber()
	if !strings.HasPrefix(number, "ORD-") {
		t.Fatalf("order number = %q, want ORD- prefix", number)
	}
	hex := strings.TrimPrefix(number, "ORD-")
	if len(hex) != 8 {
		t.Fatalf("hex part = %q, want 8 chars", hex)
	}
	for _, r := range hex {
		if !strings.ContainsRune("0123456789ABCDEF", r) {
			t.Fatalf("hex part contains %q", r)
		}
	}
}
