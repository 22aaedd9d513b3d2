package contract

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry in a conversation history.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// HandlerName is the closed set of domain handlers a message can route to.
type HandlerName string

const (
	HandlerStylist     HandlerName = "stylist"
	HandlerSearch      HandlerName = "search"
	HandlerLookbook    HandlerName = "lookbook"
	HandlerCheckout    HandlerName = "checkout"
	HandlerReturns     HandlerName = "returns"
	HandlerRecommender HandlerName = "recommender"
)

// HandlerNames returns every routable handler, in routing-prompt order.
func HandlerNames() []HandlerName {
	return []HandlerName{
		HandlerStylist,
		HandlerSearch,
		HandlerLookbook,
		HandlerCheckout,
		HandlerReturns,
		HandlerRecommender,
	}
}

// ParseHandlerName normalizes raw completion text into a known handler name.
func ParseHandlerName(raw string) (HandlerName, bool) {
	name := HandlerName(strings.ToLower(strings.TrimSpace(raw)))
	switch name {
	case HandlerStylist, HandlerSearch, HandlerLookbook, HandlerCheckout, HandlerReturns, HandlerRecommender:
		return name, true
	}
	return "", false
}

// CartItem is a caller-supplied cart line; it is never persisted as-is.
type CartItem struct {
	ProductID int64           `json:"product_id"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// Context carries the ambient state a caller already knows about the
// conversation. Every field is optional; handlers must tolerate absence.
type Context struct {
	CustomerID int64      `json:"customer_id,omitempty"`
	OrderID    int64      `json:"order_id,omitempty"`
	ProductID  int64      `json:"product_id,omitempty"`
	ReturnID   int64      `json:"return_id,omitempty"`
	CartItems  []CartItem `json:"cart_items,omitempty"`
}

// Action is one audit-trail record of something a handler did. It always
// carries an "action" key; everything else is observational metadata.
type Action map[string]any

func NewAction(name string) Action {
	return Action{"action": name}
}

func (a Action) With(key string, value any) Action {
	a[key] = value
	return a
}

// AgentResult is the uniform response envelope every handler returns.
type AgentResult struct {
	Response     string         `json:"response"`
	ActionsTaken []Action       `json:"actions_taken"`
	Confidence   float64        `json:"confidence"`
	Reasoning    string         `json:"reasoning,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
}

// Reply is the orchestrator's answer to one processed message. Error is set
// only on the degraded path; the conversation always continues.
type Reply struct {
	Handler HandlerName `json:"handler"`
	AgentResult
	Error string `json:"error,omitempty"`
}
