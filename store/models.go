package store

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Record statuses used by the conversational core. The retail schema carries
// more states than these; the core only ever reads or writes the ones below.
const (
	StatusActive = "ACTIVE"

	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusCompleted = "COMPLETED"

	ReturnStatusPending = "PENDING"
)

// ProductHierarchy is a node of the category tree (department, class, ...).
type ProductHierarchy struct {
	bun.BaseModel `bun:"table:retail.product_hierarchy,alias:ph"`

	HierarchyID       int64  `bun:"hierarchy_id,pk,autoincrement"`
	HierarchyLevel    string `bun:"hierarchy_level"`
	HierarchyName     string `bun:"hierarchy_name"`
	ParentHierarchyID int64  `bun:"parent_hierarchy_id,nullzero"`
}

// Product is the master product record.
type Product struct {
	bun.BaseModel `bun:"table:retail.product,alias:p"`

	ProductID          int64  `bun:"product_id,pk,autoincrement" json:"product_id"`
	ProductName        string `bun:"product_name" json:"product_name"`
	ProductDescription string `bun:"product_description" json:"product_description,omitempty"`
	BrandName          string `bun:"brand_name" json:"brand_name"`
	HierarchyID        int64  `bun:"hierarchy_id,nullzero" json:"hierarchy_id,omitempty"`
	ProductType        string `bun:"product_type" json:"product_type"`
	Gender             string `bun:"gender" json:"gender,omitempty"`
	Season             string `bun:"season" json:"season,omitempty"`
	Year               int    `bun:"year,nullzero" json:"year,omitempty"`
	Status             string `bun:"status" json:"status"`
}

// ProductVariant is a color/size/material variation of a product.
type ProductVariant struct {
	bun.BaseModel `bun:"table:retail.product_variant,alias:pv"`

	VariantID   int64  `bun:"variant_id,pk,autoincrement"`
	ProductID   int64  `bun:"product_id"`
	VariantName string `bun:"variant_name"`
	Color       string `bun:"color"`
	Size        string `bun:"size"`
	Material    string `bun:"material"`
}

// SKU is a sellable stock-keeping unit of a variant.
type SKU struct {
	bun.BaseModel `bun:"table:retail.sku,alias:s"`

	SKUID             int64           `bun:"sku_id,pk,autoincrement"`
	VariantID         int64           `bun:"variant_id"`
	SKUCode           string          `bun:"sku_code"`
	Price             decimal.Decimal `bun:"price"`
	Currency          string          `bun:"currency"`
	InventoryQuantity int             `bun:"inventory_quantity"`
	Status            string          `bun:"status"`
}

// Customer is the account record; auth fields live outside the core.
type Customer struct {
	bun.BaseModel `bun:"table:retail.customer,alias:c"`

	CustomerID int64  `bun:"customer_id,pk,autoincrement"`
	Email      string `bun:"email"`
	FirstName  string `bun:"first_name"`
	LastName   string `bun:"last_name"`
	Gender     string `bun:"gender"`
}

// StyleProfile captures a customer's styling preferences.
type StyleProfile struct {
	bun.BaseModel `bun:"table:retail.style_profile,alias:sp"`

	ProfileID           int64               `bun:"profile_id,pk,autoincrement"`
	CustomerID          int64               `bun:"customer_id"`
	StylePreferences    map[string]any      `bun:"style_preferences,type:jsonb"`
	FavoriteColors      []string            `bun:"favorite_colors,array"`
	PriceRangeMin       decimal.NullDecimal `bun:"price_range_min"`
	PriceRangeMax       decimal.NullDecimal `bun:"price_range_max"`
	BrandPreferences    []string            `bun:"brand_preferences,array"`
	OccasionPreferences []string            `bun:"occasion_preferences,array"`
}

// Review is a customer product review.
type Review struct {
	bun.BaseModel `bun:"table:retail.review,alias:r"`

	ReviewID         int64  `bun:"review_id,pk,autoincrement"`
	ProductID        int64  `bun:"product_id"`
	CustomerID       int64  `bun:"customer_id,nullzero"`
	Rating           int    `bun:"rating"`
	ReviewTitle      string `bun:"review_title"`
	ReviewText       string `bun:"review_text"`
	VerifiedPurchase bool   `bun:"verified_purchase"`
}

// Order is created exactly once per confirmed checkout and is immutable
// afterward except for status transitions owned by fulfillment.
type Order struct {
	bun.BaseModel `bun:"table:retail.order,alias:o"`

	OrderID        int64           `bun:"order_id,pk,autoincrement" json:"order_id"`
	CustomerID     int64           `bun:"customer_id" json:"customer_id"`
	OrderNumber    string          `bun:"order_number" json:"order_number"`
	OrderDate      time.Time       `bun:"order_date" json:"order_date"`
	OrderStatus    string          `bun:"order_status" json:"order_status"`
	Subtotal       decimal.Decimal `bun:"subtotal" json:"subtotal"`
	TaxAmount      decimal.Decimal `bun:"tax_amount" json:"tax_amount"`
	ShippingAmount decimal.Decimal `bun:"shipping_amount" json:"shipping_amount"`
	DiscountAmount decimal.Decimal `bun:"discount_amount" json:"discount_amount"`
	TotalAmount    decimal.Decimal `bun:"total_amount" json:"total_amount"`
	Currency       string          `bun:"currency" json:"currency,omitempty"`
	PaymentMethod  string          `bun:"payment_method" json:"payment_method,omitempty"`
}

// OrderLineItem's LineTotal is computed at creation and never recomputed.
type OrderLineItem struct {
	bun.BaseModel `bun:"table:retail.order_line_item,alias:oli"`

	LineItemID int64           `bun:"line_item_id,pk,autoincrement" json:"line_item_id"`
	OrderID    int64           `bun:"order_id" json:"order_id"`
	SKUID      int64           `bun:"sku_id" json:"sku_id"`
	Quantity   int             `bun:"quantity" json:"quantity"`
	UnitPrice  decimal.Decimal `bun:"unit_price" json:"unit_price"`
	LineTotal  decimal.Decimal `bun:"line_total" json:"line_total"`
}

// ReturnRequest is created exactly once per confirmed return initiation.
// Eligibility is evaluated from the order date at request time, not stored.
type ReturnRequest struct {
	bun.BaseModel `bun:"table:retail.return_request,alias:rr"`

	ReturnID      int64               `bun:"return_id,pk,autoincrement" json:"return_id"`
	OrderID       int64               `bun:"order_id" json:"order_id"`
	LineItemID    int64               `bun:"line_item_id,nullzero" json:"line_item_id,omitempty"`
	ReturnReason  string              `bun:"return_reason" json:"return_reason"`
	ReturnStatus  string              `bun:"return_status" json:"return_status"`
	RequestedDate time.Time           `bun:"requested_date" json:"requested_date"`
	ProcessedDate *time.Time          `bun:"processed_date" json:"processed_date,omitempty"`
	RefundAmount  decimal.NullDecimal `bun:"refund_amount" json:"refund_amount,omitempty"`
	Notes         string              `bun:"notes" json:"notes,omitempty"`
}
