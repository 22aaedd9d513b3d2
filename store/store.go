package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNotFound reports that a record lookup matched nothing. Callers decide
// whether that is a domain outcome or a failure.
var ErrNotFound = errors.New("store: not found")

// ProductQuery is a filter specification built by the handlers from parsed
// message text. Zero-valued fields are not applied.
type ProductQuery struct {
	Keywords string
	Category string
	Gender   string
	Brand    string
	Brands   []string
	Types    []string
	PriceMin decimal.NullDecimal
	PriceMax decimal.NullDecimal
	Limit    int
}

// Store is the record-oriented data capability the handlers run against.
// Implementations never perform schema DDL.
type Store interface {
	// Catalog
	SearchProducts(ctx context.Context, q ProductQuery) ([]Product, error)
	GetProduct(ctx context.Context, productID int64) (*Product, error)
	ProductsByIDs(ctx context.Context, ids []int64) ([]Product, error)
	LowestActivePrice(ctx context.Context, productID int64) (decimal.NullDecimal, error)
	AverageRating(ctx context.Context, productID int64) (float64, bool, error)

	// Customers
	StyleProfileFor(ctx context.Context, customerID int64) (*StyleProfile, error)

	// Orders
	GetOrder(ctx context.Context, orderID int64) (*Order, error)
	LatestOrder(ctx context.Context, customerID int64) (*Order, error)
	RecentOrders(ctx context.Context, customerID int64, limit int) ([]Order, error)
	// CreateOrder persists the order header and all line items in one
	// transaction; a line-item failure must roll back the header.
	CreateOrder(ctx context.Context, order *Order, items []OrderLineItem) error

	// Returns
	GetReturn(ctx context.Context, returnID int64) (*ReturnRequest, error)
	RecentReturns(ctx context.Context, customerID int64, limit int) ([]ReturnRequest, error)
	CreateReturn(ctx context.Context, req *ReturnRequest) error

	// Recommendations
	PurchasedProductIDs(ctx context.Context, customerID int64) ([]int64, error)
	// SimilarProducts returns active products sharing the reference's
	// hierarchy or brand, backfilled by gender match up to limit.
	SimilarProducts(ctx context.Context, ref *Product, limit int) ([]Product, error)
	ProductsByAffinity(ctx context.Context, exclude []int64, hierarchyIDs []int64, brands []string, limit int) ([]Product, error)
	// TrendingProducts orders active products by line-item join count.
	TrendingProducts(ctx context.Context, limit int) ([]Product, error)
}
