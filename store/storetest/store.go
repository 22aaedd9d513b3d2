// Package storetest provides a configurable in-memory Store for handler tests.
package storetest

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/atelierline/concierge/store"
)

// Store fakes store.Store. Populate the fixture fields a test needs and leave
// the rest zero; lookups that miss return store.ErrNotFound, the per-method
// Err fields force failures.
type Store struct {
	Products map[int64]*store.Product
	Prices   map[int64]decimal.Decimal
	Ratings  map[int64]float64
	Profiles map[int64]*store.StyleProfile

	SearchResults []store.Product
	SearchErr     error
	LastQuery     store.ProductQuery

	Orders           map[int64]*store.Order
	OrdersByCustomer map[int64][]store.Order

	Returns           map[int64]*store.ReturnRequest
	ReturnsByCustomer map[int64][]store.ReturnRequest

	Purchased map[int64][]int64
	Similar   []store.Product
	Affinity  []store.Product
	Trending  []store.Product

	CreatedOrders    []*store.Order
	CreatedItems     [][]store.OrderLineItem
	CreateOrderErr   error
	CreatedReturns   []*store.ReturnRequest
	CreateReturnErr  error
	NextOrderID      int64
	NextReturnID     int64
	LastAffinityCall AffinityCall
}

// AffinityCall records the arguments of the latest ProductsByAffinity call.
type AffinityCall struct {
	Exclude      []int64
	HierarchyIDs []int64
	Brands       []string
}

var _ store.Store = (*Store)(nil)

func (f *Store) SearchProducts(ctx context.Context, q store.ProductQuery) ([]store.Product, error) {
	f.LastQuery = q
	if f.SearchErr != nil {
		return nil, f.SearchErr
	}
	return f.SearchResults, nil
}

func (f *Store) GetProduct(ctx context.Context, productID int64) (*store.Product, error) {
	if p, ok := f.Products[productID]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("storetest: product %d: %w", productID, store.ErrNotFound)
}

func (f *Store) ProductsByIDs(ctx context.Context, ids []int64) ([]store.Product, error) {
	var out []store.Product
	for _, id := range ids {
		if p, ok := f.Products[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *Store) LowestActivePrice(ctx context.Context, productID int64) (decimal.NullDecimal, error) {
	if price, ok := f.Prices[productID]; ok {
		return decimal.NullDecimal{Decimal: price, Valid: true}, nil
	}
	return decimal.NullDecimal{}, nil
}

func (f *Store) AverageRating(ctx context.Context, productID int64) (float64, bool, error) {
	if rating, ok := f.Ratings[productID]; ok {
		return rating, true, nil
	}
	return 0, false, nil
}

func (f *Store) StyleProfileFor(ctx context.Context, customerID int64) (*store.StyleProfile, error) {
	if p, ok := f.Profiles[customerID]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("storetest: profile for %d: %w", customerID, store.ErrNotFound)
}

func (f *Store) GetOrder(ctx context.Context, orderID int64) (*store.Order, error) {
	if o, ok := f.Orders[orderID]; ok {
		return o, nil
	}
	return nil, fmt.Errorf("storetest: order %d: %w", orderID, store.ErrNotFound)
}

func (f *Store) LatestOrder(ctx context.Context, customerID int64) (*store.Order, error) {
	orders := f.OrdersByCustomer[customerID]
	if len(orders) == 0 {
		return nil, fmt.Errorf("storetest: latest order for %d: %w", customerID, store.ErrNotFound)
	}
	latest := orders[0]
	return &latest, nil
}

func (f *Store) RecentOrders(ctx context.Context, customerID int64, limit int) ([]store.Order, error) {
	orders := f.OrdersByCustomer[customerID]
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func (f *Store) CreateOrder(ctx context.Context, order *store.Order, items []store.OrderLineItem) error {
	if f.CreateOrderErr != nil {
		return f.CreateOrderErr
	}
	f.NextOrderID++
	order.OrderID = f.NextOrderID
	for i := range items {
		items[i].OrderID = order.OrderID
	}
	f.CreatedOrders = append(f.CreatedOrders, order)
	f.CreatedItems = append(f.CreatedItems, items)
	return nil
}

func (f *Store) GetReturn(ctx context.Context, returnID int64) (*store.ReturnRequest, error) {
	if r, ok := f.Returns[returnID]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("storetest: return %d: %w", returnID, store.ErrNotFound)
}

func (f *Store) RecentReturns(ctx context.Context, customerID int64, limit int) ([]store.ReturnRequest, error) {
	returns := f.ReturnsByCustomer[customerID]
	if limit > 0 && len(returns) > limit {
		returns = returns[:limit]
	}
	return returns, nil
}

func (f *Store) CreateReturn(ctx context.Context, req *store.ReturnRequest) error {
	if f.CreateReturnErr != nil {
		return f.CreateReturnErr
	}
	f.NextReturnID++
	req.ReturnID = f.NextReturnID
	f.CreatedReturns = append(f.CreatedReturns, req)
	return nil
}

func (f *Store) PurchasedProductIDs(ctx context.Context, customerID int64) ([]int64, error) {
	return f.Purchased[customerID], nil
}

func (f *Store) SimilarProducts(ctx context.Context, ref *store.Product, limit int) ([]store.Product, error) {
	return f.Similar, nil
}

func (f *Store) ProductsByAffinity(ctx context.Context, exclude []int64, hierarchyIDs []int64, brands []string, limit int) ([]store.Product, error) {
	f.LastAffinityCall = AffinityCall{Exclude: exclude, HierarchyIDs: hierarchyIDs, Brands: brands}
	return f.Affinity, nil
}

func (f *Store) TrendingProducts(ctx context.Context, limit int) ([]store.Product, error) {
	return f.Trending, nil
}
