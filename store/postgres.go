package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// Open connects to Postgres with the pgdriver/pgdialect pairing.
func Open(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// PGStore is the bun-backed Store implementation over the retail schema.
type PGStore struct {
	db *bun.DB
}

var _ Store = (*PGStore)(nil)

func NewPG(db *bun.DB) (*PGStore, error) {
	if db == nil {
		return nil, errors.New("store: db is required")
	}
	return &PGStore{db: db}, nil
}

func (s *PGStore) SearchProducts(ctx context.Context, q ProductQuery) ([]Product, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}

	var products []Product
	sel := s.db.NewSelect().
		Model(&products).
		Where("p.status = ?", StatusActive)

	if q.Keywords != "" {
		pattern := "%" + q.Keywords + "%"
		sel = sel.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.
				WhereOr("p.product_name ILIKE ?", pattern).
				WhereOr("p.product_description ILIKE ?", pattern).
				WhereOr("p.brand_name ILIKE ?", pattern)
		})
	}
	if q.Category != "" {
		sel = sel.
			Join("JOIN retail.product_hierarchy AS ph ON ph.hierarchy_id = p.hierarchy_id").
			Where("ph.hierarchy_name ILIKE ?", "%"+q.Category+"%")
	}
	if q.Gender != "" {
		sel = sel.Where("p.gender = ?", q.Gender)
	}
	if q.Brand != "" {
		sel = sel.Where("p.brand_name ILIKE ?", "%"+q.Brand+"%")
	}
	if len(q.Brands) > 0 {
		sel = sel.Where("p.brand_name IN (?)", bun.In(q.Brands))
	}
	if len(q.Types) > 0 {
		sel = sel.Where("p.product_type IN (?)", bun.In(q.Types))
	}
	if q.PriceMin.Valid || q.PriceMax.Valid {
		sel = sel.
			Join("JOIN retail.product_variant AS pv ON pv.product_id = p.product_id").
			Join("JOIN retail.sku AS s ON s.variant_id = pv.variant_id")
		if q.PriceMin.Valid {
			sel = sel.Where("s.price >= ?", q.PriceMin.Decimal)
		}
		if q.PriceMax.Valid {
			sel = sel.Where("s.price <= ?", q.PriceMax.Decimal)
		}
	}

	err := sel.Distinct().Limit(limit).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: search products: %w", err)
	}
	return products, nil
}

func (s *PGStore) GetProduct(ctx context.Context, productID int64) (*Product, error) {
	product := new(Product)
	err := s.db.NewSelect().
		Model(product).
		Where("p.product_id = ?", productID).
		Scan(ctx)
	if err != nil {
		return nil, wrapErr("get product", err)
	}
	return product, nil
}

func (s *PGStore) ProductsByIDs(ctx context.Context, ids []int64) ([]Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []Product
	err := s.db.NewSelect().
		Model(&products).
		Where("p.product_id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: products by ids: %w", err)
	}
	return products, nil
}

func (s *PGStore) LowestActivePrice(ctx context.Context, productID int64) (decimal.NullDecimal, error) {
	var price decimal.NullDecimal
	err := s.db.NewSelect().
		Model((*SKU)(nil)).
		ColumnExpr("MIN(s.price)").
		Join("JOIN retail.product_variant AS pv ON pv.variant_id = s.variant_id").
		Where("pv.product_id = ?", productID).
		Where("s.status = ?", StatusActive).
		Scan(ctx, &price)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("store: lowest price: %w", err)
	}
	return price, nil
}

func (s *PGStore) AverageRating(ctx context.Context, productID int64) (float64, bool, error) {
	var avg sql.NullFloat64
	err := s.db.NewSelect().
		Model((*Review)(nil)).
		ColumnExpr("AVG(r.rating)").
		Where("r.product_id = ?", productID).
		Scan(ctx, &avg)
	if err != nil {
		return 0, false, fmt.Errorf("store: average rating: %w", err)
	}
	return avg.Float64, avg.Valid, nil
}

func (s *PGStore) StyleProfileFor(ctx context.Context, customerID int64) (*StyleProfile, error) {
	profile := new(StyleProfile)
	err := s.db.NewSelect().
		Model(profile).
		Where("sp.customer_id = ?", customerID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, wrapErr("style profile", err)
	}
	return profile, nil
}

func (s *PGStore) GetOrder(ctx context.Context, orderID int64) (*Order, error) {
	order := new(Order)
	err := s.db.NewSelect().
		Model(order).
		Where("o.order_id = ?", orderID).
		Scan(ctx)
	if err != nil {
		return nil, wrapErr("get order", err)
	}
	return order, nil
}

func (s *PGStore) LatestOrder(ctx context.Context, customerID int64) (*Order, error) {
	order := new(Order)
	err := s.db.NewSelect().
		Model(order).
		Where("o.customer_id = ?", customerID).
		OrderExpr("o.order_date DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, wrapErr("latest order", err)
	}
	return order, nil
}

func (s *PGStore) RecentOrders(ctx context.Context, customerID int64, limit int) ([]Order, error) {
	if limit <= 0 {
		limit = 5
	}
	var orders []Order
	err := s.db.NewSelect().
		Model(&orders).
		Where("o.customer_id = ?", customerID).
		OrderExpr("o.order_date DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: recent orders: %w", err)
	}
	return orders, nil
}

// CreateOrder writes the order header and its line items in one transaction,
// assigning OrderID (and line item OrderIDs) on the way out.
func (s *PGStore) CreateOrder(ctx context.Context, order *Order, items []OrderLineItem) error {
	if order == nil {
		return errors.New("store: order is required")
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().
			Model(order).
			Returning("order_id, order_date").
			Exec(ctx); err != nil {
			return fmt.Errorf("store: insert order: %w", err)
		}
		if len(items) == 0 {
			return nil
		}
		for i := range items {
			items[i].OrderID = order.OrderID
		}
		if _, err := tx.NewInsert().Model(&items).Exec(ctx); err != nil {
			return fmt.Errorf("store: insert line items: %w", err)
		}
		return nil
	})
}

func (s *PGStore) GetReturn(ctx context.Context, returnID int64) (*ReturnRequest, error) {
	ret := new(ReturnRequest)
	err := s.db.NewSelect().
		Model(ret).
		Where("rr.return_id = ?", returnID).
		Scan(ctx)
	if err != nil {
		return nil, wrapErr("get return", err)
	}
	return ret, nil
}

func (s *PGStore) RecentReturns(ctx context.Context, customerID int64, limit int) ([]ReturnRequest, error) {
	if limit <= 0 {
		limit = 5
	}
	var returns []ReturnRequest
	err := s.db.NewSelect().
		Model(&returns).
		Join(`JOIN retail."order" AS o ON o.order_id = rr.order_id`).
		Where("o.customer_id = ?", customerID).
		OrderExpr("rr.requested_date DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: recent returns: %w", err)
	}
	return returns, nil
}

func (s *PGStore) CreateReturn(ctx context.Context, req *ReturnRequest) error {
	if req == nil {
		return errors.New("store: return request is required")
	}
	if _, err := s.db.NewInsert().
		Model(req).
		Returning("return_id, requested_date").
		Exec(ctx); err != nil {
		return fmt.Errorf("store: insert return request: %w", err)
	}
	return nil
}

func (s *PGStore) PurchasedProductIDs(ctx context.Context, customerID int64) ([]int64, error) {
	var ids []int64
	err := s.db.NewSelect().
		ColumnExpr("DISTINCT pv.product_id").
		TableExpr(`retail."order" AS o`).
		Join("JOIN retail.order_line_item AS oli ON oli.order_id = o.order_id").
		Join("JOIN retail.sku AS s ON s.sku_id = oli.sku_id").
		Join("JOIN retail.product_variant AS pv ON pv.variant_id = s.variant_id").
		Where("o.customer_id = ?", customerID).
		Where("o.order_status = ?", OrderStatusCompleted).
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("store: purchased products: %w", err)
	}
	return ids, nil
}

func (s *PGStore) SimilarProducts(ctx context.Context, ref *Product, limit int) ([]Product, error) {
	if ref == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}

	var similar []Product
	err := s.db.NewSelect().
		Model(&similar).
		Where("p.product_id != ?", ref.ProductID).
		Where("p.status = ?", StatusActive).
		WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.
				WhereOr("p.hierarchy_id = ?", ref.HierarchyID).
				WhereOr("p.brand_name = ?", ref.BrandName)
		}).
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: similar products: %w", err)
	}
	if len(similar) >= limit {
		return similar, nil
	}

	// Backfill by gender match.
	seen := make([]int64, 0, len(similar)+1)
	seen = append(seen, ref.ProductID)
	for _, p := range similar {
		seen = append(seen, p.ProductID)
	}
	var extra []Product
	err = s.db.NewSelect().
		Model(&extra).
		Where("p.product_id NOT IN (?)", bun.In(seen)).
		Where("p.status = ?", StatusActive).
		Where("p.gender = ?", ref.Gender).
		Limit(limit - len(similar)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: similar products backfill: %w", err)
	}
	return append(similar, extra...), nil
}

func (s *PGStore) ProductsByAffinity(ctx context.Context, exclude []int64, hierarchyIDs []int64, brands []string, limit int) ([]Product, error) {
	if len(hierarchyIDs) == 0 && len(brands) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	var products []Product
	sel := s.db.NewSelect().
		Model(&products).
		Where("p.status = ?", StatusActive)
	if len(exclude) > 0 {
		sel = sel.Where("p.product_id NOT IN (?)", bun.In(exclude))
	}
	sel = sel.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
		if len(hierarchyIDs) > 0 {
			sq = sq.WhereOr("p.hierarchy_id IN (?)", bun.In(hierarchyIDs))
		}
		if len(brands) > 0 {
			sq = sq.WhereOr("p.brand_name IN (?)", bun.In(brands))
		}
		return sq
	})

	if err := sel.Limit(limit).Scan(ctx); err != nil {
		return nil, fmt.Errorf("store: products by affinity: %w", err)
	}
	return products, nil
}

func (s *PGStore) TrendingProducts(ctx context.Context, limit int) ([]Product, error) {
	if limit <= 0 {
		limit = 10
	}
	var products []Product
	err := s.db.NewSelect().
		Model(&products).
		Join("JOIN retail.product_variant AS pv ON pv.product_id = p.product_id").
		Join("JOIN retail.sku AS s ON s.variant_id = pv.variant_id").
		Join("JOIN retail.order_line_item AS oli ON oli.sku_id = s.sku_id").
		Where("p.status = ?", StatusActive).
		GroupExpr("p.product_id").
		OrderExpr("COUNT(oli.line_item_id) DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: trending products: %w", err)
	}
	return products, nil
}

func wrapErr(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("store: %s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("store: %s: %w", op, err)
}
