// Package recommender implements the product recommendation handler. Three
// strategies are tried in priority order by available context: similarity to
// a reference product, the customer's purchase history, then trending items.
// Every strategy falls back to trending when its input yields no candidates.
package recommender

import (
	"context"
	"errors"
	"fmt"
	"strings"

	contractx "github.com/atelierline/concierge/agent/contract"
	"github.com/atelierline/concierge/store"
)

const (
	similarLimit  = 5
	trendingLimit = 10
	topShown      = 5
)

// Recommendation is one scored catalog entry surfaced to the caller.
type Recommendation struct {
	ProductID   int64    `json:"product_id"`
	ProductName string   `json:"product_name"`
	BrandName   string   `json:"brand_name"`
	ProductType string   `json:"product_type"`
	PriceFrom   *string  `json:"price_from,omitempty"`
	Rating      *float64 `json:"rating,omitempty"`
}

type Handler struct {
	system string
}

var _ contractx.Handler = (*Handler)(nil)

func New(system string) *Handler {
	return &Handler{system: system}
}

func (h *Handler) Name() contractx.HandlerName {
	return contractx.HandlerRecommender
}

func (h *Handler) Process(ctx context.Context, message string, conv contractx.Context, st store.Store) (contractx.AgentResult, error) {
	var (
		products []store.Product
		strategy string
		err      error
	)

	switch {
	case conv.ProductID != 0:
		strategy = "product"
		products, err = h.byProduct(ctx, st, conv.ProductID)
	case conv.CustomerID != 0:
		strategy = "customer"
		products, err = h.byHistory(ctx, st, conv.CustomerID)
	default:
		strategy = "trending"
		products, err = st.TrendingProducts(ctx, trendingLimit)
	}
	if err != nil {
		return contractx.AgentResult{}, err
	}

	if len(products) == 0 && strategy != "trending" {
		strategy = "trending"
		products, err = st.TrendingProducts(ctx, trendingLimit)
		if err != nil {
			return contractx.AgentResult{}, err
		}
	}

	recommendations, err := enrich(ctx, st, products)
	if err != nil {
		return contractx.AgentResult{}, err
	}

	actions := []contractx.Action{
		contractx.NewAction("generated_recommendations").With("count", len(recommendations)),
	}
	if conv.CustomerID != 0 {
		actions = append(actions, contractx.NewAction("analyzed_preferences"))
	}

	return contractx.AgentResult{
		Response:     formatRecommendations(recommendations),
		ActionsTaken: actions,
		Confidence:   0.85,
		Reasoning:    fmt.Sprintf("Generated %d personalized recommendations", len(recommendations)),
		Data: map[string]any{
			"recommendations": recommendations,
			"type":            strategy,
		},
	}, nil
}

func (h *Handler) byProduct(ctx context.Context, st store.Store, productID int64) ([]store.Product, error) {
	ref, err := st.GetProduct(ctx, productID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return st.SimilarProducts(ctx, ref, similarLimit)
}

// byHistory recommends from the categories and brands of the customer's
// completed orders, excluding already-purchased products.
func (h *Handler) byHistory(ctx context.Context, st store.Store, customerID int64) ([]store.Product, error) {
	purchased, err := st.PurchasedProductIDs(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if len(purchased) == 0 {
		return nil, nil
	}

	owned, err := st.ProductsByIDs(ctx, purchased)
	if err != nil {
		return nil, err
	}

	hierarchyIDs := make([]int64, 0, len(owned))
	brands := make([]string, 0, len(owned))
	for _, p := range owned {
		if p.HierarchyID != 0 {
			hierarchyIDs = append(hierarchyIDs, p.HierarchyID)
		}
		if p.BrandName != "" {
			brands = append(brands, p.BrandName)
		}
	}

	return st.ProductsByAffinity(ctx, purchased, hierarchyIDs, brands, trendingLimit)
}

func enrich(ctx context.Context, st store.Store, products []store.Product) ([]Recommendation, error) {
	recommendations := make([]Recommendation, 0, len(products))
	for i := range products {
		p := &products[i]
		rec := Recommendation{
			ProductID:   p.ProductID,
			ProductName: p.ProductName,
			BrandName:   p.BrandName,
			ProductType: p.ProductType,
		}

		price, err := st.LowestActivePrice(ctx, p.ProductID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		if price.Valid {
			s := price.Decimal.StringFixed(2)
			rec.PriceFrom = &s
		}

		rating, ok, err := st.AverageRating(ctx, p.ProductID)
		if err != nil {
			return nil, err
		}
		if ok {
			rec.Rating = &rating
		}

		recommendations = append(recommendations, rec)
	}
	return recommendations, nil
}

func formatRecommendations(recommendations []Recommendation) string {
	if len(recommendations) == 0 {
		return "I couldn't find any recommendations at the moment. Try browsing our catalog!"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Here are %d recommendations for you:\n\n", len(recommendations))

	shown := recommendations
	if len(shown) > topShown {
		shown = shown[:topShown]
	}
	for i, rec := range shown {
		priceStr := "Price varies"
		if rec.PriceFrom != nil {
			priceStr = "from $" + *rec.PriceFrom
		}
		ratingStr := ""
		if rec.Rating != nil {
			ratingStr = fmt.Sprintf(" ⭐ %.1f", *rec.Rating)
		}
		fmt.Fprintf(&b, "%d. %s by %s - %s%s\n", i+1, rec.ProductName, rec.BrandName, priceStr, ratingStr)
	}

	if len(recommendations) > topShown {
		fmt.Fprintf(&b, "\n... and %d more recommendations!", len(recommendations)-topShown)
	}
	return b.String()
}
