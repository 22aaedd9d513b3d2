// Package stylist implements the personal styling handler. It enriches the
// LLM prompt with the customer's style profile and a slice of the catalog,
// then mines the generated advice for concrete product mentions.
package stylist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	contractx "github.com/atelierline/concierge/agent/contract"
	"github.com/atelierline/concierge/store"
)

const productPoolLimit = 50

type Handler struct {
	completer contractx.Completer
	system    string
	opts      contractx.CompleteOptions
}

var _ contractx.Handler = (*Handler)(nil)

func New(completer contractx.Completer, system string, opts contractx.CompleteOptions) (*Handler, error) {
	if completer == nil {
		return nil, errors.New("stylist: completer is required")
	}
	return &Handler{completer: completer, system: system, opts: opts}, nil
}

func (h *Handler) Name() contractx.HandlerName {
	return contractx.HandlerStylist
}

func (h *Handler) Process(ctx context.Context, message string, conv contractx.Context, st store.Store) (contractx.AgentResult, error) {
	var profile *store.StyleProfile
	if conv.CustomerID != 0 {
		p, err := st.StyleProfileFor(ctx, conv.CustomerID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return contractx.AgentResult{}, err
		}
		profile = p
	}

	products, err := stylingPool(ctx, st, profile)
	if err != nil {
		return contractx.AgentResult{}, err
	}

	prompt := buildPrompt(message, profile, len(products))
	response, err := h.completer.Complete(ctx, h.system, []contractx.Turn{{
		Role:    contractx.RoleUser,
		Content: prompt,
	}}, h.opts)
	if err != nil {
		return contractx.AgentResult{}, err
	}

	recommended := ExtractRecommendations(response, products)

	actions := []contractx.Action{
		contractx.NewAction("analyzed_style_request").With("details", message),
	}
	if conv.CustomerID != 0 {
		actions = append(actions, contractx.NewAction("retrieved_style_profile").With("customer_id", conv.CustomerID))
	}
	actions = append(actions,
		contractx.NewAction("generated_styling_advice"),
		contractx.NewAction("recommended_products").With("count", len(recommended)),
	)

	return contractx.AgentResult{
		Response:     response,
		ActionsTaken: actions,
		Confidence:   0.85,
		Reasoning:    "Analyzed user request with style profile context",
		Data: map[string]any{
			"recommended_products": productEntries(recommended),
			"style_profile_used":   profile != nil,
		},
	}, nil
}

// stylingPool loads active products to ground the advice, narrowed to the
// customer's preferred brands when a profile names any.
func stylingPool(ctx context.Context, st store.Store, profile *store.StyleProfile) ([]store.Product, error) {
	q := store.ProductQuery{Limit: productPoolLimit}
	if profile != nil && len(profile.BrandPreferences) > 0 {
		q.Brands = profile.BrandPreferences
	}
	return st.SearchProducts(ctx, q)
}

func buildPrompt(message string, profile *store.StyleProfile, poolSize int) string {
	var styleContext string
	if profile != nil {
		priceRange := "not specified"
		if profile.PriceRangeMin.Valid || profile.PriceRangeMax.Valid {
			priceRange = fmt.Sprintf("$%s - $%s",
				nullDecimalString(profile.PriceRangeMin), nullDecimalString(profile.PriceRangeMax))
		}
		styleContext = fmt.Sprintf(`
Customer Style Profile:
- Favorite Colors: %s
- Style Preferences: %v
- Price Range: %s
- Brand Preferences: %s
- Occasion Preferences: %s
`,
			strings.Join(profile.FavoriteColors, ", "),
			profile.StylePreferences,
			priceRange,
			strings.Join(profile.BrandPreferences, ", "),
			strings.Join(profile.OccasionPreferences, ", "),
		)
	}

	return fmt.Sprintf(`User request: %s

%s

Based on this request, provide:
1. Personalized styling advice
2. Specific product recommendations (if applicable)
3. Outfit suggestions
4. Tips for the occasion/style mentioned

Available products context: %d products available in catalog.`, message, styleContext, poolSize)
}

// ExtractRecommendations returns the products whose name, brand, or type
// appears verbatim in the generated advice, capped at five.
func ExtractRecommendations(response string, products []store.Product) []store.Product {
	lower := strings.ToLower(response)
	var recommended []store.Product
	for _, p := range products {
		if containsAny(lower, p.ProductName, p.BrandName, p.ProductType) {
			recommended = append(recommended, p)
			if len(recommended) == 5 {
				break
			}
		}
	}
	return recommended
}

func containsAny(lower string, terms ...string) bool {
	for _, t := range terms {
		if t != "" && strings.Contains(lower, strings.ToLower(t)) {
			return true
		}
	}
	return false
}

func productEntries(products []store.Product) []map[string]any {
	entries := make([]map[string]any, 0, len(products))
	for _, p := range products {
		entries = append(entries, map[string]any{
			"product_id":   p.ProductID,
			"product_name": p.ProductName,
			"brand_name":   p.BrandName,
			"product_type": p.ProductType,
			"gender":       p.Gender,
		})
	}
	return entries
}

func nullDecimalString(d decimal.NullDecimal) string {
	if !d.Valid {
		return "?"
	}
	return d.Decimal.StringFixed(2)
}
