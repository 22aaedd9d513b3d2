// Package search implements the catalog search handler. It parses the
// message into a product query, runs it, and formats the top results.
package search

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	contractx "github.com/atelierline/concierge/agent/contract"
	matchx "github.com/atelierline/concierge/agent/handlers/internal/match"
	"github.com/atelierline/concierge/store"
)

const (
	resultLimit = 20
	topShown    = 5
)

// stopWords are dropped before the remaining tokens become search keywords.
var stopWords = map[string]struct{}{
	"find": {}, "show": {}, "me": {}, "looking": {}, "for": {}, "want": {},
	"need": {}, "search": {}, "get": {}, "i": {}, "am": {}, "a": {}, "an": {},
	"the": {}, "please": {}, "can": {}, "you": {}, "help": {},
}

var (
	womenWords = []string{"women", "womens", "female", "ladies"}
	menWords   = []string{"men", "mens", "male", "guys"}

	// categories checked in order, first match wins.
	categories = []string{"dress", "shirt", "pants", "shoes", "jacket", "accessories"}

	priceRe = regexp.MustCompile(`\$?(\d+)`)
)

type Handler struct {
	system string
}

var _ contractx.Handler = (*Handler)(nil)

func New(system string) *Handler {
	return &Handler{system: system}
}

func (h *Handler) Name() contractx.HandlerName {
	return contractx.HandlerSearch
}

func (h *Handler) Process(ctx context.Context, message string, conv contractx.Context, st store.Store) (contractx.AgentResult, error) {
	q := ParseQuery(message)
	q.Limit = resultLimit

	products, err := st.SearchProducts(ctx, q)
	if err != nil {
		return contractx.AgentResult{}, err
	}

	results := make([]map[string]any, 0, len(products))
	for i := range products {
		p := &products[i]
		entry := map[string]any{
			"product_id":   p.ProductID,
			"product_name": p.ProductName,
			"brand_name":   p.BrandName,
			"product_type": p.ProductType,
		}
		price, err := st.LowestActivePrice(ctx, p.ProductID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return contractx.AgentResult{}, err
		}
		if price.Valid {
			entry["price_from"] = price.Decimal
		}
		if p.ProductDescription != "" {
			entry["description"] = snippet(p.ProductDescription, 100)
		}
		results = append(results, entry)
	}

	return contractx.AgentResult{
		Response: formatResults(message, results),
		ActionsTaken: []contractx.Action{
			contractx.NewAction("parsed_search_query").With("query", describeQuery(q)),
			contractx.NewAction("executed_database_search"),
			contractx.NewAction("formatted_results").With("count", len(results)),
		},
		Confidence: 0.9,
		Reasoning:  fmt.Sprintf("Found %d products matching search criteria", len(results)),
		Data: map[string]any{
			"products":      results,
			"total_results": len(results),
		},
	}, nil
}

// ParseQuery extracts keywords, gender, a price ceiling, and a category
// hint from the raw message.
func ParseQuery(message string) store.ProductQuery {
	lower := strings.ToLower(message)
	var q store.ProductQuery

	var keywords []string
	for _, w := range strings.Fields(message) {
		if _, skip := stopWords[strings.ToLower(w)]; skip {
			continue
		}
		keywords = append(keywords, w)
		if len(keywords) == 5 {
			break
		}
	}
	q.Keywords = strings.Join(keywords, " ")

	switch {
	case matchx.Any(lower, womenWords...):
		q.Gender = "Women"
	case matchx.Any(lower, menWords...):
		q.Gender = "Men"
	}

	if strings.Contains(lower, "under") || strings.Contains(lower, "less than") {
		if m := priceRe.FindStringSubmatch(message); m != nil {
			if max, err := decimal.NewFromString(m[1]); err == nil {
				q.PriceMax = decimal.NewNullDecimal(max)
			}
		}
	}

	for _, cat := range categories {
		if strings.Contains(lower, cat) {
			q.Category = strings.ToUpper(cat[:1]) + cat[1:]
			break
		}
	}

	return q
}

func describeQuery(q store.ProductQuery) map[string]any {
	desc := map[string]any{}
	if q.Keywords != "" {
		desc["keywords"] = q.Keywords
	}
	if q.Category != "" {
		desc["category"] = q.Category
	}
	if q.Gender != "" {
		desc["gender"] = q.Gender
	}
	if q.PriceMax.Valid {
		desc["price_max"] = q.PriceMax.Decimal
	}
	return desc
}

func formatResults(query string, results []map[string]any) string {
	if len(results) == 0 {
		return fmt.Sprintf("I couldn't find any products matching '%s'. Try adjusting your search terms or filters.", query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "I found %d products matching your search:\n\n", len(results))

	shown := results
	if len(shown) > topShown {
		shown = shown[:topShown]
	}
	for i, product := range shown {
		priceStr := "Price varies"
		if price, ok := product["price_from"].(decimal.Decimal); ok {
			priceStr = "from $" + price.StringFixed(2)
		}
		fmt.Fprintf(&b, "%d. %s by %s - %s\n", i+1, product["product_name"], product["brand_name"], priceStr)
	}

	if len(results) > topShown {
		fmt.Fprintf(&b, "\n... and %d more products. Would you like to see more results or refine your search?", len(results)-topShown)
	}
	return b.String()
}

func snippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
