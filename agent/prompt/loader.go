package prompt

import (
	_ "embed"
	"strings"

	contractx "github.com/atelierline/concierge/agent/contract"
)

var (
	//go:embed template/router.txt
	routerRaw string

	//go:embed template/stylist.txt
	stylistRaw string

	//go:embed template/search.txt
	searchRaw string

	//go:embed template/lookbook.txt
	lookbookRaw string

	//go:embed template/checkout.txt
	checkoutRaw string

	//go:embed template/returns.txt
	returnsRaw string

	//go:embed template/recommender.txt
	recommenderRaw string
)

// Set holds the system prompts for the router and every handler.
type Set struct {
	Router      string
	Stylist     string
	Search      string
	Lookbook    string
	Checkout    string
	Returns     string
	Recommender string
}

// LoadSet returns the embedded prompt set with trimmed content.
// Safe to call concurrently; the embed is compile-time, trimming is cheap.
func LoadSet() Set {
	return Set{
		Router:      strings.TrimSpace(routerRaw),
		Stylist:     strings.TrimSpace(stylistRaw),
		Search:      strings.TrimSpace(searchRaw),
		Lookbook:    strings.TrimSpace(lookbookRaw),
		Checkout:    strings.TrimSpace(checkoutRaw),
		Returns:     strings.TrimSpace(returnsRaw),
		Recommender: strings.TrimSpace(recommenderRaw),
	}
}

// For returns the system prompt for a handler.
func (s Set) For(name contractx.HandlerName) string {
	switch name {
	case contractx.HandlerStylist:
		return s.Stylist
	case contractx.HandlerSearch:
		return s.Search
	case contractx.HandlerLookbook:
		return s.Lookbook
	case contractx.HandlerCheckout:
		return s.Checkout
	case contractx.HandlerReturns:
		return s.Returns
	case contractx.HandlerRecommender:
		return s.Recommender
	}
	return ""
}
