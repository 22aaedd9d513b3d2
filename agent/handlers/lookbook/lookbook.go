// Package lookbook implements the lookbook composer handler. It parses a
// theme, color, and item count from the message, assembles outfit
// combinations from the catalog, and generates a short description.
package lookbook

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"

	contractx "github.com/atelierline/concierge/agent/contract"
	matchx "github.com/atelierline/concierge/agent/handlers/internal/match"
	"github.com/atelierline/concierge/store"
)

const (
	productPoolLimit = 50
	defaultItemCount = 5
	maxItemCount     = 10
)

// theme holds the occasion vocabulary and the product types it pulls from.
// Themes are checked in order, first match wins.
type theme struct {
	name     string
	keywords []string
	types    []string
}

var themes = []theme{
	{"casual", []string{"casual", "everyday", "relaxed"}, []string{"T-Shirts", "Jeans", "Sneakers"}},
	{"formal", []string{"formal", "business", "professional", "office"}, []string{"Dress Shirts", "Dress Pants", "Dress Shoes"}},
	{"party", []string{"party", "night", "evening", "celebration"}, []string{"Dresses", "Heels", "Accessories"}},
	{"vacation", []string{"vacation", "travel", "resort", "beach"}, []string{"Shorts", "Sandals", "Swimwear"}},
	{"wedding", []string{"wedding", "bridal", "ceremony"}, []string{"Dresses", "Formal", "Accessories"}},
}

var colors = []string{"black", "white", "navy", "beige", "red", "blue", "green", "pink"}

var itemCountRe = regexp.MustCompile(`(\d+)\s*(?:items?|pieces?|outfits?)`)

// outfit slots filled one product each, when the pool has a match.
var outfitSlots = []string{"Tops", "Bottoms", "Shoes", "Accessories"}

// Request is the parsed shape of a lookbook message.
type Request struct {
	Theme     string
	Color     string
	ItemCount int
}

// Outfit is a single styled combination within a lookbook.
type Outfit struct {
	OutfitID int             `json:"outfit_id"`
	Products []store.Product `json:"products"`
}

type Handler struct {
	completer contractx.Completer
	system    string
	opts      contractx.CompleteOptions
	pick      func(n int) int
}

var _ contractx.Handler = (*Handler)(nil)

type Option func(*Handler)

// WithPicker overrides the random slot selection, for deterministic tests.
func WithPicker(pick func(n int) int) Option {
	return func(h *Handler) {
		if pick != nil {
			h.pick = pick
		}
	}
}

func New(completer contractx.Completer, system string, opts contractx.CompleteOptions, options ...Option) (*Handler, error) {
	if completer == nil {
		return nil, errors.New("lookbook: completer is required")
	}
	h := &Handler{
		completer: completer,
		system:    system,
		opts:      opts,
		pick:      rand.Intn,
	}
	for _, opt := range options {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

func (h *Handler) Name() contractx.HandlerName {
	return contractx.HandlerLookbook
}

func (h *Handler) Process(ctx context.Context, message string, conv contractx.Context, st store.Store) (contractx.AgentResult, error) {
	req := ParseRequest(message)

	q := store.ProductQuery{Limit: productPoolLimit}
	if req.Theme != "" {
		for _, t := range themes {
			if t.name == req.Theme {
				q.Types = t.types
				break
			}
		}
	}
	products, err := st.SearchProducts(ctx, q)
	if err != nil {
		return contractx.AgentResult{}, err
	}

	outfits := h.compose(products, req.ItemCount)
	description := h.describe(ctx, req, len(outfits))

	return contractx.AgentResult{
		Response: description,
		ActionsTaken: []contractx.Action{
			contractx.NewAction("parsed_lookbook_request").
				With("theme", req.Theme).
				With("color", req.Color).
				With("item_count", req.ItemCount),
			contractx.NewAction("selected_products").With("count", len(products)),
			contractx.NewAction("created_combinations").With("count", len(outfits)),
			contractx.NewAction("generated_description"),
		},
		Confidence: 0.85,
		Reasoning:  fmt.Sprintf("Created lookbook with %d styled combinations", len(outfits)),
		Data: map[string]any{
			"lookbook": map[string]any{
				"title":          "Styled Collection",
				"theme":          req.Theme,
				"items":          outfits,
				"total_products": len(products),
			},
		},
	}, nil
}

// ParseRequest extracts a theme, a color, and a requested outfit count
// from the message.
func ParseRequest(message string) Request {
	lower := strings.ToLower(message)
	req := Request{ItemCount: defaultItemCount}

	for _, t := range themes {
		if matchx.Any(lower, t.keywords...) {
			req.Theme = t.name
			break
		}
	}

	for _, color := range colors {
		if strings.Contains(lower, color) {
			req.Color = color
			break
		}
	}

	if m := itemCountRe.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			req.ItemCount = n
		}
	}
	return req
}

func (h *Handler) compose(products []store.Product, itemCount int) []Outfit {
	if itemCount > maxItemCount {
		itemCount = maxItemCount
	}

	var outfits []Outfit
	for i := 0; i < itemCount; i++ {
		outfit := Outfit{OutfitID: i + 1}
		for _, slot := range outfitSlots {
			matching := matchingSlot(products, slot)
			if len(matching) > 0 {
				outfit.Products = append(outfit.Products, matching[h.pick(len(matching))])
			}
		}
		if len(outfit.Products) > 0 {
			outfits = append(outfits, outfit)
		}
	}
	return outfits
}

func matchingSlot(products []store.Product, slot string) []store.Product {
	lowerSlot := strings.ToLower(slot)
	var matching []store.Product
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.ProductType), lowerSlot) {
			matching = append(matching, p)
		}
	}
	return matching
}

func (h *Handler) describe(ctx context.Context, req Request, count int) string {
	themeName := req.Theme
	if themeName == "" {
		themeName = "styled"
	}
	fallback := fmt.Sprintf("I've created a %s lookbook with %d beautifully styled combinations for you!", themeName, count)

	prompt := fmt.Sprintf(`Create a compelling description for a %s lookbook with %d styled outfits.
Make it inspiring and fashion-forward. Keep it to 2-3 sentences.`, themeName, count)

	description, err := h.completer.Complete(ctx, h.system, []contractx.Turn{{
		Role:    contractx.RoleUser,
		Content: prompt,
	}}, h.opts)
	if err != nil || description == "" {
		return fallback
	}
	return description
}
