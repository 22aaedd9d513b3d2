package stylist

import (
	"context"
	"strings"
	"testing"

	contractx "github.com/atelierline/concierge/agent/contract"
	"github.com/atelierline/concierge/store"
	"github.com/atelierline/concierge/store/storetest"
)

type stubCompleter struct {
	response   string
	err        error
	lastPrompt string
}

func (s *stubCompleter) Complete(ctx context.Context, systemPrompt string, turns []contractx.Turn, opts contractx.CompleteOptions) (string, error) {
	if len(turns) > 0 {
		s.lastPrompt = turns[len(turns)-1].Content
	}
	return s.response, s.err
}

func TestProcessWithoutProfile(t *testing.T) {
	t.Parallel()

	completer := &stubCompleter{response: "Try a relaxed linen look."}
	h, err := New(completer, "system", contractx.CompleteOptions{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	result, err := h.Process(context.Background(), "what should I wear to brunch?", contractx.Context{}, &storetest.Store{})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if result.Response != "Try a relaxed linen look." {
		t.Fatalf("Response = %q", result.Response)
	}
	if used, _ := result.Data["style_profile_used"].(bool); used {
		t.Fatalf("Data[style_profile_used] = %v, want false", result.Data["style_profile_used"])
	}
	if result.Confidence != 0.85 {
		t.Fatalf("Confidence = %v, want 0.85", result.Confidence)
	}
}

func TestProcessNarrowsPoolToPreferredBrands(t *testing.T) {
	t.Parallel()

	completer := &stubCompleter{response: "advice"}
	h, err := New(completer, "system", contractx.CompleteOptions{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	st := &storetest.Store{
		Profiles: map[int64]*store.StyleProfile{
			7: {
				CustomerID:       7,
				FavoriteColors:   []string{"navy", "white"},
				BrandPreferences: []string{"Atelier", "Maison"},
			},
		},
	}

	result, err := h.Process(context.Background(), "style me for the office", contractx.Context{CustomerID: 7}, st)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if used, _ := result.Data["style_profile_used"].(bool); !used {
		t.Fatalf("Data[style_profile_used] = %v, want true", result.Data["style_profile_used"])
	}
	if len(st.LastQuery.Brands) != 2 {
		t.Fatalf("query brands = %v, want two preferred brands", st.LastQuery.Brands)
	}
	if !strings.Contains(completer.lastPrompt, "navy, white") {
		t.Fatalf("prompt missing favorite colors: %q", completer.lastPrompt)
	}
}

func TestExtractRecommendations(t *testing.T) {
	t.Parallel()

	products := []store.Product{
		{ProductID: 1, ProductName: "Linen Shirt", BrandName: "Atelier", ProductType: "Shirts"},
		{ProductID: 2, ProductName: "Wool Coat", BrandName: "Maison", ProductType: "Outerwear"},
		{ProductID: 3, ProductName: "Silk Scarf", BrandName: "Nimbus", ProductType: "Accessories"},
	}

	got := ExtractRecommendations("I'd pair the Linen Shirt with something from Maison.", products)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ProductID != 1 || got[1].ProductID != 2 {
		t.Fatalf("recommended = %v, want products 1 and 2", got)
	}
}

func TestExtractRecommendationsCap(t *testing.T) {
	t.Parallel()

	var products []store.Product
	for i := int64(1); i <= 8; i++ {
		products = append(products, store.Product{ProductID: i, ProductName: "Linen Shirt", BrandName: "Atelier"})
	}
	got := ExtractRecommendations("the linen shirt is great", products)
	if len(got) != 5 {
		t.Fatalf("len = %d, want 5", len(got))
	}
}
