package contract

import "testing"

func TestParseHandlerName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw    string
		want   HandlerName
		wantOK bool
	}{
		{"checkout", HandlerCheckout, true},
		{"  Returns \n", HandlerReturns, true},
		{"STYLIST", HandlerStylist, true},
		{"", "", false},
		{"shipping", "", false},
		{"the search handler", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseHandlerName(tc.raw)
		if got != tc.want || ok != tc.wantOK {
			t.Fatalf("ParseHandlerName(%q) = %q, %v; want %q, %v", tc.raw, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestHandlerNamesCoversEveryConstant(t *testing.T) {
	t.Parallel()

	names := HandlerNames()
	if len(names) != 6 {
		t.Fatalf("len = %d, want 6", len(names))
	}
	seen := map[HandlerName]bool{}
	for _, name := range names {
		if seen[name] {
			t.Fatalf("duplicate name %q", name)
		}
		seen[name] = true
		if _, ok := ParseHandlerName(string(name)); !ok {
			t.Fatalf("name %q does not parse", name)
		}
	}
}

func TestActionWith(t *testing.T) {
	t.Parallel()

	a := NewAction("created_order").With("order_id", int64(42))
	if a["action"] != "created_order" {
		t.Fatalf("action = %v", a["action"])
	}
	if a["order_id"] != int64(42) {
		t.Fatalf("order_id = %v", a["order_id"])
	}
}
