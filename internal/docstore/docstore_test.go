package docstore

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestMatchComparesNumbersByValue(t *testing.T) {
	fields := Fields{"uid": "user-1", "asin": "B01", "price": int64(10), "amount": json.Number("2")}

	cases := []struct {
		name    string
		filters []Filter
		want    bool
	}{
		{name: "no filters", want: true},
		{name: "string equality", filters: []Filter{Eq("uid", "user-1"), Eq("asin", "B01")}, want: true},
		{name: "string mismatch", filters: []Filter{Eq("uid", "user-2")}, want: false},
		{name: "float against int", filters: []Filter{Eq("price", 10.0)}, want: true},
		{name: "decimal against int", filters: []Filter{Eq("price", decimal.NewFromInt(10))}, want: true},
		{name: "json number", filters: []Filter{Eq("amount", 2)}, want: true},
		{name: "numeric string is not a number", filters: []Filter{Eq("price", "10")}, want: false},
		{name: "missing field", filters: []Filter{Eq("name", "x")}, want: false},
	}

	for _, tc := range cases {
		if got := Match(fields, tc.filters...); got != tc.want {
			t.Fatalf("%s: expected %v got %v", tc.name, tc.want, got)
		}
	}
}

func TestFieldsAccessors(t *testing.T) {
	fields := Fields{"name": "Desk", "amount": float64(3), "price": "12.50", "bad": 1.5}

	if got := fields.String("name"); got != "Desk" {
		t.Fatalf("unexpected name %q", got)
	}
	if got := fields.String("missing"); got != "" {
		t.Fatalf("missing key should be empty, got %q", got)
	}
	if n, ok := fields.Int("amount"); !ok || n != 3 {
		t.Fatalf("expected amount 3, got %d ok=%v", n, ok)
	}
	if _, ok := fields.Int("bad"); ok {
		t.Fatalf("fractional value should not decode as int")
	}
	d, ok := fields.Decimal("price")
	if !ok || !d.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("unexpected price %s ok=%v", d, ok)
	}
}

func TestNormalizeConvertsDecimals(t *testing.T) {
	in := []Filter{Eq("price", decimal.RequireFromString("9.99")), Eq("uid", "u")}
	out := Normalize(in)
	if v, ok := out[0].Value.(float64); !ok || v != 9.99 {
		t.Fatalf("expected float64 9.99, got %#v", out[0].Value)
	}
	if out[1].Value != "u" {
		t.Fatalf("non decimal values should pass through")
	}
	if _, ok := in[0].Value.(decimal.Decimal); !ok {
		t.Fatalf("input filters must not be mutated")
	}
}

func TestFieldsClone(t *testing.T) {
	orig := Fields{"a": 1}
	cp := orig.Clone()
	cp["a"] = 2
	if orig["a"] != 1 {
		t.Fatalf("clone should not alias the original")
	}
}
