package product

import (
	"testing"

	pkgerrors "github.com/angelmondragon/cartsync/pkg/errors"
	"github.com/shopspring/decimal"
)

func TestValidateAcceptsCompleteProduct(t *testing.T) {
	p := Product{Key: "B0001", Name: "Desk lamp", Price: decimal.RequireFromString("19.99")}
	if err := p.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsMissingFields(t *testing.T) {
	cases := []struct {
		name  string
		p     Product
		field string
	}{
		{name: "missing key", p: Product{Name: "Lamp", Price: decimal.NewFromInt(1)}, field: "asin"},
		{name: "missing name", p: Product{Key: "B1", Price: decimal.NewFromInt(1)}, field: "name"},
		{name: "zero price", p: Product{Key: "B1", Name: "Lamp"}, field: "price"},
		{name: "negative price", p: Product{Key: "B1", Name: "Lamp", Price: decimal.NewFromInt(-3)}, field: "price"},
	}

	for _, tc := range cases {
		err := tc.p.Validate()
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeInvalidInput {
			t.Fatalf("%s: expected invalid input, got %v", tc.name, err)
		}
		if typed.Message() != InvalidMessage {
			t.Fatalf("%s: unexpected message %q", tc.name, typed.Message())
		}
		details, _ := typed.Details().(map[string]string)
		if _, ok := details[tc.field]; !ok {
			t.Fatalf("%s: expected details for %s, got %v", tc.name, tc.field, details)
		}
	}
}

func TestNormalizeTrims(t *testing.T) {
	p := Product{Key: "  B1 ", Name: "\tLamp\n"}.Normalize()
	if p.Key != "B1" || p.Name != "Lamp" {
		t.Fatalf("unexpected normalized product %+v", p)
	}
	if err := (Product{Key: "  ", Name: "Lamp", Price: decimal.NewFromInt(1)}).Normalize().Validate(); err == nil {
		t.Fatalf("blank key should fail after normalization")
	}
}
