package validators

import (
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/cartsync/pkg/errors"
)

type quantityRequest struct {
	Quantity int `json:"quantity" validate:"min=1,max=99"`
}

func TestDecodeJSONBodyValidates(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"quantity":0}`))
	var dest quantityRequest
	err := DecodeJSONBody(req, &dest)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInvalidInput {
		t.Fatalf("expected invalid input, got %v", err)
	}
	details, _ := typed.Details().(map[string]string)
	if details["quantity"] != "must be at least 1" {
		t.Fatalf("unexpected details %v", details)
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"quantity":1,"extra":true}`))
	var dest quantityRequest
	if err := DecodeJSONBody(req, &dest); !pkgerrors.Is(err, pkgerrors.CodeInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestDecodeJSONBodyAccepts(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"quantity":3}`))
	var dest quantityRequest
	if err := DecodeJSONBody(req, &dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dest.Quantity != 3 {
		t.Fatalf("unexpected quantity %d", dest.Quantity)
	}
}
