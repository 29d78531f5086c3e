package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeInvalidInput, status: http.StatusBadRequest, publicMsg: "invalid product data", detailsOK: true},
		{code: CodeNotAuthenticated, status: http.StatusUnauthorized, publicMsg: "sign in required"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "item not found"},
		{code: CodeDuplicateItem, status: http.StatusConflict, publicMsg: "item already exists"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "operation not allowed in current state", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal error", retryable: true},
		{code: CodeRemoteUnavailable, status: http.StatusServiceUnavailable, publicMsg: "remote store unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeInvalidInput, "Invalid product data.")
	if base.Code() != CodeInvalidInput {
		t.Fatalf("expected invalid input code, got %s", base.Code())
	}
	if base.Message() != "Invalid product data." {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	base.WithDetails(map[string]any{"field": "price"})
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("deadline exceeded")
	wrapped := Wrap(CodeRemoteUnavailable, cause, "fetch cart")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeRemoteUnavailable {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeDuplicateItem, "exists"))
	if got := As(err); got == nil || got.Code() != CodeDuplicateItem {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
	if !Is(err, CodeDuplicateItem) {
		t.Fatalf("Is should match wrapped code")
	}
	if CodeOf(stdErrors.New("plain")) != CodeInternal {
		t.Fatalf("untyped errors should report internal")
	}
}

func TestReasonPrefersTypedMessage(t *testing.T) {
	if got := Reason(New(CodeNotFound, "Item not found in cart")); got != "Item not found in cart" {
		t.Fatalf("unexpected reason %q", got)
	}
	if got := Reason(stdErrors.New("socket closed")); got != "socket closed" {
		t.Fatalf("unexpected reason %q", got)
	}
	if Reason(nil) != "" {
		t.Fatalf("nil error should have empty reason")
	}
}
