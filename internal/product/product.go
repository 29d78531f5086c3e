// Package product describes the catalog entry a caller adds to a cart or
// wishlist.
package product

import (
	"reflect"
	"strings"

	pkgerrors "github.com/angelmondragon/cartsync/pkg/errors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// InvalidMessage is the lastError text for rejected product input.
const InvalidMessage = "Invalid product data."

// Product is the input to add operations. Key is the stable catalog
// identifier (an ASIN in the storefront).
type Product struct {
	Key   string          `json:"asin" validate:"required,max=64"`
	Name  string          `json:"name" validate:"required,max=512"`
	Price decimal.Decimal `json:"price" validate:"gt=0"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// Normalize trims identifiers and names.
func (p Product) Normalize() Product {
	p.Key = strings.TrimSpace(p.Key)
	p.Name = strings.TrimSpace(p.Name)
	return p
}

// Validate returns an INVALID_INPUT error naming every offending field.
func (p Product) Validate() error {
	if err := validate.Struct(p); err != nil {
		details := map[string]string{}
		if errs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range errs {
				details[fe.Field()] = message(fe)
			}
		}
		return pkgerrors.Wrap(pkgerrors.CodeInvalidInput, err, InvalidMessage).WithDetails(details)
	}
	return nil
}

// Validator exposes the shared validator so HTTP handlers apply the same rules.
func Validator() *validator.Validate {
	return validate
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	}
	return "is invalid"
}
