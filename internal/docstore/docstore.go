// Package docstore defines the remote document store the cart and wishlist
// engines persist to, plus helpers shared by its adapters.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by Update when the target document does not exist.
var ErrNotFound = errors.New("document not found")

// Fields is the flat set of values stored in a document.
type Fields map[string]any

// Document is a stored record with its store-assigned identifier.
type Document struct {
	ID     string
	Fields Fields
}

// Filter is an equality predicate on a single field.
type Filter struct {
	Field string
	Value any
}

// Eq builds an equality filter.
func Eq(field string, value any) Filter {
	return Filter{Field: field, Value: value}
}

// Store is the remote document collection surface. Implementations must be
// safe for concurrent use.
type Store interface {
	// Query returns every document in collection matching all filters.
	Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error)
	// Create stores a new document and returns its assigned id.
	Create(ctx context.Context, collection string, fields Fields) (string, error)
	// Update merges fields into an existing document. Missing documents
	// yield ErrNotFound.
	Update(ctx context.Context, collection, id string, fields Fields) error
	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error
	// BatchDelete removes all ids or none of them.
	BatchDelete(ctx context.Context, collection string, ids []string) error
}

// Clone returns a shallow copy of f.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// String returns the value at key as a string.
func (f Fields) String(key string) string {
	switch v := f[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Int returns the value at key as an int. Stores hand numbers back as int64,
// float64 or json.Number depending on the backend.
func (f Fields) Int(key string) (int, bool) {
	d, ok := f.Decimal(key)
	if !ok || !d.IsInteger() {
		return 0, false
	}
	return int(d.IntPart()), true
}

// Decimal returns the numeric value at key.
func (f Fields) Decimal(key string) (decimal.Decimal, bool) {
	return toDecimal(f[key])
}

// Money converts a price into the representation written to the store.
func Money(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int32:
		return decimal.NewFromInt32(n), true
	case int64:
		return decimal.NewFromInt(n), true
	case float32:
		return floatDecimal(float64(n))
	case float64:
		return floatDecimal(n)
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		return d, err == nil
	default:
		return decimal.Decimal{}, false
	}
}

func floatDecimal(f float64) (decimal.Decimal, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Decimal{}, false
	}
	return decimal.NewFromFloat(f), true
}

// Match reports whether fields satisfy every filter. Numbers compare by value
// regardless of their stored representation.
func Match(fields Fields, filters ...Filter) bool {
	for _, f := range filters {
		if !equalValues(fields[f.Field], f.Value) {
			return false
		}
	}
	return true
}

func equalValues(a, b any) bool {
	da, aNum := toNumber(a)
	db, bNum := toNumber(b)
	if aNum && bNum {
		return da.Equal(db)
	}
	if aNum != bNum {
		return false
	}
	return fmt.Sprint(a) == fmt.Sprint(b) && a != nil && b != nil
}

// toNumber differs from toDecimal in that strings are never numbers.
func toNumber(v any) (decimal.Decimal, bool) {
	if _, ok := v.(string); ok {
		return decimal.Decimal{}, false
	}
	return toDecimal(v)
}

// Normalize rewrites filter values into the representation written by the
// engines so that backends with typed equality (Firestore, Mongo) match.
func Normalize(filters []Filter) []Filter {
	out := make([]Filter, len(filters))
	for i, f := range filters {
		if d, ok := f.Value.(decimal.Decimal); ok {
			f.Value = Money(d)
		}
		out[i] = f
	}
	return out
}
