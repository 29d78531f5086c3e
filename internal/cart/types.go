package cart

import (
	"fmt"

	"github.com/angelmondragon/cartsync/internal/aggregate"
	"github.com/angelmondragon/cartsync/internal/docstore"
	"github.com/shopspring/decimal"
)

const (
	DefaultCollection = "cart"
	engineName        = "cart"
)

// Document field names, shared with existing storefront data.
const (
	FieldOwner      = "uid"
	FieldProductKey = "asin"
	FieldName       = "name"
	FieldPrice      = "price"
	FieldAmount     = "amount"
	FieldTotalPrice = "totalPrice"
)

const (
	FamilyFetch     aggregate.Family = "fetch"
	FamilyAdd       aggregate.Family = "add"
	FamilyDecrement aggregate.Family = "decrement"
	FamilyRemove    aggregate.Family = "remove"
	FamilyClear     aggregate.Family = "clear"
)

// LineItem is one product in the cart. TotalPrice always equals
// Price * Amount.
type LineItem struct {
	ID         string          `json:"id"`
	OwnerID    string          `json:"uid"`
	ProductKey string          `json:"asin"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Amount     int             `json:"amount"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

// DecrementResult is the outcome of DecrementOrRemove. When Removed is set
// Item is the line that was deleted.
type DecrementResult struct {
	Item    LineItem `json:"item"`
	Removed bool     `json:"removed"`
}

// Aggregate is the local view of the signed-in user's cart.
type Aggregate struct {
	Items       []LineItem      `json:"items"`
	TotalAmount int             `json:"totalAmount"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
	aggregate.SyncState
}

func emptyAggregate() Aggregate {
	return Aggregate{Items: []LineItem{}, TotalPrice: decimal.Zero, SyncState: aggregate.Idle()}
}

func cloneAggregate(a Aggregate) Aggregate {
	out := a
	out.Items = append(make([]LineItem, 0, len(a.Items)), a.Items...)
	out.SyncState = a.SyncState.Clone()
	return out
}

// Find returns the line for productKey.
func (a Aggregate) Find(productKey string) (LineItem, bool) {
	for _, item := range a.Items {
		if item.ProductKey == productKey {
			return item, true
		}
	}
	return LineItem{}, false
}

func lineTotal(price decimal.Decimal, amount int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(amount)))
}

func (i LineItem) fields() docstore.Fields {
	return docstore.Fields{
		FieldOwner:      i.OwnerID,
		FieldProductKey: i.ProductKey,
		FieldName:       i.Name,
		FieldPrice:      docstore.Money(i.Price),
		FieldAmount:     i.Amount,
		FieldTotalPrice: docstore.Money(i.TotalPrice),
	}
}

// decodeItem rebuilds a line from its document. The stored totalPrice is
// ignored and re-derived so a drifted document cannot break the invariant.
func decodeItem(doc docstore.Document) (LineItem, error) {
	amount, ok := doc.Fields.Int(FieldAmount)
	if !ok || amount < 1 {
		return LineItem{}, fmt.Errorf("cart document %s has invalid amount %v", doc.ID, doc.Fields[FieldAmount])
	}
	price, ok := doc.Fields.Decimal(FieldPrice)
	if !ok {
		return LineItem{}, fmt.Errorf("cart document %s has invalid price %v", doc.ID, doc.Fields[FieldPrice])
	}
	return LineItem{
		ID:         doc.ID,
		OwnerID:    doc.Fields.String(FieldOwner),
		ProductKey: doc.Fields.String(FieldProductKey),
		Name:       doc.Fields.String(FieldName),
		Price:      price,
		Amount:     amount,
		TotalPrice: lineTotal(price, amount),
	}, nil
}
