package wishlist

import (
	"fmt"

	"github.com/angelmondragon/cartsync/internal/aggregate"
	"github.com/angelmondragon/cartsync/internal/docstore"
	"github.com/shopspring/decimal"
)

const (
	DefaultCollection = "wishlist"
	engineName        = "wishlist"
)

const (
	FieldOwner      = "uid"
	FieldProductKey = "asin"
	FieldName       = "name"
	FieldPrice      = "price"
)

const (
	FamilyFetch  aggregate.Family = "fetch"
	FamilyAdd    aggregate.Family = "add"
	FamilyRemove aggregate.Family = "remove"
)

// Item is a saved product. No two documents of one owner share name, price
// and product key.
type Item struct {
	ID         string          `json:"id"`
	OwnerID    string          `json:"uid"`
	ProductKey string          `json:"asin"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
}

// Aggregate is the local view of the signed-in user's wishlist.
type Aggregate struct {
	List []Item `json:"list"`
	aggregate.SyncState
}

func emptyAggregate() Aggregate {
	return Aggregate{List: []Item{}, SyncState: aggregate.Idle()}
}

func cloneAggregate(a Aggregate) Aggregate {
	out := a
	out.List = append(make([]Item, 0, len(a.List)), a.List...)
	out.SyncState = a.SyncState.Clone()
	return out
}

// Contains reports whether productKey is saved.
func (a Aggregate) Contains(productKey string) bool {
	for _, item := range a.List {
		if item.ProductKey == productKey {
			return true
		}
	}
	return false
}

func (i Item) fields() docstore.Fields {
	return docstore.Fields{
		FieldOwner:      i.OwnerID,
		FieldProductKey: i.ProductKey,
		FieldName:       i.Name,
		FieldPrice:      docstore.Money(i.Price),
	}
}

func decodeItem(doc docstore.Document) (Item, error) {
	price, ok := doc.Fields.Decimal(FieldPrice)
	if !ok {
		return Item{}, fmt.Errorf("wishlist document %s has invalid price %v", doc.ID, doc.Fields[FieldPrice])
	}
	return Item{
		ID:         doc.ID,
		OwnerID:    doc.Fields.String(FieldOwner),
		ProductKey: doc.Fields.String(FieldProductKey),
		Name:       doc.Fields.String(FieldName),
		Price:      price,
	}, nil
}
