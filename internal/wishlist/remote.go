package wishlist

import (
	"context"
	"strings"

	"github.com/angelmondragon/cartsync/internal/docstore"
	"github.com/angelmondragon/cartsync/internal/product"
	pkgerrors "github.com/angelmondragon/cartsync/pkg/errors"
	"github.com/angelmondragon/cartsync/pkg/logger"
)

const (
	DuplicateMessage   = "A product with these fields already exists."
	unavailableMessage = "Wishlist is temporarily unavailable."
)

// Remote runs the wishlist's document operations.
type Remote struct {
	store      docstore.Store
	collection string
	logg       *logger.Logger
}

func NewRemote(store docstore.Store, collection string, logg *logger.Logger) (*Remote, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "wishlist remote requires a document store")
	}
	if strings.TrimSpace(collection) == "" {
		collection = DefaultCollection
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Remote{store: store, collection: collection, logg: logg}, nil
}

func (r *Remote) FetchAll(ctx context.Context, ownerID string) ([]Item, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	docs, err := r.store.Query(ctx, r.collection, docstore.Eq(FieldOwner, ownerID))
	if err != nil {
		return nil, unavailable(err)
	}
	items := make([]Item, 0, len(docs))
	for _, doc := range docs {
		item, err := decodeItem(doc)
		if err != nil {
			r.logg.Warn(r.logg.WithField(ctx, "document_id", doc.ID), err.Error())
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// AddUnique saves p unless the owner already has an entry with the same
// name, price and product key.
func (r *Remote) AddUnique(ctx context.Context, ownerID string, p product.Product) (Item, error) {
	if err := requireOwner(ownerID); err != nil {
		return Item{}, err
	}
	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return Item{}, err
	}

	docs, err := r.store.Query(ctx, r.collection, docstore.Normalize([]docstore.Filter{
		docstore.Eq(FieldOwner, ownerID),
		docstore.Eq(FieldName, p.Name),
		docstore.Eq(FieldPrice, p.Price),
		docstore.Eq(FieldProductKey, p.Key),
	})...)
	if err != nil {
		return Item{}, unavailable(err)
	}
	if len(docs) > 0 {
		return Item{}, pkgerrors.New(pkgerrors.CodeDuplicateItem, DuplicateMessage).
			WithDetails(map[string]string{"id": docs[0].ID})
	}

	item := Item{OwnerID: ownerID, ProductKey: p.Key, Name: p.Name, Price: p.Price}
	id, err := r.store.Create(ctx, r.collection, item.fields())
	if err != nil {
		return Item{}, unavailable(err)
	}
	item.ID = id
	return item, nil
}

// RemoveByID deletes one entry. Absent ids succeed.
func (r *Remote) RemoveByID(ctx context.Context, ownerID, id string) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return pkgerrors.New(pkgerrors.CodeInvalidInput, "Item id is required.")
	}
	if err := r.store.Delete(ctx, r.collection, id); err != nil {
		return unavailable(err)
	}
	return nil
}

func requireOwner(ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return pkgerrors.New(pkgerrors.CodeNotAuthenticated, "You must be signed in to use the wishlist.")
	}
	return nil
}

func unavailable(err error) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeRemoteUnavailable, err, unavailableMessage)
}
