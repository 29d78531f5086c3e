package cart

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/cartsync/internal/docstore"
	"github.com/angelmondragon/cartsync/internal/product"
	pkgerrors "github.com/angelmondragon/cartsync/pkg/errors"
	"github.com/angelmondragon/cartsync/pkg/logger"
)

const (
	NotFoundMessage    = "Item not found in cart"
	unavailableMessage = "Cart is temporarily unavailable."
	quantityMessage    = "Quantity must be at least 1."
)

// Remote runs the cart's document operations. It never touches the local
// aggregate; callers hand its results to the reconciler.
type Remote struct {
	store      docstore.Store
	collection string
	logg       *logger.Logger
}

func NewRemote(store docstore.Store, collection string, logg *logger.Logger) (*Remote, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart remote requires a document store")
	}
	if strings.TrimSpace(collection) == "" {
		collection = DefaultCollection
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Remote{store: store, collection: collection, logg: logg}, nil
}

// FetchAll returns every line owned by ownerID in store order. Documents
// that cannot be decoded are skipped and logged.
func (r *Remote) FetchAll(ctx context.Context, ownerID string) ([]LineItem, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	docs, err := r.store.Query(ctx, r.collection, docstore.Eq(FieldOwner, ownerID))
	if err != nil {
		return nil, unavailable(err)
	}
	items := make([]LineItem, 0, len(docs))
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

// AddOrIncrement merges quantity into the owner's line for p, creating the
// line when none exists. The stored line price is kept on merge and the
// subtotal is recomputed from it.
func (r *Remote) AddOrIncrement(ctx context.Context, ownerID string, p product.Product, quantity int) (LineItem, error) {
	if err := requireOwner(ownerID); err != nil {
		return LineItem{}, err
	}
	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return LineItem{}, err
	}
	if quantity < 1 {
		return LineItem{}, pkgerrors.New(pkgerrors.CodeInvalidInput, quantityMessage)
	}

	existing, found, err := r.findByProduct(ctx, ownerID, p.Key)
	if err != nil {
		return LineItem{}, err
	}
	if found {
		merged := existing
		merged.Amount = existing.Amount + quantity
		merged.TotalPrice = lineTotal(merged.Price, merged.Amount)
		err := r.store.Update(ctx, r.collection, merged.ID, docstore.Fields{
			FieldAmount:     merged.Amount,
			FieldTotalPrice: docstore.Money(merged.TotalPrice),
		})
		switch {
		case err == nil:
			return merged, nil
		case errors.Is(err, docstore.ErrNotFound):
			// removed underneath us; fall through to a fresh line
		default:
			return LineItem{}, unavailable(err)
		}
	}

	item := LineItem{
		OwnerID:    ownerID,
		ProductKey: p.Key,
		Name:       p.Name,
		Price:      p.Price,
		Amount:     quantity,
		TotalPrice: lineTotal(p.Price, quantity),
	}
	id, err := r.store.Create(ctx, r.collection, item.fields())
	if err != nil {
		return LineItem{}, unavailable(err)
	}
	item.ID = id
	return item, nil
}

// DecrementOrRemove takes one unit off the owner's line for productKey and
// deletes the line when it held a single unit.
func (r *Remote) DecrementOrRemove(ctx context.Context, ownerID, productKey string) (DecrementResult, error) {
	if err := requireOwner(ownerID); err != nil {
		return DecrementResult{}, err
	}
	productKey = strings.TrimSpace(productKey)
	if productKey == "" {
		return DecrementResult{}, pkgerrors.New(pkgerrors.CodeInvalidInput, product.InvalidMessage)
	}

	existing, found, err := r.findByProduct(ctx, ownerID, productKey)
	if err != nil {
		return DecrementResult{}, err
	}
	if !found {
		return DecrementResult{}, pkgerrors.New(pkgerrors.CodeNotFound, NotFoundMessage)
	}

	if existing.Amount <= 1 {
		if err := r.store.Delete(ctx, r.collection, existing.ID); err != nil {
			return DecrementResult{}, unavailable(err)
		}
		return DecrementResult{Item: existing, Removed: true}, nil
	}

	next := existing
	next.Amount = existing.Amount - 1
	next.TotalPrice = lineTotal(next.Price, next.Amount)
	err = r.store.Update(ctx, r.collection, next.ID, docstore.Fields{
		FieldAmount:     next.Amount,
		FieldTotalPrice: docstore.Money(next.TotalPrice),
	})
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return DecrementResult{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, NotFoundMessage)
		}
		return DecrementResult{}, unavailable(err)
	}
	return DecrementResult{Item: next}, nil
}

// RemoveByID deletes a single line. Absent ids succeed.
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

// ClearAll deletes every line owned by ownerID in one all-or-nothing batch.
func (r *Remote) ClearAll(ctx context.Context, ownerID string) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	docs, err := r.store.Query(ctx, r.collection, docstore.Eq(FieldOwner, ownerID))
	if err != nil {
		return unavailable(err)
	}
	if len(docs) == 0 {
		return nil
	}
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID)
	}
	if err := r.store.BatchDelete(ctx, r.collection, ids); err != nil {
		return unavailable(err)
	}
	return nil
}

func (r *Remote) findByProduct(ctx context.Context, ownerID, productKey string) (LineItem, bool, error) {
	docs, err := r.store.Query(ctx, r.collection,
		docstore.Eq(FieldOwner, ownerID),
		docstore.Eq(FieldProductKey, productKey),
	)
	if err != nil {
		return LineItem{}, false, unavailable(err)
	}
	for _, doc := range docs {
		item, err := decodeItem(doc)
		if err != nil {
			r.logg.Warn(r.logg.WithField(ctx, "document_id", doc.ID), err.Error())
			continue
		}
		return item, true, nil
	}
	return LineItem{}, false, nil
}

func requireOwner(ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return pkgerrors.New(pkgerrors.CodeNotAuthenticated, "You must be signed in to use the cart.")
	}
	return nil
}

func unavailable(err error) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeRemoteUnavailable, err, unavailableMessage)
}
