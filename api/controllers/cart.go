package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/cartsync/api/responses"
	"github.com/angelmondragon/cartsync/api/validators"
	"github.com/angelmondragon/cartsync/internal/cart"
	"github.com/angelmondragon/cartsync/internal/product"
	pkgerrors "github.com/angelmondragon/cartsync/pkg/errors"
	"github.com/angelmondragon/cartsync/pkg/logger"
)

// CartEngine is the cart surface the bridge exposes.
type CartEngine interface {
	Snapshot() cart.Aggregate
	Fetch(ctx context.Context) error
	Add(ctx context.Context, p product.Product, quantity int) (cart.LineItem, error)
	Decrement(ctx context.Context, productKey string) (cart.DecrementResult, error)
	Remove(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

type addCartItemRequest struct {
	Key      string          `json:"asin"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity" validate:"omitempty,min=1,max=999"`
}

type cartItemResponse struct {
	Item cart.LineItem  `json:"item"`
	Cart cart.Aggregate `json:"cart"`
}

type decrementResponse struct {
	cart.DecrementResult
	Cart cart.Aggregate `json:"cart"`
}

// CartGet returns the current local cart.
func CartGet(engine CartEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, engine.Snapshot())
	}
}

// CartRefresh reloads the cart from the remote store.
func CartRefresh(engine CartEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := engine.Fetch(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, engine.Snapshot())
	}
}

// CartAddItem adds a product, merging into an existing line.
func CartAddItem(engine CartEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quantity := payload.Quantity
		if quantity == 0 {
			quantity = 1
		}

		item, err := engine.Add(r.Context(), product.Product{Key: payload.Key, Name: payload.Name, Price: payload.Price}, quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, cartItemResponse{Item: item, Cart: engine.Snapshot()})
	}
}

// CartDecrementItem takes one unit off the line for {productKey}.
func CartDecrementItem(engine CartEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := engine.Decrement(r.Context(), chi.URLParam(r, "productKey"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, decrementResponse{DecrementResult: res, Cart: engine.Snapshot()})
	}
}

// CartRemoveItem deletes the line {itemId}.
func CartRemoveItem(engine CartEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "itemId")
		if id == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInvalidInput, "item id is required"))
			return
		}
		if err := engine.Remove(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, engine.Snapshot())
	}
}

// CartClear empties the cart.
func CartClear(engine CartEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := engine.Clear(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, engine.Snapshot())
	}
}
