package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/cartsync/api/responses"
	"github.com/angelmondragon/cartsync/api/validators"
	"github.com/angelmondragon/cartsync/internal/product"
	"github.com/angelmondragon/cartsync/internal/wishlist"
	"github.com/angelmondragon/cartsync/pkg/logger"
)

// WishlistEngine is the wishlist surface the bridge exposes.
type WishlistEngine interface {
	Snapshot() wishlist.Aggregate
	Fetch(ctx context.Context) error
	Add(ctx context.Context, p product.Product) (wishlist.Item, error)
	Remove(ctx context.Context, id string) error
}

type addWishlistItemRequest struct {
	Key   string          `json:"asin"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

func WishlistGet(engine WishlistEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, engine.Snapshot())
	}
}

func WishlistRefresh(engine WishlistEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := engine.Fetch(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, engine.Snapshot())
	}
}

// WishlistAddItem saves a product; identical saves answer 409.
func WishlistAddItem(engine WishlistEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload addWishlistItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := engine.Add(r.Context(), product.Product{Key: payload.Key, Name: payload.Name, Price: payload.Price})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"item":     item,
			"wishlist": engine.Snapshot(),
		})
	}
}

func WishlistRemoveItem(engine WishlistEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := engine.Remove(r.Context(), chi.URLParam(r, "itemId")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, engine.Snapshot())
	}
}
