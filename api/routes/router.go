package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/cartsync/api/controllers"
	"github.com/angelmondragon/cartsync/api/middleware"
	"github.com/angelmondragon/cartsync/pkg/config"
	"github.com/angelmondragon/cartsync/pkg/logger"
)

// Params hold everything the router mounts.
type Params struct {
	Config   *config.Config
	Logger   *logger.Logger
	Sessions controllers.Sessions
	Cart     controllers.CartEngine
	Wishlist controllers.WishlistEngine
	Pingers  map[string]controllers.Pinger
	Gatherer prometheus.Gatherer
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Pingers))
	})

	if p.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/session", func(r chi.Router) {
			r.Get("/", controllers.SessionGet(p.Sessions))
			r.Post("/", controllers.SessionSignIn(p.Sessions, !cfg.App.IsProd(), logg))
			r.Delete("/", controllers.SessionSignOut(p.Sessions))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession(p.Sessions, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartGet(p.Cart))
				r.Delete("/", controllers.CartClear(p.Cart, logg))
				r.Post("/refresh", controllers.CartRefresh(p.Cart, logg))
				r.Post("/items", controllers.CartAddItem(p.Cart, logg))
				r.Post("/items/{productKey}/decrement", controllers.CartDecrementItem(p.Cart, logg))
				r.Delete("/items/{itemId}", controllers.CartRemoveItem(p.Cart, logg))
			})

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", controllers.WishlistGet(p.Wishlist))
				r.Post("/refresh", controllers.WishlistRefresh(p.Wishlist, logg))
				r.Post("/items", controllers.WishlistAddItem(p.Wishlist, logg))
				r.Delete("/items/{itemId}", controllers.WishlistRemoveItem(p.Wishlist, logg))
			})
		})
	})

	return r
}
