package middleware

import (
	"net/http"

	"github.com/angelmondragon/cartsync/api/responses"
	"github.com/angelmondragon/cartsync/internal/session"
	pkgerrors "github.com/angelmondragon/cartsync/pkg/errors"
	"github.com/angelmondragon/cartsync/pkg/logger"
)

// RequireSession rejects requests while nobody is signed in and tags the
// request logger with the current user.
func RequireSession(provider session.Provider, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := provider.CurrentUserID()
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotAuthenticated, "sign in required"))
				return
			}
			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithUserID(ctx, userID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
