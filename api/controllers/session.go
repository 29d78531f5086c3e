package controllers

import (
	"net/http"

	"github.com/angelmondragon/cartsync/api/responses"
	"github.com/angelmondragon/cartsync/api/validators"
	pkgerrors "github.com/angelmondragon/cartsync/pkg/errors"
	"github.com/angelmondragon/cartsync/pkg/logger"
)

// Sessions is the sign-in surface of the client.
type Sessions interface {
	CurrentUserID() (string, bool)
	SignIn(userID string) error
	SignInWithToken(token string) (string, error)
	SignOut()
}

type signInRequest struct {
	Token  string `json:"token" validate:"required_without=UserID"`
	UserID string `json:"user_id"`
}

type sessionResponse struct {
	UserID   string `json:"user_id,omitempty"`
	SignedIn bool   `json:"signed_in"`
}

func SessionGet(sessions Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := sessions.CurrentUserID()
		responses.WriteSuccess(w, sessionResponse{UserID: userID, SignedIn: ok})
	}
}

// SessionSignIn signs in with an ID token. Raw user ids are accepted only
// when allowRawUserID is set, which the router enables outside production.
func SessionSignIn(sessions Sessions, allowRawUserID bool, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload signInRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var (
			userID string
			err    error
		)
		switch {
		case payload.Token != "":
			userID, err = sessions.SignInWithToken(payload.Token)
		case allowRawUserID:
			userID = payload.UserID
			err = sessions.SignIn(userID)
		default:
			err = pkgerrors.New(pkgerrors.CodeNotAuthenticated, "an id token is required")
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sessionResponse{UserID: userID, SignedIn: true})
	}
}

func SessionSignOut(sessions Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions.SignOut()
		responses.WriteSuccess(w, sessionResponse{})
	}
}
