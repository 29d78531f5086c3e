package auth

import "github.com/golang-jwt/jwt/v5"

// IDTokenPayload captures the data available when minting an ID token.
type IDTokenPayload struct {
	UserID string
	Email  string
}

// IDTokenClaims is the identity asserted by the sign-in provider. The subject
// is the opaque user id that scopes every cart and wishlist document.
type IDTokenClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the opaque identifier carried in the subject.
func (c *IDTokenClaims) UserID() string {
	if c == nil {
		return ""
	}
	return c.Subject
}
