package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/cartsync/pkg/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// MintIDToken issues a signed ID token for the given user using the configured TTL.
func MintIDToken(cfg config.AuthConfig, now time.Time, payload IDTokenPayload) (string, error) {
	if cfg.TokenSecret == "" {
		return "", fmt.Errorf("token secret is required")
	}
	if cfg.TokenIssuer == "" {
		return "", fmt.Errorf("token issuer is required")
	}
	if cfg.TokenTTL <= 0 {
		return "", fmt.Errorf("token ttl must be positive")
	}
	userID := strings.TrimSpace(payload.UserID)
	if userID == "" {
		return "", fmt.Errorf("user id is required")
	}

	claims := IDTokenClaims{
		Email: payload.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    cfg.TokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TokenTTL)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString([]byte(cfg.TokenSecret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseIDToken validates the token string and returns typed claims.
func ParseIDToken(cfg config.AuthConfig, tokenString string) (*IDTokenClaims, error) {
	if cfg.TokenSecret == "" {
		return nil, fmt.Errorf("token secret is required")
	}

	claims := &IDTokenClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(cfg.TokenSecret), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(cfg.TokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("token subject is required")
	}
	return claims, nil
}

// Verifier adapts ParseIDToken to the session package's token verifier.
type Verifier struct {
	cfg config.AuthConfig
}

func NewVerifier(cfg config.AuthConfig) *Verifier {
	return &Verifier{cfg: cfg}
}

// VerifyIDToken returns the user id asserted by a valid token.
func (v *Verifier) VerifyIDToken(token string) (string, error) {
	claims, err := ParseIDToken(v.cfg, token)
	if err != nil {
		return "", err
	}
	return claims.UserID(), nil
}
