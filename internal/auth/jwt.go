package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/openshelf/catalog-service/pkg/middleware"
)

// Claims represents the JWT claims carried by an access token. Tokens are
// issued by the identity service; this package only validates them.
type Claims struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 access tokens and resolves them to actors.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a token verifier using the given shared secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates a token, returning the acting entity. It
// satisfies middleware.TokenVerifier.
func (v *Verifier) Verify(tokenString string) (*middleware.Actor, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid access token claims")
	}

	id := claims.UserID
	if id == "" {
		id = claims.Subject
	}
	if id == "" {
		return nil, fmt.Errorf("access token missing subject")
	}

	return &middleware.Actor{
		ID:    id,
		Name:  claims.Name,
		Email: claims.Email,
		Role:  claims.Role,
	}, nil
}
