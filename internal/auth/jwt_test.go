package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims *Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func validClaims() *Claims {
	now := time.Now().UTC()
	return &Claims{
		UserID: "cust-1",
		Name:   "Dana",
		Email:  "dana@example.com",
		Role:   "customer",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "cust-1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
}

func TestVerifyValidToken(t *testing.T) {
	v := NewVerifier(testSecret)

	actor, err := v.Verify(signToken(t, testSecret, validClaims()))
	require.NoError(t, err)

	assert.Equal(t, "cust-1", actor.ID)
	assert.Equal(t, "Dana", actor.Name)
	assert.Equal(t, "customer", actor.Role)
}

func TestVerifyWrongSecret(t *testing.T) {
	v := NewVerifier(testSecret)

	_, err := v.Verify(signToken(t, "other-secret", validClaims()))
	assert.Error(t, err)
}

func TestVerifyExpiredToken(t *testing.T) {
	v := NewVerifier(testSecret)

	claims := validClaims()
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().UTC().Add(-time.Minute))

	_, err := v.Verify(signToken(t, testSecret, claims))
	assert.Error(t, err)
}

func TestVerifyFallsBackToSubject(t *testing.T) {
	v := NewVerifier(testSecret)

	claims := validClaims()
	claims.UserID = ""

	actor, err := v.Verify(signToken(t, testSecret, claims))
	require.NoError(t, err)
	assert.Equal(t, "cust-1", actor.ID)
}

func TestVerifyMissingIdentity(t *testing.T) {
	v := NewVerifier(testSecret)

	claims := validClaims()
	claims.UserID = ""
	claims.Subject = ""

	_, err := v.Verify(signToken(t, testSecret, claims))
	assert.Error(t, err)
}

func TestVerifyGarbageToken(t *testing.T) {
	v := NewVerifier(testSecret)

	_, err := v.Verify("not-a-token")
	assert.Error(t, err)
}
