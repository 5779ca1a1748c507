package common

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", "linkcamp", time.Hour)

	token, err := m.GenerateToken("uid-1", " Alice@Campus.edu")
	require.NoError(t, err)

	claims, err := m.ValidToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice@campus.edu", claims.Email)
	assert.Equal(t, "uid-1", claims.Subject)
}

func TestJWTManager_Rejects(t *testing.T) {
	m := NewJWTManager("test-secret", "linkcamp", time.Hour)

	other := NewJWTManager("other-secret", "linkcamp", time.Hour)
	foreign, err := other.GenerateToken("uid", "a@b.edu")
	require.NoError(t, err)
	_, err = m.ValidToken(foreign)
	assert.Error(t, err)

	wrongIssuer := NewJWTManager("test-secret", "elsewhere", time.Hour)
	tok, err := wrongIssuer.GenerateToken("uid", "a@b.edu")
	require.NoError(t, err)
	_, err = m.ValidToken(tok)
	assert.Error(t, err)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Email: "a@b.edu",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "linkcamp",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = m.ValidToken(signed)
	assert.Error(t, err)

	_, err = m.ValidToken("garbage")
	assert.Error(t, err)
}

func TestJWTManager_NoSecret(t *testing.T) {
	_, err := NewJWTManager("", "linkcamp", 0).GenerateToken("uid", "a@b.edu")
	assert.Error(t, err)
}
