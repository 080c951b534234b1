package ws

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var authSecret = []byte("mock-signing-secret")

func signToken(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return token
}

func TestValidateToken(t *testing.T) {
	token := signToken(t, authSecret, jwt.MapClaims{
		"sub": "client-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	parsed, err := ValidateToken(token, authSecret)
	require.NoError(t, err)
	assert.True(t, parsed.Valid)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	token := signToken(t, []byte("somebody-else"), jwt.MapClaims{"sub": "client-1"})

	_, err := ValidateToken(token, authSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	token := signToken(t, authSecret, jwt.MapClaims{
		"sub": "client-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	_, err := ValidateToken(token, authSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestBearerAuthenticator(t *testing.T) {
	token := signToken(t, authSecret, jwt.MapClaims{"sub": "client-1"})
	authenticate := BearerAuthenticator(authSecret)

	tests := []struct {
		name   string
		target string
		header string
		want   bool
	}{
		{"authorization header", "/ws", "Bearer " + token, true},
		{"query parameter", "/ws?token=" + token, "", true},
		{"missing token", "/ws", "", false},
		{"wrong scheme", "/ws", "Basic " + token, false},
		{"garbage token", "/ws?token=not-a-jwt", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "http://mock.local"+tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			ok, err := authenticate(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}
