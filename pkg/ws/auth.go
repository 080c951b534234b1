package ws

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken reports a token that failed signature or claim checks.
var ErrInvalidToken = errors.New("invalid token")

// BearerAuthenticator builds an Authenticate hook validating HS256 JWTs.
// The token is read from the Authorization header, or from the token query
// parameter since browser WebSocket clients cannot set headers. A missing
// or invalid token rejects the upgrade with a 401; the hook itself never
// errors, so a bad token cannot turn into a 500.
func BearerAuthenticator(secret []byte) func(r *http.Request) (bool, error) {
	return func(r *http.Request) (bool, error) {
		token := bearerToken(r)
		if token == "" {
			return false, nil
		}
		if _, err := ValidateToken(token, secret); err != nil {
			return false, nil
		}
		return true, nil
	}
}

// ValidateToken checks an HS256 token's signature and registered claims.
func ValidateToken(tokenString string, secret []byte) (*jwt.Token, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return token, nil
}

func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return token
		}
	}
	return r.URL.Query().Get("token")
}
