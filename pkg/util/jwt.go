package util

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is what the identity provider asserts about the bearer.
type Identity struct {
	UserID string
	Email  string
}

type claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// GenerateJWT signs a token the same way the identity provider does. Used
// by tests and local tooling; the API never issues tokens.
func GenerateJWT(userID, email, secret, audience string, ttl time.Duration) (string, error) {
	now := time.Now()
	c := claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if audience != "" {
		c.Audience = jwt.ClaimStrings{audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString([]byte(secret))
}

// ParseJWT validates the token and extracts the caller identity.
func ParseJWT(tokenStr, secret, audience string) (Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}

	var c claims
	token, err := jwt.ParseWithClaims(tokenStr, &c, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return Identity{}, err
	}
	if !token.Valid {
		return Identity{}, jwt.ErrTokenInvalidClaims
	}
	if c.Subject == "" {
		return Identity{}, errors.New("token has no subject")
	}

	return Identity{UserID: c.Subject, Email: c.Email}, nil
}

func ExtractToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}

	parts := strings.Fields(auth)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return parts[1]
}
