package util

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestParseJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT("6f1c1b1e-0000-4000-8000-000000000001", "a@example.com", testSecret, "authenticated", time.Hour)
	require.NoError(t, err)

	id, err := ParseJWT(token, testSecret, "authenticated")
	require.NoError(t, err)
	assert.Equal(t, "6f1c1b1e-0000-4000-8000-000000000001", id.UserID)
	assert.Equal(t, "a@example.com", id.Email)
}

func TestParseJWTRejects(t *testing.T) {
	expired, err := GenerateJWT("u1", "", testSecret, "", -time.Minute)
	require.NoError(t, err)
	wrongAud, err := GenerateJWT("u1", "", testSecret, "other", time.Hour)
	require.NoError(t, err)
	noSubject, err := GenerateJWT("", "", testSecret, "", time.Hour)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name     string
		token    string
		secret   string
		audience string
	}{
		{"wrong secret", mustToken(t), "other-secret", ""},
		{"expired", expired, testSecret, ""},
		{"wrong audience", wrongAud, testSecret, "authenticated"},
		{"no subject", noSubject, testSecret, ""},
		{"alg none", none, testSecret, ""},
		{"garbage", "not-a-token", testSecret, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJWT(tt.token, tt.secret, tt.audience)
			assert.Error(t, err)
		})
	}
}

func mustToken(t *testing.T) string {
	t.Helper()
	token, err := GenerateJWT("u1", "", testSecret, "", time.Hour)
	require.NoError(t, err)
	return token
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
		{"", ""},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		assert.Equal(t, tt.want, ExtractToken(r), tt.header)
	}
}
