package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const secret = "test-secret"

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken(secret, "alice", "admin", 60)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.Exp, 5*time.Second)

	claims, err := ParseAccessToken(secret, tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, "admin", claims.Role)
}

func TestParseAccessTokenRejects(t *testing.T) {
	valid, err := NewAccessToken(secret, "alice", "user", 60)
	require.NoError(t, err)

	// Flip the first character of the signature.
	sig := strings.LastIndex(valid.Token, ".") + 1
	tampered := valid.Token[:sig] + flip(valid.Token[sig:sig+1]) + valid.Token[sig+1:]

	expired, err := NewAccessToken(secret, "alice", "user", -5)
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "alice"}).SignedString([]byte(secret))
	require.NoError(t, err)

	noSub, err := NewAccessToken(secret, "", "user", 60)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "alice", "exp": time.Now().Add(time.Hour).Unix()}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	testCases := map[string]string{
		"tampered signature": tampered,
		"expired":            expired.Token,
		"missing exp":        noExp,
		"missing subject":    noSub.Token,
		"alg none":           none,
		"garbage":            "not.a.jwt",
		"other secret":       mustSign(t, "other-secret"),
	}
	for name, raw := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseAccessToken(secret, raw)
			assert.Error(t, err)
		})
	}
}

func mustSign(t *testing.T, key string) string {
	t.Helper()
	tok, err := NewAccessToken(key, "alice", "user", 60)
	require.NoError(t, err)
	return tok.Token
}

func flip(s string) string {
	if s == "A" {
		return "B"
	}
	return "A"
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("p1", 4)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "p1"))
	assert.False(t, VerifyPassword(hash, "p2"))
	assert.False(t, VerifyPassword("not-a-hash", "p1"))

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, 4, cost, "configured cost is used as given")

	_, err = HashPassword("p1", bcrypt.MaxCost+1)
	assert.Error(t, err)
}
