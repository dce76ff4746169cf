package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastParams() Argon2Params {
	return Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
}

func TestArgon2Hasher(t *testing.T) {
	h := NewArgon2Hasher(fastParams())

	encoded, err := h.Hash("s3cret!")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=1024,t=1,p=1$"))

	assert.True(t, h.Verify("s3cret!", encoded))
	assert.False(t, h.Verify("wrong", encoded))

	again, err := h.Hash("s3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, encoded, again, "salt must differ per hash")

	for _, bad := range []string{"", "plain", "$argon2i$v=19$m=1,t=1,p=1$AA$AA", "$argon2id$v=18$m=1,t=1,p=1$AA$AA"} {
		assert.False(t, h.Verify("s3cret!", bad), bad)
	}
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("0123456789abcdef", "timetrack", time.Hour)
	tok, err := issuer.Issue("user-1")
	require.NoError(t, err)

	sub, err := issuer.Validate(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", sub)
}

func TestTokenIssuer_Rejects(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	issuer := NewTokenIssuer("0123456789abcdef", "timetrack", time.Hour)
	issuer.now = func() time.Time { return now }

	tok, err := issuer.Issue("user-1")
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		issuer.now = func() time.Time { return now.Add(2 * time.Hour) }
		defer func() { issuer.now = func() time.Time { return now } }()
		_, err := issuer.Validate(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other secret", func(t *testing.T) {
		other := NewTokenIssuer("fedcba9876543210", "timetrack", time.Hour)
		other.now = issuer.now
		_, err := other.Validate(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other issuer", func(t *testing.T) {
		other := NewTokenIssuer("0123456789abcdef", "someone-else", time.Hour)
		other.now = issuer.now
		_, err := other.Validate(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("alg none", func(t *testing.T) {
		claims := jwt.RegisteredClaims{Subject: "user-1", Issuer: "timetrack", ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))}
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = issuer.Validate(unsigned)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := issuer.Validate("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
