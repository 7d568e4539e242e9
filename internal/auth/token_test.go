package auth

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/console-access/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", "console", 15*time.Minute)

	token, issuedAt, expiresAt, err := tm.GenerateToken("sess-1", "user-1", domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, expiresAt.Sub(issuedAt))

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", claims.SessionID())
	assert.Equal(t, "user-1", claims.UserID())
	assert.Equal(t, domain.RoleAdmin, claims.Role)
}

func TestParseTokenRejects(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tm := NewTokenManager("secret", "console", time.Minute).WithClock(func() time.Time { return now })

	valid, _, _, err := tm.GenerateToken("sess-1", "user-1", domain.RoleUser)
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		later := tm.WithClock(func() time.Time { return now.Add(2 * time.Minute) })
		_, err := later.ParseToken(valid)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenManager("other", "console", time.Minute).WithClock(func() time.Time { return now })
		_, err := other.ParseToken(valid)
		assert.Error(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewTokenManager("secret", "elsewhere", time.Minute).WithClock(func() time.Time { return now })
		_, err := other.ParseToken(valid)
		assert.Error(t, err)
	})

	t.Run("unsigned", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
			Role: domain.RoleAdmin,
			RegisteredClaims: jwt.RegisteredClaims{
				ID: "sess-1", Subject: "user-1", Issuer: "console",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
			},
		})
		raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = tm.ParseToken(raw)
		assert.Error(t, err)
	})

	t.Run("missing session id", func(t *testing.T) {
		token, _, _, err := tm.GenerateToken("", "user-1", domain.RoleUser)
		require.NoError(t, err)
		_, err = tm.ParseToken(token)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := tm.ParseToken("not-a-jwt")
		assert.Error(t, err)
	})
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "s3cret"))
	assert.ErrorIs(t, ComparePassword(hash, "wrong"), ErrPasswordMismatch)
	assert.ErrorIs(t, ComparePassword("", "s3cret"), ErrPasswordMismatch)
	assert.ErrorIs(t, ComparePassword("not-a-hash", "s3cret"), ErrPasswordMismatch)

	cost, err := bcrypt.Cost([]byte(mustHash(t, "s3cret", 0)))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}

func mustHash(t *testing.T, password string, cost int) string {
	t.Helper()
	hash, err := HashPassword(password, cost)
	require.NoError(t, err)
	return hash
}
