package services

import (
	"testing"
	"time"

	"github.com/fitstack/fitstack-backend/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestTokenService_IssueAndVerify(t *testing.T) {
	svc := NewTokenService(testConfig())
	user := &models.User{ID: 42, Email: "alice@example.com"}

	token, err := svc.Issue(user, false)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", claims.Email)
	require.Equal(t, uint(42), claims.UserID)
	require.NotEmpty(t, claims.TokenID)
	require.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt, 5*time.Second)
}

func TestTokenService_UniqueTokenID(t *testing.T) {
	svc := NewTokenService(testConfig())
	user := &models.User{ID: 1, Email: "a@example.com"}

	t1, err := svc.Issue(user, false)
	require.NoError(t, err)
	t2, err := svc.Issue(user, false)
	require.NoError(t, err)

	c1, err := svc.Verify(t1)
	require.NoError(t, err)
	c2, err := svc.Verify(t2)
	require.NoError(t, err)
	require.NotEqual(t, c1.TokenID, c2.TokenID)
}

func TestTokenService_RememberMeExtendsExpiry(t *testing.T) {
	svc := NewTokenService(testConfig())
	user := &models.User{ID: 7, Email: "b@example.com"}

	token, err := svc.Issue(user, true)
	require.NoError(t, err)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(720*time.Hour), claims.ExpiresAt, 5*time.Second)
}

func TestTokenService_RejectsTamperedToken(t *testing.T) {
	svc := NewTokenService(testConfig())
	user := &models.User{ID: 1, Email: "a@example.com"}

	token, err := svc.Issue(user, false)
	require.NoError(t, err)

	tampered := token[:len(token)-4] + "AAAA"
	_, err = svc.Verify(tampered)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_RejectsWrongSecret(t *testing.T) {
	user := &models.User{ID: 1, Email: "a@example.com"}
	token, err := NewTokenService(testConfig()).Issue(user, false)
	require.NoError(t, err)

	otherCfg := testConfig()
	otherCfg.JWTSecret = "another-secret-another-secret-32"
	_, err = NewTokenService(otherCfg).Verify(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_RejectsUnsignedAlgorithm(t *testing.T) {
	claims := jwt.MapClaims{
		"sub":     "a@example.com",
		"user_id": float64(1),
		"jti":     "some-jti",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenService(testConfig()).Verify(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_VerifyRejectsExpired(t *testing.T) {
	cfg := testConfig()
	cfg.JWTAccessExpiry = -time.Minute
	svc := NewTokenService(cfg)
	user := &models.User{ID: 1, Email: "a@example.com"}

	token, err := svc.Issue(user, false)
	require.NoError(t, err)

	_, err = svc.Verify(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_DecodeIgnoresExpiry(t *testing.T) {
	cfg := testConfig()
	cfg.JWTAccessExpiry = -time.Minute
	svc := NewTokenService(cfg)
	user := &models.User{ID: 9, Email: "gone@example.com"}

	token, err := svc.Issue(user, false)
	require.NoError(t, err)

	claims, err := svc.Decode(token)
	require.NoError(t, err)
	require.Equal(t, uint(9), claims.UserID)
	require.NotEmpty(t, claims.TokenID)
	require.True(t, claims.ExpiresAt.Before(time.Now()))
}

func TestTokenService_RejectsGarbage(t *testing.T) {
	svc := NewTokenService(testConfig())
	for _, input := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := svc.Verify(input)
		require.ErrorIs(t, err, ErrInvalidToken)
		_, err = svc.Decode(input)
		require.ErrorIs(t, err, ErrInvalidToken)
	}
}

func TestTokenService_AccessExpirySeconds(t *testing.T) {
	cfg := testConfig()
	cfg.JWTAccessExpiry = 15 * time.Minute
	require.Equal(t, int64(900), NewTokenService(cfg).AccessExpiry())
}
