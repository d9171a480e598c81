package services

import (
	"errors"
	"time"

	"github.com/fitstack/fitstack-backend/internal/config"
	"github.com/fitstack/fitstack-backend/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken covers every access-token failure: malformed, bad
// signature, wrong algorithm, expired. Collapsed on purpose so callers leak
// nothing about which check failed.
var ErrInvalidToken = errors.New("invalid or expired token")

// TokenClaims are the verified contents of an access token.
type TokenClaims struct {
	Email     string
	UserID    uint
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenService issues and verifies signed access tokens. Refresh tokens are
// opaque values owned by RefreshStore; this service only deals with JWTs.
type TokenService struct {
	secret           []byte
	accessExpiry     time.Duration
	rememberMeExpiry time.Duration
}

func NewTokenService(cfg *config.Config) *TokenService {
	return &TokenService{
		secret:           []byte(cfg.JWTSecret),
		accessExpiry:     cfg.JWTAccessExpiry,
		rememberMeExpiry: cfg.JWTRememberMeExpiry,
	}
}

// Issue creates a signed access token for the user. Every token carries a
// fresh jti so it can be individually blacklisted later.
func (s *TokenService) Issue(user *models.User, rememberMe bool) (string, error) {
	now := time.Now()
	expiry := s.accessExpiry
	if rememberMe {
		expiry = s.rememberMeExpiry
	}

	claims := jwt.MapClaims{
		"sub":     user.Email,
		"user_id": float64(user.ID),
		"jti":     uuid.New().String(),
		"iat":     now.Unix(),
		"exp":     now.Add(expiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// AccessExpiry returns the standard access-token lifetime in seconds, for
// the expires_in response field.
func (s *TokenService) AccessExpiry() int64 {
	return int64(s.accessExpiry.Seconds())
}

// Verify checks signature and expiry and returns the claims. Used by the
// request gate; a token past its exp is rejected here.
func (s *TokenService) Verify(tokenStr string) (*TokenClaims, error) {
	parsed, err := jwt.Parse(tokenStr, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return s.extractClaims(parsed)
}

// Decode checks the signature but not expiry. Logout and account deletion
// need to read the jti out of tokens that may already be past their exp.
func (s *TokenService) Decode(tokenStr string) (*TokenClaims, error) {
	parsed, err := jwt.Parse(tokenStr, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, ErrInvalidToken
	}
	return s.extractClaims(parsed)
}

func (s *TokenService) keyFunc(t *jwt.Token) (interface{}, error) {
	return s.secret, nil
}

func (s *TokenService) extractClaims(token *jwt.Token) (*TokenClaims, error) {
	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	email, _ := mc["sub"].(string)
	jti, _ := mc["jti"].(string)
	userID, ok := mc["user_id"].(float64)
	if email == "" || jti == "" || !ok {
		return nil, ErrInvalidToken
	}

	claims := &TokenClaims{
		Email:   email,
		UserID:  uint(userID),
		TokenID: jti,
	}
	if iat, ok := mc["iat"].(float64); ok {
		claims.IssuedAt = time.Unix(int64(iat), 0)
	}
	if exp, ok := mc["exp"].(float64); ok {
		claims.ExpiresAt = time.Unix(int64(exp), 0)
	}
	return claims, nil
}
