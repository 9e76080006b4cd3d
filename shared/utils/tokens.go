package utils

import (
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// AccessTokenTTL is the access token lifetime.
	AccessTokenTTL = 15 * time.Minute
	// RefreshTokenTTL is the refresh token lifetime.
	RefreshTokenTTL = 30 * 24 * time.Hour
)

// TokenClaims is the payload of both token kinds: the account identifier
// plus standard expiry claims.
type TokenClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies access and refresh tokens with two
// independently configured HMAC secrets, so a leaked refresh secret cannot
// mint access tokens and vice versa.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewTokenService builds a token service from explicit secrets.
func NewTokenService(accessSecret, refreshSecret string) *TokenService {
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     AccessTokenTTL,
		refreshTTL:    RefreshTokenTTL,
	}
}

// NewTokenServiceFromEnv reads JWT_ACCESS_SECRET and JWT_REFRESH_SECRET.
func NewTokenServiceFromEnv() (*TokenService, error) {
	accessSecret := os.Getenv("JWT_ACCESS_SECRET")
	refreshSecret := os.Getenv("JWT_REFRESH_SECRET")
	if accessSecret == "" || refreshSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must be set")
	}
	return NewTokenService(accessSecret, refreshSecret), nil
}

// IssueAccessToken signs a short-lived access token for an account.
func (ts *TokenService) IssueAccessToken(userID uuid.UUID) (string, error) {
	return ts.issue(userID, ts.accessSecret, ts.accessTTL)
}

// IssueRefreshToken signs a long-lived refresh token for an account.
func (ts *TokenService) IssueRefreshToken(userID uuid.UUID) (string, error) {
	return ts.issue(userID, ts.refreshSecret, ts.refreshTTL)
}

// VerifyAccessToken validates an access token and returns the account ID.
func (ts *TokenService) VerifyAccessToken(tokenString string) (uuid.UUID, error) {
	return ts.verify(tokenString, ts.accessSecret)
}

// VerifyRefreshToken validates a refresh token and returns the account ID.
func (ts *TokenService) VerifyRefreshToken(tokenString string) (uuid.UUID, error) {
	return ts.verify(tokenString, ts.refreshSecret)
}

func (ts *TokenService) issue(userID uuid.UUID, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (ts *TokenService) verify(tokenString string, secret []byte) (uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("token validation failed: %w", err)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return uuid.Nil, fmt.Errorf("token is invalid")
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid user_id claim: %w", err)
	}
	return userID, nil
}
