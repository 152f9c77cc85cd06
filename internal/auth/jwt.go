package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dquiroga/ManufactureGo/internal/domain"
	"github.com/dquiroga/ManufactureGo/pkg/clock"
	apperrors "github.com/dquiroga/ManufactureGo/pkg/errors"
	"github.com/dquiroga/ManufactureGo/pkg/middleware"
)

// Token types embedded in claims so a refresh token cannot be used as an
// access token and vice versa.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims are the JWT claims issued by this service.
type Claims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// JWTManager issues and validates HS256 signed token pairs.
type JWTManager struct {
	secret        []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	clock         clock.Clock
}

// NewJWTManager creates a token manager. The clock is injected so expiry
// behavior is testable.
func NewJWTManager(secret string, accessExpiry, refreshExpiry time.Duration, clk clock.Clock) *JWTManager {
	return &JWTManager{
		secret:        []byte(secret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
		clock:         clk,
	}
}

// GenerateTokenPair issues an access and a refresh token for the user.
func (m *JWTManager) GenerateTokenPair(user *domain.User) (*domain.TokenPair, error) {
	access, err := m.sign(user, TokenTypeAccess, m.accessExpiry)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := m.sign(user, TokenTypeRefresh, m.refreshExpiry)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(m.accessExpiry.Seconds()),
	}, nil
}

func (m *JWTManager) sign(user *domain.User, tokenType string, expiry time.Duration) (string, error) {
	now := m.clock.Now()
	claims := Claims{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Validate parses and verifies a token of the expected type.
func (m *JWTManager) Validate(tokenString, wantType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.clock.Now))
	if err != nil {
		return nil, apperrors.Unauthorized("invalid or expired token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, apperrors.Unauthorized("invalid token claims")
	}
	if claims.TokenType != wantType {
		return nil, apperrors.Unauthorized("wrong token type")
	}
	return claims, nil
}

// MiddlewareValidator adapts the manager to the auth middleware, accepting
// only access tokens.
func (m *JWTManager) MiddlewareValidator() middleware.TokenValidator {
	return func(tokenString string) (*middleware.Claims, error) {
		claims, err := m.Validate(tokenString, TokenTypeAccess)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{
			UserID: claims.UserID,
			Email:  claims.Email,
			Role:   claims.Role,
		}, nil
	}
}
