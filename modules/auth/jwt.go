package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token types.
const (
	tokenAccess  = "access"
	tokenRefresh = "refresh"
)

// JWTConfig holds token signing configuration.
type JWTConfig struct {
	SecretKey            string
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
	Issuer               string
}

// DefaultJWTConfig returns development defaults. Deployments override
// SecretKey through JWT_SECRET_KEY.
func DefaultJWTConfig() JWTConfig {
	return JWTConfig{
		SecretKey:            "change-me-in-production",
		AccessTokenDuration:  30 * time.Minute,
		RefreshTokenDuration: 30 * 24 * time.Hour,
		Issuer:               "shopping-list",
	}
}

// TokenClaims are the claims carried by both token types.
type TokenClaims struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	TokenType   string `json:"token_type"`
	jwt.RegisteredClaims
}

// JWTManager issues and checks HS256 tokens.
type JWTManager struct {
	config JWTConfig
	now    func() time.Time
}

// NewJWTManager creates a JWTManager.
func NewJWTManager(config JWTConfig) *JWTManager {
	return &JWTManager{config: config, now: time.Now}
}

// IssuePair issues an access and a refresh token for one account.
func (m *JWTManager) IssuePair(userID, email, displayName string) (string, string, error) {
	access, err := m.sign(userID, email, displayName, tokenAccess, m.config.AccessTokenDuration)
	if err != nil {
		return "", "", err
	}
	refresh, err := m.sign(userID, email, displayName, tokenRefresh, m.config.RefreshTokenDuration)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (m *JWTManager) sign(userID, email, displayName, tokenType string, ttl time.Duration) (string, error) {
	now := m.now()
	claims := TokenClaims{
		UserID:      userID,
		Email:       email,
		DisplayName: displayName,
		TokenType:   tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.config.SecretKey))
}

// parse checks signature, issuer, expiry and token type.
func (m *JWTManager) parse(tokenString, tokenType string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(m.config.SecretKey), nil
	}, jwt.WithIssuer(m.config.Issuer), jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid || claims.TokenType != tokenType {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ParseAccess validates an access token.
func (m *JWTManager) ParseAccess(tokenString string) (*TokenClaims, error) {
	return m.parse(tokenString, tokenAccess)
}

// ParseRefresh validates a refresh token.
func (m *JWTManager) ParseRefresh(tokenString string) (*TokenClaims, error) {
	return m.parse(tokenString, tokenRefresh)
}

// AccessTTLSeconds returns the access token lifetime in seconds.
func (m *JWTManager) AccessTTLSeconds() int64 {
	return int64(m.config.AccessTokenDuration.Seconds())
}
