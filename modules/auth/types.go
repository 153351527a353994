package auth

import (
	"time"

	"github.com/example/shopping-list/domain/account"
)

// RegisterRequest is the request for the register service.
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// RegisterResponse is the response of the register service.
type RegisterResponse struct {
	ID          string        `json:"id,omitempty"`
	Email       string        `json:"email,omitempty"`
	DisplayName string        `json:"display_name,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	Error       *ServiceError `json:"error,omitempty"`
}

// LoginRequest is the request for the login service.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the request for the refresh-token service.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse is the response of login and refresh-token.
type TokenResponse struct {
	Tokens *account.TokenPair `json:"tokens,omitempty"`
	Error  *ServiceError      `json:"error,omitempty"`
}

// ValidateTokenRequest is the request for the validate-token service.
type ValidateTokenRequest struct {
	Token string `json:"token"`
}

// ValidateTokenResponse is the response of validate-token.
type ValidateTokenResponse struct {
	Valid  bool            `json:"valid"`
	Claims *account.Claims `json:"claims,omitempty"`
	Error  *ServiceError   `json:"error,omitempty"`
}
