package auth

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/shopping-list/domain/account"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// AuthPort is the auth module as seen by other modules.
type AuthPort interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
	Login(ctx context.Context, email, password string) (*account.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*account.TokenPair, error)
	ValidateToken(ctx context.Context, token string) (*account.Claims, error)
}

// AuthAdapter implements AuthPort over the auth service container.
type AuthAdapter struct {
	container mono.ServiceContainer
}

var _ AuthPort = (*AuthAdapter)(nil)

// NewAuthAdapter creates an AuthAdapter.
func NewAuthAdapter(container mono.ServiceContainer) *AuthAdapter {
	return &AuthAdapter{container: container}
}

func (a *AuthAdapter) call(ctx context.Context, service string, req, resp any) error {
	if err := helper.CallRequestReplyService(
		ctx, a.container, service, json.Marshal, json.Unmarshal, req, resp,
	); err != nil {
		return fmt.Errorf("%s request failed: %w", service, err)
	}
	return nil
}

// Register creates an account.
func (a *AuthAdapter) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	var resp RegisterResponse
	if err := a.call(ctx, "register", &req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return &resp, nil
}

// Login exchanges credentials for tokens.
func (a *AuthAdapter) Login(ctx context.Context, email, password string) (*account.TokenPair, error) {
	req := LoginRequest{Email: email, Password: password}
	var resp TokenResponse
	if err := a.call(ctx, "login", &req, &resp); err != nil {
		return nil, err
	}
	return tokens(resp)
}

// Refresh exchanges a refresh token for a new pair.
func (a *AuthAdapter) Refresh(ctx context.Context, refreshToken string) (*account.TokenPair, error) {
	req := RefreshRequest{RefreshToken: refreshToken}
	var resp TokenResponse
	if err := a.call(ctx, "refresh-token", &req, &resp); err != nil {
		return nil, err
	}
	return tokens(resp)
}

// ValidateToken validates an access token and returns its claims.
func (a *AuthAdapter) ValidateToken(ctx context.Context, token string) (*account.Claims, error) {
	req := ValidateTokenRequest{Token: token}
	var resp ValidateTokenResponse
	if err := a.call(ctx, "validate-token", &req, &resp); err != nil {
		return nil, err
	}
	if !resp.Valid || resp.Claims == nil {
		if resp.Error != nil {
			return nil, resp.Error
		}
		return nil, ErrInvalidToken
	}
	return resp.Claims, nil
}

func tokens(resp TokenResponse) (*account.TokenPair, error) {
	if resp.Error != nil {
		return nil, resp.Error
	}
	if resp.Tokens == nil {
		return nil, fmt.Errorf("empty token response")
	}
	return resp.Tokens, nil
}
