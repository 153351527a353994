package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/example/shopping-list/domain/account"
	"github.com/google/uuid"
)

const maxDisplayName = 64

// AuthService handles account registration and token issuance.
type AuthService struct {
	repo   *AccountRepository
	hasher *PasswordHasher
	jwt    *JWTManager
}

// NewAuthService creates an AuthService.
func NewAuthService(repo *AccountRepository, hasher *PasswordHasher, jwt *JWTManager) *AuthService {
	return &AuthService{
		repo:   repo,
		hasher: hasher,
		jwt:    jwt,
	}
}

// normalizeEmail parses and lower-cases an address so that family members
// typing it differently land on the same account.
func normalizeEmail(email string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return "", ErrInvalidEmail
	}
	return strings.ToLower(addr.Address), nil
}

// Register creates a new account. An empty displayName defaults to the
// part of the email before the @.
func (s *AuthService) Register(ctx context.Context, email, password, displayName string) (*account.Account, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < 8 {
		return nil, ErrWeakPassword
	}
	if len(password) > 72 {
		return nil, ErrPasswordTooLong
	}
	displayName = strings.TrimSpace(displayName)
	if utf8.RuneCountInString(displayName) > maxDisplayName {
		return nil, ErrDisplayNameTooLong
	}
	if displayName == "" {
		displayName, _, _ = strings.Cut(email, "@")
	}

	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email existence: %w", err)
	}
	if exists {
		return nil, ErrAccountExists
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	a := &account.Account{
		ID:           uuid.New().String(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		if errors.Is(err, ErrAccountExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return a, nil
}

// Login checks credentials and issues tokens.
func (s *AuthService) Login(ctx context.Context, email, password string) (*account.TokenPair, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	a, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if !s.hasher.Verify(password, a.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return s.issue(a)
}

// Refresh exchanges a refresh token for a new pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*account.TokenPair, error) {
	claims, err := s.jwt.ParseRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	a, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return s.issue(a)
}

// ValidateToken checks an access token.
func (s *AuthService) ValidateToken(_ context.Context, token string) (*account.Claims, error) {
	claims, err := s.jwt.ParseAccess(token)
	if err != nil {
		return nil, err
	}
	return &account.Claims{
		UserID:      claims.UserID,
		Email:       claims.Email,
		DisplayName: claims.DisplayName,
	}, nil
}

func (s *AuthService) issue(a *account.Account) (*account.TokenPair, error) {
	access, refresh, err := s.jwt.IssuePair(a.ID, a.Email, a.DisplayName)
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}
	return &account.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    s.jwt.AccessTTLSeconds(),
		TokenType:    "Bearer",
	}, nil
}
