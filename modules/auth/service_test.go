package auth

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newTestService(t *testing.T) *AuthService {
	t.Helper()
	repo, err := NewAccountRepository(setupTestDB(t))
	require.NoError(t, err)
	return NewAuthService(repo, NewPasswordHasher(bcrypt.MinCost), NewJWTManager(testJWTConfig()))
}

func TestAuthService_RegisterValidation(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		display  string
		wantErr  error
	}{
		{name: "invalid email", email: "family.example.com", password: "password123", wantErr: ErrInvalidEmail},
		{name: "short password", email: "family@example.com", password: "short", wantErr: ErrWeakPassword},
		{name: "long password", email: "family@example.com", password: strings.Repeat("p", 73), wantErr: ErrPasswordTooLong},
		{name: "long display name", email: "family@example.com", password: "password123", display: strings.Repeat("n", 65), wantErr: ErrDisplayNameTooLong},
	}

	svc := newTestService(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.email, tt.password, tt.display)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Register() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	a, err := svc.Register(ctx, " Family@Example.com ", "password123", "")
	require.NoError(t, err)
	assert.Equal(t, "family@example.com", a.Email)
	assert.Equal(t, "family", a.DisplayName)
	assert.NotEmpty(t, a.ID)

	_, err = svc.Register(ctx, "FAMILY@example.com", "password456", "Dup")
	assert.ErrorIs(t, err, ErrAccountExists)

	tokens, err := svc.Login(ctx, "family@EXAMPLE.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", tokens.TokenType)
	assert.Equal(t, int64(15*60), tokens.ExpiresIn)

	claims, err := svc.ValidateToken(ctx, tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, a.ID, claims.UserID)
	assert.Equal(t, "family", claims.DisplayName)

	_, err = svc.Login(ctx, "family@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_Refresh(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "family@example.com", "password123", "Rossi")
	require.NoError(t, err)
	tokens, err := svc.Login(ctx, "family@example.com", "password123")
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	_, err = svc.ValidateToken(ctx, refreshed.AccessToken)
	assert.NoError(t, err)

	_, err = svc.Refresh(ctx, tokens.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// A token for an account that was never stored.
	access, refresh, err := svc.jwt.IssuePair("ghost", "ghost@example.com", "")
	require.NoError(t, err)
	require.NotEmpty(t, access)
	_, err = svc.Refresh(ctx, refresh)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestServiceError_RoundTrip(t *testing.T) {
	for _, sentinel := range []error{ErrAccountExists, ErrInvalidCredentials, ErrExpiredToken, ErrWeakPassword} {
		data, err := json.Marshal(NewServiceError(sentinel))
		require.NoError(t, err)

		var se ServiceError
		require.NoError(t, json.Unmarshal(data, &se))
		assert.ErrorIs(t, &se, sentinel)
	}

	assert.Equal(t, CodeInternal, CodeOf(errors.New("disk on fire")))
	assert.Nil(t, NewServiceError(nil))
}

func TestAuthModule_Handlers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DBPath = "file::memory:?cache=shared"
	cfg.JWT = testJWTConfig()
	cfg.BcryptCost = bcrypt.MinCost

	m := NewModule(cfg)
	ctx := context.Background()
	require.NoError(t, m.Start(ctx))
	t.Cleanup(func() { _ = m.Stop(ctx) })

	reg, err := m.handleRegister(ctx, RegisterRequest{Email: "home@example.com", Password: "password123", DisplayName: "Home"}, nil)
	require.NoError(t, err)
	require.Nil(t, reg.Error)

	dup, err := m.handleRegister(ctx, RegisterRequest{Email: "home@example.com", Password: "password123"}, nil)
	require.NoError(t, err)
	require.NotNil(t, dup.Error)
	assert.Equal(t, CodeAccountExists, dup.Error.Code)

	login, err := m.handleLogin(ctx, LoginRequest{Email: "home@example.com", Password: "password123"}, nil)
	require.NoError(t, err)
	require.NotNil(t, login.Tokens)

	valid, err := m.handleValidateToken(ctx, ValidateTokenRequest{Token: login.Tokens.AccessToken}, nil)
	require.NoError(t, err)
	assert.True(t, valid.Valid)
	assert.Equal(t, reg.ID, valid.Claims.UserID)

	invalid, err := m.handleValidateToken(ctx, ValidateTokenRequest{Token: "garbage"}, nil)
	require.NoError(t, err)
	assert.False(t, invalid.Valid)
	assert.Equal(t, CodeInvalidToken, invalid.Error.Code)

	assert.True(t, m.Health(ctx).Healthy)
}
