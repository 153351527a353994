package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config configures the auth module.
type Config struct {
	DBPath     string
	JWT        JWTConfig
	BcryptCost int
}

// DefaultConfig returns a SQLite-backed configuration.
func DefaultConfig() Config {
	return Config{
		DBPath:     "accounts.db",
		JWT:        DefaultJWTConfig(),
		BcryptCost: DefaultBcryptCost,
	}
}

// AuthModule provides account and token services.
type AuthModule struct {
	cfg     Config
	db      *gorm.DB
	service *AuthService
}

// Compile-time interface checks.
var _ mono.Module = (*AuthModule)(nil)
var _ mono.ServiceProviderModule = (*AuthModule)(nil)
var _ mono.HealthCheckableModule = (*AuthModule)(nil)

// NewModule creates an AuthModule.
func NewModule(cfg Config) *AuthModule {
	return &AuthModule{cfg: cfg}
}

// Name returns the module name.
func (m *AuthModule) Name() string {
	return "auth"
}

// Start opens the account database.
func (m *AuthModule) Start(_ context.Context) error {
	db, err := gorm.Open(sqlite.Open(m.cfg.DBPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	repo, err := NewAccountRepository(db)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	if m.cfg.JWT.SecretKey == DefaultJWTConfig().SecretKey {
		log.Println("[auth] Warning: using the default JWT secret, set JWT_SECRET_KEY")
	}

	m.service = NewAuthService(repo, NewPasswordHasher(m.cfg.BcryptCost), NewJWTManager(m.cfg.JWT))

	log.Printf("[auth] Module started (database: %s)", m.cfg.DBPath)
	return nil
}

// Stop closes the database.
func (m *AuthModule) Stop(_ context.Context) error {
	if m.db != nil {
		if sqlDB, err := m.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	log.Println("[auth] Module stopped")
	return nil
}

// Health pings the account database.
func (m *AuthModule) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get database connection: %v", err),
		}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"database": m.cfg.DBPath,
		},
	}
}

// RegisterServices registers register, login, refresh-token and validate-token.
func (m *AuthModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "register", json.Unmarshal, json.Marshal, m.handleRegister,
	); err != nil {
		return fmt.Errorf("failed to register register service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "login", json.Unmarshal, json.Marshal, m.handleLogin,
	); err != nil {
		return fmt.Errorf("failed to register login service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "refresh-token", json.Unmarshal, json.Marshal, m.handleRefresh,
	); err != nil {
		return fmt.Errorf("failed to register refresh-token service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "validate-token", json.Unmarshal, json.Marshal, m.handleValidateToken,
	); err != nil {
		return fmt.Errorf("failed to register validate-token service: %w", err)
	}

	log.Printf("[auth] Registered services: register, login, refresh-token, validate-token")
	return nil
}

func (m *AuthModule) handleRegister(ctx context.Context, req RegisterRequest, _ *mono.Msg) (RegisterResponse, error) {
	a, err := m.service.Register(ctx, req.Email, req.Password, req.DisplayName)
	if err != nil {
		return RegisterResponse{Error: NewServiceError(err)}, nil
	}
	log.Printf("[auth] Registered account %s", a.ID)
	return RegisterResponse{
		ID:          a.ID,
		Email:       a.Email,
		DisplayName: a.DisplayName,
		CreatedAt:   a.CreatedAt,
	}, nil
}

func (m *AuthModule) handleLogin(ctx context.Context, req LoginRequest, _ *mono.Msg) (TokenResponse, error) {
	tokens, err := m.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		return TokenResponse{Error: NewServiceError(err)}, nil
	}
	return TokenResponse{Tokens: tokens}, nil
}

func (m *AuthModule) handleRefresh(ctx context.Context, req RefreshRequest, _ *mono.Msg) (TokenResponse, error) {
	tokens, err := m.service.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return TokenResponse{Error: NewServiceError(err)}, nil
	}
	return TokenResponse{Tokens: tokens}, nil
}

// Validation failures are answers, not service errors.
func (m *AuthModule) handleValidateToken(ctx context.Context, req ValidateTokenRequest, _ *mono.Msg) (ValidateTokenResponse, error) {
	claims, err := m.service.ValidateToken(ctx, req.Token)
	if err != nil {
		return ValidateTokenResponse{Valid: false, Error: NewServiceError(err)}, nil
	}
	return ValidateTokenResponse{Valid: true, Claims: claims}, nil
}
