package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/example/shopping-list/domain/account"
	"gorm.io/gorm"
)

// AccountRepository persists accounts with GORM.
type AccountRepository struct {
	db *gorm.DB
}

// NewAccountRepository migrates the accounts table and returns a repository.
func NewAccountRepository(db *gorm.DB) (*AccountRepository, error) {
	if err := db.AutoMigrate(&account.Account{}); err != nil {
		return nil, err
	}
	return &AccountRepository{db: db}, nil
}

// Create inserts a new account.
func (r *AccountRepository) Create(ctx context.Context, a *account.Account) error {
	result := r.db.WithContext(ctx).Create(a)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) || strings.Contains(result.Error.Error(), "UNIQUE constraint failed") {
			return ErrAccountExists
		}
		return result.Error
	}
	return nil
}

// FindByID finds an account by id.
func (r *AccountRepository) FindByID(ctx context.Context, id string) (*account.Account, error) {
	return r.first(ctx, "id = ?", id)
}

// FindByEmail finds an account by its normalized email.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*account.Account, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *AccountRepository) first(ctx context.Context, query string, arg any) (*account.Account, error) {
	var a account.Account
	result := r.db.WithContext(ctx).First(&a, query, arg)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, result.Error
	}
	return &a, nil
}

// EmailExists reports whether email is registered.
func (r *AccountRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&account.Account{}).Where("email = ?", email).Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}
