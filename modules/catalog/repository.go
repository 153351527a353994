package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/example/shopping-list/domain/category"
	"github.com/example/shopping-list/domain/product"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists product records. Implementations return
// product.ErrNotFound for a missing or foreign product and an ordinary
// error for storage failures; the Store classifies the latter.
type Repository interface {
	// List returns the user's products ordered by position, then id.
	List(ctx context.Context, userID string) ([]product.Product, error)
	Get(ctx context.Context, userID, id string) (product.Product, error)
	Create(ctx context.Context, p product.Product) error
	// Save overwrites every field of an existing product.
	Save(ctx context.Context, p product.Product) error
	// Delete reports whether a product was removed.
	Delete(ctx context.Context, userID, id string) (bool, error)
	// SeedOnce stores products for a user that has never been seeded and
	// marks the user as seeded, atomically. It reports whether it seeded.
	SeedOnce(ctx context.Context, userID string, products []product.Product) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}

// productRecord is the GORM model of a product row.
type productRecord struct {
	ID         string   `gorm:"primarykey;size:32"`
	UserID     string   `gorm:"size:64;not null;index:idx_products_user_position,priority:1"`
	Name       string   `gorm:"size:200;not null"`
	Categories []string `gorm:"serializer:json;type:text"`
	Quantity   int      `gorm:"not null;default:0"`
	Checked    sql.NullBool
	CustomName sql.NullString `gorm:"size:200"`
	Comment    sql.NullString `gorm:"size:500"`
	Location   sql.NullString `gorm:"size:200"`
	Position   int64          `gorm:"not null;index:idx_products_user_position,priority:2"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName returns the table name for productRecord.
func (productRecord) TableName() string {
	return "products"
}

// seedRecord marks a user whose default catalog has been written.
type seedRecord struct {
	UserID   string `gorm:"primarykey;size:64"`
	SeededAt time.Time
}

// TableName returns the table name for seedRecord.
func (seedRecord) TableName() string {
	return "catalog_seeds"
}

// GormRepository stores products through GORM. It is used with SQLite.
type GormRepository struct {
	db *gorm.DB
}

var _ Repository = (*GormRepository)(nil)

// NewGormRepository creates a repository on db and migrates its tables.
func NewGormRepository(db *gorm.DB) (*GormRepository, error) {
	if err := db.AutoMigrate(&productRecord{}, &seedRecord{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &GormRepository{db: db}, nil
}

// List returns the user's products in store iteration order.
func (r *GormRepository) List(ctx context.Context, userID string) ([]product.Product, error) {
	var records []productRecord
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("position ASC, id ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	out := make([]product.Product, 0, len(records))
	for i := range records {
		out = append(out, records[i].toDomain())
	}
	return out, nil
}

// Get retrieves a single product of the user.
func (r *GormRepository) Get(ctx context.Context, userID, id string) (product.Product, error) {
	var rec productRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return product.Product{}, product.ErrNotFound
		}
		return product.Product{}, fmt.Errorf("failed to find product: %w", err)
	}
	return rec.toDomain(), nil
}

// Create inserts a new product.
func (r *GormRepository) Create(ctx context.Context, p product.Product) error {
	rec := toRecord(p)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// Save overwrites an existing product, including NULL annotations.
func (r *GormRepository) Save(ctx context.Context, p product.Product) error {
	rec := toRecord(p)
	result := r.db.WithContext(ctx).
		Model(&productRecord{}).
		Where("id = ? AND user_id = ?", p.ID, p.UserID).
		Select("*").
		Omit("id", "user_id", "created_at").
		Updates(&rec)
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if result.RowsAffected == 0 {
		return product.ErrNotFound
	}
	return nil
}

// Delete removes a product. A missing product is not an error.
func (r *GormRepository) Delete(ctx context.Context, userID, id string) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&productRecord{}, "id = ? AND user_id = ?", id, userID)
	if err := result.Error; err != nil {
		return false, fmt.Errorf("failed to delete product: %w", err)
	}
	return result.RowsAffected > 0, nil
}

// SeedOnce writes the seed marker and products in one transaction.
func (r *GormRepository) SeedOnce(ctx context.Context, userID string, products []product.Product) (bool, error) {
	seeded := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		marker := seedRecord{UserID: userID, SeededAt: time.Now()}
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&marker)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		if len(products) > 0 {
			records := make([]productRecord, 0, len(products))
			for _, p := range products {
				records = append(records, toRecord(p))
			}
			if err := tx.Create(&records).Error; err != nil {
				return err
			}
		}
		seeded = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to seed products: %w", err)
	}
	return seeded, nil
}

// Ping checks the database connection.
func (r *GormRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection.
func (r *GormRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.Close()
}

func toRecord(p product.Product) productRecord {
	return productRecord{
		ID:         p.ID,
		UserID:     p.UserID,
		Name:       p.Name,
		Categories: p.Categories.Strings(),
		Quantity:   p.Quantity,
		Checked:    sql.NullBool{Bool: p.Checked, Valid: true},
		CustomName: nullString(p.CustomName),
		Comment:    nullString(p.Comment),
		Location:   nullString(p.Location),
		Position:   p.Position,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func (r productRecord) toDomain() product.Product {
	return product.Product{
		ID:         r.ID,
		UserID:     r.UserID,
		Name:       r.Name,
		Categories: categoriesFrom(r.ID, r.Categories),
		Quantity:   product.ClampQuantity(r.Quantity),
		Checked:    r.Checked.Valid && r.Checked.Bool,
		CustomName: optionalString(r.CustomName),
		Comment:    optionalString(r.Comment),
		Location:   optionalString(r.Location),
		Position:   r.Position,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func nullString(o product.Optional[string]) sql.NullString {
	v, ok := o.Get()
	return sql.NullString{String: v, Valid: ok}
}

func optionalString(ns sql.NullString) product.Optional[string] {
	if !ns.Valid {
		return product.None[string]()
	}
	return product.Some(ns.String)
}

// categoriesFrom rebuilds a category set from stored ids, dropping ids the
// registry no longer knows.
func categoriesFrom(productID string, values []string) category.Set {
	ids := make([]category.ID, 0, len(values))
	for _, v := range values {
		id, err := category.Parse(v)
		if err != nil {
			log.Printf("[catalog] Warning: product %s has stored %v", productID, err)
			continue
		}
		ids = append(ids, id)
	}
	set, _ := category.NewSet(ids...)
	return set
}
