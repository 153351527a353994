package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/shopping-list/domain/product"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS products (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	name        TEXT NOT NULL,
	categories  TEXT[] NOT NULL DEFAULT '{}',
	quantity    INTEGER NOT NULL DEFAULT 0,
	checked     BOOLEAN,
	custom_name TEXT,
	comment     TEXT,
	location    TEXT,
	position    BIGINT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_products_user_position ON products (user_id, position, id);
CREATE TABLE IF NOT EXISTS catalog_seeds (
	user_id   TEXT PRIMARY KEY,
	seeded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

const productColumns = `id, user_id, name, categories, quantity, checked,
	custom_name, comment, location, position, created_at, updated_at`

// PostgresRepository stores products in PostgreSQL through a pgx pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository connects to databaseURL and creates the schema.
func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &PostgresRepository{pool: pool}, nil
}

// List returns the user's products in store iteration order.
func (r *PostgresRepository) List(ctx context.Context, userID string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE user_id = $1 ORDER BY position, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	out := make([]product.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return out, nil
}

// Get retrieves a single product of the user.
func (r *PostgresRepository) Get(ctx context.Context, userID, id string) (product.Product, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1 AND user_id = $2`, id, userID)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return product.Product{}, product.ErrNotFound
		}
		return product.Product{}, fmt.Errorf("failed to find product: %w", err)
	}
	return p, nil
}

// Create inserts a new product.
func (r *PostgresRepository) Create(ctx context.Context, p product.Product) error {
	if err := insertProduct(ctx, r.pool, p); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// Save overwrites an existing product.
func (r *PostgresRepository) Save(ctx context.Context, p product.Product) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE products SET name = $3, categories = $4, quantity = $5, checked = $6,
			custom_name = $7, comment = $8, location = $9, position = $10, updated_at = $11
		WHERE id = $1 AND user_id = $2`,
		p.ID, p.UserID, p.Name, p.Categories.Strings(), p.Quantity, p.Checked,
		p.CustomName.Ptr(), p.Comment.Ptr(), p.Location.Ptr(), p.Position, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// Delete removes a product. A missing product is not an error.
func (r *PostgresRepository) Delete(ctx context.Context, userID, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete product: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SeedOnce writes the seed marker and products in one transaction.
func (r *PostgresRepository) SeedOnce(ctx context.Context, userID string, products []product.Product) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`INSERT INTO catalog_seeds (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		return false, fmt.Errorf("failed to mark seed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	for _, p := range products {
		if err := insertProduct(ctx, tx, p); err != nil {
			return false, fmt.Errorf("failed to seed products: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit seed: %w", err)
	}
	return true, nil
}

// Ping checks the pool connection.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the pool.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// pgExecer is satisfied by both *pgxpool.Pool and pgx.Tx.
type pgExecer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func insertProduct(ctx context.Context, db pgExecer, p product.Product) error {
	_, err := db.Exec(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		p.ID, p.UserID, p.Name, p.Categories.Strings(), p.Quantity, p.Checked,
		p.CustomName.Ptr(), p.Comment.Ptr(), p.Location.Ptr(), p.Position, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

func scanProduct(row pgx.Row) (product.Product, error) {
	var (
		p          product.Product
		categories []string
		checked    *bool
		customName *string
		comment    *string
		location   *string
	)
	if err := row.Scan(
		&p.ID, &p.UserID, &p.Name, &categories, &p.Quantity, &checked,
		&customName, &comment, &location, &p.Position, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return product.Product{}, err
	}
	p.Categories = categoriesFrom(p.ID, categories)
	p.Quantity = product.ClampQuantity(p.Quantity)
	p.Checked = checked != nil && *checked
	p.CustomName = product.FromPtr(customName)
	p.Comment = product.FromPtr(comment)
	p.Location = product.FromPtr(location)
	return p, nil
}
