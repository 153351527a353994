package catalog

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/example/shopping-list/domain/product"
)

// ErrInjected is the storage failure produced by MemoryRepository.FailOn.
var ErrInjected = errors.New("injected storage failure")

// MemoryRepository keeps products in process memory. It backs
// CATALOG_DRIVER=memory and tests, and can be told to fail writes.
type MemoryRepository struct {
	mu       sync.RWMutex
	products map[string]product.Product
	seeded   map[string]bool
	failIDs  map[string]bool
	failAll  bool
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		products: make(map[string]product.Product),
		seeded:   make(map[string]bool),
		failIDs:  make(map[string]bool),
	}
}

// FailOn makes writes of the given product ids fail with ErrInjected.
func (r *MemoryRepository) FailOn(ids ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		r.failIDs[id] = true
	}
}

// FailAll makes every write fail with ErrInjected until Recover is called.
func (r *MemoryRepository) FailAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failAll = true
}

// Recover clears all injected failures.
func (r *MemoryRepository) Recover() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failAll = false
	r.failIDs = make(map[string]bool)
}

func (r *MemoryRepository) failing(id string) bool {
	return r.failAll || r.failIDs[id]
}

// List returns the user's products in store iteration order.
func (r *MemoryRepository) List(_ context.Context, userID string) ([]product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]product.Product, 0)
	for _, p := range r.products {
		if p.UserID == userID {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Get retrieves a single product of the user.
func (r *MemoryRepository) Get(_ context.Context, userID, id string) (product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok || p.UserID != userID {
		return product.Product{}, product.ErrNotFound
	}
	return p.Clone(), nil
}

// Create inserts a new product.
func (r *MemoryRepository) Create(_ context.Context, p product.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failing(p.ID) {
		return ErrInjected
	}
	if _, exists := r.products[p.ID]; exists {
		return errors.New("duplicate product id")
	}
	r.products[p.ID] = p.Clone()
	return nil
}

// Save overwrites an existing product.
func (r *MemoryRepository) Save(_ context.Context, p product.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.products[p.ID]
	if !ok || cur.UserID != p.UserID {
		return product.ErrNotFound
	}
	if r.failing(p.ID) {
		return ErrInjected
	}
	p.CreatedAt = cur.CreatedAt
	r.products[p.ID] = p.Clone()
	return nil
}

// Delete removes a product. A missing product is not an error.
func (r *MemoryRepository) Delete(_ context.Context, userID, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok || p.UserID != userID {
		return false, nil
	}
	if r.failing(id) {
		return false, ErrInjected
	}
	delete(r.products, id)
	return true, nil
}

// SeedOnce stores products for a user that has never been seeded.
func (r *MemoryRepository) SeedOnce(_ context.Context, userID string, products []product.Product) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.seeded[userID] {
		return false, nil
	}
	if r.failAll {
		return false, ErrInjected
	}
	for _, p := range products {
		r.products[p.ID] = p.Clone()
	}
	r.seeded[userID] = true
	return true, nil
}

// Ping always succeeds.
func (r *MemoryRepository) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op.
func (r *MemoryRepository) Close() error {
	return nil
}
