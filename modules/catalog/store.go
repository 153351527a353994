package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/example/shopping-list/domain/category"
	"github.com/example/shopping-list/domain/product"
	"github.com/example/shopping-list/domain/reconcile"
	nanoid "github.com/jaevor/go-nanoid"
	"golang.org/x/sync/singleflight"
)

// ChangeKind names the mutation reported to observers.
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
	ChangeReset   ChangeKind = "reset"
)

// Change describes one successful store mutation.
type Change struct {
	Kind    ChangeKind
	UserID  string
	Product product.Product
	At      time.Time
}

// Observer is notified after every successful mutation.
type Observer interface {
	ProductChanged(ctx context.Context, c Change)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, c Change)

// ProductChanged calls f.
func (f ObserverFunc) ProductChanged(ctx context.Context, c Change) {
	f(ctx, c)
}

// Changes is a partial product update. Nil fields are left unchanged.
// For annotations a present Optional sets the value and an absent one clears it.
type Changes struct {
	Name       *string
	Categories *[]category.ID
	CustomName *product.Optional[string]
	Comment    *product.Optional[string]
	Location   *product.Optional[string]
}

// ItemFailure is one failed item of a batch.
type ItemFailure struct {
	ProductID string `json:"product_id"`
	Err       error  `json:"-"`
}

// BatchResult lists the outcome of a per-item batch write.
type BatchResult struct {
	Succeeded []string      `json:"succeeded"`
	Failed    []ItemFailure `json:"failed"`
}

// BatchError reports a partially failed batch. It unwraps to
// product.ErrPersistence.
type BatchError struct {
	Succeeded int
	Failed    int
	Cause     error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%d of %d writes failed: %v", e.Failed, e.Succeeded+e.Failed, e.Cause)
}

func (e *BatchError) Unwrap() error {
	return product.ErrPersistence
}

// Store is the per-user product collection. All reads go to the repository,
// so a successful write is visible to the next read.
type Store struct {
	repo  Repository
	seed  []SeedItem
	newID func() string
	now   func() time.Time

	mu        sync.Mutex
	lastPos   int64
	observers []observerEntry
	nextObsID int

	seeding singleflight.Group
}

type observerEntry struct {
	id  int
	obs Observer
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithSeed replaces the default catalog written on a user's first load.
func WithSeed(items []SeedItem) StoreOption {
	return func(s *Store) {
		s.seed = items
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// WithIDGenerator sets the product id generator.
func WithIDGenerator(gen func() string) StoreOption {
	return func(s *Store) {
		s.newID = gen
	}
}

// NewStore creates a store on repo.
func NewStore(repo Repository, opts ...StoreOption) (*Store, error) {
	gen, err := nanoid.Standard(21)
	if err != nil {
		return nil, fmt.Errorf("failed to create id generator: %w", err)
	}

	s := &Store{
		repo:  repo,
		seed:  DefaultCatalog,
		newID: gen,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Subscribe registers an observer. Observers run synchronously in
// subscription order. The returned func removes the observer.
func (s *Store) Subscribe(o Observer) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextObsID++
	id := s.nextObsID
	s.observers = append(s.observers, observerEntry{id: id, obs: o})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, e := range s.observers {
			if e.id == id {
				s.observers = append(s.observers[:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) notify(ctx context.Context, kind ChangeKind, p product.Product) {
	s.mu.Lock()
	observers := make([]observerEntry, len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	c := Change{Kind: kind, UserID: p.UserID, Product: p, At: s.now()}
	for _, e := range observers {
		callObserver(ctx, e.obs, c)
	}
}

func callObserver(ctx context.Context, o Observer, c Change) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[catalog] Warning: observer panicked on %s of product %s: %v", c.Kind, c.Product.ID, r)
		}
	}()
	o.ProductChanged(ctx, c)
}

// nextPosition returns a strictly increasing position.
func (s *Store) nextPosition() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos := s.now().UnixNano()
	if pos <= s.lastPos {
		pos = s.lastPos + 1
	}
	s.lastPos = pos
	return pos
}

func persistenceError(err error) error {
	if errors.Is(err, product.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", product.ErrPersistence, err)
}

// Load returns the user's products in store iteration order. A user that
// was never seeded gets the default catalog first.
func (s *Store) Load(ctx context.Context, userID string) ([]product.Product, error) {
	products, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, persistenceError(err)
	}
	if len(products) > 0 || len(s.seed) == 0 {
		return products, nil
	}

	v, err, _ := s.seeding.Do(userID, func() (any, error) {
		return s.seedUser(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]product.Product), nil
}

func (s *Store) seedUser(ctx context.Context, userID string) ([]product.Product, error) {
	now := s.now()
	items := make([]product.Product, 0, len(s.seed))
	for _, item := range s.seed {
		items = append(items, product.Product{
			ID:         s.newID(),
			UserID:     userID,
			Name:       item.Name,
			Categories: append(category.Set(nil), item.Categories...),
			Position:   s.nextPosition(),
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}

	seeded, err := s.repo.SeedOnce(ctx, userID, items)
	if err != nil {
		return nil, persistenceError(err)
	}
	if seeded {
		log.Printf("[catalog] Seeded %d products for user %s", len(items), userID)
	}

	products, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, persistenceError(err)
	}
	return products, nil
}

// Insert creates a product with a fresh id and checked=false.
func (s *Store) Insert(ctx context.Context, userID, name string, categories []category.ID, initialQuantity int) (product.Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return product.Product{}, product.ErrEmptyName
	}
	set, err := category.NewSet(categories...)
	if err != nil {
		return product.Product{}, err
	}

	now := s.now()
	p := product.Product{
		ID:         s.newID(),
		UserID:     userID,
		Name:       name,
		Categories: set,
		Quantity:   product.ClampQuantity(initialQuantity),
		Position:   s.nextPosition(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return product.Product{}, persistenceError(err)
	}

	s.notify(ctx, ChangeCreated, p)
	return p, nil
}

// Update applies a partial update. Validation runs before any write.
func (s *Store) Update(ctx context.Context, userID, productID string, ch Changes) (product.Product, error) {
	p, err := s.repo.Get(ctx, userID, productID)
	if err != nil {
		return product.Product{}, persistenceError(err)
	}

	if ch.Name != nil {
		name := strings.TrimSpace(*ch.Name)
		if name == "" {
			return product.Product{}, product.ErrEmptyName
		}
		p.Name = name
	}
	if ch.Categories != nil {
		set, err := category.NewSet(*ch.Categories...)
		if err != nil {
			return product.Product{}, err
		}
		p.Categories = set
	}
	if ch.CustomName != nil {
		p.CustomName = product.TrimOptional(*ch.CustomName)
	}
	if ch.Comment != nil {
		p.Comment = product.TrimOptional(*ch.Comment)
	}
	if ch.Location != nil {
		p.Location = product.TrimOptional(*ch.Location)
	}

	return s.save(ctx, ChangeUpdated, p)
}

// SetQuantity stores q floored at zero.
func (s *Store) SetQuantity(ctx context.Context, userID, productID string, q int) (product.Product, error) {
	p, err := s.repo.Get(ctx, userID, productID)
	if err != nil {
		return product.Product{}, persistenceError(err)
	}
	p.Quantity = product.ClampQuantity(q)
	return s.save(ctx, ChangeUpdated, p)
}

// SetChecked stores the checked flag.
func (s *Store) SetChecked(ctx context.Context, userID, productID string, checked bool) (product.Product, error) {
	p, err := s.repo.Get(ctx, userID, productID)
	if err != nil {
		return product.Product{}, persistenceError(err)
	}
	p.Checked = checked
	return s.save(ctx, ChangeUpdated, p)
}

func (s *Store) save(ctx context.Context, kind ChangeKind, p product.Product) (product.Product, error) {
	p.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, p); err != nil {
		return product.Product{}, persistenceError(err)
	}
	s.notify(ctx, kind, p)
	return p, nil
}

// Delete removes a product. Deleting a missing product succeeds and
// notifies nobody.
func (s *Store) Delete(ctx context.Context, userID, productID string) error {
	p, err := s.repo.Get(ctx, userID, productID)
	if errors.Is(err, product.ErrNotFound) {
		return nil
	}
	if err != nil {
		return persistenceError(err)
	}

	deleted, err := s.repo.Delete(ctx, userID, productID)
	if err != nil {
		return persistenceError(err)
	}
	if deleted {
		s.notify(ctx, ChangeDeleted, p)
	}
	return nil
}

// ResetAllQuantities zeroes every quantity, one write per product. Items
// already at zero succeed without a write. Failed items are reported in the
// result and a *BatchError; applied items stay applied.
func (s *Store) ResetAllQuantities(ctx context.Context, userID string) (BatchResult, error) {
	products, err := s.repo.List(ctx, userID)
	if err != nil {
		return BatchResult{}, persistenceError(err)
	}

	result := newBatchResult(len(products))
	for _, p := range products {
		if p.Quantity == 0 {
			result.Succeeded = append(result.Succeeded, p.ID)
			continue
		}
		p.Quantity = 0
		if _, err := s.save(ctx, ChangeReset, p); err != nil {
			result.Failed = append(result.Failed, ItemFailure{ProductID: p.ID, Err: err})
			continue
		}
		result.Succeeded = append(result.Succeeded, p.ID)
	}

	return result, s.batchError("reset", userID, result)
}

// MoveAll replaces the categories of every listed product, one write per
// product. The categories are validated before any write. Products already
// in exactly those categories succeed without a write; unknown ids fail
// with product.ErrNotFound. Failures are reported as in ResetAllQuantities.
func (s *Store) MoveAll(ctx context.Context, userID string, productIDs []string, categories []category.ID) (BatchResult, error) {
	if len(categories) == 0 {
		return BatchResult{}, product.ErrNoCategorySelected
	}
	set, err := category.NewSet(categories...)
	if err != nil {
		return BatchResult{}, err
	}

	result := newBatchResult(len(productIDs))
	for _, id := range uniqueIDs(productIDs) {
		p, err := s.repo.Get(ctx, userID, id)
		if err != nil {
			result.Failed = append(result.Failed, ItemFailure{ProductID: id, Err: persistenceError(err)})
			continue
		}
		if p.Categories.Equal(set) {
			result.Succeeded = append(result.Succeeded, id)
			continue
		}
		p.Categories = set
		if _, err := s.save(ctx, ChangeUpdated, p); err != nil {
			result.Failed = append(result.Failed, ItemFailure{ProductID: id, Err: err})
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}
	return result, s.batchError("move", userID, result)
}

// DeleteAll deletes every listed product. Like Delete, missing ids succeed.
func (s *Store) DeleteAll(ctx context.Context, userID string, productIDs []string) (BatchResult, error) {
	result := newBatchResult(len(productIDs))
	for _, id := range uniqueIDs(productIDs) {
		if err := s.Delete(ctx, userID, id); err != nil {
			result.Failed = append(result.Failed, ItemFailure{ProductID: id, Err: err})
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}
	return result, s.batchError("delete", userID, result)
}

func newBatchResult(n int) BatchResult {
	return BatchResult{
		Succeeded: make([]string, 0, n),
		Failed:    make([]ItemFailure, 0),
	}
}

func (s *Store) batchError(op, userID string, result BatchResult) error {
	if len(result.Failed) == 0 {
		return nil
	}
	total := len(result.Succeeded) + len(result.Failed)
	log.Printf("[catalog] Warning: %s failed for %d of %d products of user %s",
		op, len(result.Failed), total, userID)
	return &BatchError{
		Succeeded: len(result.Succeeded),
		Failed:    len(result.Failed),
		Cause:     result.Failed[0].Err,
	}
}

// uniqueIDs drops blank and repeated ids, keeping the first occurrence.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// Applier returns the reconciliation applier writing into the user's catalog.
func (s *Store) Applier(userID string) reconcile.Applier {
	return &userApplier{store: s, userID: userID}
}

type userApplier struct {
	store  *Store
	userID string
}

// ApplyInsert creates the product described by an insert instruction.
func (a *userApplier) ApplyInsert(ctx context.Context, in reconcile.Instruction) (product.Product, error) {
	return a.store.Insert(ctx, a.userID, in.Name, in.Categories, in.Quantity)
}

// ApplyMerge writes the merged categories and quantity onto the matched product.
func (a *userApplier) ApplyMerge(ctx context.Context, in reconcile.Instruction) (product.Product, error) {
	p, err := a.store.repo.Get(ctx, a.userID, in.ProductID)
	if err != nil {
		return product.Product{}, persistenceError(err)
	}
	p.Categories = in.Categories
	p.Quantity = product.ClampQuantity(in.Quantity)
	return a.store.save(ctx, ChangeUpdated, p)
}

// ReconcileAll reconciles candidates against the user's current catalog.
func (s *Store) ReconcileAll(ctx context.Context, userID string, candidates []reconcile.Candidate, opts reconcile.Options) (reconcile.Report, error) {
	existing, err := s.Load(ctx, userID)
	if err != nil {
		return reconcile.Report{}, err
	}

	report := reconcile.ReconcileAll(ctx, candidates, existing, opts, s.Applier(userID))
	for _, o := range report.Outcomes {
		if o.Duplicate {
			log.Printf("[catalog] Warning: %q matches several products of user %s, merged into %s",
				o.Candidate.Name, userID, o.ProductID)
		}
	}
	return report, nil
}
