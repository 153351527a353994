package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/example/shopping-list/domain/category"
	"github.com/example/shopping-list/domain/product"
	"github.com/example/shopping-list/domain/reconcile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUser = "user-1"

// recorder collects observer notifications.
type recorder struct {
	mu      sync.Mutex
	changes []Change
}

func (r *recorder) ProductChanged(_ context.Context, c Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *recorder) kinds() []ChangeKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ChangeKind, len(r.changes))
	for i, c := range r.changes {
		out[i] = c.Kind
	}
	return out
}

func sequentialIDs() StoreOption {
	n := 0
	var mu sync.Mutex
	return WithIDGenerator(func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("p%03d", n)
	})
}

func newTestStore(t *testing.T, opts ...StoreOption) (*Store, *MemoryRepository) {
	t.Helper()
	repo := NewMemoryRepository()
	opts = append([]StoreOption{WithSeed(nil), sequentialIDs()}, opts...)
	s, err := NewStore(repo, opts...)
	require.NoError(t, err)
	return s, repo
}

func TestStore_LoadSeedsOnce(t *testing.T) {
	seed := []SeedItem{
		{Name: "Pasta", Categories: category.MustSet(category.Monthly)},
		{Name: "Bread", Categories: category.MustSet(category.Weekly, category.CrossCutting)},
	}
	s, _ := newTestStore(t, WithSeed(seed))
	ctx := context.Background()

	first, err := s.Load(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "Pasta", first[0].Name)
	assert.Equal(t, "Bread", first[1].Name)
	assert.Zero(t, first[0].Quantity)

	second, err := s.Load(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// Emptying the catalog does not bring the seed back.
	for _, p := range second {
		require.NoError(t, s.Delete(ctx, testUser, p.ID))
	}
	after, err := s.Load(ctx, testUser)
	require.NoError(t, err)
	assert.Empty(t, after)
}

func TestStore_LoadSeedsConcurrently(t *testing.T) {
	s, _ := newTestStore(t, WithSeed(DefaultCatalog))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Load(ctx, testUser)
		}()
	}
	wg.Wait()

	products, err := s.Load(ctx, testUser)
	require.NoError(t, err)
	assert.Len(t, products, len(DefaultCatalog))
}

func TestStore_LoadIsPerUser(t *testing.T) {
	seed := []SeedItem{{Name: "Milk", Categories: category.MustSet(category.CrossCutting)}}
	s, _ := newTestStore(t, WithSeed(seed))
	ctx := context.Background()

	a, err := s.Load(ctx, "alice")
	require.NoError(t, err)
	b, err := s.Load(ctx, "bob")
	require.NoError(t, err)

	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.NotEqual(t, a[0].ID, b[0].ID)
	assert.Equal(t, "bob", b[0].UserID)
}

func TestStore_Insert(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		input      string
		categories []category.ID
		quantity   int
		wantName   string
		wantQty    int
		wantErr    error
	}{
		{name: "trims name", input: "  Milk ", categories: []category.ID{category.Weekly}, wantName: "Milk"},
		{name: "clamps quantity", input: "Eggs", categories: []category.ID{category.Weekly}, quantity: -5, wantName: "Eggs"},
		{name: "keeps quantity", input: "Rice", categories: []category.ID{category.Monthly}, quantity: 2, wantName: "Rice", wantQty: 2},
		{name: "orphan allowed", input: "Glue", wantName: "Glue"},
		{name: "empty name", input: "   ", categories: []category.ID{category.Weekly}, wantErr: product.ErrEmptyName},
		{name: "unknown category", input: "Tea", categories: []category.ID{"daily"}, wantErr: category.ErrUnknownCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := s.Insert(ctx, testUser, tt.input, tt.categories, tt.quantity)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, p.ID)
			assert.Equal(t, tt.wantName, p.Name)
			assert.Equal(t, tt.wantQty, p.Quantity)
			assert.False(t, p.Checked)
		})
	}
}

func TestStore_InsertKeepsIterationOrder(t *testing.T) {
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s, _ := newTestStore(t, WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	for _, name := range []string{"Zucchini", "Apples", "Milk"} {
		_, err := s.Insert(ctx, testUser, name, []category.ID{category.Weekly}, 0)
		require.NoError(t, err)
	}

	products, err := s.Load(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, "Zucchini", products[0].Name)
	assert.Equal(t, "Apples", products[1].Name)
	assert.Equal(t, "Milk", products[2].Name)
}

func TestStore_InsertPersistenceFailure(t *testing.T) {
	s, repo := newTestStore(t)
	repo.FailAll()

	_, err := s.Insert(context.Background(), testUser, "Milk", []category.ID{category.Weekly}, 0)
	assert.ErrorIs(t, err, product.ErrPersistence)
	assert.ErrorIs(t, err, ErrInjected)
}

func TestStore_Update(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	p, err := s.Insert(ctx, testUser, "Milk", []category.ID{category.Weekly}, 1)
	require.NoError(t, err)

	name := " Oat milk "
	cats := []category.ID{category.CrossCutting, category.Weekly}
	comment := product.Some("  barista  ")
	got, err := s.Update(ctx, testUser, p.ID, Changes{Name: &name, Categories: &cats, Comment: &comment})
	require.NoError(t, err)
	assert.Equal(t, "Oat milk", got.Name)
	assert.Equal(t, category.MustSet(category.Weekly, category.CrossCutting), got.Categories)
	assert.Equal(t, product.Some("barista"), got.Comment)
	assert.False(t, got.Location.IsPresent())
	assert.Equal(t, 1, got.Quantity)

	cleared := product.None[string]()
	got, err = s.Update(ctx, testUser, p.ID, Changes{Comment: &cleared})
	require.NoError(t, err)
	assert.False(t, got.Comment.IsPresent())
	assert.Equal(t, "Oat milk", got.Name)

	stored, err := s.Load(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, got, stored[0])
}

func TestStore_UpdateRejectsWithoutMutation(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	p, err := s.Insert(ctx, testUser, "Milk", []category.ID{category.Weekly}, 0)
	require.NoError(t, err)
	before, err := s.Load(ctx, testUser)
	require.NoError(t, err)

	blank := "  "
	_, err = s.Update(ctx, testUser, p.ID, Changes{Name: &blank})
	assert.ErrorIs(t, err, product.ErrEmptyName)

	bad := []category.ID{"daily"}
	_, err = s.Update(ctx, testUser, p.ID, Changes{Categories: &bad})
	assert.ErrorIs(t, err, category.ErrUnknownCategory)

	after, err := s.Load(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestStore_NotFound(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	p, err := s.Insert(ctx, "other", "Milk", []category.ID{category.Weekly}, 0)
	require.NoError(t, err)

	_, err = s.Update(ctx, testUser, "missing", Changes{})
	assert.ErrorIs(t, err, product.ErrNotFound)

	_, err = s.SetQuantity(ctx, testUser, "missing", 1)
	assert.ErrorIs(t, err, product.ErrNotFound)

	_, err = s.SetChecked(ctx, testUser, "missing", true)
	assert.ErrorIs(t, err, product.ErrNotFound)

	// Another user's product is invisible.
	_, err = s.SetQuantity(ctx, testUser, p.ID, 1)
	assert.ErrorIs(t, err, product.ErrNotFound)
	assert.NotErrorIs(t, err, product.ErrPersistence)
}

func TestStore_SetQuantityClamps(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	p, err := s.Insert(ctx, testUser, "Milk", []category.ID{category.Weekly}, 0)
	require.NoError(t, err)

	got, err := s.SetQuantity(ctx, testUser, p.ID, -5)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Quantity)

	got, err = s.SetQuantity(ctx, testUser, p.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Quantity)
}

func TestStore_SetChecked(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	p, err := s.Insert(ctx, testUser, "Milk", []category.ID{category.Weekly}, 2)
	require.NoError(t, err)

	got, err := s.SetChecked(ctx, testUser, p.ID, true)
	require.NoError(t, err)
	assert.True(t, got.Checked)

	stored, err := s.Load(ctx, testUser)
	require.NoError(t, err)
	assert.True(t, stored[0].Checked)
}

func TestStore_DeleteIsIdempotent(t *testing.T) {
	rec := &recorder{}
	s, _ := newTestStore(t)
	s.Subscribe(rec)
	ctx := context.Background()

	p, err := s.Insert(ctx, testUser, "Milk", []category.ID{category.Weekly}, 0)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, testUser, p.ID))
	require.NoError(t, s.Delete(ctx, testUser, p.ID))
	require.NoError(t, s.Delete(ctx, testUser, "never-existed"))

	products, err := s.Load(ctx, testUser)
	require.NoError(t, err)
	assert.Empty(t, products)
	assert.Equal(t, []ChangeKind{ChangeCreated, ChangeDeleted}, rec.kinds())
}

func TestStore_ResetAllQuantities(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for i, name := range []string{"Milk", "Eggs", "Rice"} {
		_, err := s.Insert(ctx, testUser, name, []category.ID{category.Weekly}, i)
		require.NoError(t, err)
	}

	result, err := s.ResetAllQuantities(ctx, testUser)
	require.NoError(t, err)
	assert.Len(t, result.Succeeded, 3)
	assert.Empty(t, result.Failed)

	products, err := s.Load(ctx, testUser)
	require.NoError(t, err)
	for _, p := range products {
		assert.Zero(t, p.Quantity, p.Name)
	}
}

func TestStore_ResetAllQuantitiesPartialFailure(t *testing.T) {
	s, repo := newTestStore(t)
	ctx := context.Background()

	var ids []string
	for _, name := range []string{"Milk", "Eggs", "Rice"} {
		p, err := s.Insert(ctx, testUser, name, []category.ID{category.Weekly}, 3)
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}
	repo.FailOn(ids[1])

	result, err := s.ResetAllQuantities(ctx, testUser)
	require.Error(t, err)
	assert.ErrorIs(t, err, product.ErrPersistence)

	var batchErr *BatchError
	require.True(t, errors.As(err, &batchErr))
	assert.Equal(t, 2, batchErr.Succeeded)
	assert.Equal(t, 1, batchErr.Failed)

	assert.Equal(t, []string{ids[0], ids[2]}, result.Succeeded)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, ids[1], result.Failed[0].ProductID)

	// Applied items are not rolled back.
	repo.Recover()
	products, err := s.Load(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, 0, products[0].Quantity)
	assert.Equal(t, 3, products[1].Quantity)
	assert.Equal(t, 0, products[2].Quantity)
}

func insertNamed(t *testing.T, s *Store, names ...string) []string {
	t.Helper()
	ids := make([]string, 0, len(names))
	for _, name := range names {
		p, err := s.Insert(context.Background(), testUser, name, []category.ID{category.Weekly}, 1)
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}
	return ids
}

func TestStore_MoveAll(t *testing.T) {
	rec := &recorder{}
	s, _ := newTestStore(t)
	ctx := context.Background()
	ids := insertNamed(t, s, "Milk", "Eggs", "Rice")
	s.Subscribe(rec)

	result, err := s.MoveAll(ctx, testUser, []string{ids[0], ids[2], ids[0]},
		[]category.ID{category.CrossCutting, category.Monthly})
	require.NoError(t, err)
	assert.Equal(t, []string{ids[0], ids[2]}, result.Succeeded)
	assert.Empty(t, result.Failed)

	products, err := s.Load(ctx, testUser)
	require.NoError(t, err)
	want := category.MustSet(category.Monthly, category.CrossCutting)
	assert.True(t, products[0].Categories.Equal(want), "Milk = %v", products[0].Categories)
	assert.True(t, products[1].Categories.Equal(category.MustSet(category.Weekly)), "Eggs = %v", products[1].Categories)
	assert.True(t, products[2].Categories.Equal(want), "Rice = %v", products[2].Categories)
	assert.Equal(t, []ChangeKind{ChangeUpdated, ChangeUpdated}, rec.kinds())
}

func TestStore_MoveAllValidatesFirst(t *testing.T) {
	tests := []struct {
		name       string
		categories []category.ID
		wantErr    error
	}{
		{name: "no categories", categories: nil, wantErr: product.ErrNoCategorySelected},
		{name: "unknown category", categories: []category.ID{"yearly"}, wantErr: category.ErrUnknownCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestStore(t)
			ctx := context.Background()
			ids := insertNamed(t, s, "Milk")
			before, err := s.Load(ctx, testUser)
			require.NoError(t, err)

			_, err = s.MoveAll(ctx, testUser, ids, tt.categories)
			assert.ErrorIs(t, err, tt.wantErr)

			after, err := s.Load(ctx, testUser)
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}
}

func TestStore_MoveAllPartialFailure(t *testing.T) {
	s, repo := newTestStore(t)
	ctx := context.Background()
	ids := insertNamed(t, s, "Milk", "Eggs", "Rice")
	repo.FailOn(ids[1])

	result, err := s.MoveAll(ctx, testUser, append(ids, "missing"), []category.ID{category.Monthly})
	require.Error(t, err)
	assert.ErrorIs(t, err, product.ErrPersistence)

	var batchErr *BatchError
	require.True(t, errors.As(err, &batchErr))
	assert.Equal(t, 2, batchErr.Succeeded)
	assert.Equal(t, 2, batchErr.Failed)

	assert.Equal(t, []string{ids[0], ids[2]}, result.Succeeded)
	require.Len(t, result.Failed, 2)
	assert.Equal(t, ids[1], result.Failed[0].ProductID)
	assert.ErrorIs(t, result.Failed[0].Err, ErrInjected)
	assert.Equal(t, "missing", result.Failed[1].ProductID)
	assert.ErrorIs(t, result.Failed[1].Err, product.ErrNotFound)

	repo.Recover()
	products, err := s.Load(ctx, testUser)
	require.NoError(t, err)
	assert.True(t, products[0].Categories.Contains(category.Monthly))
	assert.False(t, products[1].Categories.Contains(category.Monthly))
	assert.True(t, products[2].Categories.Contains(category.Monthly))
}

func TestStore_DeleteAll(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	ids := insertNamed(t, s, "Milk", "Eggs", "Rice")

	result, err := s.DeleteAll(ctx, testUser, []string{ids[0], "never-existed", ids[2]})
	require.NoError(t, err)
	assert.Equal(t, []string{ids[0], "never-existed", ids[2]}, result.Succeeded)

	products, err := s.Load(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Eggs", products[0].Name)
}

func TestStore_DeleteAllPartialFailure(t *testing.T) {
	s, repo := newTestStore(t)
	ctx := context.Background()
	ids := insertNamed(t, s, "Milk", "Eggs")
	repo.FailOn(ids[0])

	result, err := s.DeleteAll(ctx, testUser, ids)
	assert.ErrorIs(t, err, product.ErrPersistence)
	assert.Equal(t, []string{ids[1]}, result.Succeeded)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, ids[0], result.Failed[0].ProductID)

	repo.Recover()
	products, err := s.Load(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Milk", products[0].Name)
}

func TestStore_ObserversRunInOrder(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	var order []string
	s.Subscribe(ObserverFunc(func(context.Context, Change) { order = append(order, "first") }))
	s.Subscribe(ObserverFunc(func(context.Context, Change) { panic("boom") }))
	unsubscribe := s.Subscribe(ObserverFunc(func(context.Context, Change) { order = append(order, "third") }))

	_, err := s.Insert(ctx, testUser, "Milk", []category.ID{category.Weekly}, 0)
	require.NoError(t, err, "a panicking observer must not fail the mutation")
	assert.Equal(t, []string{"first", "third"}, order)

	unsubscribe()
	_, err = s.Insert(ctx, testUser, "Eggs", []category.ID{category.Weekly}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "third", "first"}, order)
}

func TestStore_ObserverSkipsFailedWrites(t *testing.T) {
	rec := &recorder{}
	s, repo := newTestStore(t)
	s.Subscribe(rec)
	repo.FailAll()

	_, err := s.Insert(context.Background(), testUser, "Milk", []category.ID{category.Weekly}, 0)
	require.Error(t, err)
	assert.Empty(t, rec.kinds())
}

func TestStore_ReconcileAll(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	report, err := s.ReconcileAll(ctx, testUser, []reconcile.Candidate{
		{Name: "  Milk ", Categories: []category.ID{category.Weekly}},
		{Name: "milk", Categories: []category.ID{category.Monthly}},
		{Name: "", Categories: []category.ID{category.Weekly}},
	}, reconcile.Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Count(reconcile.StatusInserted))
	assert.Equal(t, 1, report.Count(reconcile.StatusMerged))
	assert.Equal(t, 1, report.Count(reconcile.StatusRejected))
	assert.Equal(t, 1, report.Affected())
	assert.ErrorIs(t, report.Outcomes[2].Reason, product.ErrEmptyName)

	products, err := s.Load(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Milk", products[0].Name)
	assert.Equal(t, category.MustSet(category.Monthly, category.Weekly), products[0].Categories)
	assert.Zero(t, products[0].Quantity)
}

func TestStore_ReconcileAllAddToList(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	p, err := s.Insert(ctx, testUser, "Bread", []category.ID{category.Weekly}, 0)
	require.NoError(t, err)

	report, err := s.ReconcileAll(ctx, testUser, []reconcile.Candidate{
		{Name: "BREAD", Categories: []category.ID{category.Weekly}},
	}, reconcile.Options{AddToList: true})
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, reconcile.StatusMerged, report.Outcomes[0].Status)
	assert.Equal(t, p.ID, report.Outcomes[0].ProductID)

	products, err := s.Load(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, 1, products[0].Quantity)
}

func TestStore_ReconcileAllPersistenceFailureContinues(t *testing.T) {
	s, repo := newTestStore(t)
	ctx := context.Background()

	p, err := s.Insert(ctx, testUser, "Milk", []category.ID{category.Weekly}, 0)
	require.NoError(t, err)
	repo.FailOn(p.ID)

	report, err := s.ReconcileAll(ctx, testUser, []reconcile.Candidate{
		{Name: "Milk", Categories: []category.ID{category.Monthly}},
		{Name: "Eggs", Categories: []category.ID{category.Weekly}},
	}, reconcile.Options{})
	require.NoError(t, err)

	assert.Equal(t, reconcile.StatusRejected, report.Outcomes[0].Status)
	assert.ErrorIs(t, report.Outcomes[0].Reason, product.ErrPersistence)
	assert.Equal(t, reconcile.StatusInserted, report.Outcomes[1].Status)
}
