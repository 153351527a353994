package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/example/shopping-list/domain/category"
	"github.com/example/shopping-list/domain/product"
	"github.com/example/shopping-list/domain/reconcile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModule(t *testing.T) (*CatalogModule, *MemoryRepository) {
	t.Helper()
	repo := NewMemoryRepository()
	m := NewModuleWithRepository(repo, WithSeed(nil), sequentialIDs())
	require.NoError(t, m.Start(context.Background()))
	t.Cleanup(func() { _ = m.Stop(context.Background()) })
	return m, repo
}

func TestErrorInfo_RoundTripKeepsKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "not found", err: product.ErrNotFound},
		{name: "wrapped persistence", err: persistenceError(ErrInjected)},
		{name: "unknown category", err: category.ErrUnknownCategory},
		{name: "empty name", err: product.ErrEmptyName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(NewErrorInfo(tt.err))
			require.NoError(t, err)

			var info ErrorInfo
			require.NoError(t, json.Unmarshal(data, &info))

			var asErr error = &info
			assert.Equal(t, tt.err.Error(), asErr.Error())
			for _, sentinel := range []error{product.ErrNotFound, product.ErrPersistence, category.ErrUnknownCategory, product.ErrEmptyName} {
				assert.Equal(t, errors.Is(tt.err, sentinel), errors.Is(asErr, sentinel), sentinel.Error())
			}
		})
	}
}

func TestNewErrorInfo_Nil(t *testing.T) {
	assert.Nil(t, NewErrorInfo(nil))
}

func TestUpdateRequest_Changes(t *testing.T) {
	name := "Bread"
	comment := "sliced"
	req := UpdateRequest{
		Name:    &name,
		Comment: &comment,
		Clear:   []string{FieldLocation},
	}

	ch := req.Changes()
	require.NotNil(t, ch.Name)
	assert.Equal(t, "Bread", *ch.Name)
	assert.Nil(t, ch.Categories)
	assert.Nil(t, ch.CustomName)
	require.NotNil(t, ch.Comment)
	assert.Equal(t, product.Some("sliced"), *ch.Comment)
	require.NotNil(t, ch.Location)
	assert.False(t, ch.Location.IsPresent())
}

func TestCatalogModule_Handlers(t *testing.T) {
	m, _ := newTestModule(t)
	ctx := context.Background()

	created, err := m.insert(ctx, InsertRequest{UserID: testUser, Name: "Milk", Categories: []category.ID{category.Weekly}}, nil)
	require.NoError(t, err)
	require.Nil(t, created.Error)
	require.NotNil(t, created.Product)

	resp, err := m.setQuantity(ctx, SetQuantityRequest{UserID: testUser, ProductID: created.Product.ID, Quantity: 3}, nil)
	require.NoError(t, err)
	require.Nil(t, resp.Error)
	assert.Equal(t, 3, resp.Product.Quantity)

	missing, err := m.setChecked(ctx, SetCheckedRequest{UserID: testUser, ProductID: "nope", Checked: true}, nil)
	require.NoError(t, err)
	require.NotNil(t, missing.Error)
	assert.Equal(t, product.KindNotFound, missing.Error.Kind)

	invalid, err := m.insert(ctx, InsertRequest{UserID: testUser, Name: "  "}, nil)
	require.NoError(t, err)
	require.NotNil(t, invalid.Error)
	assert.Equal(t, product.KindEmptyName, invalid.Error.Kind)

	loaded, err := m.load(ctx, LoadRequest{UserID: testUser}, nil)
	require.NoError(t, err)
	assert.Len(t, loaded.Products, 1)
}

func TestCatalogModule_ResetReportsFailures(t *testing.T) {
	m, repo := newTestModule(t)
	ctx := context.Background()

	a, err := m.insert(ctx, InsertRequest{UserID: testUser, Name: "Milk", Categories: []category.ID{category.Weekly}, Quantity: 1}, nil)
	require.NoError(t, err)
	b, err := m.insert(ctx, InsertRequest{UserID: testUser, Name: "Eggs", Categories: []category.ID{category.Weekly}, Quantity: 1}, nil)
	require.NoError(t, err)
	repo.FailOn(b.Product.ID)

	resp, err := m.resetQuantities(ctx, ResetRequest{UserID: testUser}, nil)
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, product.KindPersistence, resp.Error.Kind)
	assert.Equal(t, []string{a.Product.ID}, resp.Succeeded)
	require.Len(t, resp.Failed, 1)
	assert.Equal(t, b.Product.ID, resp.Failed[0].ProductID)
	assert.Equal(t, product.KindPersistence, resp.Failed[0].Error.Kind)
}

func TestCatalogModule_Bulk(t *testing.T) {
	m, repo := newTestModule(t)
	ctx := context.Background()

	a, err := m.insert(ctx, InsertRequest{UserID: testUser, Name: "Milk", Categories: []category.ID{category.Weekly}}, nil)
	require.NoError(t, err)
	b, err := m.insert(ctx, InsertRequest{UserID: testUser, Name: "Eggs", Categories: []category.ID{category.Weekly}}, nil)
	require.NoError(t, err)
	ids := []string{a.Product.ID, b.Product.ID}

	t.Run("move", func(t *testing.T) {
		resp, err := m.bulk(ctx, BulkRequest{UserID: testUser, Action: BulkMove, ProductIDs: ids, Categories: []category.ID{category.Monthly}}, nil)
		require.NoError(t, err)
		assert.Nil(t, resp.Error)
		assert.Equal(t, ids, resp.Succeeded)
		assert.Empty(t, resp.Failed)
	})

	t.Run("move without categories", func(t *testing.T) {
		resp, err := m.bulk(ctx, BulkRequest{UserID: testUser, Action: BulkMove, ProductIDs: ids}, nil)
		require.NoError(t, err)
		require.NotNil(t, resp.Error)
		assert.Equal(t, product.KindNoCategorySelected, resp.Error.Kind)
	})

	t.Run("unknown action", func(t *testing.T) {
		resp, err := m.bulk(ctx, BulkRequest{UserID: testUser, Action: "archive", ProductIDs: ids}, nil)
		require.NoError(t, err)
		require.NotNil(t, resp.Error)
		assert.Equal(t, product.KindInternal, resp.Error.Kind)
	})

	t.Run("delete with failure", func(t *testing.T) {
		repo.FailOn(b.Product.ID)
		defer repo.Recover()

		resp, err := m.bulk(ctx, BulkRequest{UserID: testUser, Action: BulkDelete, ProductIDs: ids}, nil)
		require.NoError(t, err)
		require.NotNil(t, resp.Error)
		assert.Equal(t, product.KindPersistence, resp.Error.Kind)
		assert.Equal(t, []string{a.Product.ID}, resp.Succeeded)
		require.Len(t, resp.Failed, 1)
		assert.Equal(t, b.Product.ID, resp.Failed[0].ProductID)
	})
}

func TestCatalogModule_Reconcile(t *testing.T) {
	m, _ := newTestModule(t)
	ctx := context.Background()

	resp, err := m.reconcileBatch(ctx, ReconcileRequest{
		UserID: testUser,
		Candidates: []reconcile.Candidate{
			{Name: "Milk", Categories: []category.ID{category.Weekly}},
			{Name: "MILK", Categories: []category.ID{category.Monthly}},
			{Name: "Bread"},
		},
	}, nil)
	require.NoError(t, err)
	require.Nil(t, resp.Error)

	assert.Equal(t, 1, resp.Inserted)
	assert.Equal(t, 1, resp.Merged)
	assert.Equal(t, 1, resp.Rejected)
	assert.Equal(t, 1, resp.Affected)
	require.Len(t, resp.Outcomes, 3)
	require.NotNil(t, resp.Outcomes[2].Error)
	assert.Equal(t, product.KindNoCategorySelected, resp.Outcomes[2].Error.Kind)
}

func TestCatalogModule_PublishesNothingWithoutBus(t *testing.T) {
	m, _ := newTestModule(t)

	// The bridge is subscribed but a nil bus must be tolerated.
	_, err := m.Store().Insert(context.Background(), testUser, "Milk", []category.ID{category.Weekly}, 0)
	require.NoError(t, err)
}

func TestCatalogModule_Health(t *testing.T) {
	m, _ := newTestModule(t)
	status := m.Health(context.Background())
	assert.True(t, status.Healthy)

	empty := NewModule(DefaultConfig())
	assert.False(t, empty.Health(context.Background()).Healthy)
}
