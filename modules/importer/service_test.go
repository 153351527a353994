package importer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/example/shopping-list/domain/category"
	"github.com/example/shopping-list/domain/product"
	"github.com/example/shopping-list/domain/reconcile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubOCR struct {
	lines []string
	err   error
	calls int
}

func (s *stubOCR) ExtractLines(_ context.Context, _ Image) ([]string, error) {
	s.calls++
	return s.lines, s.err
}

// mockObjectStore records objects in memory.
type mockObjectStore struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func newMockObjectStore() *mockObjectStore {
	return &mockObjectStore{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (m *mockObjectStore) Put(_ context.Context, name string, data []byte, contentType string) error {
	if m.err != nil {
		return m.err
	}
	m.objects[name] = data
	m.types[name] = contentType
	return nil
}

type stubCatalog struct {
	products []product.Product
	err      error
}

func (s *stubCatalog) Load(_ context.Context, _ string) ([]product.Product, error) {
	return s.products, s.err
}

func newTestArchive(t *testing.T, store ObjectStore) *ObjectArchive {
	t.Helper()
	a, err := NewObjectArchive(store)
	require.NoError(t, err)
	a.newID = func() string { return "scan1" }
	a.now = func() time.Time { return time.Date(2026, 3, 7, 18, 30, 0, 0, time.UTC) }
	return a
}

func TestObjectArchive_Store(t *testing.T) {
	store := newMockObjectStore()
	a := newTestArchive(t, store)

	name, err := a.Store(context.Background(), "user-1", Image{Data: []byte("png"), ContentType: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, "user-1/2026-03-07/scan1", name)
	assert.Equal(t, []byte("png"), store.objects[name])
	assert.Equal(t, "image/png", store.types[name])

	_, err = a.Store(context.Background(), "user-1", Image{})
	assert.ErrorIs(t, err, ErrNoImage)
}

func TestService_ScanPhoto(t *testing.T) {
	ocr := &stubOCR{lines: []string{" milk ", "", "Bread", "  "}}
	store := newMockObjectStore()
	catalog := &stubCatalog{products: []product.Product{
		{ID: "p-milk", Name: "Milk", Categories: category.MustSet(category.Weekly)},
	}}
	svc := NewService(ocr, nil, newTestArchive(t, store), catalog)

	result, archived, err := svc.ScanPhoto(context.Background(), "user-1", Image{Data: []byte("png")})
	require.NoError(t, err)
	assert.Equal(t, "user-1/2026-03-07/scan1", archived)
	assert.Equal(t, []string{"milk", "Bread"}, result.Lines)
	assert.Equal(t, []LineMatch{
		{Line: "milk", ProductID: "p-milk", Exists: true},
		{Line: "Bread"},
	}, result.Matches)
}

func TestService_ScanPhoto_ArchiveFailureDoesNotBlock(t *testing.T) {
	store := newMockObjectStore()
	store.err = errors.New("bucket gone")
	svc := NewService(&stubOCR{lines: []string{"Eggs"}}, nil, newTestArchive(t, store), nil)

	result, archived, err := svc.ScanPhoto(context.Background(), "user-1", Image{Data: []byte("png")})
	require.NoError(t, err)
	assert.Empty(t, archived)
	assert.Equal(t, []string{"Eggs"}, result.Lines)
}

func TestService_ScanPhoto_OCRFailureYieldsNoLines(t *testing.T) {
	svc := NewService(&stubOCR{err: product.ErrExternalService}, nil, nil, nil)

	result, _, err := svc.ScanPhoto(context.Background(), "user-1", Image{Data: []byte("png")})
	assert.ErrorIs(t, err, product.ErrExternalService)
	assert.Empty(t, result.Lines)
	assert.Empty(t, result.Matches)
}

func TestService_ScanPhoto_NoImage(t *testing.T) {
	ocr := &stubOCR{}
	_, _, err := NewService(ocr, nil, nil, nil).ScanPhoto(context.Background(), "user-1", Image{})
	assert.ErrorIs(t, err, ErrNoImage)
	assert.Zero(t, ocr.calls)
}

func TestService_MatchesCatalogFailure(t *testing.T) {
	svc := NewService(nil, nil, nil, &stubCatalog{err: product.ErrPersistence})
	got := svc.Matches(context.Background(), "user-1", []string{"Milk"})
	assert.Equal(t, []LineMatch{{Line: "Milk"}}, got)
}

func TestService_CandidatesFeedReconcile(t *testing.T) {
	svc := NewService(nil, nil, nil, nil)
	cats := []category.ID{category.Weekly}

	candidates := svc.Candidates([]string{"  Milk ", "", "milk", "Bread"}, cats)
	require.Len(t, candidates, 3)
	cats[0] = category.Monthly
	assert.Equal(t, []category.ID{category.Weekly}, candidates[0].Categories)

	report := reconcile.ReconcileAll(context.Background(), candidates, nil, reconcile.Options{}, &recordingApplier{})
	assert.Equal(t, 2, report.Count(reconcile.StatusInserted))
	assert.Equal(t, 1, report.Count(reconcile.StatusMerged))
}

// recordingApplier persists nothing and echoes products back.
type recordingApplier struct {
	n int
}

func (a *recordingApplier) ApplyInsert(_ context.Context, in reconcile.Instruction) (product.Product, error) {
	a.n++
	return product.Product{ID: strings.Repeat("p", a.n), Name: in.Name, Categories: in.Categories, Quantity: in.Quantity}, nil
}

func (a *recordingApplier) ApplyMerge(_ context.Context, in reconcile.Instruction) (product.Product, error) {
	return product.Product{ID: in.ProductID, Categories: in.Categories, Quantity: in.Quantity}, nil
}

func TestErrorInfo_KeepsImporterKinds(t *testing.T) {
	for _, sentinel := range []error{ErrInvalidBarcode, ErrNoImage, product.ErrExternalService} {
		data, err := json.Marshal(NewErrorInfo(sentinel))
		require.NoError(t, err)

		var info ErrorInfo
		require.NoError(t, json.Unmarshal(data, &info))
		assert.ErrorIs(t, &info, sentinel)
	}
	assert.Nil(t, NewErrorInfo(nil))
}

func TestImporterModule_Handlers(t *testing.T) {
	upstream := &countingLookup{labels: map[string]Label{"40084107": {Text: "Milk", Found: true}}}
	m := NewModule(DefaultConfig(), nil,
		WithOCRClient(&stubOCR{lines: []string{"Milk"}}),
		WithProductLookup(upstream),
	)
	require.NoError(t, m.Start(context.Background()))
	t.Cleanup(func() { _ = m.Stop(context.Background()) })

	scan, err := m.scanPhoto(context.Background(), ScanPhotoRequest{UserID: "user-1", Image: Image{Data: []byte("png")}}, nil)
	require.NoError(t, err)
	require.Nil(t, scan.Error)
	assert.Equal(t, []string{"Milk"}, scan.Result.Lines)

	empty, err := m.scanPhoto(context.Background(), ScanPhotoRequest{UserID: "user-1"}, nil)
	require.NoError(t, err)
	require.NotNil(t, empty.Error)
	assert.Equal(t, KindNoImage, empty.Error.Kind)

	found, err := m.lookupBarcode(context.Background(), LookupBarcodeRequest{Code: "40084107"}, nil)
	require.NoError(t, err)
	assert.Equal(t, Label{Text: "Milk", Found: true}, found.Label)

	bad, err := m.lookupBarcode(context.Background(), LookupBarcodeRequest{Code: "x"}, nil)
	require.NoError(t, err)
	require.NotNil(t, bad.Error)
	assert.Equal(t, KindInvalidBarcode, bad.Error.Kind)

	assert.True(t, m.Health(context.Background()).Healthy)
}
