package product

import (
	"errors"

	"github.com/example/shopping-list/domain/category"
)

// Sentinel errors for shopping list operations.
var (
	// ErrEmptyName is returned when a product name is empty after trimming.
	ErrEmptyName = errors.New("product name is empty")

	// ErrNoCategorySelected is returned when a reconciliation names no category.
	ErrNoCategorySelected = errors.New("no category selected")

	// ErrNotFound is returned when a product id does not exist for the user.
	ErrNotFound = errors.New("product not found")

	// ErrPersistence is returned when the underlying storage fails.
	ErrPersistence = errors.New("persistence error")

	// ErrExternalService is returned when OCR or barcode lookup fails.
	ErrExternalService = errors.New("external service error")
)

// Error kinds exposed to callers that cannot use errors.Is, e.g. across the bus or HTTP.
const (
	KindEmptyName          = "empty_name"
	KindNoCategorySelected = "no_category_selected"
	KindNotFound           = "not_found"
	KindUnknownCategory    = "unknown_category"
	KindPersistence        = "persistence_error"
	KindExternalService    = "external_service_error"
	KindInternal           = "internal"
)

var kinds = []struct {
	kind string
	err  error
}{
	{KindEmptyName, ErrEmptyName},
	{KindNoCategorySelected, ErrNoCategorySelected},
	{KindNotFound, ErrNotFound},
	{KindUnknownCategory, category.ErrUnknownCategory},
	{KindPersistence, ErrPersistence},
	{KindExternalService, ErrExternalService},
}

// KindOf returns the error kind of err, or KindInternal if it has none.
// It returns "" for a nil error.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// ErrorForKind returns the sentinel error for kind, or nil if kind is unknown.
func ErrorForKind(kind string) error {
	for _, k := range kinds {
		if k.kind == kind {
			return k.err
		}
	}
	return nil
}
