package catalog

import (
	"context"
	"errors"

	"github.com/example/shopping-list/domain/category"
	"github.com/example/shopping-list/domain/product"
	"github.com/example/shopping-list/domain/reconcile"
)

// ErrorInfo carries a domain error across the bus. It is itself an error
// that unwraps to the sentinel of its kind, so errors.Is keeps working on
// the caller side.
type ErrorInfo struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (e *ErrorInfo) Error() string {
	return e.Message
}

func (e *ErrorInfo) Unwrap() error {
	return product.ErrorForKind(e.Kind)
}

// NewErrorInfo converts err for transport. It returns nil for a nil error.
func NewErrorInfo(err error) *ErrorInfo {
	if err == nil {
		return nil
	}
	return &ErrorInfo{Kind: product.KindOf(err), Message: err.Error()}
}

// LoadRequest is the request for loading a user's catalog.
type LoadRequest struct {
	UserID string `json:"user_id"`
}

// ProductsResponse is the response carrying a product list.
type ProductsResponse struct {
	Products []product.Product `json:"products"`
	Error    *ErrorInfo        `json:"error,omitempty"`
}

// InsertRequest is the request for creating a product.
type InsertRequest struct {
	UserID     string        `json:"user_id"`
	Name       string        `json:"name"`
	Categories []category.ID `json:"categories"`
	Quantity   int           `json:"quantity"`
}

// ProductResponse is the response carrying a single product.
type ProductResponse struct {
	Product *product.Product `json:"product,omitempty"`
	Error   *ErrorInfo       `json:"error,omitempty"`
}

// Annotation field names accepted by UpdateRequest.Clear.
const (
	FieldCustomName = "custom_name"
	FieldComment    = "comment"
	FieldLocation   = "location"
)

// UpdateRequest is a partial update. Omitted fields stay unchanged;
// annotations listed in Clear are removed.
type UpdateRequest struct {
	UserID     string         `json:"user_id"`
	ProductID  string         `json:"product_id"`
	Name       *string        `json:"name,omitempty"`
	Categories *[]category.ID `json:"categories,omitempty"`
	CustomName *string        `json:"custom_name,omitempty"`
	Comment    *string        `json:"comment,omitempty"`
	Location   *string        `json:"location,omitempty"`
	Clear      []string       `json:"clear,omitempty"`
}

// Changes converts the request into a store update.
func (r UpdateRequest) Changes() Changes {
	ch := Changes{Name: r.Name, Categories: r.Categories}
	ch.CustomName = annotation(r.CustomName, r.cleared(FieldCustomName))
	ch.Comment = annotation(r.Comment, r.cleared(FieldComment))
	ch.Location = annotation(r.Location, r.cleared(FieldLocation))
	return ch
}

func (r UpdateRequest) cleared(field string) bool {
	for _, f := range r.Clear {
		if f == field {
			return true
		}
	}
	return false
}

func annotation(v *string, remove bool) *product.Optional[string] {
	if remove {
		o := product.None[string]()
		return &o
	}
	if v == nil {
		return nil
	}
	o := product.Some(*v)
	return &o
}

// SetQuantityRequest is the request for setting a quantity.
type SetQuantityRequest struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// SetCheckedRequest is the request for checking a product off.
type SetCheckedRequest struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	Checked   bool   `json:"checked"`
}

// DeleteRequest is the request for deleting a product.
type DeleteRequest struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
}

// DeleteResponse is the response for deleting a product.
type DeleteResponse struct {
	Error *ErrorInfo `json:"error,omitempty"`
}

// ResetRequest is the request for zeroing every quantity.
type ResetRequest struct {
	UserID string `json:"user_id"`
}

// FailedItem is a batch item that could not be written.
type FailedItem struct {
	ProductID string    `json:"product_id"`
	Error     ErrorInfo `json:"error"`
}

// BatchResponse reports a per-item batch write: a quantity reset or a bulk
// action. Error is set when any item failed.
type BatchResponse struct {
	Succeeded []string     `json:"succeeded"`
	Failed    []FailedItem `json:"failed"`
	Error     *ErrorInfo   `json:"error,omitempty"`
}

// Bulk actions accepted by BulkRequest.
const (
	BulkMove   = "move"
	BulkDelete = "delete"
)

// ErrUnknownBulkAction is returned for a BulkRequest action other than
// BulkMove or BulkDelete.
var ErrUnknownBulkAction = errors.New("unknown bulk action")

// BulkRequest applies one action to several products. Categories is the
// destination of a move.
type BulkRequest struct {
	UserID     string        `json:"user_id"`
	Action     string        `json:"action"`
	ProductIDs []string      `json:"product_ids"`
	Categories []category.ID `json:"categories,omitempty"`
}

// ReconcileRequest is the request for reconciling a batch of candidates.
type ReconcileRequest struct {
	UserID     string                `json:"user_id"`
	Candidates []reconcile.Candidate `json:"candidates"`
	AddToList  bool                  `json:"add_to_list"`
}

// OutcomeResponse is the per-candidate result of a reconciliation.
type OutcomeResponse struct {
	Index     int              `json:"index"`
	Name      string           `json:"name"`
	Status    reconcile.Status `json:"status"`
	ProductID string           `json:"product_id,omitempty"`
	Duplicate bool             `json:"duplicate,omitempty"`
	Error     *ErrorInfo       `json:"error,omitempty"`
}

// ReconcileResponse reports a reconciliation batch.
type ReconcileResponse struct {
	Outcomes []OutcomeResponse `json:"outcomes"`
	Inserted int               `json:"inserted"`
	Merged   int               `json:"merged"`
	Rejected int               `json:"rejected"`
	Affected int               `json:"affected"`
	Error    *ErrorInfo        `json:"error,omitempty"`
}

// CatalogPort is the catalog contract used by other modules.
// Errors unwrap to the domain sentinels.
type CatalogPort interface {
	Load(ctx context.Context, userID string) ([]product.Product, error)
	Insert(ctx context.Context, req InsertRequest) (product.Product, error)
	Update(ctx context.Context, req UpdateRequest) (product.Product, error)
	SetQuantity(ctx context.Context, userID, productID string, quantity int) (product.Product, error)
	SetChecked(ctx context.Context, userID, productID string, checked bool) (product.Product, error)
	Delete(ctx context.Context, userID, productID string) error
	// ResetQuantities returns the response together with an error that
	// unwraps to product.ErrPersistence when some items failed.
	ResetQuantities(ctx context.Context, userID string) (*BatchResponse, error)
	// Bulk moves or deletes several products. Like ResetQuantities it
	// returns the response together with a partial-failure error.
	Bulk(ctx context.Context, req BulkRequest) (*BatchResponse, error)
	Reconcile(ctx context.Context, req ReconcileRequest) (*ReconcileResponse, error)
}
