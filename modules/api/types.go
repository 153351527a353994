package api

import (
	"github.com/example/shopping-list/domain/category"
	"github.com/example/shopping-list/domain/partition"
	"github.com/example/shopping-list/domain/product"
	"github.com/example/shopping-list/domain/reconcile"
	"github.com/example/shopping-list/modules/importer"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// AccountResponse describes a newly registered account.
type AccountResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// ProductListResponse is the body of GET /products.
type ProductListResponse struct {
	Products []product.Product `json:"products"`
	Total    int               `json:"total"`
}

// CreateProductRequest is the body of POST /products.
type CreateProductRequest struct {
	Name       string        `json:"name"`
	Categories []category.ID `json:"categories"`
	Quantity   int           `json:"quantity"`
}

// UpdateProductRequest is the body of PATCH /products/:id. Omitted fields
// are left alone; annotation names in clear are removed.
type UpdateProductRequest struct {
	Name       *string        `json:"name"`
	Categories *[]category.ID `json:"categories"`
	CustomName *string        `json:"custom_name"`
	Comment    *string        `json:"comment"`
	Location   *string        `json:"location"`
	Clear      []string       `json:"clear"`
}

// QuantityRequest is the body of PUT /products/:id/quantity.
type QuantityRequest struct {
	Quantity int `json:"quantity"`
}

// CheckedRequest is the body of PUT /products/:id/checked.
type CheckedRequest struct {
	Checked bool `json:"checked"`
}

// BulkRequest is the body of POST /products/bulk. Action is "move" or
// "delete"; a move replaces the categories of every listed product.
type BulkRequest struct {
	Action     string        `json:"action"`
	ProductIDs []string      `json:"product_ids"`
	Categories []category.ID `json:"categories"`
}

// ReconcileRequest is the body of POST /reconcile. Either candidates or
// lines plus categories may be given; lines come from a photo scan.
type ReconcileRequest struct {
	Candidates []reconcile.Candidate `json:"candidates"`
	Lines      []string              `json:"lines"`
	Categories []category.ID         `json:"categories"`
	AddToList  bool                  `json:"add_to_list"`
}

// SummaryResponse is the body of GET /summary.
type SummaryResponse struct {
	Groups   []partition.Group  `json:"groups"`
	Progress partition.Progress `json:"progress"`
}

// TextExportResponse is the body of GET /export/text.
type TextExportResponse struct {
	Text         string `json:"text"`
	WhatsAppLink string `json:"whatsapp_link"`
}

// ScanResponse is the body of POST /import/photo.
type ScanResponse struct {
	Lines      []string             `json:"lines"`
	Matches    []importer.LineMatch `json:"matches"`
	ArchivedAs string               `json:"archived_as,omitempty"`
}

// BarcodeResponse is the body of GET /import/barcode/:code.
type BarcodeResponse struct {
	Code  string `json:"code"`
	Text  string `json:"text"`
	Found bool   `json:"found"`
}
