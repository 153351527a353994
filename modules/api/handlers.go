package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/example/shopping-list/domain/category"
	"github.com/example/shopping-list/domain/partition"
	"github.com/example/shopping-list/domain/product"
	"github.com/example/shopping-list/export"
	"github.com/example/shopping-list/modules/auth"
	"github.com/example/shopping-list/modules/broadcast"
	"github.com/example/shopping-list/modules/cache"
	"github.com/example/shopping-list/modules/catalog"
	"github.com/example/shopping-list/modules/importer"
	"github.com/gofiber/fiber/v2"
)

// Handlers contains the HTTP handlers. Every dependency is a port so tests
// can run without a bus.
type Handlers struct {
	auth      auth.AuthPort
	catalog   catalog.CatalogPort
	importer  importer.ImporterPort
	stats     cache.StatsPort
	hub       *broadcast.Hub
	maxUpload int64
	now       func() time.Time
}

// NewHandlers creates Handlers. stats and hub may be nil.
func NewHandlers(authPort auth.AuthPort, catalogPort catalog.CatalogPort, importerPort importer.ImporterPort,
	stats cache.StatsPort, hub *broadcast.Hub, maxUpload int64) *Handlers {
	return &Handlers{
		auth:      authPort,
		catalog:   catalogPort,
		importer:  importerPort,
		stats:     stats,
		hub:       hub,
		maxUpload: maxUpload,
		now:       time.Now,
	}
}

func (h *Handlers) userID(c *fiber.Ctx) (string, bool) {
	claims, ok := claimsFrom(c)
	if !ok {
		return "", false
	}
	return claims.UserID, true
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
		Error:   "unauthorized",
		Message: "User not authenticated",
	})
}

// Register creates a family account.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "Email and password are required")
	}

	resp, err := h.auth.Register(c.UserContext(), auth.RegisterRequest{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(AccountResponse{
		ID:          resp.ID,
		Email:       resp.Email,
		DisplayName: resp.DisplayName,
	})
}

// Login exchanges credentials for tokens.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "Email and password are required")
	}

	tokens, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(tokens)
}

// Refresh exchanges a refresh token for a new pair.
func (h *Handlers) Refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.RefreshToken == "" {
		return badRequest(c, "Refresh token is required")
	}

	tokens, err := h.auth.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		if StatusFor(err) == fiber.StatusInternalServerError {
			return writeError(c, err)
		}
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid or expired refresh token",
		})
	}
	return c.JSON(tokens)
}

// Categories lists the category registry.
func (h *Handlers) Categories(c *fiber.Ctx) error {
	return c.JSON(category.All())
}

// ListProducts returns the catalog, optionally narrowed by ?category= and ?q=.
func (h *Handlers) ListProducts(c *fiber.Ctx) error {
	userID, ok := h.userID(c)
	if !ok {
		return unauthorized(c)
	}

	var filter category.ID
	if raw := c.Query("category"); raw != "" {
		id, err := category.Parse(raw)
		if err != nil {
			return writeError(c, err)
		}
		filter = id
	}

	products, err := h.catalog.Load(c.UserContext(), userID)
	if err != nil {
		return writeError(c, err)
	}
	if filter != "" {
		products = partition.ByCategory(products, filter)
	}
	products = partition.Search(products, c.Query("q"))

	return c.JSON(ProductListResponse{Products: products, Total: len(products)})
}

// ManageProducts returns every product grouped for the management page.
func (h *Handlers) ManageProducts(c *fiber.Ctx) error {
	userID, ok := h.userID(c)
	if !ok {
		return unauthorized(c)
	}
	products, err := h.catalog.Load(c.UserContext(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(partition.Manage(products, c.Query("q")))
}

// CreateProduct inserts a product.
func (h *Handlers) CreateProduct(c *fiber.Ctx) error {
	userID, ok := h.userID(c)
	if !ok {
		return unauthorized(c)
	}
	var req CreateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	p, err := h.catalog.Insert(c.UserContext(), catalog.InsertRequest{
		UserID:     userID,
		Name:       req.Name,
		Categories: req.Categories,
		Quantity:   req.Quantity,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

// UpdateProduct applies a partial update.
func (h *Handlers) UpdateProduct(c *fiber.Ctx) error {
	userID, ok := h.userID(c)
	if !ok {
		return unauthorized(c)
	}
	var req UpdateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	for _, f := range req.Clear {
		switch f {
		case catalog.FieldCustomName, catalog.FieldComment, catalog.FieldLocation:
		default:
			return badRequest(c, fmt.Sprintf("Unknown field in clear: %q", f))
		}
	}

	p, err := h.catalog.Update(c.UserContext(), catalog.UpdateRequest{
		UserID:     userID,
		ProductID:  c.Params("id"),
		Name:       req.Name,
		Categories: req.Categories,
		CustomName: req.CustomName,
		Comment:    req.Comment,
		Location:   req.Location,
		Clear:      req.Clear,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(p)
}

// SetQuantity sets a product quantity. Negative values are stored as 0.
func (h *Handlers) SetQuantity(c *fiber.Ctx) error {
	userID, ok := h.userID(c)
	if !ok {
		return unauthorized(c)
	}
	var req QuantityRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	p, err := h.catalog.SetQuantity(c.UserContext(), userID, c.Params("id"), req.Quantity)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(p)
}

// SetChecked ticks a product off the list.
func (h *Handlers) SetChecked(c *fiber.Ctx) error {
	userID, ok := h.userID(c)
	if !ok {
		return unauthorized(c)
	}
	var req CheckedRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	p, err := h.catalog.SetChecked(c.UserContext(), userID, c.Params("id"), req.Checked)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(p)
}

// DeleteProduct removes a product. Deleting a missing product succeeds.
func (h *Handlers) DeleteProduct(c *fiber.Ctx) error {
	userID, ok := h.userID(c)
	if !ok {
		return unauthorized(c)
	}
	if err := h.catalog.Delete(c.UserContext(), userID, c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ResetQuantities zeroes every quantity, answering 207 when some failed.
func (h *Handlers) ResetQuantities(c *fiber.Ctx) error {
	userID, ok := h.userID(c)
	if !ok {
		return unauthorized(c)
	}

	resp, err := h.catalog.ResetQuantities(c.UserContext(), userID)
	if err != nil {
		if resp != nil && errors.Is(err, product.ErrPersistence) {
			return c.Status(fiber.StatusMultiStatus).JSON(resp)
		}
		return writeError(c, err)
	}
	return c.JSON(resp)
}

// BulkProducts moves or deletes the selected products, answering 207 when
// some of them failed.
func (h *Handlers) BulkProducts(c *fiber.Ctx) error {
	userID, ok := h.userID(c)
	if !ok {
		return unauthorized(c)
	}
	var req BulkRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Action != catalog.BulkMove && req.Action != catalog.BulkDelete {
		return badRequest(c, "action must be 'move' or 'delete'")
	}
	if len(req.ProductIDs) == 0 {
		return badRequest(c, "product_ids is required")
	}

	resp, err := h.catalog.Bulk(c.UserContext(), catalog.BulkRequest{
		UserID:     userID,
		Action:     req.Action,
		ProductIDs: req.ProductIDs,
		Categories: req.Categories,
	})
	if err != nil {
		if resp != nil && errors.Is(err, product.ErrPersistence) {
			return c.Status(fiber.StatusMultiStatus).JSON(resp)
		}
		return writeError(c, err)
	}
	log.Printf("[api] Bulk %s for user %s touched %d products", req.Action, userID, len(resp.Succeeded))
	return c.JSON(resp)
}

// Reconcile merges a batch of candidates into the catalog, answering 207
// when some were rejected.
func (h *Handlers) Reconcile(c *fiber.Ctx) error {
	userID, ok := h.userID(c)
	if !ok {
		return unauthorized(c)
	}
	var req ReconcileRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	candidates := req.Candidates
	if len(candidates) == 0 && len(req.Lines) > 0 {
		candidates = importer.Candidates(req.Lines, req.Categories)
	}
	if len(candidates) == 0 {
		return badRequest(c, "candidates or lines are required")
	}

	resp, err := h.catalog.Reconcile(c.UserContext(), catalog.ReconcileRequest{
		UserID:     userID,
		Candidates: candidates,
		AddToList:  req.AddToList,
	})
	if err != nil {
		return writeError(c, err)
	}
	if resp.Rejected > 0 && resp.Inserted+resp.Merged > 0 {
		return c.Status(fiber.StatusMultiStatus).JSON(resp)
	}
	return c.JSON(resp)
}

// Summary returns the active list grouped by category with progress.
func (h *Handlers) Summary(c *fiber.Ctx) error {
	userID, ok := h.userID(c)
	if !ok {
		return unauthorized(c)
	}
	products, err := h.catalog.Load(c.UserContext(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(SummaryResponse{
		Groups:   partition.Summary(products),
		Progress: partition.CountProgress(products),
	})
}

func (h *Handlers) activeGroups(c *fiber.Ctx, userID string) ([]partition.Group, error) {
	products, err := h.catalog.Load(c.UserContext(), userID)
	if err != nil {
		return nil, err
	}
	return partition.Summary(products), nil
}

// ExportText returns the chat message and its share link.
func (h *Handlers) ExportText(c *fiber.Ctx) error {
	userID, ok := h.userID(c)
	if !ok {
		return unauthorized(c)
	}
	groups, err := h.activeGroups(c, userID)
	if err != nil {
		return writeError(c, err)
	}
	text := export.Text(groups)
	return c.JSON(TextExportResponse{Text: text, WhatsAppLink: export.WhatsAppLink(text)})
}

// ExportQR returns a PNG QR code of the share link.
func (h *Handlers) ExportQR(c *fiber.Ctx) error {
	userID, ok := h.userID(c)
	if !ok {
		return unauthorized(c)
	}
	groups, err := h.activeGroups(c, userID)
	if err != nil {
		return writeError(c, err)
	}
	png, err := export.QRCode(export.WhatsAppLink(export.Text(groups)), c.QueryInt("size", export.DefaultQRSize))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(png)
}

// ExportPDF returns the list as a printable PDF.
func (h *Handlers) ExportPDF(c *fiber.Ctx) error {
	userID, ok := h.userID(c)
	if !ok {
		return unauthorized(c)
	}
	groups, err := h.activeGroups(c, userID)
	if err != nil {
		return writeError(c, err)
	}
	day := h.now()
	var buf bytes.Buffer
	if err := export.PDF(&buf, groups, day); err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Attachment(export.PDFFileName(day))
	return c.Send(buf.Bytes())
}

// ExportCSV returns the whole catalog as CSV.
func (h *Handlers) ExportCSV(c *fiber.Ctx) error {
	userID, ok := h.userID(c)
	if !ok {
		return unauthorized(c)
	}
	products, err := h.catalog.Load(c.UserContext(), userID)
	if err != nil {
		return writeError(c, err)
	}
	var buf bytes.Buffer
	if err := export.CSV(&buf, products); err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Attachment(export.CSVFileName)
	return c.Send(buf.Bytes())
}

// ImportPhoto reads a shopping-list photo from the multipart field "photo".
func (h *Handlers) ImportPhoto(c *fiber.Ctx) error {
	userID, ok := h.userID(c)
	if !ok {
		return unauthorized(c)
	}

	header, err := c.FormFile("photo")
	if err != nil {
		return badRequest(c, "multipart field 'photo' is required")
	}
	if h.maxUpload > 0 && header.Size > h.maxUpload {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(ErrorResponse{
			Error:   importer.KindPhotoTooLarge,
			Message: fmt.Sprintf("Photo exceeds maximum of %d bytes", h.maxUpload),
		})
	}

	file, err := header.Open()
	if err != nil {
		return badRequest(c, "Failed to read uploaded photo")
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return badRequest(c, "Failed to read uploaded photo")
	}

	img := importer.Image{Data: data, ContentType: header.Header.Get(fiber.HeaderContentType)}
	resp, err := h.importer.ScanPhoto(c.UserContext(), userID, img)
	if err != nil {
		return writeError(c, err)
	}
	log.Printf("[api] Photo scan for user %s read %d lines", userID, len(resp.Result.Lines))
	return c.JSON(ScanResponse{
		Lines:      resp.Result.Lines,
		Matches:    resp.Result.Matches,
		ArchivedAs: resp.ArchivedAs,
	})
}

// LookupBarcode resolves a scanned barcode to a product label;
// ?refresh=true bypasses a cached label.
func (h *Handlers) LookupBarcode(c *fiber.Ctx) error {
	if _, ok := h.userID(c); !ok {
		return unauthorized(c)
	}
	code := c.Params("code")
	label, err := h.importer.LookupBarcode(c.UserContext(), code, c.QueryBool("refresh"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(BarcodeResponse{Code: code, Text: label.Text, Found: label.Found})
}

// PurgeBarcodeCache drops every cached barcode label.
func (h *Handlers) PurgeBarcodeCache(c *fiber.Ctx) error {
	userID, ok := h.userID(c)
	if !ok {
		return unauthorized(c)
	}
	if err := h.importer.PurgeBarcodes(c.UserContext()); err != nil {
		return writeError(c, err)
	}
	log.Printf("[api] Barcode cache purged by user %s", userID)
	return c.SendStatus(fiber.StatusNoContent)
}

// CacheStats returns barcode cache statistics; ?reset=true zeroes them.
func (h *Handlers) CacheStats(c *fiber.Ctx) error {
	if h.stats == nil {
		return c.JSON(cache.StatsSnapshot{})
	}
	stats, err := h.stats.Stats(c.UserContext(), c.QueryBool("reset"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(stats)
}
