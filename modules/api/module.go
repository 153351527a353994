// Package api serves the shopping list over HTTP and WebSocket.
package api

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/example/shopping-list/domain/account"
	"github.com/example/shopping-list/modules/auth"
	"github.com/example/shopping-list/modules/broadcast"
	"github.com/example/shopping-list/modules/cache"
	"github.com/example/shopping-list/modules/catalog"
	"github.com/example/shopping-list/modules/importer"
	"github.com/go-monolith/mono"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
)

// Config holds the HTTP server configuration.
type Config struct {
	Addr        string
	CORSOrigins string
	// MaxUploadSize caps photo uploads. Photos cross the bus, so it must
	// stay within importer.MaxPhotoSize of the bus payload limit.
	MaxUploadSize int64
	// AuthLimit throttles register, login and refresh per client IP.
	AuthLimit cache.Limit
	// ScanLimit throttles photo scans per account.
	ScanLimit cache.Limit
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		Addr:          ":3000",
		CORSOrigins:   "*",
		MaxUploadSize: importer.MaxPhotoSize(importer.MaxBusPayload),
		AuthLimit:     cache.Limit{Requests: 10, Window: time.Minute},
		ScanLimit:     cache.Limit{Requests: 30, Window: time.Hour},
	}
}

// APIModule is the HTTP API module.
type APIModule struct {
	cfg      Config
	app      *fiber.App
	hub      *broadcast.Hub
	limiter  Limiter
	auth     auth.AuthPort
	catalog  catalog.CatalogPort
	importer importer.ImporterPort
	stats    cache.StatsPort
}

// Compile-time interface checks.
var _ mono.Module = (*APIModule)(nil)
var _ mono.DependentModule = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)

// NewModule creates an APIModule pushing changes through hub. limiter may
// be nil to disable rate limiting.
func NewModule(cfg Config, hub *broadcast.Hub, limiter Limiter) *APIModule {
	return &APIModule{cfg: cfg, hub: hub, limiter: limiter}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *APIModule) Dependencies() []string {
	return []string{"auth", "catalog", "importer", "cache"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "auth":
		m.auth = auth.NewAuthAdapter(container)
	case "catalog":
		m.catalog = catalog.NewCatalogAdapter(container)
	case "importer":
		m.importer = importer.NewImporterAdapter(container)
	case "cache":
		m.stats = cache.NewStatsAdapter(container)
	}
}

// Start initializes the Fiber HTTP server.
func (m *APIModule) Start(_ context.Context) error {
	if m.auth == nil || m.catalog == nil || m.importer == nil {
		return fmt.Errorf("api dependencies not set")
	}

	handlers := NewHandlers(m.auth, m.catalog, m.importer, m.stats, m.hub, m.cfg.MaxUploadSize)
	m.app = NewApp(handlers, m.cfg, m.limiter)

	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(m.cfg.Addr); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	log.Printf("[api] HTTP server started on %s", m.cfg.Addr)
	return nil
}

// Stop shuts down the Fiber HTTP server.
func (m *APIModule) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	log.Println("[api] Shutting down HTTP server...")
	if err := m.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// Health returns the health status of the module.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	details := map[string]any{"addr": m.cfg.Addr}
	if m.hub != nil {
		details["ws_clients"] = m.hub.ClientCount()
	}
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: details,
	}
}

// NewApp builds the Fiber application with every route registered.
func NewApp(h *Handlers, cfg Config, limiter Limiter) *fiber.App {
	bodyLimit := 4 * 1024 * 1024
	if cfg.MaxUploadSize > 0 && int(cfg.MaxUploadSize)+1024*1024 > bodyLimit {
		bodyLimit = int(cfg.MaxUploadSize) + 1024*1024
	}

	app := fiber.New(fiber.Config{
		AppName:               "Shopping List",
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler,
		BodyLimit:             bodyLimit,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	origins := cfg.CORSOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"module": "api",
		})
	})

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}, WebSocketAuth(h.auth))
	app.Get("/ws", websocket.New(h.HandleWebSocket))

	v1 := app.Group("/api/v1")

	authRoutes := v1.Group("/auth", RateLimit(limiter, "auth", cfg.AuthLimit, nil))
	authRoutes.Post("/register", h.Register)
	authRoutes.Post("/login", h.Login)
	authRoutes.Post("/refresh", h.Refresh)

	protected := v1.Group("")
	protected.Use(AuthMiddleware(h.auth))

	protected.Get("/categories", h.Categories)

	protected.Get("/products", h.ListProducts)
	protected.Get("/products/manage", h.ManageProducts)
	protected.Post("/products", h.CreateProduct)
	protected.Post("/products/reset", h.ResetQuantities)
	protected.Post("/products/bulk", h.BulkProducts)
	protected.Patch("/products/:id", h.UpdateProduct)
	protected.Put("/products/:id/quantity", h.SetQuantity)
	protected.Put("/products/:id/checked", h.SetChecked)
	protected.Delete("/products/:id", h.DeleteProduct)

	protected.Post("/reconcile", h.Reconcile)
	protected.Get("/summary", h.Summary)

	protected.Get("/export/text", h.ExportText)
	protected.Get("/export/pdf", h.ExportPDF)
	protected.Get("/export/csv", h.ExportCSV)
	protected.Get("/export/qr", h.ExportQR)

	protected.Post("/import/photo", RateLimit(limiter, "scan", cfg.ScanLimit, userKey), h.ImportPhoto)
	protected.Get("/import/barcode/:code", h.LookupBarcode)

	protected.Get("/cache/stats", h.CacheStats)
	protected.Delete("/cache/barcodes", h.PurgeBarcodeCache)

	return app
}

// HandleWebSocket keeps a device subscribed to its account's changes until
// the connection drops. Incoming messages are ignored.
func (h *Handlers) HandleWebSocket(c *websocket.Conn) {
	claims, ok := c.Locals(UserContextKey).(*account.Claims)
	if !ok || claims == nil || h.hub == nil {
		_ = c.Close()
		return
	}

	client := &broadcast.Client{
		ID:     uuid.New().String(),
		UserID: claims.UserID,
		Conn:   c,
	}
	h.hub.Register(client)
	defer h.hub.Unregister(client)

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[api] WebSocket error for user %s: %v", claims.UserID, err)
			}
			return
		}
	}
}
