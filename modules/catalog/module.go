package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/example/shopping-list/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config configures the catalog module.
type Config struct {
	Driver      string
	DBPath      string
	DatabaseURL string
	Debug       bool
}

// DefaultConfig returns a SQLite configuration.
func DefaultConfig() Config {
	return Config{
		Driver: DriverSQLite,
		DBPath: "shopping.db",
	}
}

// CatalogModule owns the product store and exposes it as bus services.
type CatalogModule struct {
	cfg         Config
	repo        Repository
	store       *Store
	storeOpts   []StoreOption
	eventBus    mono.EventBus
	unsubscribe func()
}

// Compile-time interface checks.
var _ mono.Module = (*CatalogModule)(nil)
var _ mono.ServiceProviderModule = (*CatalogModule)(nil)
var _ mono.EventEmitterModule = (*CatalogModule)(nil)
var _ mono.HealthCheckableModule = (*CatalogModule)(nil)

// NewModule creates a catalog module that opens its repository on Start.
func NewModule(cfg Config, opts ...StoreOption) *CatalogModule {
	return &CatalogModule{cfg: cfg, storeOpts: opts}
}

// NewModuleWithRepository creates a catalog module on an existing repository.
func NewModuleWithRepository(repo Repository, opts ...StoreOption) *CatalogModule {
	return &CatalogModule{cfg: Config{Driver: "custom"}, repo: repo, storeOpts: opts}
}

// Name returns the module name.
func (m *CatalogModule) Name() string {
	return "catalog"
}

// SetEventBus is called by the framework before Start.
func (m *CatalogModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module publishes.
func (m *CatalogModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.ProductChangedV1.ToBase(),
	}
}

// RegisterServices registers the catalog request-reply services.
func (m *CatalogModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "load", json.Unmarshal, json.Marshal, m.load,
	); err != nil {
		return fmt.Errorf("failed to register load service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "insert", json.Unmarshal, json.Marshal, m.insert,
	); err != nil {
		return fmt.Errorf("failed to register insert service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "update", json.Unmarshal, json.Marshal, m.update,
	); err != nil {
		return fmt.Errorf("failed to register update service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "set-quantity", json.Unmarshal, json.Marshal, m.setQuantity,
	); err != nil {
		return fmt.Errorf("failed to register set-quantity service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "set-checked", json.Unmarshal, json.Marshal, m.setChecked,
	); err != nil {
		return fmt.Errorf("failed to register set-checked service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "delete", json.Unmarshal, json.Marshal, m.deleteProduct,
	); err != nil {
		return fmt.Errorf("failed to register delete service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "reset-quantities", json.Unmarshal, json.Marshal, m.resetQuantities,
	); err != nil {
		return fmt.Errorf("failed to register reset-quantities service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "bulk", json.Unmarshal, json.Marshal, m.bulk,
	); err != nil {
		return fmt.Errorf("failed to register bulk service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "reconcile", json.Unmarshal, json.Marshal, m.reconcileBatch,
	); err != nil {
		return fmt.Errorf("failed to register reconcile service: %w", err)
	}

	log.Printf("[catalog] Registered services: services.catalog.{load,insert,update,set-quantity,set-checked,delete,reset-quantities,bulk,reconcile}")
	return nil
}

// Start opens the repository and builds the store.
func (m *CatalogModule) Start(ctx context.Context) error {
	if m.repo == nil {
		repo, err := m.openRepository(ctx)
		if err != nil {
			return err
		}
		m.repo = repo
	}

	store, err := NewStore(m.repo, m.storeOpts...)
	if err != nil {
		return err
	}
	m.store = store
	m.unsubscribe = store.Subscribe(ObserverFunc(m.publishChange))

	if m.eventBus == nil {
		log.Println("[catalog] Warning: eventBus not set, changes will not be published")
	}
	log.Printf("[catalog] Module started (driver: %s)", m.cfg.Driver)
	return nil
}

func (m *CatalogModule) openRepository(ctx context.Context) (Repository, error) {
	switch m.cfg.Driver {
	case DriverMemory:
		log.Println("[catalog] Using in-memory storage")
		return NewMemoryRepository(), nil

	case DriverPostgres:
		log.Println("[catalog] Connecting to PostgreSQL database")
		repo, err := NewPostgresRepository(ctx, m.cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return repo, nil

	case DriverSQLite, "":
		log.Printf("[catalog] Connecting to SQLite database: %s", m.cfg.DBPath)

		logLevel := logger.Silent
		if m.cfg.Debug {
			logLevel = logger.Info
		}
		db, err := gorm.Open(sqlite.Open(m.cfg.DBPath), &gorm.Config{
			Logger: logger.Default.LogMode(logLevel),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return NewGormRepository(db)

	default:
		return nil, fmt.Errorf("unknown catalog driver %q", m.cfg.Driver)
	}
}

// Stop detaches the event bridge and closes the repository.
func (m *CatalogModule) Stop(_ context.Context) error {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	if m.repo == nil {
		return nil
	}

	log.Println("[catalog] Closing repository...")
	if err := m.repo.Close(); err != nil {
		return fmt.Errorf("failed to close repository: %w", err)
	}
	log.Println("[catalog] Module stopped")
	return nil
}

// Health pings the repository.
func (m *CatalogModule) Health(ctx context.Context) mono.HealthStatus {
	if m.repo == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "repository not initialized",
		}
	}
	if err := m.repo.Ping(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("repository ping failed: %v", err),
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver": m.cfg.Driver,
		},
	}
}

// Store returns the module's store. It is nil before Start.
func (m *CatalogModule) Store() *Store {
	return m.store
}
