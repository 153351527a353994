package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/example/shopping-list/modules/cache"
	"github.com/example/shopping-list/modules/catalog"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// Config configures the importer module.
type Config struct {
	OCR           OCRConfig
	Barcode       BarcodeConfig
	ArchiveNATS   string
	ArchiveBucket string
}

// DefaultConfig returns the default importer configuration. Archiving is
// off until ArchiveNATS is set.
func DefaultConfig() Config {
	return Config{
		OCR:           DefaultOCRConfig(),
		Barcode:       DefaultBarcodeConfig(),
		ArchiveBucket: DefaultScanBucket,
	}
}

// Option customizes an ImporterModule.
type Option func(*ImporterModule)

// WithOCRClient replaces the vision client.
func WithOCRClient(c OCRClient) Option {
	return func(m *ImporterModule) { m.ocr = c }
}

// WithProductLookup replaces the Open Food Facts client. The cache layer is
// still applied on top.
func WithProductLookup(l ProductLookup) Option {
	return func(m *ImporterModule) { m.lookup = l }
}

// WithArchive replaces the JetStream scan archive.
func WithArchive(a ScanArchive) Option {
	return func(m *ImporterModule) { m.archive = a }
}

// ImporterModule exposes photo and barcode import as bus services.
type ImporterModule struct {
	cfg     Config
	cache   *cache.Cache
	ocr     OCRClient
	lookup  ProductLookup
	archive ScanArchive
	objects *JetStreamObjectStore
	catalog catalog.CatalogPort
	service *Service
}

var _ mono.Module = (*ImporterModule)(nil)
var _ mono.ServiceProviderModule = (*ImporterModule)(nil)
var _ mono.DependentModule = (*ImporterModule)(nil)
var _ mono.HealthCheckableModule = (*ImporterModule)(nil)

// NewModule creates an importer module. c may be nil or disabled.
func NewModule(cfg Config, c *cache.Cache, opts ...Option) *ImporterModule {
	m := &ImporterModule{cfg: cfg, cache: c}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the module name.
func (m *ImporterModule) Name() string {
	return "importer"
}

// Dependencies returns the modules the importer needs.
func (m *ImporterModule) Dependencies() []string {
	return []string{"catalog", "cache"}
}

// SetDependencyServiceContainer receives the catalog services.
func (m *ImporterModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	if dependency == "catalog" {
		m.catalog = catalog.NewCatalogAdapter(container)
	}
}

// RegisterServices registers scan-photo and lookup-barcode.
func (m *ImporterModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "scan-photo", json.Unmarshal, json.Marshal, m.scanPhoto,
	); err != nil {
		return fmt.Errorf("failed to register scan-photo service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "lookup-barcode", json.Unmarshal, json.Marshal, m.lookupBarcode,
	); err != nil {
		return fmt.Errorf("failed to register lookup-barcode service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "purge-barcodes", json.Unmarshal, json.Marshal, m.purgeBarcodes,
	); err != nil {
		return fmt.Errorf("failed to register purge-barcodes service: %w", err)
	}

	log.Printf("[importer] Registered services: scan-photo, lookup-barcode, purge-barcodes")
	return nil
}

// Start builds the clients and opens the scan archive when configured.
func (m *ImporterModule) Start(ctx context.Context) error {
	if m.ocr == nil {
		if m.cfg.OCR.APIKey == "" {
			log.Println("[importer] Warning: OCR_API_KEY not set, photo import will fail upstream")
		}
		m.ocr = NewVisionClient(m.cfg.OCR)
	}
	if m.lookup == nil {
		m.lookup = NewOpenFoodFactsClient(m.cfg.Barcode)
	}
	if m.archive == nil && m.cfg.ArchiveNATS != "" {
		if err := m.openArchive(ctx); err != nil {
			log.Printf("[importer] Warning: scan archive unavailable: %v", err)
		}
	}

	var reader CatalogReader
	if m.catalog != nil {
		reader = m.catalog
	}
	m.service = NewService(m.ocr, NewCachedLookup(m.lookup, m.cache), m.archive, reader)

	log.Printf("[importer] Module started (OCR: %s, barcode: %s, archive: %t)",
		m.cfg.OCR.APIURL, m.cfg.Barcode.BaseURL, m.archive != nil)
	return nil
}

func (m *ImporterModule) openArchive(ctx context.Context) error {
	objects, err := NewJetStreamObjectStore(m.cfg.ArchiveNATS, m.cfg.ArchiveBucket)
	if err != nil {
		return err
	}
	if err := objects.Init(ctx); err != nil {
		objects.Close()
		return err
	}
	archive, err := NewObjectArchive(objects)
	if err != nil {
		objects.Close()
		return err
	}
	m.objects = objects
	m.archive = archive
	return nil
}

// Stop closes the archive connection.
func (m *ImporterModule) Stop(_ context.Context) error {
	if m.objects != nil {
		m.objects.Close()
	}
	log.Println("[importer] Module stopped")
	return nil
}

// Health reports the archive connection. The importer itself has no state.
func (m *ImporterModule) Health(_ context.Context) mono.HealthStatus {
	if m.service == nil {
		return mono.HealthStatus{Healthy: false, Message: "not started"}
	}
	archive := "disabled"
	if m.objects != nil {
		archive = "disconnected"
		if m.objects.IsConnected() {
			archive = "connected"
		}
	} else if m.archive != nil {
		archive = "enabled"
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"archive": archive,
		},
	}
}

// Service returns the import service; nil before Start.
func (m *ImporterModule) Service() *Service {
	return m.service
}

func (m *ImporterModule) scanPhoto(ctx context.Context, req ScanPhotoRequest, _ *mono.Msg) (ScanPhotoResponse, error) {
	result, archived, err := m.service.ScanPhoto(ctx, req.UserID, req.Image)
	return ScanPhotoResponse{Result: result, ArchivedAs: archived, Error: NewErrorInfo(err)}, nil
}

func (m *ImporterModule) lookupBarcode(ctx context.Context, req LookupBarcodeRequest, _ *mono.Msg) (LookupBarcodeResponse, error) {
	label, err := m.service.LookupBarcode(ctx, req.Code, req.Refresh)
	return LookupBarcodeResponse{Code: req.Code, Label: label, Error: NewErrorInfo(err)}, nil
}

func (m *ImporterModule) purgeBarcodes(ctx context.Context, _ PurgeBarcodesRequest, _ *mono.Msg) (PurgeBarcodesResponse, error) {
	return PurgeBarcodesResponse{Error: NewErrorInfo(m.service.PurgeBarcodes(ctx))}, nil
}
