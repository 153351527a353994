package importer

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/example/shopping-list/domain/category"
	"github.com/example/shopping-list/domain/product"
	"github.com/example/shopping-list/domain/reconcile"
)

// CatalogReader loads a user's products. catalog.CatalogPort satisfies it.
type CatalogReader interface {
	Load(ctx context.Context, userID string) ([]product.Product, error)
}

// Service turns photos and barcodes into reconciliation candidates.
type Service struct {
	ocr     OCRClient
	lookup  ProductLookup
	archive ScanArchive
	catalog CatalogReader
}

// NewService creates an import service. archive and catalog may be nil.
func NewService(ocr OCRClient, lookup ProductLookup, archive ScanArchive, catalog CatalogReader) *Service {
	return &Service{
		ocr:     ocr,
		lookup:  lookup,
		archive: archive,
		catalog: catalog,
	}
}

// ScanPhoto archives img, reads it and flags the lines already in the
// user's catalog. It returns the archived object name, or "" when the photo
// was not archived.
func (s *Service) ScanPhoto(ctx context.Context, userID string, img Image) (ScanResult, string, error) {
	if len(img.Data) == 0 {
		return ScanResult{}, "", ErrNoImage
	}

	var archived string
	if s.archive != nil {
		name, err := s.archive.Store(ctx, userID, img)
		if err != nil {
			log.Printf("[importer] Warning: failed to archive scan for user %s: %v", userID, err)
		} else {
			archived = name
		}
	}

	raw, err := s.ocr.ExtractLines(ctx, img)
	if err != nil {
		return ScanResult{Lines: []string{}, Matches: []LineMatch{}}, archived, err
	}
	lines := FilterLines(raw)
	log.Printf("[importer] Read %d lines from scan for user %s", len(lines), userID)

	return ScanResult{Lines: lines, Matches: s.Matches(ctx, userID, lines)}, archived, nil
}

// Matches reports, per line, whether the user's catalog already holds a
// product with the same normalized name. A catalog failure leaves every
// line unmatched.
func (s *Service) Matches(ctx context.Context, userID string, lines []string) []LineMatch {
	matches := make([]LineMatch, len(lines))
	for i, l := range lines {
		matches[i] = LineMatch{Line: l}
	}
	if s.catalog == nil || len(lines) == 0 {
		return matches
	}

	existing, err := s.catalog.Load(ctx, userID)
	if err != nil {
		log.Printf("[importer] Warning: failed to load catalog for matching: %v", err)
		return matches
	}
	for i, l := range lines {
		if idx, _ := reconcile.Find(l, existing); idx >= 0 {
			matches[i].ProductID = existing[idx].ID
			matches[i].Exists = true
		}
	}
	return matches
}

// Candidates builds candidates for lines using the service's filtering.
func (s *Service) Candidates(lines []string, categories []category.ID) []reconcile.Candidate {
	return Candidates(lines, categories)
}

// Candidates builds one reconciliation candidate per non-blank line, all
// with their own copy of categories.
func Candidates(lines []string, categories []category.ID) []reconcile.Candidate {
	lines = FilterLines(lines)
	out := make([]reconcile.Candidate, len(lines))
	for i, l := range lines {
		cats := make([]category.ID, len(categories))
		copy(cats, categories)
		out[i] = reconcile.Candidate{Name: l, Categories: cats}
	}
	return out
}

// LookupBarcode resolves a barcode to a label. With refresh set, a cached
// label is dropped first so the product database is asked again.
func (s *Service) LookupBarcode(ctx context.Context, code string, refresh bool) (Label, error) {
	if lc, ok := s.lookup.(LabelCache); ok && refresh {
		if err := lc.Forget(ctx, code); err != nil && !errors.Is(err, ErrInvalidBarcode) {
			log.Printf("[importer] Warning: failed to drop cached barcode %s: %v", code, err)
		}
	}
	return s.lookup.Lookup(ctx, code)
}

// PurgeBarcodes drops every cached barcode label. Lookups without a cache
// have nothing to purge.
func (s *Service) PurgeBarcodes(ctx context.Context) error {
	lc, ok := s.lookup.(LabelCache)
	if !ok {
		return nil
	}
	if err := lc.Purge(ctx); err != nil {
		return fmt.Errorf("failed to purge barcode cache: %w", err)
	}
	log.Println("[importer] Purged cached barcode labels")
	return nil
}
