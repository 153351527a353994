package importer

import (
	"context"
	"log"
	"time"

	"github.com/example/shopping-list/modules/cache"
	"golang.org/x/sync/singleflight"
)

// NotFoundTTL bounds how long an unknown barcode is remembered. Found
// labels use the cache's configured TTL.
const NotFoundTTL = time.Hour

// CachedLookup wraps a ProductLookup with a cache-aside layer. Concurrent
// misses for the same code share one upstream call.
type CachedLookup struct {
	next    ProductLookup
	cache   *cache.Cache
	sfGroup singleflight.Group
}

var _ ProductLookup = (*CachedLookup)(nil)
var _ LabelCache = (*CachedLookup)(nil)

// NewCachedLookup creates a cached lookup over next.
func NewCachedLookup(next ProductLookup, c *cache.Cache) *CachedLookup {
	if c == nil {
		c = cache.Disabled()
	}
	return &CachedLookup{next: next, cache: c}
}

func barcodeKey(code string) string {
	return "barcode:" + code
}

// Lookup returns a cached label or asks the wrapped lookup.
func (l *CachedLookup) Lookup(ctx context.Context, code string) (Label, error) {
	code, err := NormalizeBarcode(code)
	if err != nil {
		return Label{}, err
	}
	key := barcodeKey(code)

	var cached Label
	found, err := l.cache.Get(ctx, key, &cached)
	if err != nil {
		log.Printf("[importer] Cache error for barcode %s: %v", code, err)
	}
	if found {
		return cached, nil
	}

	val, err, _ := l.sfGroup.Do(key, func() (any, error) {
		label, err := l.next.Lookup(ctx, code)
		if err != nil {
			return Label{}, err
		}

		if label.Found {
			err = l.cache.Set(ctx, key, label)
		} else {
			err = l.cache.SetWithTTL(ctx, key, label, NotFoundTTL)
		}
		if err != nil {
			log.Printf("[importer] Warning: failed to cache barcode %s: %v", code, err)
		}
		return label, nil
	})
	if err != nil {
		return Label{}, err
	}
	return val.(Label), nil
}

// Forget drops the cached label of code.
func (l *CachedLookup) Forget(ctx context.Context, code string) error {
	code, err := NormalizeBarcode(code)
	if err != nil {
		return err
	}
	return l.cache.Delete(ctx, barcodeKey(code))
}

// Purge drops every cached label.
func (l *CachedLookup) Purge(ctx context.Context) error {
	return l.cache.DeletePattern(ctx, barcodeKey("*"))
}
