package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/example/shopping-list/domain/product"
)

var barcodePattern = regexp.MustCompile(`^[0-9]{4,32}$`)

// NormalizeBarcode trims code and checks that it is 4 to 32 digits.
func NormalizeBarcode(code string) (string, error) {
	code = strings.TrimSpace(code)
	if !barcodePattern.MatchString(code) {
		return "", fmt.Errorf("%w: %q", ErrInvalidBarcode, code)
	}
	return code, nil
}

// BarcodeConfig configures the Open Food Facts client.
type BarcodeConfig struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultBarcodeConfig returns the public Open Food Facts endpoint.
func DefaultBarcodeConfig() BarcodeConfig {
	return BarcodeConfig{
		BaseURL: "https://world.openfoodfacts.org",
		Timeout: 10 * time.Second,
	}
}

// OpenFoodFactsClient looks barcodes up in the Open Food Facts database.
type OpenFoodFactsClient struct {
	baseURL string
	http    *http.Client
}

var _ ProductLookup = (*OpenFoodFactsClient)(nil)

// NewOpenFoodFactsClient creates a lookup client.
func NewOpenFoodFactsClient(cfg BarcodeConfig) *OpenFoodFactsClient {
	return &OpenFoodFactsClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

type offResponse struct {
	Status  int `json:"status"`
	Product struct {
		ProductName string `json:"product_name"`
		Brands      string `json:"brands"`
	} `json:"product"`
}

// Lookup resolves code. An unknown product is a Label with Found false,
// not an error.
func (c *OpenFoodFactsClient) Lookup(ctx context.Context, code string) (Label, error) {
	code, err := NormalizeBarcode(code)
	if err != nil {
		return Label{}, err
	}

	url := fmt.Sprintf("%s/api/v2/product/%s.json?fields=product_name,brands", c.baseURL, code)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Label{}, fmt.Errorf("%w: failed to build barcode request: %w", product.ErrExternalService, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Label{}, fmt.Errorf("%w: barcode lookup failed: %w", product.ErrExternalService, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Label{}, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return Label{}, fmt.Errorf("%w: barcode service returned %d", product.ErrExternalService, resp.StatusCode)
	}

	var out offResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Label{}, fmt.Errorf("%w: failed to decode barcode response: %w", product.ErrExternalService, err)
	}
	if out.Status != 1 {
		return Label{}, nil
	}

	text := FormatLabel(out.Product.Brands, out.Product.ProductName)
	return Label{Text: text, Found: text != ""}, nil
}

// FormatLabel joins the first brand and the product name with " - ",
// or returns whichever one is present.
func FormatLabel(brands, name string) string {
	brand, _, _ := strings.Cut(brands, ",")
	brand = strings.TrimSpace(brand)
	name = strings.TrimSpace(name)

	switch {
	case brand != "" && name != "":
		return brand + " - " + name
	case name != "":
		return name
	default:
		return brand
	}
}
