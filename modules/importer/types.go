package importer

import (
	"context"
	"strings"
)

// Image is a photo to be read.
type Image struct {
	Data        []byte `json:"data"`
	ContentType string `json:"content_type"`
}

// Label is the result of a barcode lookup.
type Label struct {
	Text  string `json:"text"`
	Found bool   `json:"found"`
}

// LineMatch reports whether a scanned line names a product already in the
// catalog.
type LineMatch struct {
	Line      string `json:"line"`
	ProductID string `json:"product_id,omitempty"`
	Exists    bool   `json:"exists"`
}

// ScanResult is the outcome of reading a shopping-list photo.
type ScanResult struct {
	Lines   []string    `json:"lines"`
	Matches []LineMatch `json:"matches"`
}

// ErrorInfo carries an importer or domain error across the bus.
type ErrorInfo struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (e *ErrorInfo) Error() string {
	return e.Message
}

func (e *ErrorInfo) Unwrap() error {
	return ErrorForKind(e.Kind)
}

// NewErrorInfo converts err for transport. It returns nil for a nil error.
func NewErrorInfo(err error) *ErrorInfo {
	if err == nil {
		return nil
	}
	return &ErrorInfo{Kind: KindOf(err), Message: err.Error()}
}

// ScanPhotoRequest is the request for the scan-photo service.
type ScanPhotoRequest struct {
	UserID string `json:"user_id"`
	Image  Image  `json:"image"`
}

// ScanPhotoResponse is the response of the scan-photo service.
type ScanPhotoResponse struct {
	Result     ScanResult `json:"result"`
	ArchivedAs string     `json:"archived_as,omitempty"`
	Error      *ErrorInfo `json:"error,omitempty"`
}

// LookupBarcodeRequest is the request for the lookup-barcode service.
// Refresh drops a cached label before looking the code up.
type LookupBarcodeRequest struct {
	Code    string `json:"code"`
	Refresh bool   `json:"refresh,omitempty"`
}

// PurgeBarcodesRequest is the request for dropping every cached label.
type PurgeBarcodesRequest struct{}

// PurgeBarcodesResponse is the response of the purge-barcodes service.
type PurgeBarcodesResponse struct {
	Error *ErrorInfo `json:"error,omitempty"`
}

// LookupBarcodeResponse is the response of the lookup-barcode service.
type LookupBarcodeResponse struct {
	Code  string     `json:"code"`
	Label Label      `json:"label"`
	Error *ErrorInfo `json:"error,omitempty"`
}

// ImporterPort is the importer as seen by other modules.
type ImporterPort interface {
	ScanPhoto(ctx context.Context, userID string, img Image) (*ScanPhotoResponse, error)
	LookupBarcode(ctx context.Context, code string, refresh bool) (Label, error)
	PurgeBarcodes(ctx context.Context) error
}

// OCRClient reads text lines from an image.
type OCRClient interface {
	ExtractLines(ctx context.Context, img Image) ([]string, error)
}

// ProductLookup resolves a barcode to a product label.
type ProductLookup interface {
	Lookup(ctx context.Context, code string) (Label, error)
}

// LabelCache is implemented by lookups that remember labels.
type LabelCache interface {
	Forget(ctx context.Context, code string) error
	Purge(ctx context.Context) error
}

// ScanArchive keeps a copy of scanned photos.
type ScanArchive interface {
	Store(ctx context.Context, userID string, img Image) (string, error)
}

// FilterLines trims lines and drops the blank ones.
func FilterLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if t := strings.TrimSpace(l); t != "" {
			out = append(out, t)
		}
	}
	return out
}
