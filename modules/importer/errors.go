package importer

import (
	"errors"

	"github.com/example/shopping-list/domain/product"
)

var (
	// ErrInvalidBarcode is returned when a code is not 4 to 32 digits.
	ErrInvalidBarcode = errors.New("invalid barcode")

	// ErrNoImage is returned when a scan request carries no image data.
	ErrNoImage = errors.New("no image provided")

	// ErrPhotoTooLarge is returned when a photo does not fit in a bus message.
	ErrPhotoTooLarge = errors.New("photo too large")

	// ErrServiceUnavailable is returned when the importer cannot be reached
	// over the bus.
	ErrServiceUnavailable = errors.New("importer service unavailable")
)

// Importer error kinds, in addition to the product kinds.
const (
	KindInvalidBarcode = "invalid_barcode"
	KindNoImage        = "no_image"
	KindPhotoTooLarge  = "photo_too_large"
	KindUnavailable    = "service_unavailable"
)

// KindOf maps err to a kind string, falling back to product.KindOf.
func KindOf(err error) string {
	switch {
	case errors.Is(err, ErrInvalidBarcode):
		return KindInvalidBarcode
	case errors.Is(err, ErrNoImage):
		return KindNoImage
	case errors.Is(err, ErrPhotoTooLarge):
		return KindPhotoTooLarge
	case errors.Is(err, ErrServiceUnavailable):
		return KindUnavailable
	default:
		return product.KindOf(err)
	}
}

// ErrorForKind is the inverse of KindOf.
func ErrorForKind(kind string) error {
	switch kind {
	case KindInvalidBarcode:
		return ErrInvalidBarcode
	case KindNoImage:
		return ErrNoImage
	case KindPhotoTooLarge:
		return ErrPhotoTooLarge
	case KindUnavailable:
		return ErrServiceUnavailable
	default:
		return product.ErrorForKind(kind)
	}
}
