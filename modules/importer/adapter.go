package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/nats-io/nats.go"
)

type importerAdapter struct {
	container mono.ServiceContainer
}

// NewImporterAdapter creates an ImporterPort over the importer services.
func NewImporterAdapter(container mono.ServiceContainer) ImporterPort {
	if container == nil {
		panic("importer adapter requires non-nil ServiceContainer")
	}
	return &importerAdapter{container: container}
}

// ScanPhoto reads a photo via the scan-photo service. The response is
// returned together with its error so callers keep the archive name.
func (a *importerAdapter) ScanPhoto(ctx context.Context, userID string, img Image) (*ScanPhotoResponse, error) {
	req := ScanPhotoRequest{UserID: userID, Image: img}
	var resp ScanPhotoResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "scan-photo", json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return nil, callError("scan-photo", err)
	}
	if resp.Error != nil {
		return &resp, resp.Error
	}
	return &resp, nil
}

// LookupBarcode resolves a code via the lookup-barcode service.
func (a *importerAdapter) LookupBarcode(ctx context.Context, code string, refresh bool) (Label, error) {
	req := LookupBarcodeRequest{Code: code, Refresh: refresh}
	var resp LookupBarcodeResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "lookup-barcode", json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return Label{}, callError("lookup-barcode", err)
	}
	if resp.Error != nil {
		return Label{}, resp.Error
	}
	return resp.Label, nil
}

// PurgeBarcodes drops the cached labels via the purge-barcodes service.
func (a *importerAdapter) PurgeBarcodes(ctx context.Context) error {
	var resp PurgeBarcodesResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "purge-barcodes", json.Marshal, json.Unmarshal, &PurgeBarcodesRequest{}, &resp,
	); err != nil {
		return callError("purge-barcodes", err)
	}
	if resp.Error != nil {
		return resp.Error
	}
	return nil
}

// callError classifies a failed bus call. Context errors pass through so
// callers can tell a cancelled request apart.
func callError(service string, err error) error {
	switch {
	case errors.Is(err, nats.ErrMaxPayload):
		return fmt.Errorf("%w: %s request exceeds the bus payload limit: %w", ErrPhotoTooLarge, service, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s service call failed: %w", service, err)
	default:
		return fmt.Errorf("%w: %s service call failed: %w", ErrServiceUnavailable, service, err)
	}
}
