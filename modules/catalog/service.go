package catalog

import (
	"context"
	"fmt"
	"log"

	"github.com/example/shopping-list/domain/product"
	"github.com/example/shopping-list/domain/reconcile"
	"github.com/example/shopping-list/events"
	"github.com/go-monolith/mono"
)

// Handlers report domain failures in the response body rather than as a
// service error, so the kind survives the trip over the bus.

func (m *CatalogModule) load(ctx context.Context, req LoadRequest, _ *mono.Msg) (ProductsResponse, error) {
	products, err := m.store.Load(ctx, req.UserID)
	if err != nil {
		return ProductsResponse{Products: []product.Product{}, Error: NewErrorInfo(err)}, nil
	}
	return ProductsResponse{Products: products}, nil
}

func (m *CatalogModule) insert(ctx context.Context, req InsertRequest, _ *mono.Msg) (ProductResponse, error) {
	p, err := m.store.Insert(ctx, req.UserID, req.Name, req.Categories, req.Quantity)
	return productResponse(p, err), nil
}

func (m *CatalogModule) update(ctx context.Context, req UpdateRequest, _ *mono.Msg) (ProductResponse, error) {
	p, err := m.store.Update(ctx, req.UserID, req.ProductID, req.Changes())
	return productResponse(p, err), nil
}

func (m *CatalogModule) setQuantity(ctx context.Context, req SetQuantityRequest, _ *mono.Msg) (ProductResponse, error) {
	p, err := m.store.SetQuantity(ctx, req.UserID, req.ProductID, req.Quantity)
	return productResponse(p, err), nil
}

func (m *CatalogModule) setChecked(ctx context.Context, req SetCheckedRequest, _ *mono.Msg) (ProductResponse, error) {
	p, err := m.store.SetChecked(ctx, req.UserID, req.ProductID, req.Checked)
	return productResponse(p, err), nil
}

func (m *CatalogModule) deleteProduct(ctx context.Context, req DeleteRequest, _ *mono.Msg) (DeleteResponse, error) {
	err := m.store.Delete(ctx, req.UserID, req.ProductID)
	return DeleteResponse{Error: NewErrorInfo(err)}, nil
}

func (m *CatalogModule) resetQuantities(ctx context.Context, req ResetRequest, _ *mono.Msg) (BatchResponse, error) {
	result, err := m.store.ResetAllQuantities(ctx, req.UserID)
	return batchResponse(result, err), nil
}

func (m *CatalogModule) bulk(ctx context.Context, req BulkRequest, _ *mono.Msg) (BatchResponse, error) {
	var (
		result BatchResult
		err    error
	)
	switch req.Action {
	case BulkMove:
		result, err = m.store.MoveAll(ctx, req.UserID, req.ProductIDs, req.Categories)
	case BulkDelete:
		result, err = m.store.DeleteAll(ctx, req.UserID, req.ProductIDs)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownBulkAction, req.Action)
	}
	return batchResponse(result, err), nil
}

func batchResponse(result BatchResult, err error) BatchResponse {
	resp := BatchResponse{
		Succeeded: result.Succeeded,
		Failed:    make([]FailedItem, 0, len(result.Failed)),
		Error:     NewErrorInfo(err),
	}
	if resp.Succeeded == nil {
		resp.Succeeded = []string{}
	}
	for _, f := range result.Failed {
		resp.Failed = append(resp.Failed, FailedItem{ProductID: f.ProductID, Error: *NewErrorInfo(f.Err)})
	}
	return resp
}

func (m *CatalogModule) reconcileBatch(ctx context.Context, req ReconcileRequest, _ *mono.Msg) (ReconcileResponse, error) {
	report, err := m.store.ReconcileAll(ctx, req.UserID, req.Candidates, reconcile.Options{AddToList: req.AddToList})
	if err != nil {
		return ReconcileResponse{Outcomes: []OutcomeResponse{}, Error: NewErrorInfo(err)}, nil
	}

	resp := ReconcileResponse{
		Outcomes: make([]OutcomeResponse, 0, len(report.Outcomes)),
		Inserted: report.Count(reconcile.StatusInserted),
		Merged:   report.Count(reconcile.StatusMerged),
		Rejected: report.Count(reconcile.StatusRejected),
		Affected: report.Affected(),
	}
	for _, o := range report.Outcomes {
		resp.Outcomes = append(resp.Outcomes, OutcomeResponse{
			Index:     o.Index,
			Name:      o.Candidate.Name,
			Status:    o.Status,
			ProductID: o.ProductID,
			Duplicate: o.Duplicate,
			Error:     NewErrorInfo(o.Reason),
		})
	}
	return resp, nil
}

func productResponse(p product.Product, err error) ProductResponse {
	if err != nil {
		return ProductResponse{Error: NewErrorInfo(err)}
	}
	return ProductResponse{Product: &p}
}

// publishChange bridges store observers onto the event bus.
func (m *CatalogModule) publishChange(_ context.Context, c Change) {
	if m.eventBus == nil {
		return
	}
	event := events.ProductChangedEvent{
		Kind:      string(c.Kind),
		UserID:    c.UserID,
		ProductID: c.Product.ID,
		Product:   c.Product,
		At:        c.At,
	}
	if err := events.ProductChangedV1.Publish(m.eventBus, event, nil); err != nil {
		log.Printf("[catalog] Warning: failed to publish ProductChanged event for product %s: %v", c.Product.ID, err)
	}
}
