package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/shopping-list/domain/product"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// catalogAdapter implements CatalogPort over the catalog service container.
type catalogAdapter struct {
	container mono.ServiceContainer
}

// NewCatalogAdapter creates a CatalogPort for a dependent module.
// container is the catalog ServiceContainer received via SetDependencyServiceContainer.
func NewCatalogAdapter(container mono.ServiceContainer) CatalogPort {
	if container == nil {
		panic("catalog adapter requires non-nil ServiceContainer")
	}
	return &catalogAdapter{container: container}
}

func (a *catalogAdapter) call(ctx context.Context, service string, req, resp any) error {
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		resp,
	); err != nil {
		return fmt.Errorf("%s service call failed: %w", service, err)
	}
	return nil
}

// Load returns the user's catalog via the load service.
func (a *catalogAdapter) Load(ctx context.Context, userID string) ([]product.Product, error) {
	req := LoadRequest{UserID: userID}
	var resp ProductsResponse
	if err := a.call(ctx, "load", &req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Products, nil
}

// Insert creates a product via the insert service.
func (a *catalogAdapter) Insert(ctx context.Context, req InsertRequest) (product.Product, error) {
	var resp ProductResponse
	if err := a.call(ctx, "insert", &req, &resp); err != nil {
		return product.Product{}, err
	}
	return productResult(resp)
}

// Update changes a product via the update service.
func (a *catalogAdapter) Update(ctx context.Context, req UpdateRequest) (product.Product, error) {
	var resp ProductResponse
	if err := a.call(ctx, "update", &req, &resp); err != nil {
		return product.Product{}, err
	}
	return productResult(resp)
}

// SetQuantity sets a quantity via the set-quantity service.
func (a *catalogAdapter) SetQuantity(ctx context.Context, userID, productID string, quantity int) (product.Product, error) {
	req := SetQuantityRequest{UserID: userID, ProductID: productID, Quantity: quantity}
	var resp ProductResponse
	if err := a.call(ctx, "set-quantity", &req, &resp); err != nil {
		return product.Product{}, err
	}
	return productResult(resp)
}

// SetChecked sets the checked flag via the set-checked service.
func (a *catalogAdapter) SetChecked(ctx context.Context, userID, productID string, checked bool) (product.Product, error) {
	req := SetCheckedRequest{UserID: userID, ProductID: productID, Checked: checked}
	var resp ProductResponse
	if err := a.call(ctx, "set-checked", &req, &resp); err != nil {
		return product.Product{}, err
	}
	return productResult(resp)
}

// Delete removes a product via the delete service.
func (a *catalogAdapter) Delete(ctx context.Context, userID, productID string) error {
	req := DeleteRequest{UserID: userID, ProductID: productID}
	var resp DeleteResponse
	if err := a.call(ctx, "delete", &req, &resp); err != nil {
		return err
	}
	if resp.Error != nil {
		return resp.Error
	}
	return nil
}

// ResetQuantities zeroes every quantity via the reset-quantities service.
func (a *catalogAdapter) ResetQuantities(ctx context.Context, userID string) (*BatchResponse, error) {
	req := ResetRequest{UserID: userID}
	var resp BatchResponse
	if err := a.call(ctx, "reset-quantities", &req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return &resp, resp.Error
	}
	return &resp, nil
}

// Bulk moves or deletes several products via the bulk service.
func (a *catalogAdapter) Bulk(ctx context.Context, req BulkRequest) (*BatchResponse, error) {
	var resp BatchResponse
	if err := a.call(ctx, "bulk", &req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return &resp, resp.Error
	}
	return &resp, nil
}

// Reconcile runs a reconciliation batch via the reconcile service.
func (a *catalogAdapter) Reconcile(ctx context.Context, req ReconcileRequest) (*ReconcileResponse, error) {
	var resp ReconcileResponse
	if err := a.call(ctx, "reconcile", &req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return &resp, nil
}

func productResult(resp ProductResponse) (product.Product, error) {
	if resp.Error != nil {
		return product.Product{}, resp.Error
	}
	if resp.Product == nil {
		return product.Product{}, fmt.Errorf("empty product response")
	}
	return *resp.Product, nil
}
