package events

import (
	"time"

	"github.com/example/shopping-list/domain/product"
	"github.com/go-monolith/mono/pkg/helper"
)

// ProductChangedEvent is emitted after every successful catalog mutation.
// Kind is one of created, updated, deleted or reset.
type ProductChangedEvent struct {
	Kind      string          `json:"kind"`
	UserID    string          `json:"user_id"`
	ProductID string          `json:"product_id"`
	Product   product.Product `json:"product"`
	At        time.Time       `json:"at"`
}

// ProductChangedV1 is the typed event definition for catalog changes.
// Subject: events.catalog.v1.product-changed
var ProductChangedV1 = helper.EventDefinition[ProductChangedEvent](
	"catalog", "ProductChanged", "v1",
)
