// Package broadcast pushes catalog changes to the connected devices of
// each account over WebSocket.
package broadcast

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/example/shopping-list/domain/product"
	"github.com/example/shopping-list/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// ChangeMessage is the frame sent to WebSocket clients.
type ChangeMessage struct {
	Type      string           `json:"type"`
	ProductID string           `json:"product_id"`
	Product   *product.Product `json:"product,omitempty"`
	At        time.Time        `json:"at"`
}

// BroadcastModule consumes ProductChanged events and forwards them to the hub.
type BroadcastModule struct {
	hub       *Hub
	cancelHub context.CancelFunc
}

// Compile-time interface checks.
var _ mono.Module = (*BroadcastModule)(nil)
var _ mono.EventConsumerModule = (*BroadcastModule)(nil)
var _ mono.HealthCheckableModule = (*BroadcastModule)(nil)

// NewModule creates a BroadcastModule.
func NewModule() *BroadcastModule {
	return &BroadcastModule{hub: NewHub()}
}

// Name returns the module name.
func (m *BroadcastModule) Name() string {
	return "broadcast"
}

// Start runs the hub.
func (m *BroadcastModule) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelHub = cancel
	go m.hub.Run(ctx)
	log.Println("[broadcast] Module started - WebSocket hub running")
	return nil
}

// Stop closes every client and waits for the hub.
func (m *BroadcastModule) Stop(_ context.Context) error {
	clientCount := m.hub.ClientCount()
	if m.cancelHub != nil {
		m.cancelHub()
		m.hub.Wait()
	}
	log.Printf("[broadcast] Module stopped - %d clients were connected", clientCount)
	return nil
}

// Health reports the number of connected clients.
func (m *BroadcastModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_clients": m.hub.ClientCount(),
		},
	}
}

// RegisterEventConsumers subscribes to catalog changes.
func (m *BroadcastModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.ProductChangedV1, m.handleProductChanged, m,
	); err != nil {
		return fmt.Errorf("failed to register ProductChanged consumer: %w", err)
	}
	log.Println("[broadcast] Registered event consumers: ProductChanged")
	return nil
}

func (m *BroadcastModule) handleProductChanged(_ context.Context, event events.ProductChangedEvent, _ *mono.Msg) error {
	msg := ChangeMessage{
		Type:      "product_" + event.Kind,
		ProductID: event.ProductID,
		At:        event.At,
	}
	if event.Kind != "deleted" {
		p := event.Product
		msg.Product = &p
	}
	m.hub.Broadcast(event.UserID, msg)
	return nil
}

// Hub returns the hub for the API's WebSocket endpoint.
func (m *BroadcastModule) Hub() *Hub {
	return m.hub
}
