package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// StatsPort reads cache statistics from another module.
type StatsPort interface {
	Stats(ctx context.Context, reset bool) (StatsSnapshot, error)
}

type statsAdapter struct {
	container mono.ServiceContainer
}

// NewStatsAdapter creates a StatsPort over the cache service container.
func NewStatsAdapter(container mono.ServiceContainer) StatsPort {
	return &statsAdapter{container: container}
}

// Stats calls the stats service.
func (a *statsAdapter) Stats(ctx context.Context, reset bool) (StatsSnapshot, error) {
	req := StatsRequest{Reset: reset}
	var resp StatsSnapshot
	if err := helper.CallRequestReplyService(
		ctx, a.container, "stats", json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return StatsSnapshot{}, fmt.Errorf("stats service call failed: %w", err)
	}
	return resp, nil
}
