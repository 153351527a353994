package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/redis/go-redis/v9"
)

// StatsRequest is the request for the stats service.
type StatsRequest struct {
	Reset bool `json:"reset"`
}

// Module owns the Redis connection. The Cache handle exists from
// construction and starts serving once Start connects; when Redis is not
// reachable the module keeps running with the cache disabled.
type Module struct {
	cfg   Config
	cache *Cache
}

var _ mono.Module = (*Module)(nil)
var _ mono.ServiceProviderModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a cache module.
func NewModule(cfg Config) *Module {
	return &Module{
		cfg:   cfg,
		cache: New(nil, cfg.Prefix, cfg.TTL),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "cache"
}

// Cache returns the cache handle shared with other modules.
func (m *Module) Cache() *Cache {
	return m.cache
}

// RegisterServices registers the stats service.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "stats", json.Unmarshal, json.Marshal, m.statsHandler,
	); err != nil {
		return fmt.Errorf("failed to register stats service: %w", err)
	}
	log.Printf("[cache] Registered services: services.cache.stats")
	return nil
}

func (m *Module) statsHandler(_ context.Context, req StatsRequest, _ *mono.Msg) (StatsSnapshot, error) {
	snapshot := m.cache.GetStats()
	if req.Reset {
		m.cache.ResetStats()
	}
	return snapshot, nil
}

// Start connects to Redis.
func (m *Module) Start(ctx context.Context) error {
	if m.cfg.RedisAddr == "" {
		log.Println("[cache] REDIS_ADDR not set, cache disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         m.cfg.RedisAddr,
		PoolSize:     20,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		log.Printf("[cache] Warning: Redis not reachable at %s, cache disabled: %v", m.cfg.RedisAddr, err)
		return nil
	}

	m.cache.attach(client)
	log.Printf("[cache] Connected to Redis at %s (prefix: %s, TTL: %s)", m.cfg.RedisAddr, m.cfg.Prefix, m.cfg.TTL)
	return nil
}

// Stop closes the Redis connection.
func (m *Module) Stop(_ context.Context) error {
	if client := m.cache.attach(nil); client != nil {
		if err := client.Close(); err != nil {
			return fmt.Errorf("failed to close Redis connection: %w", err)
		}
	}
	log.Println("[cache] Module stopped")
	return nil
}

// Health reports the Redis state. A disabled cache is healthy.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if !m.cache.Enabled() {
		return mono.HealthStatus{
			Healthy: true,
			Message: "disabled",
		}
	}
	if err := m.cache.Ping(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("redis ping failed: %v", err),
		}
	}
	stats := m.cache.GetStats()
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"addr":     m.cfg.RedisAddr,
			"hit_rate": stats.HitRate,
		},
	}
}
