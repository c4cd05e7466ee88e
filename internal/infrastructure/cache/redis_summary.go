// Package cache guarda el resumen del tablero en Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/medstock-api/internal/application/dto"
	"github.com/jhoicas/medstock-api/internal/application/ports"
)

// SummaryKey clave única del resumen.
const SummaryKey = "medstock:dashboard:summary"

var _ ports.SummaryCache = (*RedisSummaryCache)(nil)

// RedisSummaryCache implementa ports.SummaryCache con un TTL corto.
type RedisSummaryCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisSummaryCache construye la cache. ttl <= 0 usa 30s.
func NewRedisSummaryCache(client redis.Cmdable, ttl time.Duration) *RedisSummaryCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisSummaryCache{client: client, ttl: ttl}
}

// NewClient abre el cliente y comprueba la conexión.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Get devuelve (nil, nil) si no hay entrada.
func (c *RedisSummaryCache) Get(ctx context.Context) (*dto.DashboardSummary, error) {
	raw, err := c.client.Get(ctx, SummaryKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("leer resumen: %w", err)
	}
	var s dto.DashboardSummary
	if err := json.Unmarshal(raw, &s); err != nil {
		// Entrada corrupta: se trata como ausencia y se recalcula.
		return nil, nil
	}
	return &s, nil
}

// Set guarda el resumen con el TTL configurado.
func (c *RedisSummaryCache) Set(ctx context.Context, s *dto.DashboardSummary) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("serializar resumen: %w", err)
	}
	if err := c.client.Set(ctx, SummaryKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("guardar resumen: %w", err)
	}
	return nil
}

// Invalidate borra el resumen.
func (c *RedisSummaryCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, SummaryKey).Err(); err != nil {
		return fmt.Errorf("invalidar resumen: %w", err)
	}
	return nil
}
