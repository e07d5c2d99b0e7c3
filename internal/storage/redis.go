package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"meddispense/m/domain"
)

// RedisGateway keeps the catalog JSON array under a single key.
type RedisGateway struct {
	client *redis.Client
	key    string
}

func NewRedisGateway(client *redis.Client, key string) *RedisGateway {
	return &RedisGateway{client: client, key: key}
}

func (g *RedisGateway) Load(ctx context.Context) ([]domain.Medicine, error) {
	data, err := g.client.Get(ctx, g.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", g.key, err)
	}
	catalog := []domain.Medicine{}
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("decode catalog from %s: %w", g.key, err)
	}
	return catalog, nil
}

func (g *RedisGateway) Save(ctx context.Context, catalog []domain.Medicine) error {
	if catalog == nil {
		catalog = []domain.Medicine{}
	}
	data, err := json.Marshal(catalog)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	if err := g.client.Set(ctx, g.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", g.key, err)
	}
	return nil
}
