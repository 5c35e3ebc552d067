package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"badgeshop/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

const productCacheTTL = 10 * time.Minute

// RedisProductCache は商品詳細のread-throughキャッシュ。
// 管理画面で更新・削除したら消す。
type RedisProductCache struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewRedisProductCache(client redis.Cmdable) *RedisProductCache {
	return &RedisProductCache{client: client, prefix: "badgeshop:product:", ttl: productCacheTTL}
}

func (c *RedisProductCache) key(id int64) string {
	return c.prefix + strconv.FormatInt(id, 10)
}

// 無ければ (zero, false, nil)
func (c *RedisProductCache) Get(ctx context.Context, id int64) (model.Product, bool, error) {
	b, err := c.client.Get(ctx, c.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Product{}, false, nil
	}
	if err != nil {
		return model.Product{}, false, fmt.Errorf("get product %d: %w", id, err)
	}
	var p model.Product
	if err := json.Unmarshal(b, &p); err != nil {
		return model.Product{}, false, fmt.Errorf("decode product %d: %w", id, err)
	}
	return p, true, nil
}

func (c *RedisProductCache) Set(ctx context.Context, p model.Product) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(p.ID), b, c.ttl).Err()
}

func (c *RedisProductCache) Invalidate(ctx context.Context, id int64) error {
	return c.client.Del(ctx, c.key(id)).Err()
}
