package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Connect はREDIS_URL（redis://...）から接続を作る。
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// 自分が取ったロックだけ消す
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock は決済反映の多重実行を防ぐ分散ロック（SET NX PX）
type RedisLock struct {
	client redis.Cmdable
	prefix string
	log    *slog.Logger
}

func NewRedisLock(client redis.Cmdable, log *slog.Logger) *RedisLock {
	if log == nil {
		log = slog.Default()
	}
	return &RedisLock{client: client, prefix: "badgeshop:lock:", log: log}
}

func (l *RedisLock) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	fullKey := l.prefix + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// 呼び出し側のctxが切れていても解放する
		relCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(relCtx, l.client, []string{fullKey}, token).Err(); err != nil {
			l.log.Warn("release lock failed", slog.String("key", fullKey), slog.Any("err", err))
		}
	}
	return release, true, nil
}

// redis未設定時に使う。常に取得成功（DBの行ロックだけで直列化）
type NopLock struct{}

func (NopLock) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	return func() {}, true, nil
}
