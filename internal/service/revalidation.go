package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

const viewCachePrefix = "view:"

// RedisRevalidator 编辑视图缓存存放在 redis 中；失效时删除缓存并向频道广播路径，
// 其它实例（或前端渲染层）订阅该频道自行丢弃本地缓存。
type RedisRevalidator struct {
	Redis   *redis.Client
	Channel string
	TTL     time.Duration
}

func NewRedisRevalidator(client *redis.Client, channel string, ttl time.Duration) *RedisRevalidator {
	return &RedisRevalidator{Redis: client, Channel: channel, TTL: ttl}
}

func (r *RedisRevalidator) Revalidate(ctx context.Context, path string) error {
	if r == nil || r.Redis == nil {
		return nil
	}
	if err := r.Redis.Del(ctx, viewCachePrefix+path).Err(); err != nil {
		return errors.Wrapf(err, "drop cached view %s", path)
	}
	if err := r.Redis.Publish(ctx, r.Channel, path).Err(); err != nil {
		return errors.Wrapf(err, "publish revalidation for %s", path)
	}
	return nil
}

// Load 命中返回 true；未命中或 redis 不可用返回 false
func (r *RedisRevalidator) Load(ctx context.Context, path string, dst interface{}) (bool, error) {
	if r == nil || r.Redis == nil {
		return false, nil
	}
	raw, err := r.Redis.Get(ctx, viewCachePrefix+path).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "load cached view %s", path)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, errors.Wrapf(err, "decode cached view %s", path)
	}
	return true, nil
}

func (r *RedisRevalidator) Store(ctx context.Context, path string, value interface{}) error {
	if r == nil || r.Redis == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "encode view")
	}
	return errors.Wrapf(r.Redis.Set(ctx, viewCachePrefix+path, raw, r.TTL).Err(), "store cached view %s", path)
}

// Subscribe 监听失效通知，直到 ctx 结束
func (r *RedisRevalidator) Subscribe(ctx context.Context, handle func(path string)) error {
	sub := r.Redis.Subscribe(ctx, r.Channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return errors.Wrap(err, "subscribe revalidation channel")
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			handle(msg.Payload)
		}
	}
}
