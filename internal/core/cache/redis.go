package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

type Cache struct {
	RDB    *redis.Client
	Prefix string
	sf     singleflight.Group
}

// NewWithClient 复用已有连接（session/token 也走同一个 redis）
func NewWithClient(rdb *redis.Client, prefix string) *Cache {
	return &Cache{RDB: rdb, Prefix: prefix}
}

// Ping 启动时探活
func (c *Cache) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.RDB.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache: ping: %w", err)
	}
	return nil
}

func (c *Cache) Key(parts ...string) string {
	k := c.Prefix
	for _, p := range parts {
		if k != "" {
			k += ":"
		}
		k += p
	}
	return k
}

// epochTTL 版本号保留时长，远大于任何一次回源耗时
const epochTTL = 24 * time.Hour

func epochKey(key string) string { return key + "#epoch" }

// GetOrLoad 读穿缓存；回源期间若被 Invalidate（版本号变化），结果照常返回但不写入缓存
func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load func(context.Context) ([]byte, error)) ([]byte, error) {
	// 先读缓存（redis 故障时直接回源）
	if b, err := c.RDB.Get(ctx, key).Bytes(); err == nil {
		return b, nil
	}
	// single flight 合并回源
	v, err, _ := c.sf.Do(key, func() (any, error) {
		var (
			out     []byte
			loadErr error
			loaded  bool
		)
		_ = c.RDB.Watch(ctx, func(tx *redis.Tx) error {
			loaded = true
			out, loadErr = load(ctx)
			if loadErr != nil {
				return loadErr
			}
			_, err := tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
				p.Set(ctx, key, out, ttl)
				return nil
			})
			return err
		}, epochKey(key))
		if !loaded {
			out, loadErr = load(ctx)
		}
		if loadErr != nil {
			return nil, loadErr
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Invalidate 写操作后删除缓存并推进版本号；删除失败返回错误，调用方决定是否忽略
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	for _, k := range keys {
		c.sf.Forget(k)
	}
	_, err := c.RDB.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, k := range keys {
			p.Incr(ctx, epochKey(k))
			p.Expire(ctx, epochKey(k), epochTTL)
		}
		p.Del(ctx, keys...)
		return nil
	})
	return err
}
