package cache

import (
	"context"
	"encoding/json"
	"slices"
	"time"
)

// absent 负缓存标记：回源确认不存在
const absent = "-"

// Doc 某一类 JSON 文档的读穿缓存视图；c 为空时直接回源
type Doc[T any] struct {
	c   *Cache
	ns  []string
	ttl time.Duration
}

func NewDoc[T any](c *Cache, ttl time.Duration, ns ...string) Doc[T] {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return Doc[T]{c: c, ns: ns, ttl: ttl}
}

func (d Doc[T]) Key(id string) string {
	if d.c == nil {
		return ""
	}
	return d.c.Key(append(slices.Clip(d.ns), id)...)
}

// Get load 返回 (nil, nil) 表示不存在，同样缓存 ttl；写操作后需 Invalidate
func (d Doc[T]) Get(ctx context.Context, id string, load func(context.Context) (*T, error)) (*T, error) {
	if d.c == nil {
		return load(ctx)
	}
	key := d.Key(id)
	raw, err := d.c.GetOrLoad(ctx, key, d.ttl, func(ctx context.Context) ([]byte, error) {
		v, err := load(ctx)
		switch {
		case err != nil:
			return nil, err
		case v == nil:
			return []byte(absent), nil
		}
		return json.Marshal(v)
	})
	if err != nil {
		return nil, err
	}
	if string(raw) == absent {
		return nil, nil
	}
	out := new(T)
	if err := json.Unmarshal(raw, out); err != nil {
		// 结构变了的旧缓存：丢掉后回源
		_ = d.c.Invalidate(ctx, key)
		return load(ctx)
	}
	return out, nil
}

func (d Doc[T]) Invalidate(ctx context.Context, ids ...string) error {
	if d.c == nil || len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = d.Key(id)
	}
	return d.c.Invalidate(ctx, keys...)
}
