package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// nullValue 负缓存占位
var nullValue = []byte("null")

// LoadFunc 回源，(nil, nil) 表示记录不存在
type LoadFunc[T any] func(ctx context.Context) (*T, error)

// GetOrLoadJSON 值按 JSON 存储；不存在同样写入缓存，命中时返回 (nil, nil)
func GetOrLoadJSON[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, load LoadFunc[T]) (*T, error) {
	b, err := c.GetOrLoad(ctx, key, ttl, func(ctx context.Context) ([]byte, error) {
		v, err := load(ctx)
		switch {
		case err != nil:
			return nil, err
		case v == nil:
			return nullValue, nil
		}
		return json.Marshal(v)
	})
	if err != nil {
		return nil, err
	}
	return decodeJSON[T](b)
}

func decodeJSON[T any](b []byte) (*T, error) {
	if bytes.Equal(b, nullValue) {
		return nil, nil
	}
	out := new(T)
	if err := json.Unmarshal(b, out); err != nil {
		return nil, fmt.Errorf("cache: decode %T: %w", out, err)
	}
	return out, nil
}
