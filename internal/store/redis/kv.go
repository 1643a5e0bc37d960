package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/emperorhan/neo-wallet-engine/internal/store"
	"github.com/redis/go-redis/v9"
)

const backend = "redis"

// DefaultHashKey is the hash that holds every entry of one engine.
const DefaultHashKey = "neowallet:kv"

// KV keeps all entries as fields of a single Redis hash, so a multi-field
// HSET gives SetMany its atomicity and Clear is a single DEL.
type KV struct {
	client *redis.Client
	hash   string
}

var _ store.KV = (*KV)(nil)

func New(ctx context.Context, url, hash string) (*KV, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewWithClient(client, hash), nil
}

func NewWithClient(client *redis.Client, hash string) *KV {
	if hash == "" {
		hash = DefaultHashKey
	}
	return &KV{client: client, hash: hash}
}

func (k *KV) Get(ctx context.Context, key string) (_ []byte, _ bool, err error) {
	defer func(start time.Time) { store.Observe(backend, "get", start, err) }(time.Now())

	v, err := k.client.HGet(ctx, k.hash, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("hget %s: %w", key, err)
	}
	return v, true, nil
}

func (k *KV) SetMany(ctx context.Context, entries map[string][]byte) (err error) {
	defer func(start time.Time) { store.Observe(backend, "set", start, err) }(time.Now())
	if len(entries) == 0 {
		return nil
	}

	values := make([]interface{}, 0, len(entries)*2)
	for key, v := range entries {
		values = append(values, key, v)
	}
	if err = k.client.HSet(ctx, k.hash, values...).Err(); err != nil {
		return fmt.Errorf("hset: %w", err)
	}
	return nil
}

func (k *KV) Delete(ctx context.Context, keys ...string) (err error) {
	defer func(start time.Time) { store.Observe(backend, "delete", start, err) }(time.Now())
	if len(keys) == 0 {
		return nil
	}
	if err = k.client.HDel(ctx, k.hash, keys...).Err(); err != nil {
		return fmt.Errorf("hdel: %w", err)
	}
	return nil
}

func (k *KV) Clear(ctx context.Context) (err error) {
	defer func(start time.Time) { store.Observe(backend, "clear", start, err) }(time.Now())
	if err = k.client.Del(ctx, k.hash).Err(); err != nil {
		return fmt.Errorf("del %s: %w", k.hash, err)
	}
	return nil
}

func (k *KV) Close() error {
	return k.client.Close()
}
