// Copyright (c) 2026 FitGate. All rights reserved.
// Author: dev@openfit.io

package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// KV is the durable key/value port behind credential and session
// persistence. An absent key resolves to ("", nil); callers never need to
// distinguish "missing" from "empty" because the gateway never stores empty
// values.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// RedisKV adapts a go-redis client to the KV port.
type RedisKV struct {
	client *redis.Client
}

// NewRedisKV wraps an already-connected redis client.
func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

func (store *RedisKV) Get(ctx context.Context, key string) (string, error) {
	value, err := store.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get %q: %w", key, err)
	}
	return value, nil
}

func (store *RedisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := store.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

func (store *RedisKV) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := store.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// MemoryKV is an in-process KV used by tests and by deployments that run
// without redis. Entries honor their TTL lazily on read.
type MemoryKV struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

type memoryItem struct {
	value     string
	expiresAt time.Time
}

// NewMemoryKV returns an empty in-memory store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		items: make(map[string]memoryItem),
		now:   time.Now,
	}
}

func (store *MemoryKV) Get(_ context.Context, key string) (string, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	item, ok := store.items[key]
	if !ok {
		return "", nil
	}
	if !item.expiresAt.IsZero() && !store.now().Before(item.expiresAt) {
		delete(store.items, key)
		return "", nil
	}
	return item.value, nil
}

func (store *MemoryKV) Set(_ context.Context, key, value string, ttl time.Duration) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	item := memoryItem{value: value}
	if ttl > 0 {
		item.expiresAt = store.now().Add(ttl)
	}
	store.items[key] = item
	return nil
}

func (store *MemoryKV) Del(_ context.Context, keys ...string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, key := range keys {
		delete(store.items, key)
	}
	return nil
}
