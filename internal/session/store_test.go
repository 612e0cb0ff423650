// Copyright (c) 2026 FitGate. All rights reserved.
// Author: dev@openfit.io

package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisKV(t *testing.T) {
	ctx := context.Background()
	kv := testRedisKV(t)

	t.Run("absent key reads as empty", func(t *testing.T) {
		value, err := kv.Get(ctx, "fitgate:cred:nope:access")

		require.NoError(t, err)
		assert.Empty(t, value)
	})

	t.Run("set then get then del", func(t *testing.T) {
		require.NoError(t, kv.Set(ctx, "k1", "v1", time.Hour))

		value, err := kv.Get(ctx, "k1")
		require.NoError(t, err)
		assert.Equal(t, "v1", value)

		require.NoError(t, kv.Del(ctx, "k1"))

		value, err = kv.Get(ctx, "k1")
		require.NoError(t, err)
		assert.Empty(t, value)
	})

	t.Run("deleting nothing is fine", func(t *testing.T) {
		assert.NoError(t, kv.Del(ctx))
		assert.NoError(t, kv.Del(ctx, "never-existed"))
	})
}

func TestMemoryKV(t *testing.T) {
	ctx := context.Background()

	t.Run("behaves like the redis adapter", func(t *testing.T) {
		kv := NewMemoryKV()

		value, err := kv.Get(ctx, "absent")
		require.NoError(t, err)
		assert.Empty(t, value)

		require.NoError(t, kv.Set(ctx, "k1", "v1", 0))
		value, err = kv.Get(ctx, "k1")
		require.NoError(t, err)
		assert.Equal(t, "v1", value)

		require.NoError(t, kv.Del(ctx, "k1"))
		value, err = kv.Get(ctx, "k1")
		require.NoError(t, err)
		assert.Empty(t, value)
	})

	t.Run("entries expire by TTL", func(t *testing.T) {
		kv := NewMemoryKV()
		base := time.Now()
		kv.now = func() time.Time { return base }

		require.NoError(t, kv.Set(ctx, "k1", "v1", time.Minute))

		kv.now = func() time.Time { return base.Add(2 * time.Minute) }
		value, err := kv.Get(ctx, "k1")
		require.NoError(t, err)
		assert.Empty(t, value)
	})
}
