// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_tokencache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/callsightai/pkg/commons"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "callsight:token:"

// Cache holds short lived provider tokens so repeated proxy calls reuse them.
type Cache interface {
	// Get reports a miss as ok=false with a nil error.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Ping(ctx context.Context) error
}

type FetchFunc func(ctx context.Context) (string, error)

// Remember returns the cached value for key or calls fetch and caches the
// result for ttl. Cache failures are logged and never fail the call.
func Remember(ctx context.Context, logger commons.Logger, cache Cache, key string, ttl time.Duration, fetch FetchFunc) (string, error) {
	if v, ok, err := cache.Get(ctx, key); err != nil {
		logger.Warnf("token cache read failed for %s: %v", key, err)
	} else if ok {
		return v, nil
	}
	v, err := fetch(ctx)
	if err != nil {
		return "", err
	}
	if err := cache.Set(ctx, key, v, ttl); err != nil {
		logger.Warnf("token cache write failed for %s: %v", key, err)
	}
	return v, nil
}

type redisCache struct {
	client *redis.Client
	logger commons.Logger
}

func NewRedisCache(client *redis.Client, logger commons.Logger) Cache {
	return &redisCache{client: client, logger: logger}
}

// NewRedisClient builds a client from connection settings without dialing.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
}

func (c *redisCache) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.client.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	c.logger.Debugf("token cache hit: %s", key)
	return v, true, nil
}

func (c *redisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := c.client.Set(ctx, keyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (c *redisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

type noopCache struct{}

// NewNoopCache never stores anything; used when redis is not configured.
func NewNoopCache() Cache { return noopCache{} }

func (noopCache) Get(context.Context, string) (string, bool, error) { return "", false, nil }
func (noopCache) Set(context.Context, string, string, time.Duration) error { return nil }
func (noopCache) Ping(context.Context) error { return nil }
