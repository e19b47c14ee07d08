package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang-stock-advisor/pkg/common"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

type redisLastPriceRepository struct {
	redisClient *redis.Client
	ttl         time.Duration
}

// NewRedisLastPriceRepository stores last trusted prices as Redis hashes.
func NewRedisLastPriceRepository(redisClient *redis.Client, ttl time.Duration) LastPriceRepository {
	return &redisLastPriceRepository{redisClient: redisClient, ttl: ttl}
}

func (r *redisLastPriceRepository) Get(ctx context.Context, ticker, exchange string) (float64, bool, error) {
	key := fmt.Sprintf(common.RedisKeyLastPrice, exchange, ticker)
	raw, err := r.redisClient.HGet(ctx, key, "price").Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get last price: %w", err)
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, fmt.Errorf("failed to parse last price %q: %w", raw, err)
	}
	return price, true, nil
}

func (r *redisLastPriceRepository) Set(ctx context.Context, ticker, exchange string, price float64, at time.Time) error {
	key := fmt.Sprintf(common.RedisKeyLastPrice, exchange, ticker)
	pipe := r.redisClient.Pipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"price":     price,
		"timestamp": at.Unix(),
	})
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set last price: %w", err)
	}
	return nil
}

type memoryLastPriceRepository struct {
	inmemoryCache *cache.Cache
	ttl           time.Duration
}

// NewMemoryLastPriceRepository keeps last trusted prices in process memory.
func NewMemoryLastPriceRepository(ttl time.Duration) LastPriceRepository {
	expiration := ttl
	if expiration <= 0 {
		expiration = cache.NoExpiration
	}
	return &memoryLastPriceRepository{
		inmemoryCache: cache.New(expiration, 10*time.Minute),
		ttl:           expiration,
	}
}

func (r *memoryLastPriceRepository) Get(ctx context.Context, ticker, exchange string) (float64, bool, error) {
	v, found := r.inmemoryCache.Get(fmt.Sprintf(common.RedisKeyLastPrice, exchange, ticker))
	if !found {
		return 0, false, nil
	}
	return v.(float64), true, nil
}

func (r *memoryLastPriceRepository) Set(ctx context.Context, ticker, exchange string, price float64, at time.Time) error {
	r.inmemoryCache.Set(fmt.Sprintf(common.RedisKeyLastPrice, exchange, ticker), price, r.ttl)
	return nil
}
