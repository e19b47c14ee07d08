package repository

import (
	"context"
	"fmt"
	"time"

	"golang-stock-advisor/pkg/common"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

type redisRunLockRepository struct {
	redisClient *redis.Client
	key         string
}

// NewRedisRunLockRepository creates a distributed run lock backed by SET NX.
func NewRedisRunLockRepository(redisClient *redis.Client) RunLockRepository {
	return &redisRunLockRepository{redisClient: redisClient, key: common.RedisKeyRunLock}
}

func (r *redisRunLockRepository) Acquire(ctx context.Context, ttl time.Duration) (func(context.Context) error, bool, error) {
	token := uuid.NewString()
	ok, err := r.redisClient.SetNX(ctx, r.key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, r.redisClient, []string{r.key}, token).Err(); err != nil && err != redis.Nil {
			return fmt.Errorf("failed to release run lock: %w", err)
		}
		return nil
	}
	return release, true, nil
}
