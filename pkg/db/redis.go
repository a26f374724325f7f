package db

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const redisMaxRetries = 5

// ConnectRedis dials Redis and pings it with exponential backoff, giving up
// after redisMaxRetries attempts.
func ConnectRedis(ctx context.Context, addr string, dbIndex int, logger *logrus.Logger) (*redis.Client, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	logger.Infof("Initializing Redis client. Addr: %s, DB: %d", addr, dbIndex)
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIndex,
	})

	for i := 0; i < redisMaxRetries; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			logger.Info("Redis connection established.")
			return rdb, nil
		}

		if i == redisMaxRetries-1 {
			_ = rdb.Close()
			return nil, fmt.Errorf("failed to connect to redis after %d retries: %w", redisMaxRetries, err)
		}

		backoff := time.Duration(1<<i) * time.Second
		logger.Warnf("Redis not ready, retry in %v... (%d/%d)", backoff, i+1, redisMaxRetries)
		select {
		case <-ctx.Done():
			_ = rdb.Close()
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return rdb, nil
}
