package connection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ncobase/shopconsole/data/config"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient creates a new Redis client and verifies it with a ping
func NewRedisClient(conf *config.Redis) (*redis.Client, error) {
	if conf == nil || conf.Addr == "" {
		return nil, errors.New("redis configuration is nil or empty")
	}

	rc := redis.NewClient(&redis.Options{
		Addr:         conf.Addr,
		Username:     conf.Username,
		Password:     conf.Password,
		DB:           conf.Db,
		ReadTimeout:  conf.ReadTimeout,
		WriteTimeout: conf.WriteTimeout,
		DialTimeout:  conf.DialTimeout,
		PoolSize:     10,
	})

	dial := conf.DialTimeout
	if dial <= 0 {
		dial = 5 * time.Second
	}
	timeout, cancelFunc := context.WithTimeout(context.Background(), dial)
	defer cancelFunc()
	if err := rc.Ping(timeout).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("redis connect error: %w", err)
	}

	return rc, nil
}
