// Package repository holds the stores backing the bot users backup.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ncobase/shopconsole/data/metrics"
	"github.com/ncobase/shopconsole/internal/backup/structs"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

// StatusStore is the shared key-value state of the export job
type StatusStore interface {
	// SetIfAbsent sets key only when it does not exist, expiring after ttl.
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value any) error
	// Delete removes all keys in one round trip.
	Delete(ctx context.Context, keys ...string) error
	// GetMultiple returns the values in key order, nil for missing keys.
	GetMultiple(ctx context.Context, keys ...string) ([]*string, error)
	// CompareAndDelete removes key only while it still holds value.
	CompareAndDelete(ctx context.Context, key, value string) (bool, error)
}

var compareAndDelete = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type statusStore struct {
	rc *redis.Client
	cb *gobreaker.CircuitBreaker
}

// NewStatusStore creates a redis status store guarded by a circuit breaker.
// Breaker state changes are reported to collector as health checks.
func NewStatusStore(rc *redis.Client, collector metrics.Collector) (StatusStore, error) {
	if rc == nil {
		return nil, errors.New("redis client is nil")
	}
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "backup.status_store",
		MaxRequests: 1,
		Interval:    10 * time.Second,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		OnStateChange: func(_ string, _, to gobreaker.State) {
			collector.HealthCheck("status_store", to != gobreaker.StateOpen)
		},
	})

	return &statusStore{rc: rc, cb: cb}, nil
}

// do runs fn through the breaker and wraps any failure as unavailable
func (s *statusStore) do(fn func() (any, error)) (any, error) {
	v, err := s.cb.Execute(fn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", structs.ErrStoreUnavailable, err)
	}
	return v, nil
}

func (s *statusStore) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	v, err := s.do(func() (any, error) {
		return s.rc.SetNX(ctx, key, value, ttl).Result()
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (s *statusStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.do(func() (any, error) {
		val, err := s.rc.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return val, err
	})
	if err != nil || v == nil {
		return "", false, err
	}
	return v.(string), true, nil
}

func (s *statusStore) Set(ctx context.Context, key string, value any) error {
	_, err := s.do(func() (any, error) {
		return nil, s.rc.Set(ctx, key, value, 0).Err()
	})
	return err
}

func (s *statusStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.do(func() (any, error) {
		return nil, s.rc.Del(ctx, keys...).Err()
	})
	return err
}

func (s *statusStore) GetMultiple(ctx context.Context, keys ...string) ([]*string, error) {
	v, err := s.do(func() (any, error) {
		return s.rc.MGet(ctx, keys...).Result()
	})
	if err != nil {
		return nil, err
	}

	raw := v.([]any)
	values := make([]*string, len(keys))
	for i := range keys {
		if i >= len(raw) || raw[i] == nil {
			continue
		}
		str := fmt.Sprint(raw[i])
		values[i] = &str
	}
	return values, nil
}

func (s *statusStore) CompareAndDelete(ctx context.Context, key, value string) (bool, error) {
	v, err := s.do(func() (any, error) {
		return compareAndDelete.Run(ctx, s.rc, []string{key}, value).Int64()
	})
	if err != nil {
		return false, err
	}
	return v.(int64) == 1, nil
}
