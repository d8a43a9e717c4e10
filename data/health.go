package data

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/ncobase/shopconsole/logging/logger"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/sync/errgroup"
)

const (
	StatusConnected = "connected"
	StatusError     = "error"
)

// ComponentHealth is the connection state of one backing store
type ComponentHealth struct {
	Status string  `json:"status"`
	Memory *string `json:"memory"`
}

// Health is the combined state of the backing stores
type Health struct {
	MongoDB ComponentHealth `json:"mongodb"`
	Redis   ComponentHealth `json:"redis"`
}

var usedMemoryRe = regexp.MustCompile(`used_memory_human:([\d.]+.)`)

// Health pings MongoDB and Redis concurrently and reports their memory use
func (d *Data) Health(ctx context.Context) *Health {
	h := &Health{
		MongoDB: ComponentHealth{Status: StatusError},
		Redis:   ComponentHealth{Status: StatusError},
	}

	var g errgroup.Group
	g.Go(func() error {
		h.MongoDB = d.mongoHealth(ctx)
		return nil
	})
	g.Go(func() error {
		h.Redis = d.redisHealth(ctx)
		return nil
	})
	_ = g.Wait()

	return h
}

func (d *Data) mongoHealth(ctx context.Context) ComponentHealth {
	if d.mongo == nil {
		return ComponentHealth{Status: StatusError}
	}
	err := d.mongo.Health(ctx)
	if err == nil {
		var stats bson.M
		err = d.mongo.GetDatabase(false).RunCommand(ctx, bson.D{{Key: "dbStats", Value: 1}}).Decode(&stats)
		if err == nil {
			d.collector.HealthCheck("mongodb", true)
			memory := FormatBytes(toFloat(stats["storageSize"]), 2)
			return ComponentHealth{Status: StatusConnected, Memory: &memory}
		}
	}
	d.collector.HealthCheck("mongodb", false)
	logger.Error(ctx, fmt.Sprintf("MongoDB connection error: %v", err))
	return ComponentHealth{Status: StatusError}
}

func (d *Data) redisHealth(ctx context.Context) ComponentHealth {
	if d.rc == nil {
		return ComponentHealth{Status: StatusError}
	}
	err := d.rc.Ping(ctx).Err()
	if err == nil {
		var info string
		info, err = d.rc.Info(ctx, "memory").Result()
		if err == nil {
			d.collector.HealthCheck("redis", true)
			h := ComponentHealth{Status: StatusConnected}
			if m := usedMemoryRe.FindStringSubmatch(info); m != nil {
				memory := m[1] + "B"
				h.Memory = &memory
			}
			return h
		}
	}
	d.collector.HealthCheck("redis", false)
	logger.Error(ctx, fmt.Sprintf("Redis connection error: %v", err))
	return ComponentHealth{Status: StatusError}
}

// FormatBytes renders a byte count with binary units, e.g. "1.5 KB"
func FormatBytes(bytes float64, decimals int) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	if decimals < 0 {
		decimals = 0
	}
	sizes := []string{"Bytes", "KB", "MB", "GB", "TB"}
	i := int(math.Floor(math.Log(bytes) / math.Log(1024)))
	if i >= len(sizes) {
		i = len(sizes) - 1
	}
	value := bytes / math.Pow(1024, float64(i))
	return trimFloat(value, decimals) + " " + sizes[i]
}

func trimFloat(v float64, decimals int) string {
	s := strconv.FormatFloat(v, 'f', decimals, 64)
	f, _ := strconv.ParseFloat(s, 64)
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}
