// Package eventlog keeps a capped list of recent project events in Redis
// for the dashboard.
package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultKey   = "project_logs"
	DefaultLimit = 500

	timestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

// Entry is one stored event: level, timestamp, message plus any fields.
type Entry map[string]any

// Store pushes events onto a capped Redis list, newest first.
type Store struct {
	rc    *redis.Client
	key   string
	limit int64
	now   func() time.Time
}

// NewStore creates a store on key holding at most limit entries.
func NewStore(rc *redis.Client, key string, limit int) *Store {
	if key == "" {
		key = DefaultKey
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Store{rc: rc, key: key, limit: int64(limit), now: time.Now}
}

// Limit returns the list capacity.
func (s *Store) Limit() int64 { return s.limit }

// Push records an event and trims the list to its limit.
func (s *Store) Push(ctx context.Context, level, message string, fields map[string]any) error {
	entry := make(Entry, len(fields)+3)
	for k, v := range fields {
		entry[k] = v
	}
	entry["level"] = level
	entry["timestamp"] = s.now().UTC().Format(timestampLayout)
	entry["message"] = message

	b, err := json.Marshal(entry)
	if err != nil {
		for k, v := range entry {
			entry[k] = fmt.Sprint(v)
		}
		if b, err = json.Marshal(entry); err != nil {
			return err
		}
	}

	_, err = s.rc.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, s.key, b)
		pipe.LTrim(ctx, s.key, 0, s.limit-1)
		return nil
	})
	return err
}

// Recent returns up to n entries, newest first. Unreadable entries are skipped.
func (s *Store) Recent(ctx context.Context, n int64) ([]Entry, error) {
	if n <= 0 || n > s.limit {
		n = s.limit
	}
	raw, err := s.rc.LRange(ctx, s.key, 0, n-1).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(raw))
	for _, r := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
