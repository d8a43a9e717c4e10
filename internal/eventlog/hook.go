package eventlog

import (
	"context"
	"time"

	"github.com/ncobase/shopconsole/logging/logger"
	"github.com/sirupsen/logrus"
)

const pushTimeout = 2 * time.Second

// Hook mirrors log entries into the event log store.
type Hook struct {
	store  *Store
	levels []logrus.Level
}

// NewHook creates a hook for entries at minLevel or more severe.
// An unknown level falls back to info.
func NewHook(store *Store, minLevel string) *Hook {
	lvl, err := logrus.ParseLevel(minLevel)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	levels := make([]logrus.Level, 0, len(logrus.AllLevels))
	for _, l := range logrus.AllLevels {
		if l <= lvl {
			levels = append(levels, l)
		}
	}
	return &Hook{store: store, levels: levels}
}

// Levels returns the levels the hook fires on
func (h *Hook) Levels() []logrus.Level {
	return h.levels
}

// Fire pushes the entry to Redis
func (h *Hook) Fire(entry *logrus.Entry) error {
	fields := make(map[string]any, len(entry.Data))
	level := levelName(entry.Level)
	for k, v := range entry.Data {
		if k == logger.EventLevelKey {
			if s, ok := v.(string); ok && s != "" {
				level = s
			}
			continue
		}
		fields[k] = v
	}

	parent := context.Background()
	if entry.Context != nil {
		parent = context.WithoutCancel(entry.Context)
	}
	ctx, cancel := context.WithTimeout(parent, pushTimeout)
	defer cancel()
	return h.store.Push(ctx, level, entry.Message, fields)
}

func levelName(l logrus.Level) string {
	switch l {
	case logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel:
		return "error"
	case logrus.WarnLevel:
		return "warn"
	case logrus.InfoLevel:
		return "info"
	default:
		return "debug"
	}
}
