package config

import (
	"time"

	"github.com/spf13/viper"
)

// Backup configures the bot users export/import pipeline.
type Backup struct {
	Dir                 string        `json:"dir" yaml:"dir"`
	Collection          string        `json:"collection" yaml:"collection"`
	PageSize            int           `json:"page_size" yaml:"page_size"`
	LockTTL             time.Duration `json:"lock_ttl" yaml:"lock_ttl"`
	KeyPrefix           string        `json:"key_prefix" yaml:"key_prefix"`
	ImportTransactional bool          `json:"import_transactional" yaml:"import_transactional"`
	MaxImportBytes      int64         `json:"max_import_bytes" yaml:"max_import_bytes"`
}

func getBackupConfig(v *viper.Viper) *Backup {
	return &Backup{
		Dir:                 getStringOrDefault(v, "backup.dir", "backups"),
		Collection:          getStringOrDefault(v, "backup.collection", "bot_users"),
		PageSize:            getIntOrDefault(v, "backup.page_size", 5000),
		LockTTL:             getDurationOrDefault(v, "backup.lock_ttl", time.Hour),
		KeyPrefix:           getStringOrDefault(v, "backup.key_prefix", "background_export_tg"),
		ImportTransactional: v.GetBool("backup.import_transactional"),
		MaxImportBytes:      v.GetInt64("backup.max_import_bytes"),
	}
}

// EventLog configures the project event log kept in Redis.
type EventLog struct {
	Key   string `json:"key" yaml:"key"`
	Limit int    `json:"limit" yaml:"limit"`
	Level string `json:"level" yaml:"level"`
}

func getEventLogConfig(v *viper.Viper) *EventLog {
	return &EventLog{
		Key:   getStringOrDefault(v, "event_log.key", "project_logs"),
		Limit: getIntOrDefault(v, "event_log.limit", 500),
		Level: getStringOrDefault(v, "event_log.level", "info"),
	}
}

// Worker sizes the background task pool.
type Worker struct {
	MaxWorkers int `json:"max_workers" yaml:"max_workers"`
	QueueSize  int `json:"queue_size" yaml:"queue_size"`
}

func getWorkerConfig(v *viper.Viper) *Worker {
	return &Worker{
		MaxWorkers: getIntOrDefault(v, "worker.max_workers", 4),
		QueueSize:  getIntOrDefault(v, "worker.queue_size", 64),
	}
}

// Telegram holds the bot credentials used for admin notifications.
type Telegram struct {
	Token       string `json:"token" yaml:"token"`
	AdminChatID int64  `json:"admin_chat_id" yaml:"admin_chat_id"`
	SendFile    bool   `json:"send_file" yaml:"send_file"`
}

func getTelegramConfig(v *viper.Viper) *Telegram {
	return &Telegram{
		Token:       v.GetString("telegram.token"),
		AdminChatID: v.GetInt64("telegram.admin_chat_id"),
		SendFile:    v.GetBool("telegram.send_file"),
	}
}
