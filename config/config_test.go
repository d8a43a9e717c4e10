package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
app_name: shopconsole
run_mode: debug
server:
  host: 127.0.0.1
  port: 8080
data:
  redis:
    addr: redis:6379
  mongodb:
    uri: mongodb://mongo:27017/shop
backup:
  dir: /var/lib/shopconsole/backups
  page_size: 2000
telegram:
  admin_chat_id: 42
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.Addr())
	assert.Equal(t, "debug", cfg.RunMode)
	assert.Equal(t, "redis:6379", cfg.Data.Redis.Addr)
	assert.Equal(t, "mongodb://mongo:27017/shop", cfg.Data.MongoDB.URI)
	assert.Equal(t, 2000, cfg.Backup.PageSize)
	assert.Equal(t, "/var/lib/shopconsole/backups", cfg.Backup.Dir)
	assert.Equal(t, int64(42), cfg.Telegram.AdminChatID)

	got, err := GetConfig()
	require.NoError(t, err)
	assert.Same(t, cfg, got)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "app_name: console\n"))
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "bot_users", cfg.Backup.Collection)
	assert.Equal(t, 5000, cfg.Backup.PageSize)
	assert.Equal(t, time.Hour, cfg.Backup.LockTTL)
	assert.Equal(t, "background_export_tg", cfg.Backup.KeyPrefix)
	assert.Equal(t, "project_logs", cfg.EventLog.Key)
	assert.Equal(t, 500, cfg.EventLog.Limit)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("SHOPCONSOLE_DATA_REDIS_ADDR", "cache:6380")
	t.Setenv("SHOPCONSOLE_BACKUP_PAGE_SIZE", "100")

	cfg, err := LoadConfig(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "cache:6380", cfg.Data.Redis.Addr)
	assert.Equal(t, 100, cfg.Backup.PageSize)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
