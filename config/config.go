package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	dc "github.com/ncobase/shopconsole/data/config"
	lc "github.com/ncobase/shopconsole/logging/logger/config"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides.
const EnvPrefix = "SHOPCONSOLE"

var (
	config *Config
	mu     sync.RWMutex
	v      *viper.Viper
)

// Config represents the configuration implementation.
type Config struct {
	AppName  string
	RunMode  string
	Host     string
	Port     int
	Logger   *lc.Config
	Data     *dc.Config
	Backup   *Backup
	EventLog *EventLog
	Worker   *Worker
	Telegram *Telegram
	Observes *Observes
	Viper    *viper.Viper
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetConfig returns the last loaded configuration.
func GetConfig() (*Config, error) {
	mu.RLock()
	defer mu.RUnlock()
	if config == nil {
		return nil, fmt.Errorf("config not loaded")
	}
	return config, nil
}

// LoadConfig loads the configuration from the file and sets it globally.
// An empty path searches the usual locations for config.yaml.
func LoadConfig(configPath string) (*Config, error) {
	mu.Lock()
	defer mu.Unlock()

	v = viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		ex, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to get executable path: %w", err)
		}
		v.SetConfigName("config")
		v.AddConfigPath("/etc/shopconsole")
		v.AddConfigPath("$HOME/.shopconsole")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Dir(ex))
	}

	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := fromViper(v)
	config = cfg
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "shopconsole")
	v.SetDefault("run_mode", "release")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("logger.level", 4)
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("data.redis.addr", "127.0.0.1:6379")
	v.SetDefault("data.mongodb.database", "funpayxscanbot")
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		AppName:  v.GetString("app_name"),
		RunMode:  v.GetString("run_mode"),
		Host:     v.GetString("server.host"),
		Port:     v.GetInt("server.port"),
		Logger:   lc.GetConfig(v),
		Data:     dc.GetConfig(v),
		Backup:   getBackupConfig(v),
		EventLog: getEventLogConfig(v),
		Worker:   getWorkerConfig(v),
		Telegram: getTelegramConfig(v),
		Observes: getObservesConfig(v),
		Viper:    v,
	}
}

// Reload reloads the configuration from the file.
func Reload() error {
	mu.Lock()
	defer mu.Unlock()

	if v == nil {
		return fmt.Errorf("config not loaded")
	}
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to reload config: %w", err)
	}
	config = fromViper(v)
	return nil
}

// Watch watches the configuration file and reloads it when it changes.
func Watch(callback func(*Config)) {
	mu.RLock()
	watched := v
	mu.RUnlock()
	if watched == nil {
		return
	}

	watched.OnConfigChange(func(e fsnotify.Event) {
		if err := Reload(); err != nil {
			fmt.Printf("Error reloading config %s: %v\n", e.Name, err)
			return
		}
		cfg, err := GetConfig()
		if err == nil {
			callback(cfg)
		}
	})
	watched.WatchConfig()
}
