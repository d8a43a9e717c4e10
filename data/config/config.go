package config

import (
	"github.com/spf13/viper"
)

// Config data config struct
type Config struct {
	*Redis   `yaml:"redis" json:"redis"`
	*MongoDB `yaml:"mongodb" json:"mongodb"`
}

// GetConfig returns data config
func GetConfig(v *viper.Viper) *Config {
	return &Config{
		Redis:   getRedisConfigs(v),
		MongoDB: getMongoDBConfigs(v),
	}
}
