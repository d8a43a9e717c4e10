package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

// MongoDB mongodb config struct
type MongoDB struct {
	URI      string       `json:"uri"`
	Database string       `json:"database"`
	Slaves   []*MongoNode `json:"slaves"`
	Strategy string       `json:"strategy"`
}

// MongoNode mongodb read node config
type MongoNode struct {
	URI    string `json:"uri"`
	Weight int    `json:"weight"`
}

// DatabaseName prefers the database named in the URI path over the
// configured fallback.
func (m *MongoDB) DatabaseName() string {
	if u, err := url.Parse(m.URI); err == nil {
		if name := strings.TrimPrefix(u.Path, "/"); name != "" {
			return name
		}
	}
	return m.Database
}

// getMongoDBConfigs reads MongoDB configurations
func getMongoDBConfigs(v *viper.Viper) *MongoDB {
	return &MongoDB{
		URI:      v.GetString("data.mongodb.uri"),
		Database: v.GetString("data.mongodb.database"),
		Slaves:   getMongoSlaveConfigs(v),
		Strategy: v.GetString("data.mongodb.strategy"),
	}
}

// getMongoSlaveConfigs reads MongoDB read node configurations
func getMongoSlaveConfigs(v *viper.Viper) []*MongoNode {
	var slaves []*MongoNode

	slavesConfig, ok := v.Get("data.mongodb.slaves").([]any)
	if !ok {
		return slaves
	}

	for i := range slavesConfig {
		slave := &MongoNode{
			URI:    v.GetString(fmt.Sprintf("data.mongodb.slaves.%d.uri", i)),
			Weight: v.GetInt(fmt.Sprintf("data.mongodb.slaves.%d.weight", i)),
		}
		if slave.URI == "" {
			continue
		}
		if slave.Weight <= 0 {
			slave.Weight = 1
		}
		slaves = append(slaves, slave)
	}

	return slaves
}
