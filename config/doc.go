// Package config loads the console configuration with Viper. Values come
// from a YAML file and can be overridden by SHOPCONSOLE_* environment
// variables (dots become underscores, e.g. SHOPCONSOLE_DATA_REDIS_ADDR).
//
//	cfg, err := config.LoadConfig("config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	config.Watch(func(c *config.Config) {
//	    // re-apply hot settings
//	})
package config
