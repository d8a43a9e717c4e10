package config

import (
	"github.com/spf13/viper"
)

// Config configuration struct
type Config struct {
	Level      int      `json:"level" yaml:"level"`
	Format     string   `json:"format" yaml:"format"`
	Output     string   `json:"output" yaml:"output"`
	OutputFile string   `json:"output_file" yaml:"output_file"`
	MaskFields []string `json:"mask_fields" yaml:"mask_fields"`
}

var defaultMaskFields = []string{"password", "token", "secret", "uri", "dsn", "api_key"}

// GetConfig returns the logger configuration
func GetConfig(v *viper.Viper) *Config {
	level := 4
	if v.IsSet("logger.level") {
		level = v.GetInt("logger.level")
	}
	format := v.GetString("logger.format")
	if format == "" {
		format = "json"
	}
	output := v.GetString("logger.output")
	if output == "" {
		output = "stdout"
	}
	masks := v.GetStringSlice("logger.mask_fields")
	if len(masks) == 0 {
		masks = defaultMaskFields
	}

	return &Config{
		Level:      level,
		Format:     format,
		Output:     output,
		OutputFile: v.GetString("logger.output_file"),
		MaskFields: masks,
	}
}
