package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoggingConfig contains logging-related configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StorageConfig selects the blob store used for job input, intermediate
// data and output. Coordinator and workers must point at the same store.
type StorageConfig struct {
	Type string `mapstructure:"type"` // "memory", "filesystem" or "sqlite"
	Path string `mapstructure:"path"`
}

// load reads an optional YAML file and applies environment overrides. With an
// empty configPath it looks for <name>.yaml in ./config and the working
// directory; a missing file is not an error.
func load(v *viper.Viper, configPath, name, envPrefix string, out any) error {
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(name)
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.Unmarshal(out); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}
	return nil
}

func validateStorage(cfg StorageConfig) error {
	switch cfg.Type {
	case "memory":
		return nil
	case "filesystem", "sqlite":
		if cfg.Path == "" {
			return fmt.Errorf("storage path is required for %s storage", cfg.Type)
		}
		return nil
	default:
		return fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
