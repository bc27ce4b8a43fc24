package config

import (
	"time"

	"github.com/spf13/viper"
)

// WorkerConfig contains all configuration for the worker service.
type WorkerConfig struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig contains worker gRPC server configuration.
type ServerConfig struct {
	Addr             string        `mapstructure:"addr"`
	EnableReflection bool          `mapstructure:"enable_reflection"`
	KeepaliveMinTime time.Duration `mapstructure:"keepalive_min_time"`
}

// LoadWorker loads the worker configuration from the given path.
// If configPath is empty, it looks for worker.yaml in the config/ directory.
// Environment variables with WORDFREQ_WORKER_ prefix override config file values.
func LoadWorker(configPath string) (*WorkerConfig, error) {
	v := viper.New()

	v.SetDefault("server.addr", ":50051")
	v.SetDefault("server.enable_reflection", true)
	v.SetDefault("server.keepalive_min_time", 10*time.Second)
	v.SetDefault("storage.type", "filesystem")
	v.SetDefault("storage.path", "/var/lib/wordfreq")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	var cfg WorkerConfig
	if err := load(v, configPath, "worker", "WORDFREQ_WORKER", &cfg); err != nil {
		return nil, err
	}
	if err := validateStorage(cfg.Storage); err != nil {
		return nil, err
	}
	return &cfg, nil
}
