package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// CoordinatorConfig contains all configuration for the coordinator service.
type CoordinatorConfig struct {
	REST    RESTConfig    `mapstructure:"rest"`
	Storage StorageConfig `mapstructure:"storage"`
	Cluster ClusterConfig `mapstructure:"cluster"`
	Job     JobConfig     `mapstructure:"job"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// RESTConfig contains REST API server configuration.
type RESTConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
}

// ClusterConfig selects where map and reduce tasks run.
type ClusterConfig struct {
	Type        string        `mapstructure:"type"` // "local" or "grpc"
	Workers     int           `mapstructure:"workers"`
	TaskTimeout time.Duration `mapstructure:"task_timeout"`

	// Remote workers, used when Type is "grpc".
	Addrs            []string      `mapstructure:"addrs"`
	KeepaliveTime    time.Duration `mapstructure:"keepalive_time"`
	KeepaliveTimeout time.Duration `mapstructure:"keepalive_timeout"`
	HealthInterval   time.Duration `mapstructure:"health_interval"`
}

// JobConfig controls how submitted text is partitioned into map tasks.
type JobConfig struct {
	Splits           int `mapstructure:"splits"`
	MaxLinesPerSplit int `mapstructure:"max_lines_per_split"`
}

// LoadCoordinator loads the coordinator configuration from the given path.
// If configPath is empty, it looks for coordinator.yaml in the config/ directory.
// Environment variables with WORDFREQ_COORDINATOR_ prefix override config file values.
func LoadCoordinator(configPath string) (*CoordinatorConfig, error) {
	v := viper.New()

	v.SetDefault("rest.addr", ":8000")
	v.SetDefault("rest.read_timeout", 15*time.Second)
	v.SetDefault("rest.write_timeout", 5*time.Minute)
	v.SetDefault("rest.idle_timeout", 60*time.Second)
	v.SetDefault("rest.max_body_bytes", 32<<20)
	v.SetDefault("storage.type", "memory")
	v.SetDefault("storage.path", "")
	v.SetDefault("cluster.type", "local")
	v.SetDefault("cluster.workers", 4)
	v.SetDefault("cluster.task_timeout", 2*time.Minute)
	v.SetDefault("cluster.addrs", []string{})
	v.SetDefault("cluster.keepalive_time", 30*time.Second)
	v.SetDefault("cluster.keepalive_timeout", 5*time.Second)
	v.SetDefault("cluster.health_interval", 5*time.Second)
	v.SetDefault("job.splits", 4)
	v.SetDefault("job.max_lines_per_split", 0)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	var cfg CoordinatorConfig
	if err := load(v, configPath, "coordinator", "WORDFREQ_COORDINATOR", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *CoordinatorConfig) Validate() error {
	if err := validateStorage(c.Storage); err != nil {
		return err
	}
	switch c.Cluster.Type {
	case "local":
		if c.Cluster.Workers <= 0 {
			return fmt.Errorf("cluster.workers must be greater than 0")
		}
	case "grpc":
		if len(c.Cluster.Addrs) == 0 {
			return fmt.Errorf("cluster.addrs is required for grpc cluster")
		}
		if c.Storage.Type == "memory" {
			return fmt.Errorf("grpc cluster needs storage shared with workers, got memory")
		}
	default:
		return fmt.Errorf("unsupported cluster type: %s", c.Cluster.Type)
	}
	if c.Cluster.TaskTimeout <= 0 {
		return fmt.Errorf("cluster.task_timeout must be greater than 0")
	}
	if c.Job.Splits <= 0 {
		return fmt.Errorf("job.splits must be greater than 0")
	}
	if c.Job.MaxLinesPerSplit < 0 {
		return fmt.Errorf("job.max_lines_per_split must not be negative")
	}
	return nil
}
