package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Environment string         `mapstructure:"environment"`
	Server      ServerConfig   `mapstructure:"server"`
	DB          DatabaseConfig `mapstructure:"database"`
	Logging     LoggingConfig  `mapstructure:"logging"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Azure       AzureConfig    `mapstructure:"azure"`
	Elastic     ElasticConfig  `mapstructure:"elastic"`
	Tracing     TracingConfig  `mapstructure:"tracing"`
	Worker      WorkerConfig   `mapstructure:"worker"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	Debug           bool          `mapstructure:"debug"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Enabled  bool          `mapstructure:"enabled"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// AzureConfig holds Azure Service Bus configuration
type AzureConfig struct {
	QueueConnStr string `mapstructure:"queue_conn_str"`
	QueueName    string `mapstructure:"queue_name"`
}

// ElasticConfig holds Elasticsearch configuration
type ElasticConfig struct {
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Prefix   string `mapstructure:"prefix"`
	Index    string `mapstructure:"index"`
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	LicenseKey     string `mapstructure:"license_key"`
	AppName        string `mapstructure:"app_name"`
	LogEnabled     bool   `mapstructure:"log_enabled"`
	DistribTracing bool   `mapstructure:"distributed_tracing_enabled"`
}

// WorkerConfig holds background worker configuration
type WorkerConfig struct {
	ReindexInterval time.Duration `mapstructure:"reindex_interval"`
	BatchSize       int           `mapstructure:"batch_size"`
}

// LoadConfig reads configuration from a directory or an explicit file, then
// applies RIDES_* environment overrides
func LoadConfig(path string) (Config, error) {
	v := viper.New()

	setDefaults(v)

	if ext := filepath.Ext(path); ext != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "error reading config file %s", path)
		}
	} else {
		v.AddConfigPath(path)
		v.AddConfigPath("./config")
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, errors.Wrap(err, "error reading config file")
			}

			v.SetConfigName("app")
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				log.Debug().Err(err).Msg("No configuration file found, using defaults and environment")
			}
		}
	}

	v.SetEnvPrefix("RIDES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, errors.Wrap(err, "unable to unmarshal config")
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("server.address", ":8010")
	v.SetDefault("server.shutdown_timeout", "5s")

	// An in-memory store lives only as long as the process
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", ":memory:")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", "0s")
	v.SetDefault("database.debug", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.ttl", "10m")

	v.SetDefault("azure.queue_conn_str", "")
	v.SetDefault("azure.queue_name", "ride-events")

	v.SetDefault("elastic.url", "")
	v.SetDefault("elastic.username", "")
	v.SetDefault("elastic.password", "")
	v.SetDefault("elastic.prefix", "rides")
	v.SetDefault("elastic.index", "rides")

	v.SetDefault("tracing.license_key", "")
	v.SetDefault("tracing.app_name", "Rides Service")
	v.SetDefault("tracing.log_enabled", false)
	v.SetDefault("tracing.distributed_tracing_enabled", true)

	v.SetDefault("worker.reindex_interval", "5m")
	v.SetDefault("worker.batch_size", 100)
}

// FormatIndex formats an Elasticsearch index name with the configured prefix
func FormatIndex(cfg ElasticConfig, index string) string {
	if cfg.Prefix == "" {
		return index
	}
	return cfg.Prefix + "-" + index
}
