package strata

import (
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config consolidates settings for every backend adapter plus logging.
type Config struct {
	File    FileConfig    `json:"file" mapstructure:"file"`
	Redis   RedisConfig   `json:"redis" mapstructure:"redis"`
	Elastic ElasticConfig `json:"elastic" mapstructure:"elastic"`
	Mongo   MongoConfig   `json:"mongo" mapstructure:"mongo"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// FileConfig controls the map-backed file store. Each collection lives in a
// single file named <prefix><collection>.<ext> under Directory.
type FileConfig struct {
	Directory string `json:"directory" mapstructure:"directory"`
	Prefix    string `json:"prefix" mapstructure:"prefix"`
	Ext       string `json:"ext" mapstructure:"ext"`
}

// RedisConfig contains key-value store connection settings.
type RedisConfig struct {
	Addr         string        `json:"addr" mapstructure:"addr"`
	Password     string        `json:"password" mapstructure:"password"`
	DB           int           `json:"db" mapstructure:"db"`
	DialTimeout  time.Duration `json:"dialTimeout" mapstructure:"dialTimeout"`
	ReadTimeout  time.Duration `json:"readTimeout" mapstructure:"readTimeout"`
	WriteTimeout time.Duration `json:"writeTimeout" mapstructure:"writeTimeout"`
}

// ElasticConfig contains search backend connection settings.
type ElasticConfig struct {
	Addresses []string `json:"addresses" mapstructure:"addresses"`
	Username  string   `json:"username" mapstructure:"username"`
	Password  string   `json:"password" mapstructure:"password"`
	Index     string   `json:"index" mapstructure:"index"`
}

// MongoConfig contains document backend connection settings.
type MongoConfig struct {
	URI      string        `json:"uri" mapstructure:"uri"`
	Database string        `json:"database" mapstructure:"database"`
	Timeout  time.Duration `json:"timeout" mapstructure:"timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level       string `json:"level" mapstructure:"level"`
	Development bool   `json:"development" mapstructure:"development"`
}

// DefaultConfig returns a configuration with sensible local defaults.
func DefaultConfig() *Config {
	return &Config{
		File: FileConfig{
			Directory: ".",
			Prefix:    "db_",
			Ext:       "json",
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Elastic: ElasticConfig{
			Addresses: []string{"http://localhost:9200"},
			Index:     "strata",
		},
		Mongo: MongoConfig{
			URI:      "mongodb://localhost:27017",
			Database: "strata",
			Timeout:  10 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads configuration from an optional file (YAML, JSON or TOML,
// decided by extension) layered over the defaults, with STRATA_* environment
// variables taking precedence. An empty path loads defaults plus env only.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("STRATA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := DefaultConfig()
	v.SetDefault("file.directory", cfg.File.Directory)
	v.SetDefault("file.prefix", cfg.File.Prefix)
	v.SetDefault("file.ext", cfg.File.Ext)
	v.SetDefault("redis.addr", cfg.Redis.Addr)
	v.SetDefault("redis.db", cfg.Redis.DB)
	v.SetDefault("elastic.addresses", cfg.Elastic.Addresses)
	v.SetDefault("elastic.index", cfg.Elastic.Index)
	v.SetDefault("mongo.uri", cfg.Mongo.URI)
	v.SetDefault("mongo.database", cfg.Mongo.Database)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.development", cfg.Logging.Development)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, NewInternalError("read config file", err)
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, NewInternalError("unmarshal config", err)
	}
	return cfg, nil
}

// NewLogger builds a zap logger from the logging settings.
func NewLogger(cfg LoggingConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, NewInternalError("parse log level", err)
		}
		zcfg.Level = level
	}
	return zcfg.Build()
}
