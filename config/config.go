/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/exp/slog"
	"gopkg.in/yaml.v3"
)

// Backends
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendDynamoDB = "dynamodb"
)

// EnvPrefix prefixes every environment variable that overrides a file value.
const EnvPrefix = "RECORDSTORE_"

// Config holds configuration for opening a store.
type Config struct {
	// Backend is one of memory, redis or dynamodb.
	// Default: "memory"
	Backend string `yaml:"backend"`

	// Encoding is the text encoding values are stored in; "" stores raw bytes.
	// The dynamodb backend always stores utf-8.
	// Default: "utf-8"
	Encoding string `yaml:"encoding"`

	// LogLevel is debug, info, warn or error.
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	Redis    RedisConfig    `yaml:"redis"`
	DynamoDB DynamoDBConfig `yaml:"dynamodb"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	// Addrs is one address, or several for a cluster.
	// Default: ["localhost:6379"]
	Addrs        []string      `yaml:"addrs"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DynamoDBConfig configures the dynamodb backend. Empty credentials select
// the default AWS credential chain.
type DynamoDBConfig struct {
	Region    string `yaml:"region"`
	Table     string `yaml:"table"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// DefaultConfig returns a configuration for the in-memory backend.
func DefaultConfig() Config {
	return Config{
		Backend:  BackendMemory,
		Encoding: "utf-8",
		LogLevel: "info",
		Redis: RedisConfig{
			Addrs:       []string{"localhost:6379"},
			DialTimeout: 5 * time.Second,
		},
	}
}

// Load reads the YAML file at path, if path is not empty, over the defaults.
// A .env file in the working directory is loaded into the environment first,
// then RECORDSTORE_* variables override file values.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if err := loadDotEnv(".env"); err != nil {
		return cfg, err
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = v
		}
	}
	str("BACKEND", &c.Backend)
	str("ENCODING", &c.Encoding)
	str("LOG_LEVEL", &c.LogLevel)
	str("REDIS_USERNAME", &c.Redis.Username)
	str("REDIS_PASSWORD", &c.Redis.Password)
	str("DYNAMODB_REGION", &c.DynamoDB.Region)
	str("DYNAMODB_TABLE", &c.DynamoDB.Table)
	str("DYNAMODB_ENDPOINT", &c.DynamoDB.Endpoint)
	str("DYNAMODB_ACCESS_KEY", &c.DynamoDB.AccessKey)
	str("DYNAMODB_SECRET_KEY", &c.DynamoDB.SecretKey)

	if v, ok := os.LookupEnv(EnvPrefix + "REDIS_ADDRS"); ok {
		c.Redis.Addrs = nil
		for _, a := range strings.Split(v, ",") {
			if a = strings.TrimSpace(a); a != "" {
				c.Redis.Addrs = append(c.Redis.Addrs, a)
			}
		}
	}
	if v, ok := os.LookupEnv(EnvPrefix + "REDIS_DB"); ok {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %sREDIS_DB: %w", EnvPrefix, err)
		}
		c.Redis.DB = db
	}
	return nil
}

// validate normalises values and rejects configurations that cannot be opened.
func (c *Config) validate() error {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend == "" {
		c.Backend = BackendMemory
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if _, err := c.Level(); err != nil {
		return err
	}

	switch c.Backend {
	case BackendMemory:
	case BackendRedis:
		if len(c.Redis.Addrs) == 0 {
			return fmt.Errorf("config: redis backend needs at least one address")
		}
		if c.Redis.DB < 0 {
			c.Redis.DB = 0
		}
	case BackendDynamoDB:
		if c.DynamoDB.Table == "" {
			return fmt.Errorf("config: dynamodb backend needs a table")
		}
		if c.DynamoDB.Region == "" {
			c.DynamoDB.Region = "us-east-1"
		}
		c.Encoding = "utf-8"
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return l, fmt.Errorf("config: log level: %w", err)
	}
	return l, nil
}

// Logger returns a text logger on stderr at the configured level.
func (c Config) Logger() *slog.Logger {
	level, err := c.Level()
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
