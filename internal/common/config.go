// Package common provides shared utilities for satqueue
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for satqueue.
type Config struct {
	Environment string        `toml:"environment"`
	Server      ServerConfig  `toml:"server"`
	Store       StoreConfig   `toml:"store"`
	Broker      BrokerConfig  `toml:"broker"`
	Solver      SolverConfig  `toml:"solver"`
	Logging     LoggingConfig `toml:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StoreConfig holds the relational store connection settings.
type StoreConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Name     string `toml:"name"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	PoolMin  int    `toml:"pool_min"`
	PoolMax  int    `toml:"pool_max"`
}

// DSN builds a libpq-style connection string from the store config.
func (c *StoreConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s",
		c.Host, c.Port, c.Name, c.User, c.Password)
}

// BrokerConfig holds the broker (Redis) connection settings.
type BrokerConfig struct {
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	DB            int    `toml:"db"`
	Password      string `toml:"password"`
	PoolMax       int    `toml:"pool_max"`
	SocketTimeout string `toml:"socket_timeout"` // must exceed the worker's poll timeout
	JobTTL        string `toml:"job_ttl"`
}

// Addr returns the host:port pair go-redis expects.
func (c *BrokerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetSocketTimeout parses SocketTimeout, defaulting to 15s.
func (c *BrokerConfig) GetSocketTimeout() time.Duration {
	d, err := time.ParseDuration(c.SocketTimeout)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// GetJobTTL parses JobTTL, defaulting to 1 hour.
func (c *BrokerConfig) GetJobTTL() time.Duration {
	d, err := time.ParseDuration(c.JobTTL)
	if err != nil {
		return time.Hour
	}
	return d
}

// SolverConfig holds the external solver process settings.
type SolverConfig struct {
	PathFast         string `toml:"path_fast"`
	DefaultTimeoutS  int    `toml:"default_timeout_s"`
	MaxTimeoutS      int    `toml:"max_timeout_s"`
	TimeoutSSudoku   int    `toml:"timeout_s_sudoku"`
	TimeoutSSat      int    `toml:"timeout_s_sat"`
	MaxFormulaLength int    `toml:"max_formula_length"`
	MaxTokens        int    `toml:"max_tokens"`
	PollTimeoutS     int    `toml:"poll_timeout_s"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// NewDefaultConfig returns a Config with sensible defaults, mirroring the
// original system's constants (core/config.py, core/constants.py).
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Store: StoreConfig{
			Host:    "localhost",
			Port:    5432,
			Name:    "satqueue",
			User:    "satqueue",
			PoolMin: 1,
			PoolMax: 10,
		},
		Broker: BrokerConfig{
			Host:          "localhost",
			Port:          6379,
			DB:            0,
			PoolMax:       15,
			SocketTimeout: "15s",
			JobTTL:        "1h",
		},
		Solver: SolverConfig{
			PathFast:         "./bin/satsolver_opt",
			DefaultTimeoutS:  250,
			MaxTimeoutS:      300,
			TimeoutSSudoku:   250,
			TimeoutSSat:      10,
			MaxFormulaLength: 300_000,
			MaxTokens:        85_000,
			PollTimeoutS:     5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies SATQUEUE_* environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("SATQUEUE_ENV"); env != "" {
		config.Environment = env
	}
	if host := os.Getenv("SATQUEUE_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SATQUEUE_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if level := os.Getenv("SATQUEUE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if v := os.Getenv("SATQUEUE_DB_HOST"); v != "" {
		config.Store.Host = v
	}
	if v := os.Getenv("SATQUEUE_DB_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			config.Store.Port = p
		}
	}
	if v := os.Getenv("SATQUEUE_DB_NAME"); v != "" {
		config.Store.Name = v
	}
	if v := os.Getenv("SATQUEUE_DB_USER"); v != "" {
		config.Store.User = v
	}
	if v := os.Getenv("SATQUEUE_DB_PASSWORD"); v != "" {
		config.Store.Password = v
	}
	if v := os.Getenv("SATQUEUE_DB_POOL_MIN"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			config.Store.PoolMin = p
		}
	}
	if v := os.Getenv("SATQUEUE_DB_POOL_MAX"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			config.Store.PoolMax = p
		}
	}

	if v := os.Getenv("SATQUEUE_REDIS_HOST"); v != "" {
		config.Broker.Host = v
	}
	if v := os.Getenv("SATQUEUE_REDIS_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			config.Broker.Port = p
		}
	}
	if v := os.Getenv("SATQUEUE_REDIS_DB"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			config.Broker.DB = p
		}
	}
	if v := os.Getenv("SATQUEUE_REDIS_PASSWORD"); v != "" {
		config.Broker.Password = v
	}
	if v := os.Getenv("SATQUEUE_REDIS_POOL_MAX"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			config.Broker.PoolMax = p
		}
	}

	if v := os.Getenv("SATQUEUE_SOLVER_PATH"); v != "" {
		config.Solver.PathFast = v
	}
	if v := os.Getenv("SATQUEUE_SOLVER_DEFAULT_TIMEOUT_S"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			config.Solver.DefaultTimeoutS = p
		}
	}
	if v := os.Getenv("SATQUEUE_SOLVER_MAX_TIMEOUT_S"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			config.Solver.MaxTimeoutS = p
		}
	}
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
