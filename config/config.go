// Package config loads the client configuration from a yaml file with an
// environment overlay.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"

	"github.com/octabyte/sentimind-session/db/bolt"
	"github.com/octabyte/sentimind-session/db/redis"
	"github.com/octabyte/sentimind-session/otel"
	"github.com/octabyte/sentimind-session/pipeline"
	"github.com/octabyte/sentimind-session/utils/logger"
)

const (
	PathEnv   = "CONFIG_PATH"
	LocalFile = "sentimind.yaml"
)

// Config is the root configuration. Sources, highest priority first:
//  1. explicit path (--config);
//  2. CONFIG_PATH;
//  3. ./sentimind.yaml;
//  4. environment only.
//
// Environment variables are always applied on top of the file.
type Config struct {
	API   pipeline.Config `yaml:"api"`
	Log   logger.Config   `yaml:"log"`
	Store StoreConfig     `yaml:"store"`
	Otel  otel.OtelConfig `yaml:"otel"`
}

// StoreConfig selects where the credential pair is kept.
type StoreConfig struct {
	Driver   string       `yaml:"driver" env:"STORE_DRIVER" env-default:"bolt" validate:"oneof=memory bolt redis"`
	Bolt     bolt.Config  `yaml:"bolt"`
	Redis    redis.Config `yaml:"redis"`
	RedisKey string       `yaml:"redis_key" env:"STORE_REDIS_KEY" env-default:"sentimind:credentials"`
}

func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

func Load(path string) (*Config, error) {
	var cfg Config

	switch {
	case path != "":
		if err := readFile(path, &cfg); err != nil {
			return nil, err
		}
	case os.Getenv(PathEnv) != "":
		if err := readFile(os.Getenv(PathEnv), &cfg); err != nil {
			return nil, err
		}
	default:
		if _, err := os.Stat(LocalFile); err == nil {
			if err := readFile(LocalFile, &cfg); err != nil {
				return nil, err
			}
		} else if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config not found: provide --config, %s, %s or env vars: %w", PathEnv, LocalFile, err)
		}
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func readFile(path string, cfg *Config) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("config file %q stat failed: %w", path, err)
	}
	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return fmt.Errorf("failed to overlay env: %w", err)
	}
	return nil
}

// applyDefaults fills values that depend on the runtime environment.
func (c *Config) applyDefaults() error {
	if c.Store.Bolt.Path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolving home directory for the session file: %w", err)
		}
		c.Store.Bolt.Path = filepath.Join(home, ".sentimind", "session.db")
	}
	if c.Otel.ServiceName == "" {
		c.Otel.ServiceName = c.API.ServiceName
	}
	return nil
}
