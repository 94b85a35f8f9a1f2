package bolt

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

// Config holds the configuration for the local BBolt database
type Config struct {
	Path        string        `yaml:"path" env:"BOLT_PATH"`
	OpenTimeout time.Duration `yaml:"open_timeout" env:"BOLT_OPEN_TIMEOUT" env-default:"2s"`
}

// Open creates the parent directory if needed and opens the database file.
// OpenTimeout bounds the wait for the file lock held by another process.
func Open(cfg Config) (*bbolt.DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("bolt path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
		return nil, fmt.Errorf("creating bolt directory: %w", err)
	}

	db, err := bbolt.Open(cfg.Path, 0o600, &bbolt.Options{Timeout: cfg.OpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening bolt db %s: %w", cfg.Path, err)
	}
	return db, nil
}
