package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

const sampleYAML = `
api:
  base_url: "https://api.sentimind.test/api"
  timeout: "3s"
log:
  level: "debug"
store:
  driver: "redis"
  redis:
    addr: "redis:6379"
    db: 2
  redis_key: "custom:creds"
otel:
  enabled: false
`

func TestLoad_WithExplicitPath(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", sampleYAML)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "https://api.sentimind.test/api", cfg.API.BaseURL)
	require.Equal(t, 3*time.Second, cfg.API.Timeout)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "redis", cfg.Store.Driver)
	require.Equal(t, "redis:6379", cfg.Store.Redis.Addr)
	require.Equal(t, 2, cfg.Store.Redis.DB)
	require.Equal(t, "custom:creds", cfg.Store.RedisKey)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "log:\n  level: info\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "http://127.0.0.1:8000/api", cfg.API.BaseURL)
	require.Equal(t, 15*time.Second, cfg.API.Timeout)
	require.Equal(t, "bolt", cfg.Store.Driver)
	require.Equal(t, "session.db", filepath.Base(cfg.Store.Bolt.Path))
	require.Equal(t, ".sentimind", filepath.Base(filepath.Dir(cfg.Store.Bolt.Path)))
	require.Equal(t, cfg.API.ServiceName, cfg.Otel.ServiceName)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", sampleYAML)
	t.Setenv("API_URL", "https://override.test/api")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://override.test/api", cfg.API.BaseURL)
}

func TestLoad_ConfigPathEnv(t *testing.T) {
	path := writeFile(t, t.TempDir(), "from-env.yaml", sampleYAML)
	t.Setenv(PathEnv, path)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "redis", cfg.Store.Driver)
}

func TestLoad_LocalFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, LocalFile, "store:\n  driver: memory\n")
	chdir(t, dir)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "memory", cfg.Store.Driver)
}

func TestLoad_EnvOnly(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("BOLT_PATH", "/tmp/sentimind-test/session.db")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "memory", cfg.Store.Driver)
	require.Equal(t, "/tmp/sentimind-test/session.db", cfg.Store.Bolt.Path)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)

	broken := writeFile(t, dir, "broken.yaml", "api:\n  base_url: [unclosed\n")
	_, err = Load(broken)
	require.Error(t, err)

	badDriver := writeFile(t, dir, "driver.yaml", "store:\n  driver: etcd\n")
	_, err = Load(badDriver)
	require.ErrorContains(t, err, "invalid config")

	badURL := writeFile(t, dir, "url.yaml", "api:\n  base_url: not a url\n")
	_, err = Load(badURL)
	require.ErrorContains(t, err, "invalid config")
}

func TestMustLoadPanics(t *testing.T) {
	require.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "missing.yaml")) })
}
