package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Init("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:25500", cfg.Server.Listen)
	assert.Equal(t, 60*time.Second, cfg.Server.ConvertTimeout)
	assert.Equal(t, 15*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 4, cfg.Convert.Parallel)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Publish.Enabled)
}

func TestInit_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  listen: "0.0.0.0:8080"
  convert_timeout: 30s
fetch:
  timeout: 3s
  proxy: "socks5://127.0.0.1:1080"
convert:
  parallel: 0
settings:
  path: pref.yml
`), 0o644))
	t.Setenv("SUBCONVERTER_LOG_LEVEL", "debug")
	t.Setenv("SUBCONVERTER_SERVER_TOKEN", "s3cret")

	cfg, err := Init(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Listen)
	assert.Equal(t, 30*time.Second, cfg.Server.ConvertTimeout)
	assert.Equal(t, 3*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, "socks5://127.0.0.1:1080", cfg.Fetch.Proxy)
	assert.Equal(t, 1, cfg.Convert.Parallel)
	assert.Equal(t, "pref.yml", cfg.Settings.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "s3cret", cfg.Server.Token)
}

func TestInit_MissingExplicitFile(t *testing.T) {
	_, err := Init(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestInit_BadTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fetch:\n  timeout: -1s\n"), 0o644))
	_, err := Init(path)
	require.Error(t, err)
}
