package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "droptea.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, "device_name: test-box\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "test-box", cfg.DeviceName)
	assert.Equal(t, uint16(8080), cfg.Server.Port)
	assert.Equal(t, ModeTCP, cfg.Mode())
	assert.True(t, cfg.Notify.Enabled)
	assert.NotEmpty(t, cfg.Storage.SavePath)
}

func TestLoadConfig_Overrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9400
  mode: quic
storage:
  save_path: /tmp/drops
feed:
  enabled: true
  listen: 127.0.0.1:9999
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, uint16(9400), cfg.Server.Port)
	assert.Equal(t, ModeQUIC, cfg.Mode())
	assert.Equal(t, "/tmp/drops", cfg.Storage.SavePath)
	assert.True(t, cfg.Feed.Enabled)
}

func TestLoadConfig_ExpandsEnv(t *testing.T) {
	t.Setenv("DROPTEA_NAME", "env-box")
	path := writeConfig(t, "device_name: ${DROPTEA_NAME}\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "env-box", cfg.DeviceName)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestConfig_ValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }, "port is required"},
		{"bad mode", func(c *Config) { c.Server.Mode = "carrier-pigeon" }, "unknown transport mode"},
		{"no save path", func(c *Config) { c.Storage.SavePath = "" }, "save_path is required"},
		{"feed without listen", func(c *Config) { c.Feed.Enabled = true; c.Feed.Listen = "" }, "listen address"},
		{"notify without app id", func(c *Config) { c.Notify.AppID = "" }, "app_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]TransportMode{
		"":         ModeTCP,
		"tcp":      ModeTCP,
		"TCP":      ModeTCP,
		"quic":     ModeQUIC,
		"plain":    ModePlainTCP,
		"PlainTCP": ModePlainTCP,
	} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseMode("smoke-signals")
	assert.Error(t, err)
}

func TestTransportMode_String(t *testing.T) {
	assert.Equal(t, "TCP (TLS)", ModeTCP.String())
	assert.Equal(t, "QUIC (UDP)", ModeQUIC.String())
	assert.Equal(t, "Plain TCP (No TLS)", ModePlainTCP.String())
}
