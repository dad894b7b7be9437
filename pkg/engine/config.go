package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// TransportMode selects how the core moves bytes between peers. The
// numeric values match the core's init call.
type TransportMode int

const (
	ModeTCP      TransportMode = 0 // TLS over TCP, the default
	ModeQUIC     TransportMode = 1
	ModePlainTCP TransportMode = 2 // no TLS, for trusted networks
)

// String returns the human-readable mode label.
func (m TransportMode) String() string {
	switch m {
	case ModeQUIC:
		return "QUIC (UDP)"
	case ModePlainTCP:
		return "Plain TCP (No TLS)"
	default:
		return "TCP (TLS)"
	}
}

// ParseMode maps a config or flag value to a TransportMode. Matching is
// case-insensitive; the empty string means the default TCP mode.
func ParseMode(s string) (TransportMode, error) {
	switch strings.ToLower(s) {
	case "", "tcp":
		return ModeTCP, nil
	case "quic":
		return ModeQUIC, nil
	case "plain", "plaintcp":
		return ModePlainTCP, nil
	default:
		return ModeTCP, fmt.Errorf("engine: unknown transport mode %q", s)
	}
}

// Config is the top-level host configuration.
type Config struct {
	DeviceName string        `yaml:"device_name"` // empty = hostname
	Server     ServerConfig  `yaml:"server"`
	Storage    StorageConfig `yaml:"storage"`
	Notify     NotifyConfig  `yaml:"notify"`
	Feed       FeedConfig    `yaml:"feed"`
	Logging    LoggingConfig `yaml:"logging"`
	Dev        DevConfig     `yaml:"dev"`
}

// ServerConfig holds listener settings.
type ServerConfig struct {
	Port uint16 `yaml:"port"`
	Mode string `yaml:"mode"` // tcp, quic or plaintcp
}

// StorageConfig holds where received files land.
type StorageConfig struct {
	SavePath string `yaml:"save_path"`
	TempPath string `yaml:"temp_path"`
}

// NotifyConfig holds desktop notification settings.
type NotifyConfig struct {
	Enabled     bool   `yaml:"enabled"`
	AppID       string `yaml:"app_id"`
	DisplayName string `yaml:"display_name"`
	Image       string `yaml:"image"` // optional icon path
}

// FeedConfig holds the local companion-frontend event feed settings.
type FeedConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	File  string `yaml:"file"`
	Debug bool   `yaml:"debug"`
}

// DevConfig enables the in-process loopback core instead of a real one.
type DevConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DefaultConfig returns the configuration used when no file overrides a
// field. Received files default to the user's Downloads directory.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{Port: 8080, Mode: "tcp"},
		Storage: StorageConfig{
			SavePath: defaultDownloadsDir(),
		},
		Notify: NotifyConfig{
			Enabled:     true,
			AppID:       "DropTea.Host",
			DisplayName: "DropTea Host",
		},
		Feed: FeedConfig{Listen: "127.0.0.1:9401"},
		Logging: LoggingConfig{
			File: filepath.Join("logs", "droptea.jsonl"),
		},
	}
}

func defaultDownloadsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./downloads"
	}
	return filepath.Join(home, "Downloads")
}

// LoadConfig reads a YAML file over the defaults and returns a Config.
// Environment variables referenced as ${VAR} or $VAR in the YAML are
// expanded before parsing, so device names or paths can come from the
// environment (e.g. loaded from a .env file).
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("engine: load config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("engine: parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("engine: config: server port is required")
	}
	if _, err := ParseMode(c.Server.Mode); err != nil {
		return fmt.Errorf("engine: config: %w", err)
	}
	if c.Storage.SavePath == "" {
		return fmt.Errorf("engine: config: storage save_path is required")
	}
	if c.Feed.Enabled && c.Feed.Listen == "" {
		return fmt.Errorf("engine: config: feed listen address is required when the feed is enabled")
	}
	if c.Notify.Enabled && c.Notify.AppID == "" {
		return fmt.Errorf("engine: config: notify app_id is required when notifications are enabled")
	}
	return nil
}

// Mode returns the parsed transport mode. Validate has already rejected
// unknown values, so parse errors cannot occur here.
func (c Config) Mode() TransportMode {
	m, _ := ParseMode(c.Server.Mode)
	return m
}
