package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables that override the [nas] section.
const (
	EnvNASURL   = "SYNOPLAY_NAS_URL"
	EnvUsername = "SYNOPLAY_USERNAME"
	EnvPassword = "SYNOPLAY_PASSWORD"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	NAS      NASConfig      `toml:"nas"`
	Cache    CacheConfig    `toml:"cache"`
	Database DatabaseConfig `toml:"database"`
	Player   PlayerConfig   `toml:"player"`
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
}

// NASConfig contains the Audio Station endpoint and credentials.
type NASConfig struct {
	URL               string  `toml:"url"`
	Username          string  `toml:"username"`
	Password          string  `toml:"password"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	PageSize          int     `toml:"page_size"`
}

// Timeout returns the per-request timeout, defaulting to 10 seconds.
func (n NASConfig) Timeout() time.Duration {
	if n.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(n.TimeoutSeconds) * time.Second
}

// CacheConfig selects the session cache backend.
type CacheConfig struct {
	Driver   string `toml:"driver"`
	BoltPath string `toml:"bolt_path"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// PlayerConfig describes the external audio player.
type PlayerConfig struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
}

// ServerConfig contains HTTP server settings for the web front end.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// Validate rejects values the rest of the program can't work with.
func (c *Config) Validate() error {
	switch c.Cache.Driver {
	case "sqlite", "bolt", "memory":
	default:
		return fmt.Errorf("%w: unknown cache driver %q", ErrInvalidConfig, c.Cache.Driver)
	}
	if c.NAS.PageSize <= 0 {
		return fmt.Errorf("%w: nas.page_size must be positive", ErrInvalidConfig)
	}
	if c.NAS.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: nas.requests_per_second must not be negative", ErrInvalidConfig)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnv reads a .env file (when present) and applies SYNOPLAY_* overrides to the [nas] section.
//
// A missing file is not an error.
func LoadEnv(config *Config, files ...string) error {
	if err := godotenv.Load(files...); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed loading env file: %w", err)
	}

	if v := strings.TrimSpace(os.Getenv(EnvNASURL)); v != "" {
		config.NAS.URL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvUsername)); v != "" {
		config.NAS.Username = v
	}
	if v := os.Getenv(EnvPassword); v != "" {
		config.NAS.Password = v
	}
	return nil
}
