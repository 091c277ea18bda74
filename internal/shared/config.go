package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Tidal   TidalConfig   `toml:"tidal"`
	Session SessionConfig `toml:"session"`
	Log     LogConfig     `toml:"log"`
}

// TidalConfig contains TIDAL client credentials and endpoints.
type TidalConfig struct {
	ClientID          string  `toml:"client_id"`
	ClientSecret      string  `toml:"client_secret"`
	AuthURL           string  `toml:"auth_url"`
	APIURL            string  `toml:"api_url"`
	Scopes            string  `toml:"scopes"`
	CountryCode       string  `toml:"country_code"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
}

// SessionConfig controls where the credential file lives.
//
// An empty path means next to the executable.
type SessionConfig struct {
	Path string `toml:"path"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Timeout returns the HTTP timeout as a [time.Duration].
func (c TidalConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ScopeList splits the space separated scope string.
func (c TidalConfig) ScopeList() []string {
	return strings.Fields(c.Scopes)
}

// Validate checks that the fields needed to talk to TIDAL are present.
func (c TidalConfig) Validate() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return fmt.Errorf("%w: tidal.client_id and tidal.client_secret must be set", ErrMissingCredentials)
	}
	if c.AuthURL == "" || c.APIURL == "" {
		return fmt.Errorf("%w: tidal.auth_url and tidal.api_url must be set", ErrInvalidConfig)
	}
	return nil
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	return c.Tidal.Validate()
}

// SessionPath resolves the credential file path, preferring override, then config, then the executable directory.
func (c *Config) SessionPath(override string) string {
	if override != "" {
		return override
	}
	if c.Session.Path != "" {
		return c.Session.Path
	}
	return DefaultSessionPath()
}

// LoadConfig reads a TOML configuration file from the specified path and layers it over [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
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
