// Package config handles layered YAML configuration with environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MinViewportRows is the smallest list viewport that still shows one row
// after the header and divider chrome.
const MinViewportRows = 3

// Config holds all tcon configuration.
type Config struct {
	DataDir string  `yaml:"data_dir"`
	Catalog string  `yaml:"catalog"` // Empty selects the embedded catalog.
	UI      UI      `yaml:"ui"`
	Install Install `yaml:"install"`
	Log     Log     `yaml:"log"`
}

// UI holds console presentation settings.
type UI struct {
	ViewportRows int  `yaml:"viewport_rows"`
	AltScreen    bool `yaml:"alt_screen"`
}

// Install holds toolchain installation settings.
type Install struct {
	VerifyCommand string        `yaml:"verify_command"` // Run inside the install dir after extraction.
	Timeout       time.Duration `yaml:"timeout"`
}

// Log holds log file settings.
type Log struct {
	Dir   string `yaml:"dir"` // Empty means <data_dir>/logs.
	Debug bool   `yaml:"debug"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DataDir: "~/.local/share/tcon",
		UI: UI{
			ViewportRows: 11,
			AltScreen:    true,
		},
		Install: Install{
			Timeout: 10 * time.Minute,
		},
	}
}

// Load reads a single YAML config file at path and returns a Config.
// For merging multiple config sources, use LoadLayered instead.
// If the file does not exist, defaults are returned without error.
// If the file contains invalid YAML or unknown fields, an error is returned.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if len(data) == 0 {
		return &cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		// Comment-only YAML files produce EOF with no decoded content.
		if errors.Is(err, io.EOF) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return &cfg, nil
}

// LoadLayered loads config from multiple paths with increasing priority.
// Later paths override earlier ones. Missing files are skipped.
func LoadLayered(paths ...string) (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range paths {
		layer, err := loadLayer(path)
		if err != nil {
			return nil, err
		}
		if layer == nil {
			continue
		}
		cfg.merge(layer)
	}

	return &cfg, nil
}

// Validate checks that config values are usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return errors.New("config: data_dir cannot be empty")
	}
	if c.UI.ViewportRows < MinViewportRows {
		return fmt.Errorf("config: ui.viewport_rows must be at least %d, got %d", MinViewportRows, c.UI.ViewportRows)
	}
	if c.Install.Timeout <= 0 {
		return fmt.Errorf("config: install.timeout must be positive, got %v", c.Install.Timeout)
	}
	return nil
}

// ApplyEnv applies environment variable overrides to the config.
// Supported variables: TCON_DATA_DIR, TCON_CATALOG, TCON_VIEWPORT_ROWS,
// TCON_VERIFY_COMMAND, TCON_INSTALL_TIMEOUT, TCON_LOG_DIR.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("TCON_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("TCON_CATALOG"); v != "" {
		c.Catalog = v
	}
	if v := os.Getenv("TCON_VIEWPORT_ROWS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid TCON_VIEWPORT_ROWS %q: %w", v, err)
		}
		c.UI.ViewportRows = n
	}
	if v := os.Getenv("TCON_VERIFY_COMMAND"); v != "" {
		c.Install.VerifyCommand = v
	}
	if v := os.Getenv("TCON_INSTALL_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid TCON_INSTALL_TIMEOUT %q: %w", v, err)
		}
		c.Install.Timeout = d
	}
	if v := os.Getenv("TCON_LOG_DIR"); v != "" {
		c.Log.Dir = v
	}
	return nil
}

// DataPath returns DataDir with a leading "~" expanded to the home directory.
func (c *Config) DataPath() (string, error) {
	return expandHome(c.DataDir)
}

// LogPath returns the directory for operation and debug logs.
func (c *Config) LogPath() (string, error) {
	if c.Log.Dir != "" {
		return expandHome(c.Log.Dir)
	}
	data, err := c.DataPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(data, "logs"), nil
}

func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolving home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}

// rawConfig mirrors Config but uses pointers to distinguish set vs unset fields.
type rawConfig struct {
	DataDir *string     `yaml:"data_dir"`
	Catalog *string     `yaml:"catalog"`
	UI      *rawUI      `yaml:"ui"`
	Install *rawInstall `yaml:"install"`
	Log     *rawLog     `yaml:"log"`
}

type rawUI struct {
	ViewportRows *int  `yaml:"viewport_rows"`
	AltScreen    *bool `yaml:"alt_screen"`
}

type rawInstall struct {
	VerifyCommand *string        `yaml:"verify_command"`
	Timeout       *time.Duration `yaml:"timeout"`
}

type rawLog struct {
	Dir   *string `yaml:"dir"`
	Debug *bool   `yaml:"debug"`
}

// loadLayer reads a single config file into a rawConfig for selective merging.
// Returns nil if the file does not exist. Rejects unknown fields.
func loadLayer(path string) (*rawConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if len(data) == 0 {
		return nil, nil
	}

	var raw rawConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return &raw, nil
}

// merge applies non-nil fields from a rawConfig layer onto this Config.
func (c *Config) merge(layer *rawConfig) {
	if layer.DataDir != nil {
		c.DataDir = *layer.DataDir
	}
	if layer.Catalog != nil {
		c.Catalog = *layer.Catalog
	}
	if layer.UI != nil {
		if layer.UI.ViewportRows != nil {
			c.UI.ViewportRows = *layer.UI.ViewportRows
		}
		if layer.UI.AltScreen != nil {
			c.UI.AltScreen = *layer.UI.AltScreen
		}
	}
	if layer.Install != nil {
		if layer.Install.VerifyCommand != nil {
			c.Install.VerifyCommand = *layer.Install.VerifyCommand
		}
		if layer.Install.Timeout != nil {
			c.Install.Timeout = *layer.Install.Timeout
		}
	}
	if layer.Log != nil {
		if layer.Log.Dir != nil {
			c.Log.Dir = *layer.Log.Dir
		}
		if layer.Log.Debug != nil {
			c.Log.Debug = *layer.Log.Debug
		}
	}
}
