// Package config loads and saves the compiler configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config represents the compiler configuration
type Config struct {
	// Build settings
	Build struct {
		Org     string `toml:"org"`     // default load address, e.g. "&4000"
		Listing bool   `toml:"listing"` // always emit the .lst side channel
		Map     bool   `toml:"map"`     // always emit the .map side channel
	} `toml:"build"`

	// Inspector (TUI) settings
	Inspector struct {
		ShowSymbols bool `toml:"show_symbols"`
		ShowListing bool `toml:"show_listing"`
	} `toml:"inspector"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Build.Org = "&4000"
	cfg.Build.Listing = false
	cfg.Build.Map = false

	cfg.Inspector.ShowSymbols = true
	cfg.Inspector.ShowListing = false

	return cfg
}

// ParseOrg parses an origin address in CPC (&4000), C (0x4000) or
// decimal notation into a 16-bit value
func ParseOrg(s string) (uint16, error) {
	text := strings.TrimSpace(s)

	base := 10
	switch {
	case strings.HasPrefix(text, "&"):
		base = 16
		text = text[1:]
	case strings.HasPrefix(text, "0x"), strings.HasPrefix(text, "0X"):
		base = 16
		text = text[2:]
	}

	val, err := strconv.ParseUint(text, base, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid origin address %q", s)
	}
	return uint16(val), nil
}

// GetConfigPath returns the platform-specific config file path
func GetConfigPath() string {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		// Windows: %APPDATA%\basc\config.toml
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		configDir = filepath.Join(configDir, "basc")

	case "darwin", "linux":
		// macOS/Linux: ~/.config/basc/config.toml
		homeDir, err := os.UserHomeDir()
		if err != nil {
			// Fallback to current directory
			return "config.toml"
		}
		configDir = filepath.Join(homeDir, ".config", "basc")

	default:
		// Unknown platform: use current directory
		return "config.toml"
	}

	// Ensure directory exists
	if err := os.MkdirAll(configDir, 0750); err != nil {
		// If we can't create the directory, fall back to current directory
		return "config.toml"
	}

	return filepath.Join(configDir, "config.toml")
}

// Load loads configuration from the default config file
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom loads configuration from the specified file
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	// If file doesn't exist, return default config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read and parse config file
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

// SaveTo saves configuration to the specified file
func (c *Config) SaveTo(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path) // #nosec G304 -- user config file path
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close config file: %w", closeErr)
		}
	}()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}
