package config

import (
	"fmt"
	"os"

	"github.com/adrg/xdg"
	"github.com/spf13/pflag"
)

// DefaultConfigName is the config file looked up in the XDG config
// directories when none is given explicitly.
const DefaultConfigName = "powerhal/regulators.toml"

// ConfigFileEnv names the environment variable that overrides config file
// discovery.
const ConfigFileEnv = "POWERHAL_CONFIG"

// RegulatorConfig describes one regulator: the driver that controls it and
// the driver's options table.
type RegulatorConfig struct {
	Name    string         `mapstructure:"name"`
	Driver  string         `mapstructure:"driver"`
	Options map[string]any `mapstructure:"options"`
}

var _ Configurable = (*Config)(nil)

// Config holds the set of configured regulators
type Config struct {
	ConfigFile string            `mapstructure:"config-file"`
	Regulators []RegulatorConfig `mapstructure:"regulators"`
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{}
}

// AddFlags adds command-line flags for all configuration options
func (c *Config) AddFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.ConfigFile, "config-file", "c", c.ConfigFile, "Config file to use")
}

// Validate checks that every regulator has a unique name and a driver.
// Driver options are checked by the driver that consumes them.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Regulators))
	for i, reg := range c.Regulators {
		if reg.Name == "" {
			return fmt.Errorf("regulator %d: %w", i, ErrMissingName)
		}
		if seen[reg.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateName, reg.Name)
		}
		seen[reg.Name] = true

		if reg.Driver == "" {
			return fmt.Errorf("regulator %s: %w", reg.Name, ErrMissingDriver)
		}
	}
	return nil
}

// Lookup returns the configuration of the named regulator
func (c *Config) Lookup(name string) (RegulatorConfig, bool) {
	for _, reg := range c.Regulators {
		if reg.Name == name {
			return reg, true
		}
	}
	return RegulatorConfig{}, false
}

// DefaultConfigFile returns the config file named by $POWERHAL_CONFIG, or
// the first powerhal/regulators.toml found in the XDG config directories.
func DefaultConfigFile() (string, error) {
	if path := os.Getenv(ConfigFileEnv); path != "" {
		return path, nil
	}

	path, err := xdg.SearchConfigFile(DefaultConfigName)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConfigFileNotFound, err)
	}
	return path, nil
}

// LoadConfigWithFlagSet loads c from its config file, falling back to
// DefaultConfigFile when no file was given, and validates the result.
// Unknown keys are rejected.
func (c *Config) LoadConfigWithFlagSet(fs *pflag.FlagSet) error {
	if c.ConfigFile == "" {
		path, err := DefaultConfigFile()
		if err != nil {
			return err
		}
		c.ConfigFile = path
	}

	if _, err := os.Stat(c.ConfigFile); os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrConfigFileNotFound, c.ConfigFile)
	}

	loader := NewConfigLoader()
	loader.SetConfigFile(c.ConfigFile)
	loader.SetStrictMode(true)

	if err := loader.LoadConfigWithFlagSet(c, fs); err != nil {
		return err
	}
	return c.Validate()
}

// LoadConfigFromStruct loads configuration using pflag.CommandLine
func (c *Config) LoadConfigFromStruct() error {
	return c.LoadConfigWithFlagSet(pflag.CommandLine)
}
